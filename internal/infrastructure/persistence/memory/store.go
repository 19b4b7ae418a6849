// Package memory provides in-process implementations of the licensing repositories.
// They back unit tests and the single-node demo mode; all data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
)

// ApplicationStore implements licensing.ApplicationRepository in memory
type ApplicationStore struct {
	mu      sync.RWMutex
	apps    map[uuid.UUID]licensing.Application
	history map[uuid.UUID][]licensing.StatusHistoryEntry
	docs    *DocumentStore
}

// NewApplicationStore creates an empty store. Deleting a draft also drops its
// records from docs when docs is non-nil.
func NewApplicationStore(docs *DocumentStore) *ApplicationStore {
	return &ApplicationStore{
		apps:    make(map[uuid.UUID]licensing.Application),
		history: make(map[uuid.UUID][]licensing.StatusHistoryEntry),
		docs:    docs,
	}
}

func snapshot(app *licensing.Application) licensing.Application {
	c := *app
	c.ClearDomainEvents()
	return c
}

// Create persists a new application
func (s *ApplicationStore) Create(ctx context.Context, app *licensing.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; ok {
		return licensing.NewStoreError("create application", shared.ErrAlreadyExists)
	}
	s.apps[app.ID] = snapshot(app)
	return nil
}

// FindByID finds an application by ID
func (s *ApplicationStore) FindByID(ctx context.Context, id uuid.UUID) (*licensing.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, licensing.NewNotFoundError("application", id)
	}
	return &app, nil
}

// Update swaps the stored application when status and version still match
func (s *ApplicationStore) Update(ctx context.Context, app *licensing.Application, expected licensing.ApplicationStatus, entry *licensing.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[app.ID]
	if !ok {
		return licensing.NewNotFoundError("application", app.ID)
	}
	if current.Status != expected || current.Version != app.Version {
		return &licensing.ConflictError{ApplicationID: app.ID, ExpectedStatus: expected}
	}

	app.IncrementVersion()
	s.apps[app.ID] = snapshot(app)
	if entry != nil {
		s.history[app.ID] = append(s.history[app.ID], *entry)
	}
	return nil
}

// Delete removes a draft application
func (s *ApplicationStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[id]
	if !ok {
		return licensing.NewNotFoundError("application", id)
	}
	if current.Status != licensing.StatusDraft {
		return &licensing.InvalidTransitionError{Current: current.Status, Action: licensing.ActionDelete}
	}
	delete(s.apps, id)
	delete(s.history, id)
	if s.docs != nil {
		s.docs.deleteByApplication(id)
	}
	return nil
}

func (s *ApplicationStore) filter(keep func(*licensing.Application) bool) []licensing.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]licensing.Application, 0)
	for _, app := range s.apps {
		if keep(&app) {
			out = append(out, app)
		}
	}
	return out
}

func newestFirst(apps []licensing.Application) []licensing.Application {
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
	return apps
}

// FindByApplicant lists applications opened by a user, newest first
func (s *ApplicationStore) FindByApplicant(ctx context.Context, applicantID uuid.UUID) ([]licensing.Application, error) {
	return newestFirst(s.filter(func(a *licensing.Application) bool { return a.ApplicantID == applicantID })), nil
}

// FindByCompany lists applications owned by a company, newest first
func (s *ApplicationStore) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]licensing.Application, error) {
	return newestFirst(s.filter(func(a *licensing.Application) bool { return a.CompanyID == companyID })), nil
}

// FindByStatus lists applications in a status, oldest submission first
func (s *ApplicationStore) FindByStatus(ctx context.Context, status licensing.ApplicationStatus) ([]licensing.Application, error) {
	apps := s.filter(func(a *licensing.Application) bool { return a.Status == status })
	sort.SliceStable(apps, func(i, j int) bool {
		return queueTime(&apps[i]).Before(queueTime(&apps[j]))
	})
	return apps, nil
}

func queueTime(a *licensing.Application) time.Time {
	if a.SubmittedAt != nil {
		return *a.SubmittedAt
	}
	return a.CreatedAt
}

// FindByType lists applications of a license type, newest first
func (s *ApplicationStore) FindByType(ctx context.Context, licenseType licensing.LicenseType) ([]licensing.Application, error) {
	return newestFirst(s.filter(func(a *licensing.Application) bool { return a.LicenseType == licenseType })), nil
}

// Search filters by status, license_type, company_id, applicant_id and reviewer_id.
// Results are always newest first.
func (s *ApplicationStore) Search(ctx context.Context, filter shared.Filter) ([]licensing.Application, int64, error) {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	apps := newestFirst(s.filter(func(a *licensing.Application) bool {
		if !matches(filter.Filters["status"], string(a.Status)) ||
			!matches(filter.Filters["license_type"], string(a.LicenseType)) ||
			!matches(filter.Filters["company_id"], a.CompanyID.String()) ||
			!matches(filter.Filters["applicant_id"], a.ApplicantID.String()) {
			return false
		}
		if v, ok := filter.Filters["reviewer_id"]; ok && v != nil && v != "" {
			if a.AssignedReviewerID == nil || !matches(v, a.AssignedReviewerID.String()) {
				return false
			}
		}
		if term != "" {
			return strings.Contains(strings.ToLower(a.Title), term) ||
				strings.Contains(strings.ToLower(a.LicenseNumber), term)
		}
		return true
	}))

	total := int64(len(apps))
	start := filter.Offset()
	if start >= len(apps) {
		return []licensing.Application{}, total, nil
	}
	end := len(apps)
	if filter.PageSize > 0 && start+filter.PageSize < end {
		end = start + filter.PageSize
	}
	return apps[start:end], total, nil
}

func matches(want any, got string) bool {
	switch v := want.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == got
	case uuid.UUID:
		return v.String() == got
	case interface{ String() string }:
		return v.String() == got
	}
	return false
}

// FindExpirable lists issued licenses past their expiry date
func (s *ApplicationStore) FindExpirable(ctx context.Context, limit int) ([]licensing.Application, error) {
	now := time.Now()
	apps := s.filter(func(a *licensing.Application) bool { return a.NeedsExpiry(now) })
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].ExpiryDate.Before(*apps[j].ExpiryDate)
	})
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

// CountActiveByReviewer counts in-review applications assigned to a reviewer
func (s *ApplicationStore) CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error) {
	return int64(len(s.filter(func(a *licensing.Application) bool {
		return a.Status.InReview() && a.IsAssignedTo(reviewerID)
	}))), nil
}

// AppendHistory records a history entry
func (s *ApplicationStore) AppendHistory(ctx context.Context, entry *licensing.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.ApplicationID] = append(s.history[entry.ApplicationID], *entry)
	return nil
}

// ListHistory returns a copy of the history ordered by change time
func (s *ApplicationStore) ListHistory(ctx context.Context, applicationID uuid.UUID) ([]licensing.StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]licensing.StatusHistoryEntry(nil), s.history[applicationID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ChangedAt.Before(entries[j].ChangedAt)
	})
	if entries == nil {
		entries = []licensing.StatusHistoryEntry{}
	}
	return entries, nil
}

// AggregateStatistics computes statistics for an applicant, or globally when userID is nil
func (s *ApplicationStore) AggregateStatistics(ctx context.Context, userID *uuid.UUID) (*licensing.Statistics, error) {
	apps := s.filter(func(a *licensing.Application) bool {
		return userID == nil || a.ApplicantID == *userID
	})
	stats := licensing.NewStatistics(userID)
	var sum float64
	var decided int64
	for i := range apps {
		stats.Add(apps[i].Status, apps[i].LicenseType, 1)
		if d := apps[i].ActualProcessingDays; d != nil {
			sum += float64(*d)
			decided++
		}
	}
	stats.SetAverage(sum, decided)
	return stats, nil
}

var _ licensing.ApplicationRepository = (*ApplicationStore)(nil)
