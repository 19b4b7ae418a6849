package licensing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"github.com/umkm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrNotAssignedReviewer is returned when a reviewer decides on an application held by someone else
var ErrNotAssignedReviewer = shared.NewDomainError(shared.CodeForbidden, "Application is assigned to another reviewer")

// ErrReviewerPermission is returned when a non-reviewer calls a reviewer operation
var ErrReviewerPermission = shared.NewDomainError(shared.CodeForbidden, "Reviewer permission required")

// ErrAdminPermission is returned when a non-admin calls a license management operation
var ErrAdminPermission = shared.NewDomainError(shared.CodeForbidden, "Admin permission required")

const defaultConflictAttempts = 3

// WorkflowMetrics records workflow outcomes
type WorkflowMetrics interface {
	RecordTransition(ctx context.Context, action licensing.Action, from, to licensing.ApplicationStatus)
	RecordAssignmentRejected(ctx context.Context)
	RecordDecision(ctx context.Context, action licensing.Action, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(context.Context, licensing.Action, licensing.ApplicationStatus, licensing.ApplicationStatus) {
}

func (noopMetrics) RecordAssignmentRejected(context.Context) {}

func (noopMetrics) RecordDecision(context.Context, licensing.Action, time.Duration) {}

// WorkflowService is the single engine that moves license applications between statuses.
// Every mutation loads the application, applies the transition on the aggregate and
// writes it back with a conditional update that also appends the history entry.
type WorkflowService struct {
	repo      licensing.ApplicationRepository
	assigner  *ReviewerAssigner
	publisher shared.EventPublisher
	cleaner   DraftCleaner
	metrics   WorkflowMetrics
	logger    *zap.Logger
	now       func() time.Time
	attempts  int
	workload  int64
}

// WorkflowOption configures a WorkflowService
type WorkflowOption func(*WorkflowService)

// WithEventPublisher publishes domain events after each successful write
func WithEventPublisher(p shared.EventPublisher) WorkflowOption {
	return func(s *WorkflowService) {
		s.publisher = p
	}
}

// WithWorkflowMetrics sets the metrics recorder
func WithWorkflowMetrics(m WorkflowMetrics) WorkflowOption {
	return func(s *WorkflowService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWorkflowLogger sets the logger
func WithWorkflowLogger(l *zap.Logger) WorkflowOption {
	return func(s *WorkflowService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReviewerWorkloadCap overrides the reviewer workload cap
func WithReviewerWorkloadCap(cap int64) WorkflowOption {
	return func(s *WorkflowService) {
		s.workload = cap
	}
}

// WithClock sets the time source used for default approval details
func WithClock(now func() time.Time) WorkflowOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConflictAttempts sets how many times a mutation is tried when it loses a concurrent update
func WithConflictAttempts(n int) WorkflowOption {
	return func(s *WorkflowService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(repo licensing.ApplicationRepository, opts ...WorkflowOption) *WorkflowService {
	s := &WorkflowService{
		repo:     repo,
		metrics:  noopMetrics{},
		logger:   zap.NewNop(),
		now:      time.Now,
		attempts: defaultConflictAttempts,
		workload: DefaultReviewerWorkloadCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.assigner = NewReviewerAssigner(repo, s.workload, s.metrics, s.logger)
	return s
}

// ==================== Applicant operations ====================

// CreateDraft opens a new application in Draft
func (s *WorkflowService) CreateDraft(ctx context.Context, actor Actor, req CreateApplicationRequest) (*licensing.Application, error) {
	in, err := toNewApplicationInput(actor, req)
	if err != nil {
		return nil, err
	}
	app, err := licensing.NewApplication(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), app); err != nil {
		return nil, err
	}

	s.logger.Info("License application drafted",
		zap.String("application_id", app.ID.String()),
		zap.String("license_type", app.LicenseType.String()),
		zap.String("company_id", app.CompanyID.String()),
	)
	return app, nil
}

// SubmitApplication creates an application and submits it in one call
func (s *WorkflowService) SubmitApplication(ctx context.Context, actor Actor, req CreateApplicationRequest) (*licensing.Application, error) {
	app, err := s.CreateDraft(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	entry, err := app.Submit(actor.UserID)
	if err == nil {
		err = s.persist(ctx, app, licensing.StatusDraft, entry, licensing.ActionSubmit)
	}
	if err != nil {
		s.discardDraft(ctx, app.ID, err)
		return nil, err
	}
	return app, nil
}

// discardDraft removes a draft created by SubmitApplication whose submit failed
func (s *WorkflowService) discardDraft(ctx context.Context, id uuid.UUID, cause error) {
	if err := s.repo.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("Failed to discard draft after submit failure",
			zap.String("application_id", id.String()),
			zap.NamedError("submit_error", cause),
			zap.Error(err),
		)
	}
}

// Submit moves a draft into the review queue
func (s *WorkflowService) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*licensing.Application, error) {
	return s.mutate(ctx, id, licensing.ActionSubmit, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		return app.Submit(actor.UserID)
	})
}

// ResubmitDocuments returns an application awaiting documents to processing
func (s *WorkflowService) ResubmitDocuments(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*licensing.Application, error) {
	return s.mutate(ctx, id, licensing.ActionResubmit, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		return app.ResubmitDocuments(actor.UserID, notes)
	})
}

// Delete removes a draft owned by the actor
func (s *WorkflowService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := app.EnsureDeletable(actor.UserID); err != nil {
		return err
	}
	var cleanup func(context.Context)
	if s.cleaner != nil {
		if cleanup, err = s.cleaner.PrepareCleanup(ctx, id); err != nil {
			return err
		}
	}
	storeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Delete(storeCtx, id); err != nil {
		return err
	}
	if cleanup != nil {
		cleanup(storeCtx)
	}

	s.logger.Info("License application deleted", zap.String("application_id", id.String()))
	return nil
}

// ==================== Reviewer operations ====================

// AssignReviewer assigns reviewerID to an application in review.
// Re-assigning the current reviewer is a no-op and skips the workload check.
func (s *WorkflowService) AssignReviewer(ctx context.Context, actor Actor, id, reviewerID uuid.UUID) (*licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	return s.mutate(ctx, id, licensing.ActionAssignReviewer, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		if err := app.CanPerform(licensing.ActionAssignReviewer); err != nil {
			return nil, err
		}
		if app.IsAssignedTo(reviewerID) {
			return nil, errUnchanged
		}
		if err := s.assigner.CheckCapacity(ctx, reviewerID); err != nil {
			return nil, err
		}
		if _, err := app.AssignReviewer(reviewerID); err != nil {
			return nil, err
		}
		s.logger.Info("Reviewer assigned",
			zap.String("application_id", app.ID.String()),
			zap.String("reviewer_id", reviewerID.String()),
		)
		return nil, nil
	})
}

// StartReview accepts a submitted application for processing.
// An unassigned application is assigned to the acting reviewer, subject to the workload cap.
func (s *WorkflowService) StartReview(ctx context.Context, actor Actor, id uuid.UUID) (*licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	return s.mutate(ctx, id, licensing.ActionStartReview, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		if err := app.CanPerform(licensing.ActionStartReview); err != nil {
			return nil, err
		}
		if app.AssignedReviewerID == nil {
			if err := s.assigner.CheckCapacity(ctx, actor.UserID); err != nil {
				return nil, err
			}
		}
		return app.StartReview(actor.UserID)
	})
}

// RecordReview applies a reviewer decision.
// An approval without explicit details gets a generated license number and the default authority.
func (s *WorkflowService) RecordReview(ctx context.Context, actor Actor, id uuid.UUID, decision licensing.ReviewDecision, comments string) (*licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	if !decision.IsValid() {
		return nil, licensing.NewValidationError("decision", "must be APPROVE, REJECT, REQUEST_REVISION or ESCALATE")
	}
	action := decision.Action()
	return s.mutate(ctx, id, action, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		if err := app.CanPerform(action); err != nil {
			return nil, err
		}
		if err := authorizeDecision(actor, app); err != nil {
			return nil, err
		}
		switch decision {
		case licensing.DecisionApprove:
			return app.Approve(licensing.DefaultApprovalDetails(app, comments, s.now()), actor.UserID)
		case licensing.DecisionReject:
			return app.Reject(comments, "", actor.UserID)
		case licensing.DecisionRequestRevision:
			return app.RequestRevision(comments, actor.UserID)
		default:
			return app.Escalate(comments, actor.UserID)
		}
	})
}

// Approve issues the license with explicit details
func (s *WorkflowService) Approve(ctx context.Context, actor Actor, id uuid.UUID, req ApproveRequest) (*licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	details := licensing.ApprovalDetails{
		LicenseNumber:    strings.TrimSpace(req.LicenseNumber),
		IssueDate:        req.IssueDate,
		ExpiryDate:       req.ExpiryDate,
		IssuingAuthority: strings.TrimSpace(req.IssuingAuthority),
		Notes:            req.Notes,
	}
	return s.mutate(ctx, id, licensing.ActionApprove, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		if err := app.CanPerform(licensing.ActionApprove); err != nil {
			return nil, err
		}
		if err := authorizeDecision(actor, app); err != nil {
			return nil, err
		}
		return app.Approve(details, actor.UserID)
	})
}

// Reject ends the review without issuing a license
func (s *WorkflowService) Reject(ctx context.Context, actor Actor, id uuid.UUID, req RejectRequest) (*licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	return s.mutate(ctx, id, licensing.ActionReject, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		if err := app.CanPerform(licensing.ActionReject); err != nil {
			return nil, err
		}
		if err := authorizeDecision(actor, app); err != nil {
			return nil, err
		}
		return app.Reject(req.Reason, req.Notes, actor.UserID)
	})
}

// ==================== License management ====================

// Suspend withdraws an issued license
func (s *WorkflowService) Suspend(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*licensing.Application, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminPermission
	}
	return s.mutate(ctx, id, licensing.ActionSuspend, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		return app.Suspend(reason, actor.UserID)
	})
}

// Reinstate restores a suspended license
func (s *WorkflowService) Reinstate(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*licensing.Application, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminPermission
	}
	return s.mutate(ctx, id, licensing.ActionReinstate, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		return app.Reinstate(notes, actor.UserID)
	})
}

// Expire ends an issued license on an admin's request
func (s *WorkflowService) Expire(ctx context.Context, actor Actor, id uuid.UUID) (*licensing.Application, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminPermission
	}
	return s.mutate(ctx, id, licensing.ActionExpire, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
		return app.Expire(actor.UserID, false)
	})
}

// ExpireDue expires issued licenses past their expiry date as the system actor.
// It returns the number expired; per-application failures are logged and skipped.
func (s *WorkflowService) ExpireDue(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.FindExpirable(ctx, limit)
	if err != nil {
		return 0, err
	}
	now := s.now()
	expired := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		id := due[i].ID
		changed := false
		_, err := s.mutate(ctx, id, licensing.ActionExpire, func(app *licensing.Application) (*licensing.StatusHistoryEntry, error) {
			changed = false
			if !app.NeedsExpiry(now) {
				return nil, errUnchanged
			}
			entry, err := app.Expire(licensing.SystemActorID, true)
			changed = err == nil
			return entry, err
		})
		if err != nil {
			s.logger.Warn("Failed to expire license",
				zap.String("application_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// ==================== Queries ====================

// GetStatus returns an application visible to the actor.
// Applications outside the actor's company are reported as not found unless the actor reviews.
func (s *WorkflowService) GetStatus(ctx context.Context, actor Actor, id uuid.UUID) (*licensing.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, app) {
		return nil, licensing.NewNotFoundError("application", id)
	}
	return app, nil
}

// History returns the status history of an application visible to the actor
func (s *WorkflowService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]licensing.StatusHistoryEntry, error) {
	if _, err := s.GetStatus(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// ListMine lists the actor's own applications
func (s *WorkflowService) ListMine(ctx context.Context, actor Actor) ([]licensing.Application, error) {
	return s.repo.FindByApplicant(ctx, actor.UserID)
}

// ListCompany lists the applications of the actor's company
func (s *WorkflowService) ListCompany(ctx context.Context, actor Actor) ([]licensing.Application, error) {
	return s.repo.FindByCompany(ctx, actor.CompanyID)
}

// ListByStatus lists applications in a status for reviewers
func (s *WorkflowService) ListByStatus(ctx context.Context, actor Actor, status licensing.ApplicationStatus) ([]licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	if !status.IsValid() {
		return nil, licensing.NewValidationError("status", "unknown status")
	}
	return s.repo.FindByStatus(ctx, status)
}

// ListByType lists applications of a license type for reviewers
func (s *WorkflowService) ListByType(ctx context.Context, actor Actor, t licensing.LicenseType) ([]licensing.Application, error) {
	if !actor.CanReview() {
		return nil, ErrReviewerPermission
	}
	if !t.IsValid() {
		return nil, licensing.NewValidationError("license_type", "unknown license type")
	}
	return s.repo.FindByType(ctx, t)
}

// Search lists applications with filters and pagination for reviewers
func (s *WorkflowService) Search(ctx context.Context, actor Actor, req SearchApplicationsRequest) (shared.Paginated[ApplicationResponse], error) {
	if !actor.CanReview() {
		return shared.Paginated[ApplicationResponse]{}, ErrReviewerPermission
	}
	filter, err := toFilter(req)
	if err != nil {
		return shared.Paginated[ApplicationResponse]{}, err
	}
	apps, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return shared.Paginated[ApplicationResponse]{}, err
	}
	return shared.NewPaginated(ToApplicationResponses(apps), total, filter.Page, filter.PageSize), nil
}

// ==================== Internals ====================

// errUnchanged tells mutate the aggregate needs no write
var errUnchanged = errors.New("unchanged")

type mutation func(app *licensing.Application) (*licensing.StatusHistoryEntry, error)

// mutate loads, applies fn and persists, reloading when a concurrent writer won the race
func (s *WorkflowService) mutate(ctx context.Context, id uuid.UUID, action licensing.Action, fn mutation) (*licensing.Application, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "license_application", action.String(),
		telemetry.SpanAttrApplicationID, id.String(),
	)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		app, err := s.repo.FindByID(ctx, id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		expected := app.Status
		entry, err := fn(app)
		if errors.Is(err, errUnchanged) {
			return app, nil
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		err = s.persist(ctx, app, expected, entry, action)
		if err == nil {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrLicenseType, app.LicenseType.String(),
				telemetry.SpanAttrFromStatus, expected.String(),
				telemetry.SpanAttrToStatus, app.Status.String(),
				telemetry.SpanAttrAttempt, attempt,
			)
			return app, nil
		}
		if !licensing.IsConflict(err) || ctx.Err() != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Concurrent update detected, reloading",
			zap.String("application_id", id.String()),
			zap.String("action", action.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}

// persist writes the application detached from caller cancellation, then publishes its events
func (s *WorkflowService) persist(ctx context.Context, app *licensing.Application, expected licensing.ApplicationStatus, entry *licensing.StatusHistoryEntry, action licensing.Action) error {
	storeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Update(storeCtx, app, expected, entry); err != nil {
		app.ClearDomainEvents()
		return err
	}

	if entry != nil {
		s.metrics.RecordTransition(storeCtx, action, expected, entry.ToStatus)
		if (action == licensing.ActionApprove || action == licensing.ActionReject) && app.SubmittedAt != nil {
			s.metrics.RecordDecision(storeCtx, action, entry.ChangedAt.Sub(*app.SubmittedAt))
		}
		s.logger.Info("License application status changed",
			zap.String("application_id", app.ID.String()),
			zap.String("action", action.String()),
			zap.String("from", expected.String()),
			zap.String("to", entry.ToStatus.String()),
			zap.String("changed_by", entry.ChangedBy.String()),
		)
	}
	s.publishEvents(storeCtx, app)
	return nil
}

func (s *WorkflowService) publishEvents(ctx context.Context, app *licensing.Application) {
	events := app.GetDomainEvents()
	app.ClearDomainEvents()
	if len(events) == 0 || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish license events",
			zap.String("application_id", app.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

func authorizeDecision(actor Actor, app *licensing.Application) error {
	if app.AssignedReviewerID == nil || app.IsAssignedTo(actor.UserID) || actor.IsAdmin() {
		return nil
	}
	return ErrNotAssignedReviewer
}

func canView(actor Actor, app *licensing.Application) bool {
	return actor.CanReview() || app.ApplicantID == actor.UserID || app.CompanyID == actor.CompanyID
}

func toNewApplicationInput(actor Actor, req CreateApplicationRequest) (licensing.NewApplicationInput, error) {
	licenseType, err := licensing.ParseLicenseType(req.LicenseType)
	if err != nil {
		return licensing.NewApplicationInput{}, err
	}
	var priority licensing.Priority
	if req.Priority != "" {
		priority, err = licensing.ParsePriority(req.Priority)
		if err != nil {
			return licensing.NewApplicationInput{}, err
		}
	}
	return licensing.NewApplicationInput{
		CompanyID:    actor.CompanyID,
		ApplicantID:  actor.UserID,
		LicenseType:  licenseType,
		Title:        req.Title,
		Description:  req.Description,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Priority:     priority,
	}, nil
}

func toFilter(req SearchApplicationsRequest) (shared.Filter, error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = strings.ToLower(req.OrderDir)
	}
	filter.Search = strings.TrimSpace(req.Search)

	if req.Status != "" {
		status, err := licensing.ParseStatus(req.Status)
		if err != nil {
			return filter, err
		}
		filter.Filters["status"] = status
	}
	if req.LicenseType != "" {
		t, err := licensing.ParseLicenseType(req.LicenseType)
		if err != nil {
			return filter, err
		}
		filter.Filters["license_type"] = t
	}
	if req.CompanyID != nil {
		filter.Filters["company_id"] = *req.CompanyID
	}
	if req.ReviewerID != nil {
		filter.Filters["reviewer_id"] = *req.ReviewerID
	}
	return filter, nil
}
