package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"github.com/umkm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormApplicationRepository implements licensing.ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormApplicationRepository) WithTx(tx *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: tx}
}

// Create persists a new application
func (r *GormApplicationRepository) Create(ctx context.Context, app *licensing.Application) error {
	if err := r.db.WithContext(ctx).Create(models.LicenseApplicationModelFromDomain(app)).Error; err != nil {
		return licensing.NewStoreError("create application", err)
	}
	return nil
}

// FindByID finds an application by ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*licensing.Application, error) {
	var model models.LicenseApplicationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.NewNotFoundError("application", id)
		}
		return nil, licensing.NewStoreError("load application", err)
	}
	return model.ToDomain(), nil
}

// Update writes the application guarded by (status, version) and appends entry in the same transaction
func (r *GormApplicationRepository) Update(ctx context.Context, app *licensing.Application, expected licensing.ApplicationStatus, entry *licensing.StatusHistoryEntry) error {
	model := models.LicenseApplicationModelFromDomain(app)
	cols := model.MutableColumns()
	cols["version"] = app.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LicenseApplicationModel{}).
			Where("id = ? AND status = ? AND version = ?", app.ID, expected, app.Version).
			Updates(cols)
		if result.Error != nil {
			return licensing.NewStoreError("update application", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.LicenseApplicationModel{}).Where("id = ?", app.ID).Count(&count).Error; err != nil {
				return licensing.NewStoreError("update application", err)
			}
			if count == 0 {
				return licensing.NewNotFoundError("application", app.ID)
			}
			return &licensing.ConflictError{ApplicationID: app.ID, ExpectedStatus: expected}
		}
		if entry != nil {
			if err := tx.Create(models.StatusHistoryModelFromDomain(entry)).Error; err != nil {
				return licensing.NewStoreError("append history", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	app.IncrementVersion()
	return nil
}

// Delete removes a draft application together with its document records
func (r *GormApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", id, licensing.StatusDraft).Delete(&models.LicenseApplicationModel{})
		if result.Error != nil {
			return licensing.NewStoreError("delete application", result.Error)
		}
		if result.RowsAffected == 0 {
			var model models.LicenseApplicationModel
			if err := tx.Select("status").First(&model, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return licensing.NewNotFoundError("application", id)
				}
				return licensing.NewStoreError("delete application", err)
			}
			return &licensing.InvalidTransitionError{Current: model.Status, Action: licensing.ActionDelete}
		}
		if err := tx.Where("application_id = ?", id).Delete(&models.DocumentModel{}).Error; err != nil {
			return licensing.NewStoreError("delete documents", err)
		}
		return nil
	})
}

// FindByApplicant lists applications opened by a user, newest first
func (r *GormApplicationRepository) FindByApplicant(ctx context.Context, applicantID uuid.UUID) ([]licensing.Application, error) {
	return r.list(ctx, "list applications by applicant", "created_at DESC", "applicant_id = ?", applicantID)
}

// FindByCompany lists applications owned by a company, newest first
func (r *GormApplicationRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]licensing.Application, error) {
	return r.list(ctx, "list applications by company", "created_at DESC", "company_id = ?", companyID)
}

// FindByStatus lists applications in a status in queue order
func (r *GormApplicationRepository) FindByStatus(ctx context.Context, status licensing.ApplicationStatus) ([]licensing.Application, error) {
	return r.list(ctx, "list applications by status", "submitted_at ASC, created_at ASC", "status = ?", status)
}

// FindByType lists applications of a license type, newest first
func (r *GormApplicationRepository) FindByType(ctx context.Context, licenseType licensing.LicenseType) ([]licensing.Application, error) {
	return r.list(ctx, "list applications by type", "created_at DESC", "license_type = ?", licenseType)
}

func (r *GormApplicationRepository) list(ctx context.Context, op, order string, query string, args ...any) ([]licensing.Application, error) {
	var rows []models.LicenseApplicationModel
	if err := r.db.WithContext(ctx).Where(query, args...).Order(order).Find(&rows).Error; err != nil {
		return nil, licensing.NewStoreError(op, err)
	}
	return toApplications(rows), nil
}

// Search lists applications with pagination.
// Recognised filters: status, license_type, company_id, applicant_id, reviewer_id.
// filter.Search matches the title or license number.
func (r *GormApplicationRepository) Search(ctx context.Context, filter shared.Filter) ([]licensing.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LicenseApplicationModel{})
	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, licensing.NewStoreError("search applications", err)
	}

	orderBy := ValidateSortField(filter.OrderBy, LicenseApplicationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.LicenseApplicationModel
	err := query.Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, licensing.NewStoreError("search applications", err)
	}
	return toApplications(rows), total, nil
}

func (r *GormApplicationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	columns := map[string]string{
		"status":       "status",
		"license_type": "license_type",
		"company_id":   "company_id",
		"applicant_id": "applicant_id",
		"reviewer_id":  "assigned_reviewer_id",
	}
	for key, column := range columns {
		if v, ok := filter.Filters[key]; ok && v != nil && v != "" {
			query = query.Where(column+" = ?", v)
		}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(license_number) LIKE ?", like, like)
	}
	return query
}

// FindExpirable lists issued licenses whose expiry date has passed, oldest expiry first
func (r *GormApplicationRepository) FindExpirable(ctx context.Context, limit int) ([]licensing.Application, error) {
	var rows []models.LicenseApplicationModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expiry_date IS NOT NULL AND expiry_date <= ?",
			[]licensing.ApplicationStatus{licensing.StatusApproved, licensing.StatusSuspended}, time.Now()).
		Order("expiry_date ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, licensing.NewStoreError("list expirable applications", err)
	}
	return toApplications(rows), nil
}

// CountActiveByReviewer counts in-review applications assigned to a reviewer
func (r *GormApplicationRepository) CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LicenseApplicationModel{}).
		Where("assigned_reviewer_id = ? AND status IN ?", reviewerID, licensing.InReviewStatuses()).
		Count(&count).Error
	if err != nil {
		return 0, licensing.NewStoreError("count reviewer workload", err)
	}
	return count, nil
}

// AppendHistory records a history entry
func (r *GormApplicationRepository) AppendHistory(ctx context.Context, entry *licensing.StatusHistoryEntry) error {
	if err := r.db.WithContext(ctx).Create(models.StatusHistoryModelFromDomain(entry)).Error; err != nil {
		return licensing.NewStoreError("append history", err)
	}
	return nil
}

// ListHistory returns the history of an application ordered by change time
func (r *GormApplicationRepository) ListHistory(ctx context.Context, applicationID uuid.UUID) ([]licensing.StatusHistoryEntry, error) {
	var rows []models.StatusHistoryModel
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("changed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, licensing.NewStoreError("list history", err)
	}
	entries := make([]licensing.StatusHistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

type statusTypeCount struct {
	Status      licensing.ApplicationStatus
	LicenseType licensing.LicenseType
	Count       int64
}

type processingTotals struct {
	SumDays float64
	Decided int64
}

// AggregateStatistics computes counts and the mean processing time, for one applicant or globally
func (r *GormApplicationRepository) AggregateStatistics(ctx context.Context, userID *uuid.UUID) (*licensing.Statistics, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.LicenseApplicationModel{})
		if userID != nil {
			db = db.Where("applicant_id = ?", *userID)
		}
		return db
	}

	var counts []statusTypeCount
	err := r.db.WithContext(ctx).Scopes(scope).
		Select("status, license_type, COUNT(*) AS count").
		Group("status, license_type").
		Scan(&counts).Error
	if err != nil {
		return nil, licensing.NewStoreError("aggregate statistics", err)
	}

	var totals processingTotals
	err = r.db.WithContext(ctx).Scopes(scope).
		Select("COALESCE(SUM(actual_processing_days), 0) AS sum_days, COUNT(actual_processing_days) AS decided").
		Where("actual_processing_days IS NOT NULL").
		Scan(&totals).Error
	if err != nil {
		return nil, licensing.NewStoreError("aggregate statistics", err)
	}

	stats := licensing.NewStatistics(userID)
	for _, c := range counts {
		stats.Add(c.Status, c.LicenseType, c.Count)
	}
	stats.SetAverage(totals.SumDays, totals.Decided)
	return stats, nil
}

func toApplications(rows []models.LicenseApplicationModel) []licensing.Application {
	apps := make([]licensing.Application, len(rows))
	for i := range rows {
		apps[i] = *rows[i].ToDomain()
	}
	return apps
}

// Ensure GormApplicationRepository implements licensing.ApplicationRepository
var _ licensing.ApplicationRepository = (*GormApplicationRepository)(nil)
