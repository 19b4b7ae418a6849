package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/umkm/backend/internal/domain/licensing"
)

// LicenseApplicationModel is the persistence model for the Application aggregate
type LicenseApplicationModel struct {
	AggregateModel
	CompanyID               uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ApplicantID             uuid.UUID                   `gorm:"type:uuid;not null;index"`
	LicenseType             licensing.LicenseType       `gorm:"type:varchar(30);not null;index"`
	Title                   string                      `gorm:"type:varchar(200);not null"`
	Description             string                      `gorm:"type:text"`
	ContactEmail            string                      `gorm:"type:varchar(255)"`
	Status                  licensing.ApplicationStatus `gorm:"type:varchar(30);not null;index"`
	Priority                licensing.Priority          `gorm:"type:varchar(20);not null"`
	CurrentStage            int                         `gorm:"not null;default:1"`
	TotalStages             int                         `gorm:"not null;default:4"`
	AssignedReviewerID      *uuid.UUID                  `gorm:"type:uuid;index"`
	ReviewedBy              *uuid.UUID                  `gorm:"type:uuid"`
	FeeAmount               decimal.Decimal             `gorm:"type:numeric(18,2);not null;default:0"`
	EstimatedProcessingDays int                         `gorm:"not null"`
	EstimatedCompletionAt   *time.Time
	SubmittedAt             *time.Time
	ApprovedAt              *time.Time
	RejectedAt              *time.Time
	SuspendedAt             *time.Time
	ExpiredAt               *time.Time
	LicenseNumber           string     `gorm:"type:varchar(60)"`
	IssueDate               *time.Time `gorm:"type:date"`
	ExpiryDate              *time.Time `gorm:"type:date;index"`
	IssuingAuthority        string     `gorm:"type:varchar(200)"`
	AdminNotes              string     `gorm:"type:text"`
	RejectionReason         string     `gorm:"type:text"`
	ActualProcessingDays    *int
}

// TableName returns the table name for GORM
func (LicenseApplicationModel) TableName() string {
	return "license_applications"
}

// ToDomain converts the persistence model to a domain Application
func (m *LicenseApplicationModel) ToDomain() *licensing.Application {
	return &licensing.Application{
		BaseAggregateRoot:       m.ToDomainAggregateRoot(),
		CompanyID:               m.CompanyID,
		ApplicantID:             m.ApplicantID,
		LicenseType:             m.LicenseType,
		Title:                   m.Title,
		Description:             m.Description,
		ContactEmail:            m.ContactEmail,
		Status:                  m.Status,
		Priority:                m.Priority,
		CurrentStage:            m.CurrentStage,
		TotalStages:             m.TotalStages,
		AssignedReviewerID:      m.AssignedReviewerID,
		ReviewedBy:              m.ReviewedBy,
		FeeAmount:               m.FeeAmount,
		EstimatedProcessingDays: m.EstimatedProcessingDays,
		EstimatedCompletionAt:   m.EstimatedCompletionAt,
		SubmittedAt:             m.SubmittedAt,
		ApprovedAt:              m.ApprovedAt,
		RejectedAt:              m.RejectedAt,
		SuspendedAt:             m.SuspendedAt,
		ExpiredAt:               m.ExpiredAt,
		LicenseNumber:           m.LicenseNumber,
		IssueDate:               m.IssueDate,
		ExpiryDate:              m.ExpiryDate,
		IssuingAuthority:        m.IssuingAuthority,
		AdminNotes:              m.AdminNotes,
		RejectionReason:         m.RejectionReason,
		ActualProcessingDays:    m.ActualProcessingDays,
	}
}

// LicenseApplicationModelFromDomain creates a persistence model from an Application
func LicenseApplicationModelFromDomain(a *licensing.Application) *LicenseApplicationModel {
	m := &LicenseApplicationModel{
		CompanyID:               a.CompanyID,
		ApplicantID:             a.ApplicantID,
		LicenseType:             a.LicenseType,
		Title:                   a.Title,
		Description:             a.Description,
		ContactEmail:            a.ContactEmail,
		Status:                  a.Status,
		Priority:                a.Priority,
		CurrentStage:            a.CurrentStage,
		TotalStages:             a.TotalStages,
		AssignedReviewerID:      a.AssignedReviewerID,
		ReviewedBy:              a.ReviewedBy,
		FeeAmount:               a.FeeAmount,
		EstimatedProcessingDays: a.EstimatedProcessingDays,
		EstimatedCompletionAt:   a.EstimatedCompletionAt,
		SubmittedAt:             a.SubmittedAt,
		ApprovedAt:              a.ApprovedAt,
		RejectedAt:              a.RejectedAt,
		SuspendedAt:             a.SuspendedAt,
		ExpiredAt:               a.ExpiredAt,
		LicenseNumber:           a.LicenseNumber,
		IssueDate:               a.IssueDate,
		ExpiryDate:              a.ExpiryDate,
		IssuingAuthority:        a.IssuingAuthority,
		AdminNotes:              a.AdminNotes,
		RejectionReason:         a.RejectionReason,
		ActualProcessingDays:    a.ActualProcessingDays,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// MutableColumns returns the column values an update may change.
// Version is set by the repository.
func (m *LicenseApplicationModel) MutableColumns() map[string]any {
	return map[string]any{
		"title":                     m.Title,
		"description":               m.Description,
		"contact_email":             m.ContactEmail,
		"status":                    m.Status,
		"priority":                  m.Priority,
		"current_stage":             m.CurrentStage,
		"total_stages":              m.TotalStages,
		"assigned_reviewer_id":      m.AssignedReviewerID,
		"reviewed_by":               m.ReviewedBy,
		"fee_amount":                m.FeeAmount,
		"estimated_processing_days": m.EstimatedProcessingDays,
		"estimated_completion_at":   m.EstimatedCompletionAt,
		"submitted_at":              m.SubmittedAt,
		"approved_at":               m.ApprovedAt,
		"rejected_at":               m.RejectedAt,
		"suspended_at":              m.SuspendedAt,
		"expired_at":                m.ExpiredAt,
		"license_number":            m.LicenseNumber,
		"issue_date":                m.IssueDate,
		"expiry_date":               m.ExpiryDate,
		"issuing_authority":         m.IssuingAuthority,
		"admin_notes":               m.AdminNotes,
		"rejection_reason":          m.RejectionReason,
		"actual_processing_days":    m.ActualProcessingDays,
		"updated_at":                m.UpdatedAt,
	}
}
