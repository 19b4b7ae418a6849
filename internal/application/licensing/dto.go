package licensing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/umkm/backend/internal/domain/licensing"
)

// ==================== Application DTOs ====================

// CreateApplicationRequest represents a request to open a license application
type CreateApplicationRequest struct {
	LicenseType  string `json:"license_type" binding:"required"`
	Title        string `json:"title" binding:"required,min=1,max=200"`
	Description  string `json:"description" binding:"max=5000"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Priority     string `json:"priority" binding:"omitempty,oneof=URGENT HIGH NORMAL LOW"`
}

// AssignReviewerRequest represents a request to assign a reviewer
type AssignReviewerRequest struct {
	ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
}

// RecordReviewRequest represents a reviewer decision
type RecordReviewRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVE REJECT REQUEST_REVISION ESCALATE"`
	Comments string `json:"comments" binding:"max=2000"`
}

// ApproveRequest represents an approval with explicit license details
type ApproveRequest struct {
	LicenseNumber    string     `json:"license_number" binding:"required,max=100"`
	IssueDate        time.Time  `json:"issue_date" binding:"required"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	IssuingAuthority string     `json:"issuing_authority" binding:"required,max=200"`
	Notes            string     `json:"notes" binding:"max=2000"`
}

// RejectRequest represents a rejection
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
	Notes  string `json:"notes" binding:"max=2000"`
}

// NotesRequest carries optional notes for simple transitions
type NotesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// SuspendRequest represents a request to suspend an issued license
type SuspendRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
}

// SearchApplicationsRequest represents the admin listing query
type SearchApplicationsRequest struct {
	Status      string     `form:"status"`
	LicenseType string     `form:"license_type"`
	CompanyID   *uuid.UUID `form:"company_id"`
	ReviewerID  *uuid.UUID `form:"reviewer_id"`
	Search      string     `form:"search"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ApplicationResponse represents a license application in API responses
type ApplicationResponse struct {
	ID                      uuid.UUID       `json:"id"`
	CompanyID               uuid.UUID       `json:"company_id"`
	ApplicantID             uuid.UUID       `json:"applicant_id"`
	LicenseType             string          `json:"license_type"`
	LicenseTypeName         string          `json:"license_type_name"`
	Title                   string          `json:"title"`
	Description             string          `json:"description,omitempty"`
	ContactEmail            string          `json:"contact_email,omitempty"`
	Status                  string          `json:"status"`
	Priority                string          `json:"priority"`
	CurrentStage            int             `json:"current_stage"`
	TotalStages             int             `json:"total_stages"`
	AssignedReviewerID      *uuid.UUID      `json:"assigned_reviewer_id,omitempty"`
	ReviewedBy              *uuid.UUID      `json:"reviewed_by,omitempty"`
	FeeAmount               decimal.Decimal `json:"fee_amount"`
	EstimatedProcessingDays int             `json:"estimated_processing_days"`
	EstimatedCompletionAt   *time.Time      `json:"estimated_completion_at,omitempty"`
	SubmittedAt             *time.Time      `json:"submitted_at,omitempty"`
	ApprovedAt              *time.Time      `json:"approved_at,omitempty"`
	RejectedAt              *time.Time      `json:"rejected_at,omitempty"`
	SuspendedAt             *time.Time      `json:"suspended_at,omitempty"`
	ExpiredAt               *time.Time      `json:"expired_at,omitempty"`
	LicenseNumber           string          `json:"license_number,omitempty"`
	IssueDate               *time.Time      `json:"issue_date,omitempty"`
	ExpiryDate              *time.Time      `json:"expiry_date,omitempty"`
	IssuingAuthority        string          `json:"issuing_authority,omitempty"`
	AdminNotes              string          `json:"admin_notes,omitempty"`
	RejectionReason         string          `json:"rejection_reason,omitempty"`
	ActualProcessingDays    *int            `json:"actual_processing_days,omitempty"`
	IsOverdue               bool            `json:"is_overdue"`
	Version                 int             `json:"version"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// ToApplicationResponse converts a domain application to a response DTO
func ToApplicationResponse(app *licensing.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:                      app.ID,
		CompanyID:               app.CompanyID,
		ApplicantID:             app.ApplicantID,
		LicenseType:             app.LicenseType.String(),
		LicenseTypeName:         app.LicenseType.DisplayName(),
		Title:                   app.Title,
		Description:             app.Description,
		ContactEmail:            app.ContactEmail,
		Status:                  app.Status.String(),
		Priority:                app.Priority.String(),
		CurrentStage:            app.CurrentStage,
		TotalStages:             app.TotalStages,
		AssignedReviewerID:      app.AssignedReviewerID,
		ReviewedBy:              app.ReviewedBy,
		FeeAmount:               app.FeeAmount,
		EstimatedProcessingDays: app.EstimatedProcessingDays,
		EstimatedCompletionAt:   app.EstimatedCompletionAt,
		SubmittedAt:             app.SubmittedAt,
		ApprovedAt:              app.ApprovedAt,
		RejectedAt:              app.RejectedAt,
		SuspendedAt:             app.SuspendedAt,
		ExpiredAt:               app.ExpiredAt,
		LicenseNumber:           app.LicenseNumber,
		IssueDate:               app.IssueDate,
		ExpiryDate:              app.ExpiryDate,
		IssuingAuthority:        app.IssuingAuthority,
		AdminNotes:              app.AdminNotes,
		RejectionReason:         app.RejectionReason,
		ActualProcessingDays:    app.ActualProcessingDays,
		IsOverdue:               app.IsOverdue(time.Now()),
		Version:                 app.Version,
		CreatedAt:               app.CreatedAt,
		UpdatedAt:               app.UpdatedAt,
	}
}

// ToApplicationResponses converts a list of applications
func ToApplicationResponses(apps []licensing.Application) []ApplicationResponse {
	responses := make([]ApplicationResponse, len(apps))
	for i := range apps {
		responses[i] = ToApplicationResponse(&apps[i])
	}
	return responses
}

// ==================== History DTOs ====================

// HistoryEntryResponse represents one status change
type HistoryEntryResponse struct {
	ID                uuid.UUID `json:"id"`
	FromStatus        *string   `json:"from_status"`
	ToStatus          string    `json:"to_status"`
	ChangedBy         uuid.UUID `json:"changed_by"`
	ChangedAt         time.Time `json:"changed_at"`
	Notes             string    `json:"notes,omitempty"`
	IsSystemGenerated bool      `json:"is_system_generated"`
}

// ToHistoryResponses converts history entries
func ToHistoryResponses(entries []licensing.StatusHistoryEntry) []HistoryEntryResponse {
	responses := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		var from *string
		if e.FromStatus != nil {
			s := e.FromStatus.String()
			from = &s
		}
		responses[i] = HistoryEntryResponse{
			ID:                e.ID,
			FromStatus:        from,
			ToStatus:          e.ToStatus.String(),
			ChangedBy:         e.ChangedBy,
			ChangedAt:         e.ChangedAt,
			Notes:             e.Notes,
			IsSystemGenerated: e.IsSystemGenerated,
		}
	}
	return responses
}

// ==================== Statistics DTOs ====================

// StatisticsResponse summarises applications for an applicant or globally
type StatisticsResponse struct {
	Scope                 string           `json:"scope"`
	UserID                *uuid.UUID       `json:"user_id,omitempty"`
	Total                 int64            `json:"total"`
	Draft                 int64            `json:"draft"`
	Pending               int64            `json:"pending"`
	Processing            int64            `json:"processing"`
	Approved              int64            `json:"approved"`
	Rejected              int64            `json:"rejected"`
	ByStatus              map[string]int64 `json:"by_status"`
	ByType                map[string]int64 `json:"by_type"`
	AverageProcessingDays float64          `json:"average_processing_days"`
	ProcessedCount        int64            `json:"processed_count"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// ToStatisticsResponse converts domain statistics.
// Pending counts submitted applications not yet picked up.
func ToStatisticsResponse(s *licensing.Statistics) StatisticsResponse {
	scope := "global"
	if !s.IsGlobal() {
		scope = "user"
	}
	byStatus := make(map[string]int64, len(s.ByStatus))
	for k, v := range s.ByStatus {
		byStatus[k.String()] = v
	}
	byType := make(map[string]int64, len(s.ByType))
	for k, v := range s.ByType {
		byType[k.String()] = v
	}
	return StatisticsResponse{
		Scope:                 scope,
		UserID:                s.UserID,
		Total:                 s.Total,
		Draft:                 s.Count(licensing.StatusDraft),
		Pending:               s.Count(licensing.StatusSubmitted),
		Processing:            s.Count(licensing.StatusProcessing) + s.Count(licensing.StatusPendingDocuments),
		Approved:              s.Count(licensing.StatusApproved),
		Rejected:              s.Count(licensing.StatusRejected),
		ByStatus:              byStatus,
		ByType:                byType,
		AverageProcessingDays: s.AverageProcessingDays,
		ProcessedCount:        s.ProcessedCount,
		GeneratedAt:           s.GeneratedAt,
	}
}

// ==================== Document DTOs ====================

// RequestUploadRequest declares a document before it is uploaded
type RequestUploadRequest struct {
	DocumentType string `json:"document_type" binding:"required"`
	FileName     string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType  string `json:"content_type" binding:"required"`
	SizeBytes    int64  `json:"size_bytes" binding:"required,min=1"`
}

// DocumentResponse represents a supporting document
type DocumentResponse struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	DocumentType  string    `json:"document_type"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	UploadedBy    uuid.UUID `json:"uploaded_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToDocumentResponse converts a domain document
func ToDocumentResponse(d *licensing.Document) DocumentResponse {
	return DocumentResponse{
		ID:            d.ID,
		ApplicationID: d.ApplicationID,
		DocumentType:  string(d.DocumentType),
		FileName:      d.FileName,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		UploadedBy:    d.UploadedBy,
		CreatedAt:     d.CreatedAt,
	}
}

// UploadTicketResponse pairs a registered document with its presigned upload URL
type UploadTicketResponse struct {
	Document  DocumentResponse  `json:"document"`
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// DownloadURLResponse carries a presigned download URL
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
