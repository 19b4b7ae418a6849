package licensing

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/umkm/backend/internal/domain/shared"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxNotesLength       = 2000
)

// Application is the aggregate root for a license request moving through review
type Application struct {
	shared.BaseAggregateRoot
	CompanyID               uuid.UUID
	ApplicantID             uuid.UUID
	LicenseType             LicenseType
	Title                   string
	Description             string
	ContactEmail            string
	Status                  ApplicationStatus
	Priority                Priority
	CurrentStage            int
	TotalStages             int
	AssignedReviewerID      *uuid.UUID
	ReviewedBy              *uuid.UUID
	FeeAmount               decimal.Decimal
	EstimatedProcessingDays int
	EstimatedCompletionAt   *time.Time
	SubmittedAt             *time.Time
	ApprovedAt              *time.Time
	RejectedAt              *time.Time
	SuspendedAt             *time.Time
	ExpiredAt               *time.Time
	LicenseNumber           string
	IssueDate               *time.Time
	ExpiryDate              *time.Time
	IssuingAuthority        string
	AdminNotes              string
	RejectionReason         string
	ActualProcessingDays    *int
}

// NewApplicationInput carries the fields needed to open a draft
type NewApplicationInput struct {
	CompanyID    uuid.UUID
	ApplicantID  uuid.UUID
	LicenseType  LicenseType
	Title        string
	Description  string
	ContactEmail string
	Priority     Priority
}

// NewApplication creates a draft application
func NewApplication(in NewApplicationInput) (*Application, error) {
	if in.CompanyID == uuid.Nil {
		return nil, NewValidationError("company_id", "is required")
	}
	if in.ApplicantID == uuid.Nil {
		return nil, NewValidationError("applicant_id", "is required")
	}
	if !in.LicenseType.IsValid() {
		return nil, NewValidationError("license_type", fmt.Sprintf("unknown license type %q", in.LicenseType))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError("title", "is required")
	}
	if len(title) > maxTitleLength {
		return nil, NewValidationError("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	if len(in.Description) > maxDescriptionLength {
		return nil, NewValidationError("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}
	if in.ContactEmail != "" {
		if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
			return nil, NewValidationError("contact_email", "is not a valid email address")
		}
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, NewValidationError("priority", fmt.Sprintf("unknown priority %q", priority))
	}

	app := &Application{
		BaseAggregateRoot:       shared.NewBaseAggregateRoot(),
		CompanyID:               in.CompanyID,
		ApplicantID:             in.ApplicantID,
		LicenseType:             in.LicenseType,
		Title:                   title,
		Description:             in.Description,
		ContactEmail:            in.ContactEmail,
		Status:                  StatusDraft,
		Priority:                priority,
		CurrentStage:            StatusDraft.Stage(),
		TotalStages:             TotalStages,
		FeeAmount:               in.LicenseType.Fee(),
		EstimatedProcessingDays: in.LicenseType.DefaultProcessingDays(),
	}
	eta := app.CreatedAt.Add(time.Duration(app.EstimatedProcessingDays) * 24 * time.Hour)
	app.EstimatedCompletionAt = &eta
	return app, nil
}

// CanPerform returns an InvalidTransitionError when action is not allowed in the current status
func (a *Application) CanPerform(action Action) error {
	if !action.AllowedFrom(a.Status) {
		return &InvalidTransitionError{Current: a.Status, Action: action}
	}
	return nil
}

// transition moves the application to the action's target status and returns the history entry.
// Callers must finish all validation before calling it.
func (a *Application) transition(action Action, now time.Time, by uuid.UUID, notes string, system bool) *StatusHistoryEntry {
	from := a.Status
	to := action.Target(from)
	a.Status = to
	a.CurrentStage = to.Stage()
	a.Touch(now)
	entry := NewStatusHistoryEntry(a.ID, &from, to, by, notes, system)
	entry.ChangedAt = now
	return entry
}

// Submit moves a draft into the review queue and starts the priority SLA clock
func (a *Application) Submit(by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionSubmit); err != nil {
		return nil, err
	}
	if by != a.ApplicantID {
		return nil, ErrNotOwner
	}

	now := time.Now()
	a.SubmittedAt = &now
	eta := now.Add(a.Priority.SLA())
	a.EstimatedCompletionAt = &eta
	entry := a.transition(ActionSubmit, now, by, "Application submitted", false)

	a.AddDomainEvent(NewApplicationSubmittedEvent(a))
	return entry, nil
}

// AssignReviewer sets the reviewer without touching status.
// It returns false when the reviewer was already assigned.
func (a *Application) AssignReviewer(reviewerID uuid.UUID) (bool, error) {
	if err := a.CanPerform(ActionAssignReviewer); err != nil {
		return false, err
	}
	if reviewerID == uuid.Nil {
		return false, NewValidationError("reviewer_id", "is required")
	}
	if a.AssignedReviewerID != nil && *a.AssignedReviewerID == reviewerID {
		return false, nil
	}
	a.AssignedReviewerID = &reviewerID
	a.Touch(time.Now())
	return true, nil
}

// IsAssignedTo reports whether reviewerID holds this application
func (a *Application) IsAssignedTo(reviewerID uuid.UUID) bool {
	return a.AssignedReviewerID != nil && *a.AssignedReviewerID == reviewerID
}

// StartReview accepts a submitted application for processing.
// An unassigned application is assigned to the reviewer starting it.
func (a *Application) StartReview(reviewerID uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionStartReview); err != nil {
		return nil, err
	}
	if reviewerID == uuid.Nil {
		return nil, NewValidationError("reviewer_id", "is required")
	}
	if a.AssignedReviewerID != nil && *a.AssignedReviewerID != reviewerID {
		return nil, NewValidationError("reviewer_id", "application is assigned to another reviewer")
	}

	now := time.Now()
	if a.AssignedReviewerID == nil {
		a.AssignedReviewerID = &reviewerID
	}
	return a.transition(ActionStartReview, now, reviewerID, "Review started", false), nil
}

// ApprovalDetails carries the issued license data
type ApprovalDetails struct {
	LicenseNumber    string
	IssueDate        time.Time
	ExpiryDate       *time.Time
	IssuingAuthority string
	Notes            string
}

// Approve issues the license and ends the review
func (a *Application) Approve(details ApprovalDetails, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionApprove); err != nil {
		return nil, err
	}
	if strings.TrimSpace(details.LicenseNumber) == "" {
		return nil, NewValidationError("license_number", "is required")
	}
	if strings.TrimSpace(details.IssuingAuthority) == "" {
		return nil, NewValidationError("issuing_authority", "is required")
	}
	if details.IssueDate.IsZero() {
		return nil, NewValidationError("issue_date", "is required")
	}
	if details.ExpiryDate != nil && !details.ExpiryDate.After(details.IssueDate) {
		return nil, NewValidationError("expiry_date", "must be after issue date")
	}
	if len(details.Notes) > maxNotesLength {
		return nil, NewValidationError("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}

	now := time.Now()
	issue := details.IssueDate
	a.ApprovedAt = &now
	a.LicenseNumber = strings.TrimSpace(details.LicenseNumber)
	a.IssueDate = &issue
	a.ExpiryDate = details.ExpiryDate
	a.IssuingAuthority = strings.TrimSpace(details.IssuingAuthority)
	if details.Notes != "" {
		a.AdminNotes = details.Notes
	}
	a.closeReview(by, now)
	entry := a.transition(ActionApprove, now, by, details.Notes, false)

	a.AddDomainEvent(NewApplicationApprovedEvent(a))
	return entry, nil
}

// Reject ends the review without issuing a license
func (a *Application) Reject(reason, notes string, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionReject); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason", "is required")
	}
	if len(reason) > maxNotesLength || len(notes) > maxNotesLength {
		return nil, NewValidationError("reason", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}

	now := time.Now()
	a.RejectedAt = &now
	a.RejectionReason = reason
	if notes != "" {
		a.AdminNotes = notes
	}
	a.closeReview(by, now)
	historyNotes := reason
	if notes != "" {
		historyNotes = reason + "; " + notes
	}
	entry := a.transition(ActionReject, now, by, historyNotes, false)

	a.AddDomainEvent(NewApplicationRejectedEvent(a))
	return entry, nil
}

// closeReview frees the reviewer slot and fixes the processing duration
func (a *Application) closeReview(by uuid.UUID, decidedAt time.Time) {
	reviewer := by
	a.ReviewedBy = &reviewer
	a.AssignedReviewerID = nil
	if a.SubmittedAt != nil {
		days := int(decidedAt.Sub(*a.SubmittedAt).Hours() / 24)
		a.ActualProcessingDays = &days
	}
}

// RequestRevision sends the application back to the applicant for more documents.
// The assigned reviewer keeps the application.
func (a *Application) RequestRevision(notes string, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionRequestRevision); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, NewValidationError("comments", "describe the documents required")
	}
	if len(notes) > maxNotesLength {
		return nil, NewValidationError("comments", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}

	now := time.Now()
	a.AdminNotes = notes
	entry := a.transition(ActionRequestRevision, now, by, notes, false)

	a.AddDomainEvent(NewApplicationRevisionRequestedEvent(a, notes))
	return entry, nil
}

// ResubmitDocuments returns an application awaiting documents to processing
func (a *Application) ResubmitDocuments(by uuid.UUID, notes string) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionResubmit); err != nil {
		return nil, err
	}
	if by != a.ApplicantID {
		return nil, ErrNotOwner
	}
	if notes == "" {
		notes = "Documents resubmitted"
	}
	return a.transition(ActionResubmit, time.Now(), by, notes, false), nil
}

// Escalate forces urgent priority and pulls the completion target forward.
// The estimate never moves later than its prior value.
func (a *Application) Escalate(notes string, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionEscalate); err != nil {
		return nil, err
	}
	if len(notes) > maxNotesLength {
		return nil, NewValidationError("comments", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}

	now := time.Now()
	a.Priority = PriorityUrgent
	eta := now.Add(PriorityUrgent.SLA())
	if a.EstimatedCompletionAt == nil || eta.Before(*a.EstimatedCompletionAt) {
		a.EstimatedCompletionAt = &eta
	}
	if notes == "" {
		notes = "Escalated to urgent"
	}
	return a.transition(ActionEscalate, now, by, notes, false), nil
}

// Suspend temporarily withdraws an issued license
func (a *Application) Suspend(reason string, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionSuspend); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, NewValidationError("reason", "is required")
	}
	now := time.Now()
	a.SuspendedAt = &now
	return a.transition(ActionSuspend, now, by, reason, false), nil
}

// Reinstate restores a suspended license
func (a *Application) Reinstate(notes string, by uuid.UUID) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionReinstate); err != nil {
		return nil, err
	}
	if a.ExpiryDate != nil && !a.ExpiryDate.After(time.Now()) {
		return nil, NewValidationError("expiry_date", "license has passed its expiry date")
	}
	a.SuspendedAt = nil
	if notes == "" {
		notes = "License reinstated"
	}
	return a.transition(ActionReinstate, time.Now(), by, notes, false), nil
}

// Expire ends the validity of an issued license
func (a *Application) Expire(by uuid.UUID, system bool) (*StatusHistoryEntry, error) {
	if err := a.CanPerform(ActionExpire); err != nil {
		return nil, err
	}
	now := time.Now()
	a.ExpiredAt = &now
	entry := a.transition(ActionExpire, now, by, "License expired", system)

	a.AddDomainEvent(NewApplicationExpiredEvent(a))
	return entry, nil
}

// EnsureDeletable checks that requester may delete the application
func (a *Application) EnsureDeletable(requesterID uuid.UUID) error {
	if err := a.CanPerform(ActionDelete); err != nil {
		return err
	}
	if requesterID != a.ApplicantID {
		return ErrNotOwner
	}
	return nil
}

// IsOverdue reports whether the SLA target has passed while still under review
func (a *Application) IsOverdue(now time.Time) bool {
	return a.Status.InReview() && a.EstimatedCompletionAt != nil && now.After(*a.EstimatedCompletionAt)
}

// NeedsExpiry reports whether an issued license has passed its expiry date
func (a *Application) NeedsExpiry(now time.Time) bool {
	return ActionExpire.AllowedFrom(a.Status) && a.ExpiryDate != nil && !now.Before(*a.ExpiryDate)
}

// GenerateLicenseNumber builds a license number of the form TYPE-YYYYMMDD-XXXXXXXX
func GenerateLicenseNumber(t LicenseType, applicationID uuid.UUID, issued time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(applicationID.String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", t, issued.Format("20060102"), suffix)
}

// DefaultApprovalDetails fills license data for a reviewer approval without explicit details
func DefaultApprovalDetails(a *Application, notes string, issued time.Time) ApprovalDetails {
	details := ApprovalDetails{
		LicenseNumber:    GenerateLicenseNumber(a.LicenseType, a.ID, issued),
		IssueDate:        issued,
		IssuingAuthority: a.LicenseType.DefaultIssuingAuthority(),
		Notes:            notes,
	}
	if years := a.LicenseType.ValidityYears(); years > 0 {
		expiry := issued.AddDate(years, 0, 0)
		details.ExpiryDate = &expiry
	}
	return details
}
