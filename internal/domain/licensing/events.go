package licensing

import (
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/shared"
)

// AggregateTypeApplication is the aggregate type for license applications
const AggregateTypeApplication = "LicenseApplication"

// Event type constants
const (
	EventTypeApplicationSubmitted         = "LicenseApplicationSubmitted"
	EventTypeApplicationApproved          = "LicenseApplicationApproved"
	EventTypeApplicationRejected          = "LicenseApplicationRejected"
	EventTypeApplicationRevisionRequested = "LicenseApplicationRevisionRequested"
	EventTypeApplicationExpired           = "LicenseApplicationExpired"
)

// ApplicationEventData is the payload common to all application events
type ApplicationEventData struct {
	ApplicationID uuid.UUID   `json:"application_id"`
	ApplicantID   uuid.UUID   `json:"applicant_id"`
	ContactEmail  string      `json:"contact_email"`
	LicenseType   LicenseType `json:"license_type"`
	Title         string      `json:"title"`
}

func newEventData(a *Application) ApplicationEventData {
	return ApplicationEventData{
		ApplicationID: a.ID,
		ApplicantID:   a.ApplicantID,
		ContactEmail:  a.ContactEmail,
		LicenseType:   a.LicenseType,
		Title:         a.Title,
	}
}

// ApplicationSubmittedEvent is raised when a draft enters review
type ApplicationSubmittedEvent struct {
	shared.BaseDomainEvent
	ApplicationEventData
	Priority              Priority  `json:"priority"`
	EstimatedCompletionAt time.Time `json:"estimated_completion_at"`
}

// NewApplicationSubmittedEvent creates a new ApplicationSubmittedEvent
func NewApplicationSubmittedEvent(a *Application) *ApplicationSubmittedEvent {
	e := &ApplicationSubmittedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeApplicationSubmitted, AggregateTypeApplication, a.ID, a.CompanyID),
		ApplicationEventData: newEventData(a),
		Priority:             a.Priority,
	}
	if a.EstimatedCompletionAt != nil {
		e.EstimatedCompletionAt = *a.EstimatedCompletionAt
	}
	return e
}

// ApplicationApprovedEvent is raised when a license is issued
type ApplicationApprovedEvent struct {
	shared.BaseDomainEvent
	ApplicationEventData
	LicenseNumber    string     `json:"license_number"`
	IssuingAuthority string     `json:"issuing_authority"`
	IssueDate        time.Time  `json:"issue_date"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
}

// NewApplicationApprovedEvent creates a new ApplicationApprovedEvent
func NewApplicationApprovedEvent(a *Application) *ApplicationApprovedEvent {
	e := &ApplicationApprovedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeApplicationApproved, AggregateTypeApplication, a.ID, a.CompanyID),
		ApplicationEventData: newEventData(a),
		LicenseNumber:        a.LicenseNumber,
		IssuingAuthority:     a.IssuingAuthority,
		ExpiryDate:           a.ExpiryDate,
	}
	if a.IssueDate != nil {
		e.IssueDate = *a.IssueDate
	}
	return e
}

// ApplicationRejectedEvent is raised when a review ends in rejection
type ApplicationRejectedEvent struct {
	shared.BaseDomainEvent
	ApplicationEventData
	Reason string `json:"reason"`
}

// NewApplicationRejectedEvent creates a new ApplicationRejectedEvent
func NewApplicationRejectedEvent(a *Application) *ApplicationRejectedEvent {
	return &ApplicationRejectedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeApplicationRejected, AggregateTypeApplication, a.ID, a.CompanyID),
		ApplicationEventData: newEventData(a),
		Reason:               a.RejectionReason,
	}
}

// ApplicationRevisionRequestedEvent is raised when a reviewer asks for more documents
type ApplicationRevisionRequestedEvent struct {
	shared.BaseDomainEvent
	ApplicationEventData
	Comments string `json:"comments"`
}

// NewApplicationRevisionRequestedEvent creates a new ApplicationRevisionRequestedEvent
func NewApplicationRevisionRequestedEvent(a *Application, comments string) *ApplicationRevisionRequestedEvent {
	return &ApplicationRevisionRequestedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeApplicationRevisionRequested, AggregateTypeApplication, a.ID, a.CompanyID),
		ApplicationEventData: newEventData(a),
		Comments:             comments,
	}
}

// ApplicationExpiredEvent is raised when an issued license lapses
type ApplicationExpiredEvent struct {
	shared.BaseDomainEvent
	ApplicationEventData
	LicenseNumber string `json:"license_number"`
}

// NewApplicationExpiredEvent creates a new ApplicationExpiredEvent
func NewApplicationExpiredEvent(a *Application) *ApplicationExpiredEvent {
	return &ApplicationExpiredEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeApplicationExpired, AggregateTypeApplication, a.ID, a.CompanyID),
		ApplicationEventData: newEventData(a),
		LicenseNumber:        a.LicenseNumber,
	}
}
