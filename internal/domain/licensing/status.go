package licensing

import "fmt"

// ApplicationStatus is the lifecycle state of a license application
type ApplicationStatus string

const (
	StatusDraft            ApplicationStatus = "DRAFT"
	StatusSubmitted        ApplicationStatus = "SUBMITTED"
	StatusProcessing       ApplicationStatus = "PROCESSING"
	StatusPendingDocuments ApplicationStatus = "PENDING_DOCUMENTS"
	StatusApproved         ApplicationStatus = "APPROVED"
	StatusRejected         ApplicationStatus = "REJECTED"
	StatusExpired          ApplicationStatus = "EXPIRED"
	StatusSuspended        ApplicationStatus = "SUSPENDED"
)

// TotalStages is the number of progress stages an application moves through
const TotalStages = 4

// AllStatuses returns every status in lifecycle order
func AllStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		StatusDraft,
		StatusSubmitted,
		StatusProcessing,
		StatusPendingDocuments,
		StatusApproved,
		StatusRejected,
		StatusExpired,
		StatusSuspended,
	}
}

// ParseStatus converts a raw string into an ApplicationStatus
func ParseStatus(raw string) (ApplicationStatus, error) {
	s := ApplicationStatus(raw)
	if !s.IsValid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

// IsValid checks if the status is a known value
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusProcessing, StatusPendingDocuments,
		StatusApproved, StatusRejected, StatusExpired, StatusSuspended:
		return true
	}
	return false
}

// String returns the string representation
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the review workflow has ended for this status.
// Suspended is not terminal: a suspended license can be reinstated or expire.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired:
		return true
	case StatusDraft, StatusSubmitted, StatusProcessing, StatusPendingDocuments, StatusSuspended:
		return false
	}
	return false
}

// InReview reports whether the application occupies a reviewer's workload slot
func (s ApplicationStatus) InReview() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusPendingDocuments:
		return true
	case StatusDraft, StatusApproved, StatusRejected, StatusExpired, StatusSuspended:
		return false
	}
	return false
}

// Stage maps a status to its progress stage in [1, TotalStages]
func (s ApplicationStatus) Stage() int {
	switch s {
	case StatusDraft:
		return 1
	case StatusSubmitted:
		return 2
	case StatusProcessing, StatusPendingDocuments:
		return 3
	case StatusApproved, StatusRejected, StatusExpired, StatusSuspended:
		return TotalStages
	}
	return 1
}

// InReviewStatuses returns the statuses counted toward reviewer workload
func InReviewStatuses() []ApplicationStatus {
	var out []ApplicationStatus
	for _, s := range AllStatuses() {
		if s.InReview() {
			out = append(out, s)
		}
	}
	return out
}
