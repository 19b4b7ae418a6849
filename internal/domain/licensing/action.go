package licensing

import "fmt"

// Action is a command that may move an application between statuses
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionAssignReviewer  Action = "assign_reviewer"
	ActionStartReview     Action = "start_review"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionEscalate        Action = "escalate"
	ActionResubmit        Action = "resubmit_documents"
	ActionUploadDocument  Action = "upload_document"
	ActionDelete          Action = "delete"
	ActionSuspend         Action = "suspend"
	ActionReinstate       Action = "reinstate"
	ActionExpire          Action = "expire"
)

// AllActions returns every action
func AllActions() []Action {
	return []Action{
		ActionSubmit,
		ActionAssignReviewer,
		ActionStartReview,
		ActionApprove,
		ActionReject,
		ActionRequestRevision,
		ActionEscalate,
		ActionResubmit,
		ActionUploadDocument,
		ActionDelete,
		ActionSuspend,
		ActionReinstate,
		ActionExpire,
	}
}

// String returns the string representation
func (a Action) String() string {
	return string(a)
}

// AllowedFrom reports whether the action may be taken while the application is in status s
func (a Action) AllowedFrom(s ApplicationStatus) bool {
	switch a {
	case ActionSubmit, ActionDelete:
		return s == StatusDraft
	case ActionAssignReviewer:
		return s.InReview()
	case ActionStartReview:
		return s == StatusSubmitted
	case ActionApprove, ActionReject:
		return s == StatusProcessing || s == StatusPendingDocuments
	case ActionRequestRevision:
		return s == StatusProcessing
	case ActionEscalate:
		return s.InReview()
	case ActionResubmit:
		return s == StatusPendingDocuments
	case ActionUploadDocument:
		return s == StatusDraft || s.InReview()
	case ActionSuspend:
		return s == StatusApproved
	case ActionReinstate:
		return s == StatusSuspended
	case ActionExpire:
		return s == StatusApproved || s == StatusSuspended
	}
	return false
}

// ChangesStatus reports whether a successful action records a status transition
func (a Action) ChangesStatus() bool {
	switch a {
	case ActionAssignReviewer, ActionUploadDocument, ActionDelete:
		return false
	case ActionSubmit, ActionStartReview, ActionApprove, ActionReject, ActionRequestRevision,
		ActionEscalate, ActionResubmit, ActionSuspend, ActionReinstate, ActionExpire:
		return true
	}
	return false
}

// Target returns the status an application lands in after the action
func (a Action) Target(from ApplicationStatus) ApplicationStatus {
	switch a {
	case ActionSubmit:
		return StatusSubmitted
	case ActionStartReview, ActionEscalate, ActionResubmit:
		return StatusProcessing
	case ActionApprove, ActionReinstate:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	case ActionRequestRevision:
		return StatusPendingDocuments
	case ActionSuspend:
		return StatusSuspended
	case ActionExpire:
		return StatusExpired
	case ActionAssignReviewer, ActionUploadDocument, ActionDelete:
		return from
	}
	return from
}

// ReviewDecision is a reviewer's verdict on an application under review
type ReviewDecision string

const (
	DecisionApprove         ReviewDecision = "APPROVE"
	DecisionReject          ReviewDecision = "REJECT"
	DecisionRequestRevision ReviewDecision = "REQUEST_REVISION"
	DecisionEscalate        ReviewDecision = "ESCALATE"
)

// ParseReviewDecision converts a raw string into a ReviewDecision
func ParseReviewDecision(raw string) (ReviewDecision, error) {
	d := ReviewDecision(raw)
	if !d.IsValid() {
		return "", NewValidationError("decision", fmt.Sprintf("unknown decision %q", raw))
	}
	return d, nil
}

// IsValid checks if the decision is a known value
func (d ReviewDecision) IsValid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRequestRevision, DecisionEscalate:
		return true
	}
	return false
}

// Action returns the workflow action a decision triggers
func (d ReviewDecision) Action() Action {
	switch d {
	case DecisionApprove:
		return ActionApprove
	case DecisionReject:
		return ActionReject
	case DecisionRequestRevision:
		return ActionRequestRevision
	case DecisionEscalate:
		return ActionEscalate
	}
	return ""
}
