package licensing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/domain/shared"
)

// Test helpers
func newTestApplication(t *testing.T, licenseType LicenseType) *Application {
	t.Helper()
	app, err := NewApplication(NewApplicationInput{
		CompanyID:    uuid.New(),
		ApplicantID:  uuid.New(),
		LicenseType:  licenseType,
		Title:        "Warung Makan Sederhana",
		Description:  "Registration for a family food stall",
		ContactEmail: "owner@warung.id",
	})
	require.NoError(t, err)
	return app
}

func applicationInStatus(t *testing.T, status ApplicationStatus) *Application {
	t.Helper()
	app := newTestApplication(t, LicenseTypeNIB)
	app.Status = status
	app.CurrentStage = status.Stage()
	if status != StatusDraft {
		submitted := time.Now().Add(-72 * time.Hour)
		app.SubmittedAt = &submitted
	}
	return app
}

// perform dispatches an action with valid arguments so only the status decides the outcome
func perform(a *Application, action Action) (*StatusHistoryEntry, error) {
	reviewer := uuid.New()
	switch action {
	case ActionSubmit:
		return a.Submit(a.ApplicantID)
	case ActionAssignReviewer:
		_, err := a.AssignReviewer(reviewer)
		return nil, err
	case ActionStartReview:
		return a.StartReview(reviewer)
	case ActionApprove:
		return a.Approve(DefaultApprovalDetails(a, "ok", time.Now()), reviewer)
	case ActionReject:
		return a.Reject("incomplete data", "", reviewer)
	case ActionRequestRevision:
		return a.RequestRevision("please upload deed", reviewer)
	case ActionEscalate:
		return a.Escalate("", reviewer)
	case ActionResubmit:
		return a.ResubmitDocuments(a.ApplicantID, "")
	case ActionUploadDocument:
		_, err := NewDocument(a, NewDocumentInput{
			DocumentType: DocumentTypeIdentityCard,
			FileName:     "ktp.pdf",
			ContentType:  "application/pdf",
			SizeBytes:    1024,
			UploadedBy:   a.ApplicantID,
		})
		return nil, err
	case ActionDelete:
		return nil, a.EnsureDeletable(a.ApplicantID)
	case ActionSuspend:
		return a.Suspend("audit finding", reviewer)
	case ActionReinstate:
		return a.Reinstate("", reviewer)
	case ActionExpire:
		return a.Expire(SystemActorID, true)
	}
	return nil, errors.New("unhandled action")
}

// ============================================
// NewApplication Tests
// ============================================

func TestNewApplication(t *testing.T) {
	app := newTestApplication(t, LicenseTypeNIB)

	assert.Equal(t, StatusDraft, app.Status)
	assert.Equal(t, PriorityNormal, app.Priority)
	assert.Equal(t, 7, app.EstimatedProcessingDays)
	assert.Equal(t, 1, app.CurrentStage)
	assert.Equal(t, TotalStages, app.TotalStages)
	assert.Nil(t, app.AssignedReviewerID)
	assert.Nil(t, app.SubmittedAt)
	require.NotNil(t, app.EstimatedCompletionAt)
	assert.WithinDuration(t, app.CreatedAt.Add(7*24*time.Hour), *app.EstimatedCompletionAt, time.Second)
	assert.Equal(t, 1, app.GetVersion())
}

func TestNewApplication_Validation(t *testing.T) {
	valid := NewApplicationInput{
		CompanyID:   uuid.New(),
		ApplicantID: uuid.New(),
		LicenseType: LicenseTypeSIUP,
		Title:       "Toko Kelontong",
	}

	tests := []struct {
		name   string
		mutate func(in *NewApplicationInput)
		field  string
	}{
		{"missing company", func(in *NewApplicationInput) { in.CompanyID = uuid.Nil }, "company_id"},
		{"missing applicant", func(in *NewApplicationInput) { in.ApplicantID = uuid.Nil }, "applicant_id"},
		{"unknown type", func(in *NewApplicationInput) { in.LicenseType = "PATENT" }, "license_type"},
		{"blank title", func(in *NewApplicationInput) { in.Title = "   " }, "title"},
		{"bad email", func(in *NewApplicationInput) { in.ContactEmail = "not-an-email" }, "contact_email"},
		{"bad priority", func(in *NewApplicationInput) { in.Priority = "CRITICAL" }, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := NewApplication(in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}
}

// ============================================
// Transition Table Tests
// ============================================

// legalTransitions lists, per action, the statuses it may start from and the status it lands in.
// Pairs missing here must fail with InvalidTransitionError.
var legalTransitions = map[Action]map[ApplicationStatus]ApplicationStatus{
	ActionSubmit: {StatusDraft: StatusSubmitted},
	ActionAssignReviewer: {
		StatusSubmitted:        StatusSubmitted,
		StatusProcessing:       StatusProcessing,
		StatusPendingDocuments: StatusPendingDocuments,
	},
	ActionStartReview: {StatusSubmitted: StatusProcessing},
	ActionApprove: {
		StatusProcessing:       StatusApproved,
		StatusPendingDocuments: StatusApproved,
	},
	ActionReject: {
		StatusProcessing:       StatusRejected,
		StatusPendingDocuments: StatusRejected,
	},
	ActionRequestRevision: {StatusProcessing: StatusPendingDocuments},
	ActionEscalate: {
		StatusSubmitted:        StatusProcessing,
		StatusProcessing:       StatusProcessing,
		StatusPendingDocuments: StatusProcessing,
	},
	ActionResubmit: {StatusPendingDocuments: StatusProcessing},
	ActionUploadDocument: {
		StatusDraft:            StatusDraft,
		StatusSubmitted:        StatusSubmitted,
		StatusProcessing:       StatusProcessing,
		StatusPendingDocuments: StatusPendingDocuments,
	},
	ActionDelete:    {StatusDraft: StatusDraft},
	ActionSuspend:   {StatusApproved: StatusSuspended},
	ActionReinstate: {StatusSuspended: StatusApproved},
	ActionExpire: {
		StatusApproved:  StatusExpired,
		StatusSuspended: StatusExpired,
	},
}

func TestTransitionLegality(t *testing.T) {
	require.Len(t, legalTransitions, len(AllActions()), "every action needs a row")

	for _, status := range AllStatuses() {
		for _, action := range AllActions() {
			status, action := status, action
			t.Run(string(status)+"/"+string(action), func(t *testing.T) {
				target, legal := legalTransitions[action][status]
				assert.Equal(t, legal, action.AllowedFrom(status))

				app := applicationInStatus(t, status)
				before := *app

				entry, err := perform(app, action)

				if !legal {
					var it *InvalidTransitionError
					require.ErrorAs(t, err, &it)
					assert.Equal(t, status, it.Current)
					assert.Equal(t, action, it.Action)
					assert.Nil(t, entry)
					assert.Equal(t, before, *app, "failed action must not mutate")
					return
				}

				require.NoError(t, err)
				assert.Equal(t, target, app.Status)
				if target != status || action == ActionEscalate {
					require.NotNil(t, entry)
					require.NotNil(t, entry.FromStatus)
					assert.Equal(t, status, *entry.FromStatus)
					assert.Equal(t, target, entry.ToStatus)
				} else {
					assert.Nil(t, entry)
				}
				assert.LessOrEqual(t, app.CurrentStage, app.TotalStages)
				assert.GreaterOrEqual(t, app.CurrentStage, 1)
			})
		}
	}
}

func TestRejectFromDraft_IsInvalidTransition(t *testing.T) {
	app := newTestApplication(t, LicenseTypeNIB)

	entry, err := app.Reject("missing documents", "", uuid.New())

	assert.True(t, IsInvalidTransition(err))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.Nil(t, entry)
	assert.Equal(t, StatusDraft, app.Status)
	assert.Nil(t, app.RejectedAt)
	assert.Empty(t, app.GetDomainEvents())
}

// ============================================
// Workflow Tests
// ============================================

func TestSubmit(t *testing.T) {
	app := newTestApplication(t, LicenseTypeNIB)

	entry, err := app.Submit(app.ApplicantID)
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, app.Status)
	require.NotNil(t, app.SubmittedAt)
	require.NotNil(t, app.EstimatedCompletionAt)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), *app.EstimatedCompletionAt, 5*time.Second)
	assert.Equal(t, StatusDraft, *entry.FromStatus)
	assert.Equal(t, StatusSubmitted, entry.ToStatus)
	assert.False(t, entry.IsSystemGenerated)

	events := app.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeApplicationSubmitted, events[0].EventType())
}

func TestSubmit_RequiresOwner(t *testing.T) {
	app := newTestApplication(t, LicenseTypeNIB)

	_, err := app.Submit(uuid.New())
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, StatusDraft, app.Status)
}

func TestAssignReviewer(t *testing.T) {
	app := applicationInStatus(t, StatusSubmitted)
	r1, r2 := uuid.New(), uuid.New()

	changed, err := app.AssignReviewer(r1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusSubmitted, app.Status)

	changed, err = app.AssignReviewer(r1)
	require.NoError(t, err)
	assert.False(t, changed, "same reviewer is a no-op")

	changed, err = app.AssignReviewer(r2)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, app.IsAssignedTo(r2))

	_, err = app.AssignReviewer(uuid.Nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestStartReview_OtherReviewerRejected(t *testing.T) {
	app := applicationInStatus(t, StatusSubmitted)
	r1 := uuid.New()
	_, err := app.AssignReviewer(r1)
	require.NoError(t, err)

	_, err = app.StartReview(uuid.New())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, StatusSubmitted, app.Status)

	entry, err := app.StartReview(r1)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, entry.ToStatus)
}

func TestApprove_TerminalExclusivity(t *testing.T) {
	app := applicationInStatus(t, StatusProcessing)
	reviewer := uuid.New()
	app.AssignedReviewerID = &reviewer
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := app.Approve(ApprovalDetails{
		LicenseNumber:    "NIB-123",
		IssueDate:        issued,
		IssuingAuthority: "Lembaga OSS",
	}, reviewer)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, app.Status)
	assert.NotNil(t, app.ApprovedAt)
	assert.Nil(t, app.RejectedAt)
	assert.Nil(t, app.AssignedReviewerID)
	assert.Equal(t, &reviewer, app.ReviewedBy)
	require.NotNil(t, app.ActualProcessingDays)
	assert.Equal(t, 3, *app.ActualProcessingDays)
	assert.Equal(t, TotalStages, app.CurrentStage)

	_, err = app.Reject("too late", "", reviewer)
	assert.True(t, IsInvalidTransition(err))
	assert.Nil(t, app.RejectedAt)
}

func TestApprove_Validation(t *testing.T) {
	app := applicationInStatus(t, StatusProcessing)
	issue := time.Now()
	before := issue.Add(-time.Hour)

	tests := []struct {
		name    string
		details ApprovalDetails
		field   string
	}{
		{"missing number", ApprovalDetails{IssueDate: issue, IssuingAuthority: "X"}, "license_number"},
		{"missing authority", ApprovalDetails{LicenseNumber: "N", IssueDate: issue}, "issuing_authority"},
		{"missing issue date", ApprovalDetails{LicenseNumber: "N", IssuingAuthority: "X"}, "issue_date"},
		{"expiry before issue", ApprovalDetails{LicenseNumber: "N", IssuingAuthority: "X", IssueDate: issue, ExpiryDate: &before}, "expiry_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Approve(tt.details, uuid.New())
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, StatusProcessing, app.Status)
		})
	}
}

func TestReject_WithoutSubmittedAt_LeavesDaysUnset(t *testing.T) {
	app := newTestApplication(t, LicenseTypeNPWP)
	app.Status = StatusProcessing
	app.CurrentStage = StatusProcessing.Stage()
	require.Nil(t, app.SubmittedAt)

	_, err := app.Reject("duplicate", "", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, app.ActualProcessingDays)
	assert.NotNil(t, app.RejectedAt)
	assert.Nil(t, app.ApprovedAt)
}

func TestEscalate_SLAMonotonicity(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		t.Run(string(p), func(t *testing.T) {
			app := newTestApplication(t, LicenseTypeHalal)
			app.Priority = p
			_, err := app.Submit(app.ApplicantID)
			require.NoError(t, err)
			prior := *app.EstimatedCompletionAt

			_, err = app.Escalate("customer complaint", uuid.New())
			require.NoError(t, err)

			assert.Equal(t, PriorityUrgent, app.Priority)
			assert.False(t, app.EstimatedCompletionAt.After(prior))
			assert.Equal(t, StatusProcessing, app.Status)
		})
	}
}

func TestEscalate_NeverExtendsEarlierTarget(t *testing.T) {
	app := applicationInStatus(t, StatusSubmitted)
	soon := time.Now().Add(time.Hour)
	app.EstimatedCompletionAt = &soon

	_, err := app.Escalate("", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, soon, *app.EstimatedCompletionAt)
}

func TestRequestRevision_KeepsReviewer(t *testing.T) {
	app := applicationInStatus(t, StatusProcessing)
	reviewer := uuid.New()
	app.AssignedReviewerID = &reviewer

	_, err := app.RequestRevision("", reviewer)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	entry, err := app.RequestRevision("Upload akta pendirian", reviewer)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDocuments, entry.ToStatus)
	assert.True(t, app.IsAssignedTo(reviewer))

	entry, err = app.ResubmitDocuments(app.ApplicantID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, entry.ToStatus)
}

func TestLifecycle_SuspendReinstateExpire(t *testing.T) {
	app := applicationInStatus(t, StatusApproved)
	admin := uuid.New()

	_, err := app.Suspend("", admin)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = app.Suspend("audit", admin)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, app.Status)
	assert.NotNil(t, app.SuspendedAt)

	_, err = app.Reinstate("", admin)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, app.Status)
	assert.Nil(t, app.SuspendedAt)

	entry, err := app.Expire(SystemActorID, true)
	require.NoError(t, err)
	assert.True(t, entry.IsSystemGenerated)
	assert.Equal(t, StatusExpired, app.Status)
	assert.True(t, app.Status.IsTerminal())
}

func TestNeedsExpiry(t *testing.T) {
	app := applicationInStatus(t, StatusApproved)
	now := time.Now()
	assert.False(t, app.NeedsExpiry(now))

	past := now.Add(-time.Minute)
	app.ExpiryDate = &past
	assert.True(t, app.NeedsExpiry(now))

	app.Status = StatusExpired
	assert.False(t, app.NeedsExpiry(now))
}

func TestEnsureDeletable(t *testing.T) {
	app := newTestApplication(t, LicenseTypeTDP)

	assert.ErrorIs(t, app.EnsureDeletable(uuid.New()), shared.ErrForbidden)
	assert.NoError(t, app.EnsureDeletable(app.ApplicantID))

	app.Status = StatusSubmitted
	assert.True(t, IsInvalidTransition(app.EnsureDeletable(app.ApplicantID)))
}

func TestDefaultApprovalDetails(t *testing.T) {
	app := newTestApplication(t, LicenseTypeHalal)
	issued := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	details := DefaultApprovalDetails(app, "ok", issued)

	assert.Regexp(t, `^HALAL-20260115-[0-9A-F]{8}$`, details.LicenseNumber)
	assert.Equal(t, "BPJPH", details.IssuingAuthority)
	require.NotNil(t, details.ExpiryDate)
	assert.Equal(t, 2030, details.ExpiryDate.Year())

	nib := newTestApplication(t, LicenseTypeNIB)
	assert.Nil(t, DefaultApprovalDetails(nib, "", issued).ExpiryDate)
}
