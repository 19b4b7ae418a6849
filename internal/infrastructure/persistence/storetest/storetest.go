// Package storetest holds the behaviour every licensing repository implementation must satisfy.
// Each backend runs the same suite from its own _test.go file.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
)

// Factory returns fresh, empty repositories for one subtest
type Factory func(t *testing.T) (licensing.ApplicationRepository, licensing.DocumentRepository)

// Fixture builds applications and drives them through the workflow against a repository
type Fixture struct {
	T    *testing.T
	Repo licensing.ApplicationRepository
	Ctx  context.Context
}

// Draft creates and stores a draft application
func (f Fixture) Draft(companyID, applicantID uuid.UUID, t licensing.LicenseType) *licensing.Application {
	f.T.Helper()
	app, err := licensing.NewApplication(licensing.NewApplicationInput{
		CompanyID:    companyID,
		ApplicantID:  applicantID,
		LicenseType:  t,
		Title:        "Izin " + string(t),
		ContactEmail: "owner@warung.id",
	})
	require.NoError(f.T, err)
	require.NoError(f.T, f.Repo.Create(f.Ctx, app))
	return app
}

// Submit moves a stored draft to Submitted
func (f Fixture) Submit(app *licensing.Application) {
	f.T.Helper()
	entry, err := app.Submit(app.ApplicantID)
	require.NoError(f.T, err)
	require.NoError(f.T, f.Repo.Update(f.Ctx, app, licensing.StatusDraft, entry))
}

// StartReview moves a stored submitted application to Processing
func (f Fixture) StartReview(app *licensing.Application, reviewerID uuid.UUID) {
	f.T.Helper()
	entry, err := app.StartReview(reviewerID)
	require.NoError(f.T, err)
	require.NoError(f.T, f.Repo.Update(f.Ctx, app, licensing.StatusSubmitted, entry))
}

// Approve issues the license with the given dates
func (f Fixture) Approve(app *licensing.Application, reviewerID uuid.UUID, issued time.Time, expiry *time.Time) {
	f.T.Helper()
	details := licensing.DefaultApprovalDetails(app, "ok", issued)
	details.ExpiryDate = expiry
	entry, err := app.Approve(details, reviewerID)
	require.NoError(f.T, err)
	require.NoError(f.T, f.Repo.Update(f.Ctx, app, licensing.StatusProcessing, entry))
}

// RunApplicationRepository runs the repository contract against newRepos
func RunApplicationRepository(t *testing.T, newRepos Factory) {
	ctx := context.Background()
	fixture := func(t *testing.T) (Fixture, licensing.DocumentRepository) {
		repo, docs := newRepos(t)
		return Fixture{T: t, Repo: repo, Ctx: ctx}, docs
	}

	t.Run("create and find round trip", func(t *testing.T) {
		f, _ := fixture(t)
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeHalal)

		got, err := f.Repo.FindByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, app.ID, got.ID)
		assert.Equal(t, app.CompanyID, got.CompanyID)
		assert.Equal(t, app.ApplicantID, got.ApplicantID)
		assert.Equal(t, licensing.StatusDraft, got.Status)
		assert.Equal(t, licensing.PriorityNormal, got.Priority)
		assert.Equal(t, 1, got.CurrentStage)
		assert.Equal(t, licensing.TotalStages, got.TotalStages)
		assert.True(t, app.FeeAmount.Equal(got.FeeAmount), "fee %s != %s", app.FeeAmount, got.FeeAmount)
		assert.Equal(t, 1, got.Version)
		assert.Nil(t, got.AssignedReviewerID)
	})

	t.Run("find missing returns not found", func(t *testing.T) {
		f, _ := fixture(t)
		_, err := f.Repo.FindByID(ctx, uuid.New())
		assert.True(t, licensing.IsNotFound(err))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("update bumps version and appends history", func(t *testing.T) {
		f, _ := fixture(t)
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
		f.Submit(app)
		assert.Equal(t, 2, app.Version)

		got, err := f.Repo.FindByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, licensing.StatusSubmitted, got.Status)
		assert.Equal(t, 2, got.Version)
		require.NotNil(t, got.SubmittedAt)

		history, err := f.Repo.ListHistory(ctx, app.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.NotNil(t, history[0].FromStatus)
		assert.Equal(t, licensing.StatusDraft, *history[0].FromStatus)
		assert.Equal(t, licensing.StatusSubmitted, history[0].ToStatus)
	})

	t.Run("stale version is a conflict and writes nothing", func(t *testing.T) {
		f, _ := fixture(t)
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeSIUP)

		stale, err := f.Repo.FindByID(ctx, app.ID)
		require.NoError(t, err)
		f.Submit(app)

		entry, err := stale.Submit(stale.ApplicantID)
		require.NoError(t, err)
		err = f.Repo.Update(ctx, stale, licensing.StatusDraft, entry)
		assert.True(t, licensing.IsConflict(err), "got %v", err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		history, err := f.Repo.ListHistory(ctx, app.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("wrong expected status is a conflict", func(t *testing.T) {
		f, _ := fixture(t)
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeTDP)
		entry, err := app.Submit(app.ApplicantID)
		require.NoError(t, err)

		err = f.Repo.Update(ctx, app, licensing.StatusProcessing, entry)
		assert.True(t, licensing.IsConflict(err), "got %v", err)
	})

	t.Run("update of missing application is not found", func(t *testing.T) {
		f, _ := fixture(t)
		app, err := licensing.NewApplication(licensing.NewApplicationInput{
			CompanyID: uuid.New(), ApplicantID: uuid.New(), LicenseType: licensing.LicenseTypeNPWP, Title: "ghost",
		})
		require.NoError(t, err)
		err = f.Repo.Update(ctx, app, licensing.StatusDraft, nil)
		assert.True(t, licensing.IsNotFound(err), "got %v", err)
	})

	t.Run("delete only removes drafts", func(t *testing.T) {
		f, docs := fixture(t)
		draft := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
		doc, err := licensing.NewDocument(draft, licensing.NewDocumentInput{
			DocumentType: licensing.DocumentTypeIdentityCard, FileName: "ktp.pdf",
			ContentType: "application/pdf", SizeBytes: 1024, UploadedBy: draft.ApplicantID,
		})
		require.NoError(t, err)
		require.NoError(t, docs.Create(ctx, doc))

		require.NoError(t, f.Repo.Delete(ctx, draft.ID))
		_, err = f.Repo.FindByID(ctx, draft.ID)
		assert.True(t, licensing.IsNotFound(err))
		remaining, err := docs.ListByApplication(ctx, draft.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		submitted := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
		f.Submit(submitted)
		err = f.Repo.Delete(ctx, submitted.ID)
		assert.True(t, licensing.IsInvalidTransition(err), "got %v", err)

		err = f.Repo.Delete(ctx, uuid.New())
		assert.True(t, licensing.IsNotFound(err), "got %v", err)
	})

	t.Run("list queries", func(t *testing.T) {
		f, _ := fixture(t)
		company := uuid.New()
		alice, bob := uuid.New(), uuid.New()

		a1 := f.Draft(company, alice, licensing.LicenseTypeNIB)
		a2 := f.Draft(company, alice, licensing.LicenseTypeHalal)
		b1 := f.Draft(uuid.New(), bob, licensing.LicenseTypeHalal)
		f.Submit(a2)
		f.Submit(b1)

		byAlice, err := f.Repo.FindByApplicant(ctx, alice)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, ids(byAlice))

		byCompany, err := f.Repo.FindByCompany(ctx, company)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, ids(byCompany))

		submitted, err := f.Repo.FindByStatus(ctx, licensing.StatusSubmitted)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a2.ID, b1.ID}, ids(submitted))

		halal, err := f.Repo.FindByType(ctx, licensing.LicenseTypeHalal)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a2.ID, b1.ID}, ids(halal))

		none, err := f.Repo.FindByApplicant(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("search filters and paginates", func(t *testing.T) {
		f, _ := fixture(t)
		company := uuid.New()
		for i := 0; i < 5; i++ {
			f.Draft(company, uuid.New(), licensing.LicenseTypeSIUP)
		}
		f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)

		filter := shared.DefaultFilter()
		filter.PageSize = 2
		filter.Page = 2
		filter.Filters["company_id"] = company.String()
		filter.Filters["license_type"] = string(licensing.LicenseTypeSIUP)

		page, total, err := f.Repo.Search(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, page, 2)

		filter.Page = 3
		page, _, err = f.Repo.Search(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("reviewer workload counts only in-review applications", func(t *testing.T) {
		f, _ := fixture(t)
		reviewer := uuid.New()

		for i := 0; i < 3; i++ {
			app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
			f.Submit(app)
			f.StartReview(app, reviewer)
		}
		done := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
		f.Submit(done)
		f.StartReview(done, reviewer)
		f.Approve(done, reviewer, time.Now(), nil)

		count, err := f.Repo.CountActiveByReviewer(ctx, reviewer)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		count, err = f.Repo.CountActiveByReviewer(ctx, uuid.New())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("history is ordered by change time", func(t *testing.T) {
		f, _ := fixture(t)
		reviewer := uuid.New()
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)
		f.Submit(app)
		f.StartReview(app, reviewer)
		f.Approve(app, reviewer, time.Now(), nil)

		history, err := f.Repo.ListHistory(ctx, app.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, licensing.StatusSubmitted, history[0].ToStatus)
		assert.Equal(t, licensing.StatusProcessing, history[1].ToStatus)
		assert.Equal(t, licensing.StatusApproved, history[2].ToStatus)
		for i := 1; i < len(history); i++ {
			assert.False(t, history[i].ChangedAt.Before(history[i-1].ChangedAt))
		}

		note := licensing.NewStatusHistoryEntry(app.ID, nil, licensing.StatusApproved, licensing.SystemActorID, "imported", true)
		require.NoError(t, f.Repo.AppendHistory(ctx, note))
		history, err = f.Repo.ListHistory(ctx, app.ID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Nil(t, history[3].FromStatus)
		assert.True(t, history[3].IsSystemGenerated)
	})

	t.Run("aggregate statistics", func(t *testing.T) {
		f, _ := fixture(t)
		alice := uuid.New()
		reviewer := uuid.New()

		approved := f.Draft(uuid.New(), alice, licensing.LicenseTypeNIB)
		f.Submit(approved)
		f.StartReview(approved, reviewer)
		f.Approve(approved, reviewer, time.Now(), nil)

		f.Draft(uuid.New(), alice, licensing.LicenseTypeHalal)
		f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeHalal)

		mine, err := f.Repo.AggregateStatistics(ctx, &alice)
		require.NoError(t, err)
		assert.False(t, mine.IsGlobal())
		assert.Equal(t, int64(2), mine.Total)
		assert.Equal(t, int64(1), mine.Count(licensing.StatusApproved))
		assert.Equal(t, int64(1), mine.Count(licensing.StatusDraft))
		assert.Equal(t, int64(0), mine.Count(licensing.StatusRejected))
		assert.Equal(t, int64(1), mine.ByType[licensing.LicenseTypeHalal])
		assert.Equal(t, int64(1), mine.ProcessedCount)
		assert.InDelta(t, 0, mine.AverageProcessingDays, 0.001)

		global, err := f.Repo.AggregateStatistics(ctx, nil)
		require.NoError(t, err)
		assert.True(t, global.IsGlobal())
		assert.Equal(t, int64(3), global.Total)
		assert.Equal(t, int64(2), global.ByType[licensing.LicenseTypeHalal])
		assert.Len(t, global.ByStatus, len(licensing.AllStatuses()))
	})

	t.Run("expirable licenses", func(t *testing.T) {
		f, _ := fixture(t)
		reviewer := uuid.New()
		issued := time.Now().AddDate(-5, 0, 0)

		lapsed := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeSIUP)
		f.Submit(lapsed)
		f.StartReview(lapsed, reviewer)
		past := time.Now().Add(-48 * time.Hour)
		f.Approve(lapsed, reviewer, issued, &past)

		valid := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeSIUP)
		f.Submit(valid)
		f.StartReview(valid, reviewer)
		future := time.Now().AddDate(1, 0, 0)
		f.Approve(valid, reviewer, issued, &future)

		apps, err := f.Repo.FindExpirable(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{lapsed.ID}, ids(apps))
	})

	t.Run("documents", func(t *testing.T) {
		f, docs := fixture(t)
		app := f.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeHalal)

		var created []uuid.UUID
		for _, name := range []string{"ktp.pdf", "audit.png"} {
			contentType := "application/pdf"
			if name == "audit.png" {
				contentType = "image/png"
			}
			doc, err := licensing.NewDocument(app, licensing.NewDocumentInput{
				DocumentType: licensing.DocumentTypeHalalAudit, FileName: name,
				ContentType: contentType, SizeBytes: 2048, UploadedBy: app.ApplicantID,
			})
			require.NoError(t, err)
			doc.CreatedAt = time.Now().Add(time.Duration(len(created)) * time.Second)
			require.NoError(t, docs.Create(ctx, doc))
			created = append(created, doc.ID)
		}

		list, err := docs.ListByApplication(ctx, app.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, created[0], list[0].ID)

		got, err := docs.FindByID(ctx, app.ID, created[1])
		require.NoError(t, err)
		assert.Equal(t, "audit.png", got.FileName)

		_, err = docs.FindByID(ctx, uuid.New(), created[1])
		assert.True(t, licensing.IsNotFound(err))
	})
}

func ids(apps []licensing.Application) []uuid.UUID {
	out := make([]uuid.UUID, len(apps))
	for i := range apps {
		out[i] = apps[i].ID
	}
	return out
}
