package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/infrastructure/cache"
	"github.com/umkm/backend/internal/infrastructure/persistence/memory"
	"github.com/umkm/backend/internal/infrastructure/persistence/storetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type lookupRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newLookupRecorder() *lookupRecorder {
	return &lookupRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *lookupRecorder) RecordCacheLookup(_ context.Context, keyspace string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits[keyspace]++
	} else {
		r.misses[keyspace]++
	}
}

type cachedFixture struct {
	repo     *CachedApplicationRepository
	store    *memory.ApplicationStore
	mr       *miniredis.Miniredis
	recorder *lookupRecorder
	logs     *observer.ObservedLogs
}

func newCachedFixture(t *testing.T) cachedFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	core, logs := observer.New(zapcore.WarnLevel)
	store := memory.NewApplicationStore(nil)
	recorder := newLookupRecorder()
	repo := NewCachedApplicationRepository(store, cache.NewRedisCacheWithClient(client),
		WithCacheLogger(zap.New(core)),
		WithCacheLookupRecorder(recorder),
	)
	return cachedFixture{repo: repo, store: store, mr: mr, recorder: recorder, logs: logs}
}

func TestCachedApplicationRepository_Contract(t *testing.T) {
	storetest.RunApplicationRepository(t, func(t *testing.T) (licensing.ApplicationRepository, licensing.DocumentRepository) {
		docs := memory.NewDocumentStore()
		c := cache.NewMemoryCache()
		t.Cleanup(func() { _ = c.Close() })
		return NewCachedApplicationRepository(memory.NewApplicationStore(docs), c),
			NewCachedDocumentRepository(docs, c)
	})
}

func TestCachedApplicationRepository_ReadThroughWithTTL(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	sf := storetest.Fixture{T: t, Repo: f.repo, Ctx: ctx}
	app := sf.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)

	_, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, f.mr.Exists(ApplicationKey(app.ID)))
	assert.Equal(t, ApplicationTTL, f.mr.TTL(ApplicationKey(app.ID)))

	got, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.True(t, app.FeeAmount.Equal(got.FeeAmount))
	assert.Equal(t, 1, f.recorder.hits[keyspaceLicense])
	assert.Equal(t, 1, f.recorder.misses[keyspaceLicense])

	_, err = f.repo.FindByApplicant(ctx, app.ApplicantID)
	require.NoError(t, err)
	_, err = f.repo.FindByStatus(ctx, licensing.StatusDraft)
	require.NoError(t, err)
	_, err = f.repo.FindByType(ctx, licensing.LicenseTypeNIB)
	require.NoError(t, err)
	_, err = f.repo.AggregateStatistics(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, UserListTTL, f.mr.TTL(UserApplicationsKey(app.ApplicantID)))
	assert.Equal(t, StatusListTTL, f.mr.TTL(StatusApplicationsKey(licensing.StatusDraft)))
	assert.Equal(t, TypeListTTL, f.mr.TTL(TypeApplicationsKey(licensing.LicenseTypeNIB)))
	assert.Equal(t, StatisticsTTL, f.mr.TTL("stats:global"))
}

func TestCachedApplicationRepository_WriteInvalidatesEveryView(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	sf := storetest.Fixture{T: t, Repo: f.repo, Ctx: ctx}
	app := sf.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeHalal)

	// warm every view of the draft
	mine, err := f.repo.FindByApplicant(ctx, app.ApplicantID)
	require.NoError(t, err)
	require.Equal(t, licensing.StatusDraft, mine[0].Status)
	_, err = f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	_, err = f.repo.FindByCompany(ctx, app.CompanyID)
	require.NoError(t, err)
	_, err = f.repo.FindByStatus(ctx, licensing.StatusDraft)
	require.NoError(t, err)
	_, err = f.repo.FindByType(ctx, licensing.LicenseTypeHalal)
	require.NoError(t, err)
	_, err = f.repo.AggregateStatistics(ctx, &app.ApplicantID)
	require.NoError(t, err)
	_, err = f.repo.ListHistory(ctx, app.ID)
	require.NoError(t, err)

	sf.Submit(app)

	for _, key := range []string{
		ApplicationKey(app.ID),
		HistoryKey(app.ID),
		UserApplicationsKey(app.ApplicantID),
		CompanyApplicationsKey(app.CompanyID),
		StatusApplicationsKey(licensing.StatusDraft),
		TypeApplicationsKey(licensing.LicenseTypeHalal),
		StatisticsKey(&app.ApplicantID),
	} {
		assert.False(t, f.mr.Exists(key), "key %s should be invalidated", key)
	}

	mine, err = f.repo.FindByApplicant(ctx, app.ApplicantID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, licensing.StatusSubmitted, mine[0].Status)

	history, err := f.repo.ListHistory(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCachedApplicationRepository_DeleteInvalidates(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	sf := storetest.Fixture{T: t, Repo: f.repo, Ctx: ctx}
	app := sf.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)

	_, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	_, err = f.repo.FindByApplicant(ctx, app.ApplicantID)
	require.NoError(t, err)

	require.NoError(t, f.repo.Delete(ctx, app.ID))

	_, err = f.repo.FindByID(ctx, app.ID)
	assert.True(t, licensing.IsNotFound(err))
	mine, err := f.repo.FindByApplicant(ctx, app.ApplicantID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCachedApplicationRepository_ConflictEvictsEntity(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	sf := storetest.Fixture{T: t, Repo: f.repo, Ctx: ctx}
	app := sf.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)

	stale, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)

	// a writer that bypasses this cache instance
	direct, err := f.store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	entry, err := direct.Submit(direct.ApplicantID)
	require.NoError(t, err)
	require.NoError(t, f.store.Update(ctx, direct, licensing.StatusDraft, entry))

	entry, err = stale.Submit(stale.ApplicantID)
	require.NoError(t, err)
	err = f.repo.Update(ctx, stale, licensing.StatusDraft, entry)
	require.True(t, licensing.IsConflict(err))

	fresh, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, licensing.StatusSubmitted, fresh.Status)
}

func TestCachedApplicationRepository_CacheOutageFallsBackToStore(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	sf := storetest.Fixture{T: t, Repo: f.repo, Ctx: ctx}
	app := sf.Draft(uuid.New(), uuid.New(), licensing.LicenseTypeNIB)

	f.mr.Close()

	got, err := f.repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	sf.Submit(app)
	stats, err := f.repo.AggregateStatistics(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count(licensing.StatusSubmitted))

	assert.Positive(t, f.logs.FilterMessage("Cache read failed, falling back to store").Len())
	assert.Positive(t, f.logs.FilterMessage("Cache invalidation failed").Len())
}

func TestCachedDocumentRepository_CreateEvictsList(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	ctx := context.Background()
	docs := memory.NewDocumentStore()
	repo := NewCachedDocumentRepository(docs, c)

	app, err := licensing.NewApplication(licensing.NewApplicationInput{
		CompanyID: uuid.New(), ApplicantID: uuid.New(), LicenseType: licensing.LicenseTypeHalal, Title: "Halal",
	})
	require.NoError(t, err)

	list, err := repo.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	doc, err := licensing.NewDocument(app, licensing.NewDocumentInput{
		DocumentType: licensing.DocumentTypeHalalAudit, FileName: "audit.pdf",
		ContentType: "application/pdf", SizeBytes: 10, UploadedBy: app.ApplicantID,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, doc))

	list, err = repo.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.WithinDuration(t, doc.CreatedAt, list[0].CreatedAt, time.Second)
}
