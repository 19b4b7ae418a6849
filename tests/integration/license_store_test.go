//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/infrastructure/cache"
	"github.com/umkm/backend/internal/infrastructure/migration"
	"github.com/umkm/backend/internal/infrastructure/persistence"
	"github.com/umkm/backend/internal/infrastructure/persistence/storetest"
)

func newRedisCache(t *testing.T) cache.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCacheWithClient(client, cache.WithKeyPrefix("it:"))
}

func TestMigrations_Applied(t *testing.T) {
	tdb := NewTestDB(t)

	m, err := migration.New(tdb.SqlDB, migration.Embedded(), nil)
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	for _, table := range []string{"license_applications", "license_status_history", "license_documents"} {
		assert.True(t, tdb.DB.Migrator().HasTable(table), table)
	}
}

func TestPostgresRepository_Contract(t *testing.T) {
	storetest.RunApplicationRepository(t, func(t *testing.T) (licensing.ApplicationRepository, licensing.DocumentRepository) {
		tdb := NewTestDB(t)
		return persistence.NewGormApplicationRepository(tdb.DB), persistence.NewGormDocumentRepository(tdb.DB)
	})
}

func TestCachedPostgresRepository_Contract(t *testing.T) {
	storetest.RunApplicationRepository(t, func(t *testing.T) (licensing.ApplicationRepository, licensing.DocumentRepository) {
		tdb := NewTestDB(t)
		c := newRedisCache(t)
		return persistence.NewCachedApplicationRepository(persistence.NewGormApplicationRepository(tdb.DB), c),
			persistence.NewCachedDocumentRepository(persistence.NewGormDocumentRepository(tdb.DB), c)
	})
}

func TestWorkflow_ConcurrentStartReviewHasOneWinner(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := persistence.NewCachedApplicationRepository(persistence.NewGormApplicationRepository(tdb.DB), newRedisCache(t))
	workflow := licensingapp.NewWorkflowService(repo)

	applicant := licensingapp.NewActor(uuid.New(), uuid.New())
	app, err := workflow.SubmitApplication(ctx, applicant, licensingapp.CreateApplicationRequest{
		LicenseType: string(licensing.LicenseTypeNIB),
		Title:       "Konveksi Berkah",
	})
	require.NoError(t, err)

	const reviewers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		losersErr []error
	)
	for range reviewers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reviewer := licensingapp.NewActor(uuid.New(), uuid.New(), licensingapp.PermissionReview)
			_, err := workflow.StartReview(ctx, reviewer, app.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			losersErr = append(losersErr, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	for _, err := range losersErr {
		assert.True(t, licensing.IsInvalidTransition(err) || licensing.IsConflict(err), "unexpected error: %v", err)
	}

	history, err := repo.ListHistory(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "submit plus exactly one start-review")

	got, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, licensing.StatusProcessing, got.Status)
}
