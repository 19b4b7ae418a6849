package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"github.com/umkm/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// Cache TTLs per key family
const (
	ApplicationTTL     = 300 * time.Second
	UserListTTL        = 120 * time.Second
	CompanyListTTL     = 120 * time.Second
	StatusListTTL      = 60 * time.Second
	TypeListTTL        = 300 * time.Second
	StatisticsTTL      = 120 * time.Second
	HistoryTTL         = 300 * time.Second
	DocumentListTTL    = 300 * time.Second
	statusListPattern  = "licenses:status:*"
	typeListPattern    = "licenses:type:*"
	statisticsPattern  = "stats:*"
	keyspaceLicense    = "license"
	keyspaceUserList   = "user_licenses"
	keyspaceCompany    = "company_licenses"
	keyspaceStatusList = "status_licenses"
	keyspaceTypeList   = "type_licenses"
	keyspaceStats      = "stats"
	keyspaceHistory    = "history"
	keyspaceDocuments  = "documents"
)

// ApplicationKey is the cache key of a single application
func ApplicationKey(id uuid.UUID) string { return fmt.Sprintf("license:%s", id) }

// HistoryKey is the cache key of an application's status history
func HistoryKey(id uuid.UUID) string { return fmt.Sprintf("license:%s:history", id) }

// DocumentsKey is the cache key of an application's document list
func DocumentsKey(id uuid.UUID) string { return fmt.Sprintf("license:%s:documents", id) }

// UserApplicationsKey is the cache key of an applicant's application list
func UserApplicationsKey(id uuid.UUID) string { return fmt.Sprintf("user:%s:licenses", id) }

// CompanyApplicationsKey is the cache key of a company's application list
func CompanyApplicationsKey(id uuid.UUID) string { return fmt.Sprintf("company:%s:licenses", id) }

// StatusApplicationsKey is the cache key of the list of applications in a status
func StatusApplicationsKey(s licensing.ApplicationStatus) string {
	return fmt.Sprintf("licenses:status:%s", s)
}

// TypeApplicationsKey is the cache key of the list of applications of a license type
func TypeApplicationsKey(t licensing.LicenseType) string {
	return fmt.Sprintf("licenses:type:%s", t)
}

// StatisticsKey is the cache key of per-user statistics, or the global statistics for nil
func StatisticsKey(userID *uuid.UUID) string {
	if userID == nil {
		return "stats:global"
	}
	return fmt.Sprintf("stats:user:%s", *userID)
}

// CacheLookupRecorder receives one observation per cache read
type CacheLookupRecorder interface {
	RecordCacheLookup(ctx context.Context, keyspace string, hit bool)
}

// CachedRepositoryOption configures the cached repositories
type CachedRepositoryOption func(*cacheSupport)

// WithCacheLogger sets the logger used for swallowed cache failures
func WithCacheLogger(logger *zap.Logger) CachedRepositoryOption {
	return func(c *cacheSupport) {
		c.logger = logger
	}
}

// WithCacheLookupRecorder reports hits and misses to r
func WithCacheLookupRecorder(r CacheLookupRecorder) CachedRepositoryOption {
	return func(c *cacheSupport) {
		c.recorder = r
	}
}

// cacheSupport holds the failure-tolerant cache helpers shared by the cached repositories.
// Cache failures are logged and treated as misses; they never reach the caller.
type cacheSupport struct {
	cache    cache.Cache
	logger   *zap.Logger
	recorder CacheLookupRecorder
}

func newCacheSupport(c cache.Cache, opts ...CachedRepositoryOption) cacheSupport {
	s := cacheSupport{cache: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *cacheSupport) record(ctx context.Context, keyspace string, hit bool) {
	if s.recorder != nil {
		s.recorder.RecordCacheLookup(ctx, keyspace, hit)
	}
}

func (s *cacheSupport) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *cacheSupport) evict(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *cacheSupport) evictPattern(ctx context.Context, pattern string) {
	if _, err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("Cache pattern invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// readThrough serves key from the cache or loads and stores it
func readThrough[T any](ctx context.Context, s *cacheSupport, keyspace, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	cached, hit, err := cache.Get[T](ctx, s.cache, key)
	if err != nil {
		s.logger.Warn("Cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}
	if hit {
		s.record(ctx, keyspace, true)
		return *cached, nil
	}
	s.record(ctx, keyspace, false)

	value, err := load()
	if err != nil {
		return value, err
	}
	s.store(ctx, key, value, ttl)
	return value, nil
}

// CachedApplicationRepository is a cache-aside decorator over an ApplicationRepository.
// Reads go through the cache; every write invalidates the keys the write could have made stale.
// Search, FindExpirable and CountActiveByReviewer always hit the store.
type CachedApplicationRepository struct {
	inner licensing.ApplicationRepository
	cacheSupport
}

// NewCachedApplicationRepository wraps inner with cache c
func NewCachedApplicationRepository(inner licensing.ApplicationRepository, c cache.Cache, opts ...CachedRepositoryOption) *CachedApplicationRepository {
	return &CachedApplicationRepository{inner: inner, cacheSupport: newCacheSupport(c, opts...)}
}

// invalidate drops every key a write to app may have made stale
func (r *CachedApplicationRepository) invalidate(ctx context.Context, app *licensing.Application) {
	r.evict(ctx,
		ApplicationKey(app.ID),
		HistoryKey(app.ID),
		UserApplicationsKey(app.ApplicantID),
		CompanyApplicationsKey(app.CompanyID),
	)
	r.evictPattern(ctx, statusListPattern)
	r.evictPattern(ctx, typeListPattern)
	r.evictPattern(ctx, statisticsPattern)
}

// Create persists a new application
func (r *CachedApplicationRepository) Create(ctx context.Context, app *licensing.Application) error {
	if err := r.inner.Create(ctx, app); err != nil {
		return err
	}
	r.invalidate(ctx, app)
	return nil
}

// FindByID finds an application by ID
func (r *CachedApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*licensing.Application, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceLicense, ApplicationKey(id), ApplicationTTL, func() (*licensing.Application, error) {
		return r.inner.FindByID(ctx, id)
	})
}

// Update writes through to the store and invalidates on success.
// A lost race also evicts the entity key so the retry reloads fresh state.
func (r *CachedApplicationRepository) Update(ctx context.Context, app *licensing.Application, expected licensing.ApplicationStatus, entry *licensing.StatusHistoryEntry) error {
	if err := r.inner.Update(ctx, app, expected, entry); err != nil {
		if licensing.IsConflict(err) || licensing.IsNotFound(err) {
			r.evict(ctx, ApplicationKey(app.ID))
		}
		return err
	}
	r.invalidate(ctx, app)
	return nil
}

// Delete removes a draft and its cached views
func (r *CachedApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	app, loadErr := r.inner.FindByID(ctx, id)
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if loadErr == nil {
		r.invalidate(ctx, app)
	} else {
		r.evict(ctx, ApplicationKey(id), HistoryKey(id))
		r.evictPattern(ctx, statusListPattern)
		r.evictPattern(ctx, typeListPattern)
		r.evictPattern(ctx, statisticsPattern)
	}
	r.evict(ctx, DocumentsKey(id))
	return nil
}

// FindByApplicant lists applications opened by a user
func (r *CachedApplicationRepository) FindByApplicant(ctx context.Context, applicantID uuid.UUID) ([]licensing.Application, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceUserList, UserApplicationsKey(applicantID), UserListTTL, func() ([]licensing.Application, error) {
		return r.inner.FindByApplicant(ctx, applicantID)
	})
}

// FindByCompany lists applications owned by a company
func (r *CachedApplicationRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]licensing.Application, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceCompany, CompanyApplicationsKey(companyID), CompanyListTTL, func() ([]licensing.Application, error) {
		return r.inner.FindByCompany(ctx, companyID)
	})
}

// FindByStatus lists applications in a status
func (r *CachedApplicationRepository) FindByStatus(ctx context.Context, status licensing.ApplicationStatus) ([]licensing.Application, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceStatusList, StatusApplicationsKey(status), StatusListTTL, func() ([]licensing.Application, error) {
		return r.inner.FindByStatus(ctx, status)
	})
}

// FindByType lists applications of a license type
func (r *CachedApplicationRepository) FindByType(ctx context.Context, licenseType licensing.LicenseType) ([]licensing.Application, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceTypeList, TypeApplicationsKey(licenseType), TypeListTTL, func() ([]licensing.Application, error) {
		return r.inner.FindByType(ctx, licenseType)
	})
}

// Search is not cached
func (r *CachedApplicationRepository) Search(ctx context.Context, filter shared.Filter) ([]licensing.Application, int64, error) {
	return r.inner.Search(ctx, filter)
}

// FindExpirable is not cached
func (r *CachedApplicationRepository) FindExpirable(ctx context.Context, limit int) ([]licensing.Application, error) {
	return r.inner.FindExpirable(ctx, limit)
}

// CountActiveByReviewer is not cached; workload checks need the store's view
func (r *CachedApplicationRepository) CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error) {
	return r.inner.CountActiveByReviewer(ctx, reviewerID)
}

// AppendHistory records a history entry and evicts the cached history
func (r *CachedApplicationRepository) AppendHistory(ctx context.Context, entry *licensing.StatusHistoryEntry) error {
	if err := r.inner.AppendHistory(ctx, entry); err != nil {
		return err
	}
	r.evict(ctx, HistoryKey(entry.ApplicationID))
	return nil
}

// ListHistory returns the history of an application
func (r *CachedApplicationRepository) ListHistory(ctx context.Context, applicationID uuid.UUID) ([]licensing.StatusHistoryEntry, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceHistory, HistoryKey(applicationID), HistoryTTL, func() ([]licensing.StatusHistoryEntry, error) {
		return r.inner.ListHistory(ctx, applicationID)
	})
}

// AggregateStatistics returns statistics, cached per user and globally
func (r *CachedApplicationRepository) AggregateStatistics(ctx context.Context, userID *uuid.UUID) (*licensing.Statistics, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceStats, StatisticsKey(userID), StatisticsTTL, func() (*licensing.Statistics, error) {
		return r.inner.AggregateStatistics(ctx, userID)
	})
}

var _ licensing.ApplicationRepository = (*CachedApplicationRepository)(nil)

// CachedDocumentRepository caches document lists per application
type CachedDocumentRepository struct {
	inner licensing.DocumentRepository
	cacheSupport
}

// NewCachedDocumentRepository wraps inner with cache c
func NewCachedDocumentRepository(inner licensing.DocumentRepository, c cache.Cache, opts ...CachedRepositoryOption) *CachedDocumentRepository {
	return &CachedDocumentRepository{inner: inner, cacheSupport: newCacheSupport(c, opts...)}
}

// Create persists a document record and evicts the cached list
func (r *CachedDocumentRepository) Create(ctx context.Context, doc *licensing.Document) error {
	if err := r.inner.Create(ctx, doc); err != nil {
		return err
	}
	r.evict(ctx, DocumentsKey(doc.ApplicationID))
	return nil
}

// FindByID is not cached
func (r *CachedDocumentRepository) FindByID(ctx context.Context, applicationID, documentID uuid.UUID) (*licensing.Document, error) {
	return r.inner.FindByID(ctx, applicationID, documentID)
}

// ListByApplication lists documents of an application
func (r *CachedDocumentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]licensing.Document, error) {
	return readThrough(ctx, &r.cacheSupport, keyspaceDocuments, DocumentsKey(applicationID), DocumentListTTL, func() ([]licensing.Document, error) {
		return r.inner.ListByApplication(ctx, applicationID)
	})
}

var _ licensing.DocumentRepository = (*CachedDocumentRepository)(nil)
