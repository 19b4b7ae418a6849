package licensing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ObjectStorageService issues presigned URLs for document objects
type ObjectStorageService interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes an object
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks whether an object was uploaded
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// DraftCleaner captures resources of a draft before it is deleted.
// The returned func releases them once the delete is committed.
type DraftCleaner interface {
	PrepareCleanup(ctx context.Context, applicationID uuid.UUID) (func(context.Context), error)
}

// WithDraftCleaner releases stored documents when a draft is deleted
func WithDraftCleaner(c DraftCleaner) WorkflowOption {
	return func(s *WorkflowService) {
		s.cleaner = c
	}
}

var (
	ErrUploadURLFailed = shared.NewDomainError(shared.CodeStoreFailure, "Failed to generate upload URL")
	ErrUploadNotFound  = shared.NewDomainError(shared.CodeNotFound, "File not found in storage, upload it first")
)

// DocumentServiceConfig holds presigned URL lifetimes
type DocumentServiceConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// DefaultDocumentServiceConfig returns the default configuration
func DefaultDocumentServiceConfig() DocumentServiceConfig {
	return DocumentServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
	}
}

// DocumentService registers supporting documents and hands out presigned URLs
type DocumentService struct {
	apps    licensing.ApplicationRepository
	docs    licensing.DocumentRepository
	storage ObjectStorageService
	config  DocumentServiceConfig
	logger  *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	apps licensing.ApplicationRepository,
	docs licensing.DocumentRepository,
	storage ObjectStorageService,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		apps:    apps,
		docs:    docs,
		storage: storage,
		config:  DefaultDocumentServiceConfig(),
		logger:  logger,
	}
}

// SetConfig sets the service configuration
func (s *DocumentService) SetConfig(config DocumentServiceConfig) {
	s.config = config
}

// RequestUpload registers a document and returns a presigned upload URL.
// The URL is generated before the record is written so a failed presign leaves nothing behind.
func (s *DocumentService) RequestUpload(ctx context.Context, actor Actor, applicationID uuid.UUID, req RequestUploadRequest) (*UploadTicketResponse, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, app) {
		return nil, licensing.NewNotFoundError("application", applicationID)
	}
	doc, err := licensing.NewDocument(app, licensing.NewDocumentInput{
		DocumentType: licensing.DocumentType(req.DocumentType),
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		SizeBytes:    req.SizeBytes,
		UploadedBy:   actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, doc.StorageKey, doc.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to generate upload URL",
			zap.String("application_id", applicationID.String()),
			zap.String("storage_key", doc.StorageKey),
			zap.Error(err),
		)
		return nil, ErrUploadURLFailed
	}
	if err := s.docs.Create(context.WithoutCancel(ctx), doc); err != nil {
		return nil, err
	}

	s.logger.Info("Document upload requested",
		zap.String("application_id", applicationID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("document_type", string(doc.DocumentType)),
	)
	return &UploadTicketResponse{
		Document:  ToDocumentResponse(doc),
		UploadURL: uploadURL,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": doc.ContentType},
		ExpiresAt: expiresAt,
	}, nil
}

// ListDocuments lists the documents of an application visible to the actor
func (s *DocumentService) ListDocuments(ctx context.Context, actor Actor, applicationID uuid.UUID) ([]DocumentResponse, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, app) {
		return nil, licensing.NewNotFoundError("application", applicationID)
	}
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = ToDocumentResponse(&docs[i])
	}
	return responses, nil
}

// DownloadURL returns a presigned download URL for an uploaded document
func (s *DocumentService) DownloadURL(ctx context.Context, actor Actor, applicationID, documentID uuid.UUID) (*DownloadURLResponse, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, app) {
		return nil, licensing.NewNotFoundError("application", applicationID)
	}
	doc, err := s.docs.FindByID(ctx, applicationID, documentID)
	if err != nil {
		return nil, err
	}
	exists, err := s.storage.ObjectExists(ctx, doc.StorageKey)
	if err != nil {
		return nil, licensing.NewStoreError("check document object", err)
	}
	if !exists {
		return nil, ErrUploadNotFound
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, licensing.NewStoreError("generate download URL", err)
	}
	return &DownloadURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// PrepareCleanup lists the draft's documents so their objects can be removed after the delete
func (s *DocumentService) PrepareCleanup(ctx context.Context, applicationID uuid.UUID) (func(context.Context), error) {
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		for _, doc := range docs {
			if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
				s.logger.Warn("Failed to delete document object",
					zap.String("application_id", applicationID.String()),
					zap.String("storage_key", doc.StorageKey),
					zap.Error(err),
				)
			}
		}
	}, nil
}
