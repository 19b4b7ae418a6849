package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository implements licensing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create persists a document record
func (r *GormDocumentRepository) Create(ctx context.Context, doc *licensing.Document) error {
	if err := r.db.WithContext(ctx).Create(models.DocumentModelFromDomain(doc)).Error; err != nil {
		return licensing.NewStoreError("create document", err)
	}
	return nil
}

// FindByID finds a document that belongs to applicationID
func (r *GormDocumentRepository) FindByID(ctx context.Context, applicationID, documentID uuid.UUID) (*licensing.Document, error) {
	var model models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND application_id = ?", documentID, applicationID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.NewNotFoundError("document", documentID)
		}
		return nil, licensing.NewStoreError("load document", err)
	}
	doc := model.ToDomain()
	return &doc, nil
}

// ListByApplication lists documents of an application, oldest first
func (r *GormDocumentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]licensing.Document, error) {
	var rows []models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, licensing.NewStoreError("list documents", err)
	}
	docs := make([]licensing.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].ToDomain()
	}
	return docs, nil
}

var _ licensing.DocumentRepository = (*GormDocumentRepository)(nil)
