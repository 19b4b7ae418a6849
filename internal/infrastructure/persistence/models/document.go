package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
)

// DocumentModel is the persistence model for supporting document metadata.
// The file itself lives in object storage under StorageKey.
type DocumentModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primary_key"`
	ApplicationID uuid.UUID              `gorm:"type:uuid;not null;index"`
	DocumentType  licensing.DocumentType `gorm:"type:varchar(40);not null"`
	FileName      string                 `gorm:"type:varchar(255);not null"`
	ContentType   string                 `gorm:"type:varchar(100);not null"`
	SizeBytes     int64                  `gorm:"not null"`
	StorageKey    string                 `gorm:"type:varchar(500);not null;uniqueIndex"`
	UploadedBy    uuid.UUID              `gorm:"type:uuid;not null"`
	CreatedAt     time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "license_documents"
}

// ToDomain converts the row to a domain Document
func (m *DocumentModel) ToDomain() licensing.Document {
	return licensing.Document{
		ID:            m.ID,
		ApplicationID: m.ApplicationID,
		DocumentType:  m.DocumentType,
		FileName:      m.FileName,
		ContentType:   m.ContentType,
		SizeBytes:     m.SizeBytes,
		StorageKey:    m.StorageKey,
		UploadedBy:    m.UploadedBy,
		CreatedAt:     m.CreatedAt,
	}
}

// DocumentModelFromDomain creates a row from a domain Document
func DocumentModelFromDomain(d *licensing.Document) *DocumentModel {
	return &DocumentModel{
		ID:            d.ID,
		ApplicationID: d.ApplicationID,
		DocumentType:  d.DocumentType,
		FileName:      d.FileName,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		StorageKey:    d.StorageKey,
		UploadedBy:    d.UploadedBy,
		CreatedAt:     d.CreatedAt,
	}
}
