package licensing

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxDocumentSize is the largest supporting document accepted, in bytes
const MaxDocumentSize int64 = 10 << 20

// DocumentType classifies a supporting document
type DocumentType string

const (
	DocumentTypeIdentityCard   DocumentType = "KTP"
	DocumentTypeTaxCard        DocumentType = "NPWP_CARD"
	DocumentTypeDeed           DocumentType = "DEED_OF_ESTABLISHMENT"
	DocumentTypeBusinessPermit DocumentType = "BUSINESS_PERMIT"
	DocumentTypeHalalAudit     DocumentType = "HALAL_AUDIT"
	DocumentTypeEnvironmental  DocumentType = "ENVIRONMENTAL_STUDY"
	DocumentTypeOther          DocumentType = "OTHER"
)

// IsValid checks if the document type is a known value
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeIdentityCard, DocumentTypeTaxCard, DocumentTypeDeed, DocumentTypeBusinessPermit,
		DocumentTypeHalalAudit, DocumentTypeEnvironmental, DocumentTypeOther:
		return true
	}
	return false
}

var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Document is a supporting file attached to an application
type Document struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	DocumentType  DocumentType
	FileName      string
	ContentType   string
	SizeBytes     int64
	StorageKey    string
	UploadedBy    uuid.UUID
	CreatedAt     time.Time
}

// NewDocumentInput carries the metadata declared before an upload
type NewDocumentInput struct {
	DocumentType DocumentType
	FileName     string
	ContentType  string
	SizeBytes    int64
	UploadedBy   uuid.UUID
}

// NewDocument registers a document against an application that still accepts uploads
func NewDocument(app *Application, in NewDocumentInput) (*Document, error) {
	if err := app.CanPerform(ActionUploadDocument); err != nil {
		return nil, err
	}
	if in.UploadedBy != app.ApplicantID {
		return nil, ErrNotOwner
	}
	if !in.DocumentType.IsValid() {
		return nil, NewValidationError("document_type", fmt.Sprintf("unknown document type %q", in.DocumentType))
	}
	name := strings.TrimSpace(path.Base(in.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, NewValidationError("file_name", "is required")
	}
	ext, ok := allowedContentTypes[in.ContentType]
	if !ok {
		return nil, NewValidationError("content_type", "must be application/pdf, image/jpeg or image/png")
	}
	if in.SizeBytes <= 0 || in.SizeBytes > MaxDocumentSize {
		return nil, NewValidationError("size_bytes", fmt.Sprintf("must be between 1 and %d", MaxDocumentSize))
	}

	id := uuid.New()
	return &Document{
		ID:            id,
		ApplicationID: app.ID,
		DocumentType:  in.DocumentType,
		FileName:      name,
		ContentType:   in.ContentType,
		SizeBytes:     in.SizeBytes,
		StorageKey:    fmt.Sprintf("licenses/%s/%s/%s%s", app.CompanyID, app.ID, id, ext),
		UploadedBy:    in.UploadedBy,
		CreatedAt:     time.Now(),
	}, nil
}
