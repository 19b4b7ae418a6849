package licensing

import (
	"context"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/shared"
)

// ApplicationRepository is the persistence port for license applications and their history.
// Implementations return NotFoundError, ConflictError or StoreError.
type ApplicationRepository interface {
	// Create persists a new application
	Create(ctx context.Context, app *Application) error

	// FindByID finds an application by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// Update writes app only if the stored row still has status expected and the loaded version.
	// The optional history entry is written in the same transaction.
	// On success app.Version is incremented.
	Update(ctx context.Context, app *Application, expected ApplicationStatus, entry *StatusHistoryEntry) error

	// Delete removes an application that is still a draft
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByApplicant lists applications opened by a user, newest first
	FindByApplicant(ctx context.Context, applicantID uuid.UUID) ([]Application, error)

	// FindByCompany lists applications owned by a company, newest first
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]Application, error)

	// FindByStatus lists applications in a status, oldest submission first
	FindByStatus(ctx context.Context, status ApplicationStatus) ([]Application, error)

	// FindByType lists applications of a license type, newest first
	FindByType(ctx context.Context, licenseType LicenseType) ([]Application, error)

	// Search lists applications with pagination and optional filters
	// (status, license_type, company_id, reviewer_id)
	Search(ctx context.Context, filter shared.Filter) ([]Application, int64, error)

	// FindExpirable lists approved or suspended applications whose expiry date has passed
	FindExpirable(ctx context.Context, limit int) ([]Application, error)

	// CountActiveByReviewer counts in-review applications assigned to a reviewer
	CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error)

	// AppendHistory records a history entry outside a status update
	AppendHistory(ctx context.Context, entry *StatusHistoryEntry) error

	// ListHistory returns the history of an application ordered by change time
	ListHistory(ctx context.Context, applicationID uuid.UUID) ([]StatusHistoryEntry, error)

	// AggregateStatistics computes statistics for an applicant, or globally when userID is nil
	AggregateStatistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error)
}

// DocumentRepository is the persistence port for supporting documents
type DocumentRepository interface {
	// Create persists a document record
	Create(ctx context.Context, doc *Document) error

	// FindByID finds a document of an application
	FindByID(ctx context.Context, applicationID, documentID uuid.UUID) (*Document, error)

	// ListByApplication lists documents of an application, oldest first
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Document, error)
}
