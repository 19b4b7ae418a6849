package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
)

// DocumentStore implements licensing.DocumentRepository in memory
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]licensing.Document
}

// NewDocumentStore creates an empty document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[uuid.UUID]licensing.Document)}
}

// Create persists a document record
func (s *DocumentStore) Create(ctx context.Context, doc *licensing.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// FindByID finds a document that belongs to applicationID
func (s *DocumentStore) FindByID(ctx context.Context, applicationID, documentID uuid.UUID) (*licensing.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok || doc.ApplicationID != applicationID {
		return nil, licensing.NewNotFoundError("document", documentID)
	}
	return &doc, nil
}

// ListByApplication lists documents of an application, oldest first
func (s *DocumentStore) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]licensing.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]licensing.Document, 0)
	for _, d := range s.docs {
		if d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DocumentStore) deleteByApplication(applicationID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if d.ApplicationID == applicationID {
			delete(s.docs, id)
		}
	}
}

var _ licensing.DocumentRepository = (*DocumentStore)(nil)
