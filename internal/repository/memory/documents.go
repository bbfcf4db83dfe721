// internal/repository/memory/documents.go
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

type Documents struct {
	mu   sync.Mutex
	docs []models.ContractDocument
}

func (s *Documents) Create(ctx context.Context, doc *models.ContractDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *Documents) Get(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, engine.NotFound(engine.ResourceDocument, id.String())
}

func (s *Documents) ListByPhase(ctx context.Context, contractID uuid.UUID, phaseCode string) ([]models.ContractDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContractDocument
	for _, d := range s.docs {
		if d.ContractID == contractID && d.PhaseCode == phaseCode && d.Status == models.DocumentStatusActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Documents) MarkDeleted(ctx context.Context, id, deletedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id && s.docs[i].Status == models.DocumentStatusActive {
			s.docs[i].Status = models.DocumentStatusDeleted
			s.docs[i].DeletedBy = &deletedBy
			return nil
		}
	}
	return engine.NotFound(engine.ResourceDocument, id.String())
}
