// internal/repository/memory/contracts.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/utils"
)

// Contracts is an in-memory contract store with the same version check as
// the database one.
type Contracts struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]models.Contract

	// BeforeSave runs ahead of the version check.
	BeforeSave func(id uuid.UUID)
}

func NewContracts() *Contracts {
	return &Contracts{contracts: make(map[uuid.UUID]models.Contract)}
}

func copyContract(c models.Contract) models.Contract {
	c.Phases = append([]models.PhaseOccurrence(nil), c.Phases...)
	return c
}

func (s *Contracts) Create(ctx context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	for i := range c.Phases {
		if c.Phases[i].ID == uuid.Nil {
			c.Phases[i].ID = uuid.New()
		}
		c.Phases[i].ContractID = c.ID
	}
	s.contracts[c.ID] = copyContract(*c)
	return nil
}

func (s *Contracts) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, engine.NotFound(engine.ResourceContract, id.String())
	}
	out := copyContract(c)
	return &out, nil
}

func (s *Contracts) List(ctx context.Context, filter repository.ContractFilter, params utils.PaginationParams) ([]models.Contract, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contract
	for _, c := range s.contracts {
		if filter.DepartmentID != nil && c.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.ContractTypeCode != "" && c.ContractTypeCode != filter.ContractTypeCode {
			continue
		}
		if filter.GeneralStatus != "" && c.GeneralStatus != filter.GeneralStatus {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, copyContract(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	if params.Limit > 0 {
		start := (params.Page - 1) * params.Limit
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + params.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (s *Contracts) Save(ctx context.Context, c *models.Contract) error {
	if s.BeforeSave != nil {
		s.BeforeSave(c.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.contracts[c.ID]
	if !ok {
		return engine.NotFound(engine.ResourceContract, c.ID.String())
	}
	if stored.Version != c.Version {
		return repository.ErrStaleWrite
	}
	c.Version++
	s.contracts[c.ID] = copyContract(*c)
	return nil
}

// Bump increments the stored version as a concurrent writer would.
func (s *Contracts) Bump(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contracts[id]
	c.Version++
	s.contracts[id] = c
}

// occurrences lists the phase occurrences of every contract.
func (s *Contracts) occurrences() []models.PhaseOccurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PhaseOccurrence
	for _, c := range s.contracts {
		out = append(out, c.Phases...)
	}
	return out
}
