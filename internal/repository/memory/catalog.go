// internal/repository/memory/catalog.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

// Catalog is an in-memory catalog store. catalogctl uses it to check a
// YAML catalog without a database.
type Catalog struct {
	mu     sync.Mutex
	types  []models.ContractType
	ranges []models.AmountRange
	phases []models.ContractPhase
}

func (c *Catalog) ListContractTypes(ctx context.Context) ([]models.ContractType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ContractType(nil), c.types...), nil
}

func (c *Catalog) GetContractType(ctx context.Context, code string) (*models.ContractType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.types {
		if t.Code == code {
			t := t
			return &t, nil
		}
	}
	return nil, engine.NotFound(engine.ResourceContractType, code)
}

func (c *Catalog) CreateContractType(ctx context.Context, t *models.ContractType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	c.types = append(c.types, *t)
	return nil
}

func (c *Catalog) UpdateContractType(ctx context.Context, t *models.ContractType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.types {
		if c.types[i].ID == t.ID {
			c.types[i] = *t
			return nil
		}
	}
	return engine.NotFound(engine.ResourceContractType, t.Code)
}

func (c *Catalog) ListAmountRanges(ctx context.Context) ([]models.AmountRange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.AmountRange(nil), c.ranges...), nil
}

func (c *Catalog) GetAmountRange(ctx context.Context, id uuid.UUID) (*models.AmountRange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.ranges {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, engine.NotFound(engine.ResourceAmountRange, id.String())
}

func (c *Catalog) CreateAmountRange(ctx context.Context, rng *models.AmountRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rng.ID == uuid.Nil {
		rng.ID = uuid.New()
	}
	c.ranges = append(c.ranges, *rng)
	return nil
}

func (c *Catalog) UpdateAmountRange(ctx context.Context, rng *models.AmountRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.ranges {
		if c.ranges[i].ID == rng.ID {
			c.ranges[i] = *rng
			return nil
		}
	}
	return engine.NotFound(engine.ResourceAmountRange, rng.ID.String())
}

func copyPhase(p models.ContractPhase) models.ContractPhase {
	p.TypeOverrides = append([]models.PhaseTypeOverride(nil), p.TypeOverrides...)
	return p
}

func (c *Catalog) ListPhases(ctx context.Context) ([]models.ContractPhase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ContractPhase, 0, len(c.phases))
	for _, p := range c.phases {
		out = append(out, copyPhase(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (c *Catalog) GetPhase(ctx context.Context, code string) (*models.ContractPhase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.phases {
		if p.Code == code {
			p := copyPhase(p)
			return &p, nil
		}
	}
	return nil, engine.NotFound(engine.ResourcePhase, code)
}

func (c *Catalog) CreatePhase(ctx context.Context, phase *models.ContractPhase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if phase.ID == uuid.Nil {
		phase.ID = uuid.New()
	}
	for i := range phase.TypeOverrides {
		phase.TypeOverrides[i].ID = uuid.New()
		phase.TypeOverrides[i].PhaseID = phase.ID
	}
	c.phases = append(c.phases, copyPhase(*phase))
	return nil
}

func (c *Catalog) UpdatePhase(ctx context.Context, phase *models.ContractPhase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.phases {
		if c.phases[i].ID == phase.ID {
			c.phases[i] = copyPhase(*phase)
			return nil
		}
	}
	return engine.NotFound(engine.ResourcePhase, phase.Code)
}

func (c *Catalog) UpsertOverride(ctx context.Context, override *models.PhaseTypeOverride) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.phases {
		if c.phases[i].ID != override.PhaseID {
			continue
		}
		if existing, ok := c.phases[i].Override(override.ContractTypeCode); ok {
			override.ID = existing.ID
			*existing = *override
			return nil
		}
		override.ID = uuid.New()
		c.phases[i].TypeOverrides = append(c.phases[i].TypeOverrides, *override)
		return nil
	}
	return engine.NotFound(engine.ResourcePhase, override.PhaseID.String())
}

func (c *Catalog) DeleteOverride(ctx context.Context, phaseID uuid.UUID, contractTypeCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.phases {
		if c.phases[i].ID != phaseID {
			continue
		}
		kept := c.phases[i].TypeOverrides[:0]
		for _, o := range c.phases[i].TypeOverrides {
			if o.ContractTypeCode != contractTypeCode {
				kept = append(kept, o)
			}
		}
		c.phases[i].TypeOverrides = kept
		return nil
	}
	return engine.NotFound(engine.ResourcePhase, phaseID.String())
}
