// internal/services/catalog.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/utils"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID       uuid.UUID
	DepartmentID uuid.UUID
	Role         string
}

func (a Actor) IsAdmin() bool {
	return a.Role == utils.RoleAdmin
}

// loadSnapshot reads the three catalogs concurrently.
func loadSnapshot(ctx context.Context, store CatalogStore) (engine.CatalogSnapshot, error) {
	var snap engine.CatalogSnapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		types, err := store.ListContractTypes(ctx)
		snap.Types = types
		return err
	})
	g.Go(func() error {
		ranges, err := store.ListAmountRanges(ctx)
		snap.Ranges = ranges
		return err
	})
	g.Go(func() error {
		phases, err := store.ListPhases(ctx)
		snap.Phases = phases
		return err
	})

	if err := g.Wait(); err != nil {
		return engine.CatalogSnapshot{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return snap, nil
}

// IntegrityService reports configuration problems across the whole catalog.
type IntegrityService struct {
	store CatalogStore
}

func NewIntegrityService(store CatalogStore) *IntegrityService {
	return &IntegrityService{store: store}
}

func (s *IntegrityService) ValidateCatalogIntegrity(ctx context.Context) ([]engine.Issue, error) {
	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	issues := engine.ValidateCatalogIntegrity(snap)
	if issues == nil {
		issues = []engine.Issue{}
	}
	return issues, nil
}
