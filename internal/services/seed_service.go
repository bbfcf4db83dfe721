// internal/services/seed_service.go
package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/seed"
)

// SeedReport counts what a catalog seed created and skipped.
type SeedReport struct {
	TypesCreated  int `json:"types_created"`
	TypesSkipped  int `json:"types_skipped"`
	RangesCreated int `json:"ranges_created"`
	RangesSkipped int `json:"ranges_skipped"`
	PhasesCreated int `json:"phases_created"`
	PhasesSkipped int `json:"phases_skipped"`
}

// CatalogSeeder loads a YAML catalog through the catalog services so every
// entry passes the same checks as an API call.
type CatalogSeeder struct {
	store  CatalogStore
	types  *ContractTypeService
	ranges *AmountRangeService
	phases *PhaseService
}

func NewCatalogSeeder(store CatalogStore, types *ContractTypeService, ranges *AmountRangeService, phases *PhaseService) *CatalogSeeder {
	return &CatalogSeeder{store: store, types: types, ranges: ranges, phases: phases}
}

// Seed creates the types, ranges and phases of the catalog that do not exist
// yet. Types are keyed by code, phases by code and ranges by
// (object category, type, lower bound).
func (s *CatalogSeeder) Seed(ctx context.Context, catalog *seed.Catalog) (*SeedReport, error) {
	report := &SeedReport{}

	for _, t := range catalog.Types() {
		t := t
		_, err := s.store.GetContractType(ctx, t.Code)
		if err == nil {
			report.TypesSkipped++
			continue
		}
		if !errors.Is(err, engine.ErrUnknownContractType) {
			return report, err
		}
		if err := s.types.createContractType(ctx, &t); err != nil {
			return report, err
		}
		report.TypesCreated++
	}

	existing, err := s.store.ListAmountRanges(ctx)
	if err != nil {
		return report, err
	}
	for _, r := range catalog.Ranges() {
		r := r
		duplicate := false
		for _, e := range existing {
			if e.ObjectCategory == r.ObjectCategory && e.ContractTypeCode == r.ContractTypeCode && e.MinAmount == r.MinAmount {
				duplicate = true
				break
			}
		}
		if duplicate {
			report.RangesSkipped++
			continue
		}
		if err := s.ranges.createRange(ctx, &r); err != nil {
			return report, err
		}
		report.RangesCreated++
	}

	for _, p := range catalog.PhaseModels() {
		p := p
		_, err := s.store.GetPhase(ctx, p.Code)
		if err == nil {
			report.PhasesSkipped++
			continue
		}
		if !errors.Is(err, engine.ErrUnknownPhase) {
			return report, err
		}
		if err := s.phases.createPhase(ctx, &p); err != nil {
			return report, err
		}
		report.PhasesCreated++
	}

	logrus.WithFields(logrus.Fields{
		"types_created":  report.TypesCreated,
		"ranges_created": report.RangesCreated,
		"phases_created": report.PhasesCreated,
	}).Info("Catalog seeded")
	return report, nil
}
