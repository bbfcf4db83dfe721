// internal/services/amount_range_service.go
package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
)

type AmountRangeService struct {
	store   CatalogStore
	metrics *metrics.Metrics
}

type AmountRangeRequest struct {
	ObjectCategory   string   `json:"object_category" validate:"required,max=30"`
	ContractTypeCode string   `json:"contract_type_code" validate:"required,contract_code"`
	MinAmount        float64  `json:"min_amount" validate:"money"`
	MaxAmount        *float64 `json:"max_amount,omitempty" validate:"omitempty,money"`
	Priority         int      `json:"priority" validate:"min=0"`
	Notes            string   `json:"notes,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

func NewAmountRangeService(store CatalogStore, m *metrics.Metrics) *AmountRangeService {
	return &AmountRangeService{store: store, metrics: m}
}

// ListRanges returns the ranges of one object category, or all of them when
// objectCategory is empty, ordered by category and lower bound.
func (s *AmountRangeService) ListRanges(ctx context.Context, objectCategory string) ([]models.AmountRange, error) {
	ranges, err := s.store.ListAmountRanges(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.AmountRange, 0, len(ranges))
	for _, r := range ranges {
		if objectCategory == "" || r.ObjectCategory == objectCategory {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ObjectCategory != out[j].ObjectCategory {
			return out[i].ObjectCategory < out[j].ObjectCategory
		}
		return out[i].MinAmount < out[j].MinAmount
	})
	return out, nil
}

func (s *AmountRangeService) CreateRange(ctx context.Context, req *AmountRangeRequest) (*models.AmountRange, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rng := &models.AmountRange{IsActive: true}
	applyAmountRangeRequest(rng, req)
	if err := s.createRange(ctx, rng); err != nil {
		return nil, err
	}
	return rng, nil
}

func (s *AmountRangeService) createRange(ctx context.Context, rng *models.AmountRange) error {
	if err := s.check(ctx, rng); err != nil {
		return err
	}
	if err := s.store.CreateAmountRange(ctx, rng); err != nil {
		return err
	}

	s.metrics.CatalogMutation("amount_range", "create")
	logrus.WithFields(logrus.Fields{
		"object_category": rng.ObjectCategory,
		"contract_type":   rng.ContractTypeCode,
		"min_amount":      rng.MinAmount,
		"max_amount":      rng.MaxAmount,
	}).Info("Amount range created")
	return nil
}

func (s *AmountRangeService) UpdateRange(ctx context.Context, id uuid.UUID, req *AmountRangeRequest) (*models.AmountRange, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rng, err := s.store.GetAmountRange(ctx, id)
	if err != nil {
		return nil, err
	}
	applyAmountRangeRequest(rng, req)
	if err := s.check(ctx, rng); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAmountRange(ctx, rng); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("amount_range", "update")
	logrus.WithFields(logrus.Fields{
		"range_id":      rng.ID,
		"contract_type": rng.ContractTypeCode,
	}).Info("Amount range updated")
	return rng, nil
}

// DeactivateRange takes the range out of resolution. The row is kept so the
// history of thresholds stays auditable.
func (s *AmountRangeService) DeactivateRange(ctx context.Context, id uuid.UUID) (*models.AmountRange, error) {
	rng, err := s.store.GetAmountRange(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rng.IsActive {
		return rng, nil
	}
	rng.IsActive = false
	if err := s.store.UpdateAmountRange(ctx, rng); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("amount_range", "deactivate")
	logrus.WithField("range_id", rng.ID).Info("Amount range deactivated")
	return rng, nil
}

// check validates the range against the current catalog: the type must
// exist and active ranges of other types must not overlap it.
func (s *AmountRangeService) check(ctx context.Context, rng *models.AmountRange) error {
	if err := engine.ValidateRange(rng); err != nil {
		return err
	}
	if _, err := s.store.GetContractType(ctx, rng.ContractTypeCode); err != nil {
		return err
	}
	ranges, err := s.store.ListAmountRanges(ctx)
	if err != nil {
		return err
	}
	return engine.NewAmountRangeResolver(ranges).CheckRange(rng)
}

func applyAmountRangeRequest(rng *models.AmountRange, req *AmountRangeRequest) {
	rng.ObjectCategory = req.ObjectCategory
	rng.ContractTypeCode = req.ContractTypeCode
	rng.MinAmount = req.MinAmount
	rng.MaxAmount = req.MaxAmount
	rng.Priority = req.Priority
	rng.Notes = req.Notes
	if req.IsActive != nil {
		rng.IsActive = *req.IsActive
	}
}
