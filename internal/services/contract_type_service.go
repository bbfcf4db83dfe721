// internal/services/contract_type_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
)

type ContractTypeService struct {
	store       CatalogStore
	metrics     *metrics.Metrics
	defaultType string

	// defaultCategories fill ObjectCategories on types created without any.
	defaultCategories []string
}

type ContractTypeRequest struct {
	Code             string                      `json:"code" validate:"required,contract_code"`
	Name             string                      `json:"name" validate:"required,max=255"`
	Description      string                      `json:"description,omitempty"`
	Regime           models.Regime               `json:"regime" validate:"required,oneof=COMMON SPECIAL"`
	Category         models.ContractTypeCategory `json:"category" validate:"required,oneof=LOW_VALUE DYNAMIC COMMON CONSULTING SPECIAL"`
	ObjectCategories []string                    `json:"object_categories,omitempty"`
	MinAmount        float64                     `json:"min_amount" validate:"money"`
	MaxAmount        *float64                    `json:"max_amount,omitempty" validate:"omitempty,money"`
	ProcedureConfig  models.ProcedureConfig      `json:"procedure_config"`
	LegalReference   string                      `json:"legal_reference,omitempty" validate:"max=255"`
	IsActive         *bool                       `json:"is_active,omitempty"`
}

// Resolution is the outcome of mapping an amount to a contract type.
type Resolution struct {
	ObjectCategory string   `json:"object_category"`
	Amount         float64  `json:"amount"`
	Candidates     []string `json:"candidates"`
	ContractType   string   `json:"contract_type"`
	UsedFallback   bool     `json:"used_fallback"`
}

func NewContractTypeService(store CatalogStore, m *metrics.Metrics, defaultType string) *ContractTypeService {
	return &ContractTypeService{
		store:       store,
		metrics:     m,
		defaultType: defaultType,
	}
}

// SetDefaultObjectCategories sets the object categories given to contract
// types created without any.
func (s *ContractTypeService) SetDefaultObjectCategories(categories []string) {
	s.defaultCategories = append([]string(nil), categories...)
}

func (s *ContractTypeService) ListContractTypes(ctx context.Context, includeInactive bool) ([]models.ContractType, error) {
	types, err := s.store.ListContractTypes(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return types, nil
	}
	return engine.NewContractTypeCatalog(types).Active(), nil
}

func (s *ContractTypeService) GetContractType(ctx context.Context, code string) (*models.ContractType, error) {
	return s.store.GetContractType(ctx, code)
}

func (s *ContractTypeService) CreateContractType(ctx context.Context, req *ContractTypeRequest) (*models.ContractType, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	t := &models.ContractType{IsActive: true}
	applyContractTypeRequest(t, req)
	if len(t.ObjectCategories) == 0 {
		t.ObjectCategories = append([]string(nil), s.defaultCategories...)
	}
	if err := s.createContractType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ContractTypeService) createContractType(ctx context.Context, t *models.ContractType) error {
	types, err := s.store.ListContractTypes(ctx)
	if err != nil {
		return err
	}
	if err := engine.NewContractTypeCatalog(types).Validate(t); err != nil {
		return err
	}
	if err := s.store.CreateContractType(ctx, t); err != nil {
		return err
	}

	s.metrics.CatalogMutation("contract_type", "create")
	logrus.WithFields(logrus.Fields{
		"contract_type": t.Code,
		"regime":        t.Regime,
		"category":      t.Category,
	}).Info("Contract type created")
	return nil
}

// UpdateContractType replaces the mutable fields of a type. The code is the
// identity contracts refer to and cannot change.
func (s *ContractTypeService) UpdateContractType(ctx context.Context, code string, req *ContractTypeRequest) (*models.ContractType, error) {
	if req.Code == "" {
		req.Code = code
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Code != code {
		return nil, engine.Invalid("code", "cannot be changed")
	}

	t, err := s.store.GetContractType(ctx, code)
	if err != nil {
		return nil, err
	}
	applyContractTypeRequest(t, req)

	types, err := s.store.ListContractTypes(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.NewContractTypeCatalog(types).Validate(t); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContractType(ctx, t); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("contract_type", "update")
	logrus.WithField("contract_type", t.Code).Info("Contract type updated")
	return t, nil
}

// DeactivateContractType hides the type from resolution and new contracts.
// Existing contracts keep their type.
func (s *ContractTypeService) DeactivateContractType(ctx context.Context, code string) (*models.ContractType, error) {
	t, err := s.store.GetContractType(ctx, code)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return t, nil
	}
	t.IsActive = false
	if err := s.store.UpdateContractType(ctx, t); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("contract_type", "deactivate")
	logrus.WithField("contract_type", t.Code).Info("Contract type deactivated")
	return t, nil
}

// ResolveContractType returns the ranked candidates for the amount and the
// selected type, falling back to the configured default.
func (s *ContractTypeService) ResolveContractType(ctx context.Context, objectCategory string, amount float64) (*Resolution, error) {
	if objectCategory == "" {
		return nil, engine.Invalid("object_category", "is required")
	}
	if amount < 0 {
		return nil, engine.Invalid("amount", "must not be negative")
	}

	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return resolve(snap, objectCategory, amount, s.defaultType, s.metrics)
}

func resolve(snap engine.CatalogSnapshot, objectCategory string, amount float64, fallback string, m *metrics.Metrics) (*Resolution, error) {
	resolver := engine.NewAmountRangeResolver(snap.Ranges)
	types := engine.NewContractTypeCatalog(snap.Types)

	candidates := resolver.ResolveTypesForAmount(objectCategory, amount)
	code, ok := engine.ResolveContractType(resolver, types, objectCategory, amount, fallback)
	if !ok {
		m.Resolution("unresolved")
		return nil, &UnresolvedError{ObjectCategory: objectCategory, Amount: amount}
	}

	usedFallback := true
	for _, c := range candidates {
		if c == code {
			usedFallback = false
			break
		}
	}
	if usedFallback {
		m.Resolution("fallback")
	} else {
		m.Resolution("range")
	}

	return &Resolution{
		ObjectCategory: objectCategory,
		Amount:         amount,
		Candidates:     candidates,
		ContractType:   code,
		UsedFallback:   usedFallback,
	}, nil
}

func applyContractTypeRequest(t *models.ContractType, req *ContractTypeRequest) {
	t.Code = req.Code
	t.Name = req.Name
	t.Description = req.Description
	t.Regime = req.Regime
	t.Category = req.Category
	t.ObjectCategories = req.ObjectCategories
	t.MinAmount = req.MinAmount
	t.MaxAmount = req.MaxAmount
	t.ProcedureConfig = req.ProcedureConfig
	t.LegalReference = req.LegalReference
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
}
