// internal/engine/contract_types.go
package engine

import (
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

var (
	typeCodePattern  = regexp.MustCompile(`^[A-Z0-9_]{2,20}$`)
	phaseCodePattern = regexp.MustCompile(`^[A-Z0-9_]{2,30}$`)
)

func IsValidTypeCode(code string) bool {
	return typeCodePattern.MatchString(code)
}

func IsValidPhaseCode(code string) bool {
	return phaseCodePattern.MatchString(code)
}

// ContractTypeCatalog is a keyed snapshot of contract type definitions.
type ContractTypeCatalog struct {
	byCode map[string]*models.ContractType
	byID   map[uuid.UUID]*models.ContractType
}

func NewContractTypeCatalog(types []models.ContractType) *ContractTypeCatalog {
	c := &ContractTypeCatalog{
		byCode: make(map[string]*models.ContractType, len(types)),
		byID:   make(map[uuid.UUID]*models.ContractType, len(types)),
	}
	for i := range types {
		t := &types[i]
		c.byCode[t.Code] = t
		c.byID[t.ID] = t
	}
	return c
}

func (c *ContractTypeCatalog) GetByCode(code string) (*models.ContractType, error) {
	if t, ok := c.byCode[code]; ok {
		return t, nil
	}
	return nil, NotFound(ResourceContractType, code)
}

func (c *ContractTypeCatalog) GetByID(id uuid.UUID) (*models.ContractType, error) {
	if t, ok := c.byID[id]; ok {
		return t, nil
	}
	return nil, NotFound(ResourceContractType, id.String())
}

// Active returns the active types sorted by code.
func (c *ContractTypeCatalog) Active() []models.ContractType {
	out := make([]models.ContractType, 0, len(c.byCode))
	for _, t := range c.byCode {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Validate checks a type before create or update. Codes are unique across
// the whole catalog, including inactive types, since contracts keep
// referencing them.
func (c *ContractTypeCatalog) Validate(t *models.ContractType) error {
	verr := &ValidationError{}
	if !IsValidTypeCode(t.Code) {
		verr.add("code", "must be 2-20 uppercase letters, digits or underscores")
	}
	if t.Name == "" {
		verr.add("name", "is required")
	}
	if !t.Regime.IsValid() {
		verr.add("regime", "must be COMMON or SPECIAL")
	}
	if !t.Category.IsValid() {
		verr.add("category", "is not a known contract type category")
	}
	if t.MinAmount < 0 {
		verr.add("min_amount", "must not be negative")
	}
	if t.MaxAmount != nil && *t.MaxAmount < t.MinAmount {
		verr.add("max_amount", "must be greater than or equal to min_amount")
	}
	p := t.ProcedureConfig
	if p.PublicationDays < 0 || p.EvaluationDays < 0 {
		verr.add("procedure_config", "day counts must not be negative")
	}
	if p.InsurancePercentage < 0 || p.InsurancePercentage > 100 {
		verr.add("procedure_config.insurance_percentage", "must be between 0 and 100")
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	if existing, ok := c.byCode[t.Code]; ok && existing.ID != t.ID {
		return newConfigError(Issue{
			Code:    IssueDuplicateCode,
			Message: "contract type code " + t.Code + " already exists",
			Refs:    []string{t.Code},
		})
	}
	return nil
}

// ResolveContractType picks the best ranked type for the amount that is
// active and applicable to the object category. It falls back to the given
// default when nothing matches; ok is false when neither yields a type.
func ResolveContractType(resolver *AmountRangeResolver, types *ContractTypeCatalog, objectCategory string, amount float64, fallback string) (string, bool) {
	for _, code := range resolver.ResolveTypesForAmount(objectCategory, amount) {
		t, err := types.GetByCode(code)
		if err != nil || !t.IsActive || !t.AppliesTo(objectCategory) {
			continue
		}
		return code, true
	}
	if fallback != "" {
		if t, err := types.GetByCode(fallback); err == nil && t.IsActive {
			return fallback, true
		}
	}
	return "", false
}
