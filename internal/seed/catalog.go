// internal/seed/catalog.go
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

//go:embed losncp.yaml
var defaultCatalog []byte

// Catalog is the YAML form of the three configuration catalogs.
type Catalog struct {
	ContractTypes []ContractType `yaml:"contract_types"`
	AmountRanges  []AmountRange  `yaml:"amount_ranges"`
	Phases        []Phase        `yaml:"phases"`
}

type ContractType struct {
	Code             string                 `yaml:"code"`
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	Regime           string                 `yaml:"regime"`
	Category         string                 `yaml:"category"`
	ObjectCategories []string               `yaml:"object_categories"`
	MinAmount        float64                `yaml:"min_amount"`
	MaxAmount        *float64               `yaml:"max_amount"`
	ProcedureConfig  models.ProcedureConfig `yaml:"procedure_config"`
	LegalReference   string                 `yaml:"legal_reference"`
}

type AmountRange struct {
	ObjectCategory string   `yaml:"object_category"`
	ContractType   string   `yaml:"contract_type"`
	Min            float64  `yaml:"min"`
	Max            *float64 `yaml:"max"`
	Priority       int      `yaml:"priority"`
	Notes          string   `yaml:"notes"`
}

type Phase struct {
	Code              string                   `yaml:"code"`
	Name              string                   `yaml:"name"`
	Description       string                   `yaml:"description"`
	Order             int                      `yaml:"order"`
	Category          string                   `yaml:"category"`
	RequiredDocuments []models.DocumentSpec    `yaml:"required_documents"`
	PhaseConfig       models.PhaseConfig       `yaml:"phase_config"`
	Dependencies      models.PhaseDependencies `yaml:"dependencies"`
	AllowedRoles      []string                 `yaml:"allowed_roles"`
	// AppliesTo lists types that use the phase unchanged.
	AppliesTo []string        `yaml:"applies_to"`
	Overrides []PhaseOverride `yaml:"type_specific_config"`
}

type PhaseOverride struct {
	ContractType        string                   `yaml:"contract_type"`
	ExcludedDocuments   []string                 `yaml:"excluded_documents"`
	AdditionalDocuments []models.DocumentSpec    `yaml:"additional_documents"`
	CustomDuration      *int                     `yaml:"custom_duration"`
	OverridePhaseConfig *models.PhaseConfigPatch `yaml:"override_phase_config"`
}

// Default returns the built-in LOSNCP catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from path, or the built-in one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) Types() []models.ContractType {
	out := make([]models.ContractType, 0, len(c.ContractTypes))
	for _, t := range c.ContractTypes {
		m := models.ContractType{
			Code:             t.Code,
			Name:             t.Name,
			Description:      t.Description,
			Regime:           models.Regime(t.Regime),
			Category:         models.ContractTypeCategory(t.Category),
			ObjectCategories: t.ObjectCategories,
			MinAmount:        t.MinAmount,
			MaxAmount:        t.MaxAmount,
			ProcedureConfig:  t.ProcedureConfig,
			LegalReference:   t.LegalReference,
			IsActive:         true,
		}
		m.ID = uuid.New()
		out = append(out, m)
	}
	return out
}

func (c *Catalog) Ranges() []models.AmountRange {
	out := make([]models.AmountRange, 0, len(c.AmountRanges))
	for _, r := range c.AmountRanges {
		m := models.AmountRange{
			ObjectCategory:   r.ObjectCategory,
			ContractTypeCode: r.ContractType,
			MinAmount:        r.Min,
			MaxAmount:        r.Max,
			Priority:         r.Priority,
			IsActive:         true,
			Notes:            r.Notes,
		}
		m.ID = uuid.New()
		out = append(out, m)
	}
	return out
}

// PhaseModels expands applies_to into plain override entries. A type listed in
// both applies_to and type_specific_config keeps only the detailed entry.
func (c *Catalog) PhaseModels() []models.ContractPhase {
	out := make([]models.ContractPhase, 0, len(c.Phases))
	for _, p := range c.Phases {
		m := models.ContractPhase{
			Code:              p.Code,
			Name:              p.Name,
			Description:       p.Description,
			Order:             p.Order,
			Category:          models.PhaseCategory(p.Category),
			RequiredDocuments: p.RequiredDocuments,
			PhaseConfig:       p.PhaseConfig,
			Dependencies:      p.Dependencies,
			AllowedRoles:      p.AllowedRoles,
			IsActive:          true,
		}
		m.ID = uuid.New()

		detailed := make(map[string]bool, len(p.Overrides))
		for _, o := range p.Overrides {
			detailed[o.ContractType] = true
			m.TypeOverrides = append(m.TypeOverrides, models.PhaseTypeOverride{
				ID:                  uuid.New(),
				PhaseID:             m.ID,
				ContractTypeCode:    o.ContractType,
				ExcludedDocuments:   o.ExcludedDocuments,
				AdditionalDocuments: o.AdditionalDocuments,
				CustomDuration:      o.CustomDuration,
				OverridePhaseConfig: o.OverridePhaseConfig,
			})
		}
		for _, code := range p.AppliesTo {
			if detailed[code] {
				continue
			}
			m.TypeOverrides = append(m.TypeOverrides, models.PhaseTypeOverride{
				ID:               uuid.New(),
				PhaseID:          m.ID,
				ContractTypeCode: code,
			})
		}
		out = append(out, m)
	}
	return out
}

// Snapshot returns the catalog in the form the integrity check consumes.
func (c *Catalog) Snapshot() engine.CatalogSnapshot {
	return engine.CatalogSnapshot{
		Types:  c.Types(),
		Ranges: c.Ranges(),
		Phases: c.PhaseModels(),
	}
}
