package engine

import (
	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

func money(v float64) *float64 { return &v }
func intPtr(v int) *int        { return &v }
func boolPtr(v bool) *bool     { return &v }

func amountRange(category, code string, lo float64, hi *float64, priority int) models.AmountRange {
	r := models.AmountRange{
		ObjectCategory:   category,
		ContractTypeCode: code,
		MinAmount:        lo,
		MaxAmount:        hi,
		Priority:         priority,
		IsActive:         true,
	}
	r.ID = uuid.New()
	return r
}

func doc(code string, mandatory bool) models.DocumentSpec {
	return models.DocumentSpec{Code: code, Name: "Document " + code, IsMandatory: mandatory}
}

type phaseOption func(*models.ContractPhase)

func newPhase(code string, order int, category models.PhaseCategory, opts ...phaseOption) models.ContractPhase {
	p := models.ContractPhase{
		Code:        code,
		Name:        "Phase " + code,
		Order:       order,
		Category:    category,
		PhaseConfig: models.PhaseConfig{EstimatedDays: 5},
		IsActive:    true,
	}
	p.ID = uuid.New()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withDocs(docs ...models.DocumentSpec) phaseOption {
	return func(p *models.ContractPhase) { p.RequiredDocuments = docs }
}

func forTypes(codes ...string) phaseOption {
	return func(p *models.ContractPhase) {
		for _, code := range codes {
			p.TypeOverrides = append(p.TypeOverrides, models.PhaseTypeOverride{ID: uuid.New(), PhaseID: p.ID, ContractTypeCode: code})
		}
	}
}

func withOverride(o models.PhaseTypeOverride) phaseOption {
	return func(p *models.ContractPhase) {
		o.PhaseID = p.ID
		p.TypeOverrides = append(p.TypeOverrides, o)
	}
}

func requires(code string, status models.DependencyStatus) phaseOption {
	return func(p *models.ContractPhase) {
		p.Dependencies.RequiredPhases = append(p.Dependencies.RequiredPhases, models.RequiredPhase{Phase: code, RequiredStatus: status})
	}
}

func blockedBy(codes ...string) phaseOption {
	return func(p *models.ContractPhase) { p.Dependencies.BlockedBy = append(p.Dependencies.BlockedBy, codes...) }
}

func autoAdvance() phaseOption {
	return func(p *models.ContractPhase) { p.PhaseConfig.AutoAdvance = true }
}

func contractType(code string) models.ContractType {
	t := models.ContractType{
		Code:     code,
		Name:     "Type " + code,
		Regime:   models.RegimeCommon,
		Category: models.ContractTypeCategoryCommon,
		IsActive: true,
	}
	t.ID = uuid.New()
	return t
}

// newContract builds a contract initialized with the sequence of typeCode.
func newContract(engine *ProgressionEngine, typeCode string, phases ...models.ContractPhase) (*models.Contract, error) {
	sequence, err := NewPhaseSequenceBuilder(NewPhaseCatalog(phases)).BuildSequence(typeCode)
	if err != nil {
		return nil, err
	}
	c := &models.Contract{ContractTypeCode: typeCode, GeneralStatus: models.GeneralStatusDraft}
	c.ID = uuid.New()
	if err := engine.Initialize(c, sequence, fixedNow); err != nil {
		return nil, err
	}
	return c, nil
}
