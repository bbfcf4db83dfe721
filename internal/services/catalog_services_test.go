// internal/services/catalog_services_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/seed"
)

func configIssue(t *testing.T, err error, code engine.IssueCode) {
	t.Helper()
	var cerr *engine.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Has(code), "expected %s in %v", code, cerr.Issues)
}

func phaseRequestFrom(p *models.ContractPhase) *PhaseRequest {
	req := &PhaseRequest{
		Code:              p.Code,
		Name:              p.Name,
		Description:       p.Description,
		Order:             p.Order,
		Category:          p.Category,
		RequiredDocuments: p.RequiredDocuments,
		PhaseConfig:       p.PhaseConfig,
		Dependencies:      p.Dependencies,
		AllowedRoles:      p.AllowedRoles,
	}
	for _, o := range p.TypeOverrides {
		req.TypeOverrides = append(req.TypeOverrides, OverrideRequest{
			ContractTypeCode:    o.ContractTypeCode,
			ExcludedDocuments:   o.ExcludedDocuments,
			AdditionalDocuments: o.AdditionalDocuments,
			CustomDuration:      o.CustomDuration,
			OverridePhaseConfig: o.OverridePhaseConfig,
		})
	}
	return req
}

func TestContractTypeService(t *testing.T) {
	f := newFixture(t)

	req := &ContractTypeRequest{
		Code:     "INFIMA_CUANTIA",
		Name:     "Ínfima cuantía",
		Regime:   models.RegimeCommon,
		Category: models.ContractTypeCategoryLowValue,
	}
	_, err := f.types.CreateContractType(f.ctx, req)
	configIssue(t, err, engine.IssueDuplicateCode)

	req.Code = "infima"
	_, err = f.types.CreateContractType(f.ctx, req)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	req.Code = "FERIA_INCLUSIVA"
	req.Name = "Feria inclusiva"
	req.Category = models.ContractTypeCategoryDynamic
	created, err := f.types.CreateContractType(f.ctx, req)
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	req.Code = "FERIA_2"
	_, err = f.types.UpdateContractType(f.ctx, "FERIA_INCLUSIVA", req)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	req.Code = ""
	req.LegalReference = "LOSNCP Art. 59.1"
	updated, err := f.types.UpdateContractType(f.ctx, "FERIA_INCLUSIVA", req)
	require.NoError(t, err)
	assert.Equal(t, "LOSNCP Art. 59.1", updated.LegalReference)

	_, err = f.types.DeactivateContractType(f.ctx, "FERIA_INCLUSIVA")
	require.NoError(t, err)
	active, err := f.types.ListContractTypes(f.ctx, false)
	require.NoError(t, err)
	all, err := f.types.ListContractTypes(f.ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	_, err = f.types.GetContractType(f.ctx, "NO_EXISTE")
	assert.ErrorIs(t, err, engine.ErrUnknownContractType)
}

func TestContractTypeService_DefaultObjectCategories(t *testing.T) {
	f := newFixture(t)
	f.types.SetDefaultObjectCategories([]string{models.ObjectCategoryGoods, models.ObjectCategoryWorks})

	created, err := f.types.CreateContractType(f.ctx, &ContractTypeRequest{
		Code:     "FERIA_INCLUSIVA",
		Name:     "Feria inclusiva",
		Regime:   models.RegimeCommon,
		Category: models.ContractTypeCategoryDynamic,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"goods", "works"}, []string(created.ObjectCategories))

	created, err = f.types.CreateContractType(f.ctx, &ContractTypeRequest{
		Code:             "CATALOGO_ELECTRONICO",
		Name:             "Catálogo electrónico",
		Regime:           models.RegimeCommon,
		Category:         models.ContractTypeCategoryDynamic,
		ObjectCategories: []string{models.ObjectCategoryServices},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"services"}, []string(created.ObjectCategories))
}

func TestResolveContractType(t *testing.T) {
	f := newFixture(t)

	res, err := f.types.ResolveContractType(f.ctx, models.ObjectCategoryGoods, 7212.61)
	require.NoError(t, err)
	assert.Equal(t, "MENOR_CUANTIA", res.ContractType)
	assert.Equal(t, []string{"MENOR_CUANTIA"}, res.Candidates)
	assert.False(t, res.UsedFallback)

	res, err = f.types.ResolveContractType(f.ctx, models.ObjectCategoryWorks, 252441)
	require.NoError(t, err)
	assert.Equal(t, "MENOR_CUANTIA", res.ContractType)

	res, err = f.types.ResolveContractType(f.ctx, models.ObjectCategoryConsulting, 1e7)
	require.NoError(t, err)
	assert.Equal(t, "CONCURSO_PUBLICO", res.ContractType)

	_, err = f.types.ResolveContractType(f.ctx, models.ObjectCategoryGoods, -1)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	_, err = f.types.DeactivateContractType(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	_, err = f.types.ResolveContractType(f.ctx, models.ObjectCategoryGoods, 5000)
	assert.ErrorIs(t, err, ErrContractTypeUnresolved)
}

func TestResolveContractType_Fallback(t *testing.T) {
	f := newFixture(t, withDefaultType("REGIMEN_ESPECIAL"))

	res, err := f.types.ResolveContractType(f.ctx, "leasing", 10)
	require.NoError(t, err)
	assert.Equal(t, "REGIMEN_ESPECIAL", res.ContractType)
	assert.Empty(t, res.Candidates)
	assert.True(t, res.UsedFallback)
}

func TestAmountRangeService(t *testing.T) {
	f := newFixture(t)
	upper := 8000.0

	_, err := f.ranges.CreateRange(f.ctx, &AmountRangeRequest{
		ObjectCategory:   models.ObjectCategoryGoods,
		ContractTypeCode: "SUBASTA_INVERSA",
		MinAmount:        7000,
		MaxAmount:        &upper,
	})
	configIssue(t, err, engine.IssueConfigConflict)

	// same-type overlaps are redundant, not conflicting
	upper = 20000
	same, err := f.ranges.CreateRange(f.ctx, &AmountRangeRequest{
		ObjectCategory:   models.ObjectCategoryGoods,
		ContractTypeCode: "MENOR_CUANTIA",
		MinAmount:        10000,
		MaxAmount:        &upper,
		Priority:         2,
	})
	require.NoError(t, err)

	_, err = f.ranges.CreateRange(f.ctx, &AmountRangeRequest{
		ObjectCategory:   "leasing",
		ContractTypeCode: "NO_EXISTE",
	})
	assert.ErrorIs(t, err, engine.ErrUnknownContractType)

	low := 5000.0
	_, err = f.ranges.UpdateRange(f.ctx, same.ID, &AmountRangeRequest{
		ObjectCategory:   models.ObjectCategoryGoods,
		ContractTypeCode: "MENOR_CUANTIA",
		MinAmount:        10000,
		MaxAmount:        &low,
	})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	deactivated, err := f.ranges.DeactivateRange(f.ctx, same.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	goods, err := f.ranges.ListRanges(f.ctx, models.ObjectCategoryGoods)
	require.NoError(t, err)
	assert.Len(t, goods, 5)
	for i := 1; i < len(goods); i++ {
		assert.LessOrEqual(t, goods[i-1].MinAmount, goods[i].MinAmount)
	}
}

func TestPhaseService_CreateAndValidate(t *testing.T) {
	f := newFixture(t)

	audit := &PhaseRequest{
		Code:     "AUDITORIA",
		Name:     "Auditoría interna",
		Order:    16,
		Category: models.PhaseCategoryArchive,
		Dependencies: models.PhaseDependencies{
			RequiredPhases: []models.RequiredPhase{{Phase: "ARCHIVO", RequiredStatus: models.DependencyStatusCompleted}},
		},
		TypeOverrides: []OverrideRequest{{ContractTypeCode: "INFIMA_CUANTIA"}},
	}
	created, err := f.phases.CreatePhase(f.ctx, audit)
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = f.phases.CreatePhase(f.ctx, audit)
	configIssue(t, err, engine.IssueDuplicateCode)

	dupOrder := *audit
	dupOrder.Code = "PLAN_BIS"
	dupOrder.Order = 1
	dupOrder.Category = models.PhaseCategoryPlanning
	dupOrder.Dependencies = models.PhaseDependencies{}
	_, err = f.phases.CreatePhase(f.ctx, &dupOrder)
	configIssue(t, err, engine.IssueDuplicateOrder)

	unknownType := *audit
	unknownType.Code = "AUDITORIA_2"
	unknownType.Order = 17
	unknownType.TypeOverrides = []OverrideRequest{{ContractTypeCode: "NO_EXISTE"}}
	_, err = f.phases.CreatePhase(f.ctx, &unknownType)
	configIssue(t, err, engine.IssueUnknownContractType)

	archive, err := f.phases.GetPhase(f.ctx, "ARCHIVO")
	require.NoError(t, err)
	req := phaseRequestFrom(archive)
	req.Dependencies.BlockedBy = append(req.Dependencies.BlockedBy, "AUDITORIA")
	_, err = f.phases.UpdatePhase(f.ctx, "ARCHIVO", req)
	configIssue(t, err, engine.IssueCyclicDependency)

	_, err = f.phases.DeactivatePhase(f.ctx, "ARCHIVO")
	configIssue(t, err, engine.IssueOrphanedDependency)

	sequence, err := f.phases.GetPhaseSequence(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	assert.Equal(t, append(append([]string(nil), infimaPlan...), "AUDITORIA"), engine.SequenceCodes(sequence))
}

func TestPhaseService_Deactivate(t *testing.T) {
	f := newFixture(t)

	phase, err := f.phases.DeactivatePhase(f.ctx, "ARCHIVO")
	require.NoError(t, err)
	assert.False(t, phase.IsActive)

	sequence, err := f.phases.GetPhaseSequence(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	assert.Equal(t, infimaPlan[:6], engine.SequenceCodes(sequence))

	// codes stay reserved by inactive phases
	req := phaseRequestFrom(phase)
	req.IsActive = nil
	_, err = f.phases.CreatePhase(f.ctx, req)
	configIssue(t, err, engine.IssueDuplicateCode)

	_, err = f.phases.GetPhaseSequence(f.ctx, "NO_EXISTE")
	assert.ErrorIs(t, err, engine.ErrUnknownContractType)
}

func TestPhaseService_CodeUniqueWhenCreatedInactive(t *testing.T) {
	f := newFixture(t)

	plan, err := f.phases.GetPhase(f.ctx, "PLAN_ANUAL")
	require.NoError(t, err)
	req := phaseRequestFrom(plan)
	inactive := false
	req.IsActive = &inactive

	_, err = f.phases.CreatePhase(f.ctx, req)
	configIssue(t, err, engine.IssueDuplicateCode)

	phases, err := f.phases.ListPhases(f.ctx, true)
	require.NoError(t, err)
	count := 0
	for _, p := range phases {
		if p.Code == "PLAN_ANUAL" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPhaseService_UpdateCannotOrphanDependents(t *testing.T) {
	f := newFixture(t)

	plan, err := f.phases.GetPhase(f.ctx, "PLAN_ANUAL")
	require.NoError(t, err)
	req := phaseRequestFrom(plan)
	inactive := false
	req.IsActive = &inactive

	_, err = f.phases.UpdatePhase(f.ctx, "PLAN_ANUAL", req)
	configIssue(t, err, engine.IssueOrphanedDependency)

	stored, err := f.phases.GetPhase(f.ctx, "PLAN_ANUAL")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	issues, err := NewIntegrityService(f.catalog).ValidateCatalogIntegrity(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	sequence, err := f.phases.GetPhaseSequence(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	assert.Equal(t, infimaPlan, engine.SequenceCodes(sequence))

	// a phase nothing depends on can still be switched off by update
	archive, err := f.phases.GetPhase(f.ctx, "ARCHIVO")
	require.NoError(t, err)
	req = phaseRequestFrom(archive)
	req.IsActive = &inactive
	updated, err := f.phases.UpdatePhase(f.ctx, "ARCHIVO", req)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestPhaseService_Overrides(t *testing.T) {
	f := newFixture(t)

	days := 4
	override, err := f.phases.UpsertOverride(f.ctx, "ESTUDIO_MERCADO", "INFIMA_CUANTIA", &OverrideRequest{
		ExcludedDocuments: []string{"PROFORMAS"},
		CustomDuration:    &days,
	})
	require.NoError(t, err)
	assert.Equal(t, "INFIMA_CUANTIA", override.ContractTypeCode)

	sequence, err := f.phases.GetPhaseSequence(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	market := sequence[2]
	assert.Equal(t, "ESTUDIO_MERCADO", market.PhaseCode)
	assert.Equal(t, []string{"INFORME_MERCADO"}, market.Documents.Codes())
	assert.Equal(t, 4, market.Duration)

	_, err = f.phases.UpsertOverride(f.ctx, "ESTUDIO_MERCADO", "NO_EXISTE", &OverrideRequest{})
	assert.ErrorIs(t, err, engine.ErrUnknownContractType)

	_, err = f.phases.UpsertOverride(f.ctx, "ESTUDIO_MERCADO", "INFIMA_CUANTIA", &OverrideRequest{ContractTypeCode: "LICITACION"})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	require.NoError(t, f.phases.DeleteOverride(f.ctx, "ESTUDIO_MERCADO", "INFIMA_CUANTIA"))
	applicable, err := f.phases.FindApplicablePhases(f.ctx, "INFIMA_CUANTIA")
	require.NoError(t, err)
	for _, p := range applicable {
		assert.NotEqual(t, "ESTUDIO_MERCADO", p.Code)
	}

	err = f.phases.DeleteOverride(f.ctx, "ESTUDIO_MERCADO", "INFIMA_CUANTIA")
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
}

func TestIntegrityAndSeeding(t *testing.T) {
	f := newFixture(t)

	issues, err := f.integrity.ValidateCatalogIntegrity(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	catalog, err := seed.Default()
	require.NoError(t, err)
	report, err := NewCatalogSeeder(f.catalog, f.types, f.ranges, f.phases).Seed(f.ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{
		TypesSkipped:  len(catalog.Types()),
		RangesSkipped: len(catalog.Ranges()),
		PhasesSkipped: len(catalog.PhaseModels()),
	}, report)
}
