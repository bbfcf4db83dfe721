package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/municipal/procurement-backend/internal/models"
)

func TestResolveEffectiveConfig_NoOverride(t *testing.T) {
	phase := newPhase("PREP", 2, models.PhaseCategoryPreparation, withDocs(doc("A", true), doc("B", false)))

	got := ResolveEffectiveConfig(&phase, "MENOR_CUANTIA")

	assert.Equal(t, []string{"A", "B"}, got.Documents.Codes())
	assert.Equal(t, phase.PhaseConfig, got.PhaseConfig)
	assert.Equal(t, 5, got.Duration)
}

func TestResolveEffectiveConfig_ExcludeAndAdd(t *testing.T) {
	phase := newPhase("PREP", 2, models.PhaseCategoryPreparation,
		withDocs(doc("A", true), doc("B", true), doc("C", false)),
		withOverride(models.PhaseTypeOverride{
			ID:                  uuid.New(),
			ContractTypeCode:    "MENOR_CUANTIA",
			ExcludedDocuments:   []string{"B"},
			AdditionalDocuments: models.DocumentSpecs{doc("D", true)},
		}),
	)

	got := ResolveEffectiveConfig(&phase, "MENOR_CUANTIA")

	assert.Equal(t, []string{"A", "C", "D"}, got.Documents.Codes())
	assert.Equal(t, []string{"A", "D"}, got.MandatoryDocuments().Codes())
}

func TestResolveEffectiveConfig_ExcludeByName(t *testing.T) {
	phase := newPhase("PREP", 2, models.PhaseCategoryPreparation,
		withDocs(doc("A", true), doc("B", true)),
		withOverride(models.PhaseTypeOverride{
			ID:                uuid.New(),
			ContractTypeCode:  "INFIMA_CUANTIA",
			ExcludedDocuments: []string{"Document A"},
		}),
	)

	got := ResolveEffectiveConfig(&phase, "INFIMA_CUANTIA")

	assert.Equal(t, []string{"B"}, got.Documents.Codes())
}

func TestResolveEffectiveConfig_DurationAndPatch(t *testing.T) {
	phase := newPhase("CALL", 3, models.PhaseCategoryCall,
		withOverride(models.PhaseTypeOverride{
			ID:               uuid.New(),
			ContractTypeCode: "PATCHED",
			OverridePhaseConfig: &models.PhaseConfigPatch{
				EstimatedDays: intPtr(12),
				AutoAdvance:   boolPtr(true),
			},
		}),
		withOverride(models.PhaseTypeOverride{
			ID:               uuid.New(),
			ContractTypeCode: "CUSTOM",
			CustomDuration:   intPtr(30),
			OverridePhaseConfig: &models.PhaseConfigPatch{
				EstimatedDays: intPtr(12),
			},
		}),
	)
	phase.PhaseConfig.RequiresApproval = true

	patched := ResolveEffectiveConfig(&phase, "PATCHED")
	assert.Equal(t, 12, patched.Duration)
	assert.True(t, patched.PhaseConfig.AutoAdvance)
	assert.True(t, patched.PhaseConfig.RequiresApproval, "fields absent from the patch are kept")

	custom := ResolveEffectiveConfig(&phase, "CUSTOM")
	assert.Equal(t, 30, custom.Duration)
	assert.Equal(t, 12, custom.PhaseConfig.EstimatedDays)

	assert.False(t, phase.PhaseConfig.AutoAdvance)
	assert.Equal(t, 5, phase.PhaseConfig.EstimatedDays)
}

func TestResolveEffectiveConfig_Idempotent(t *testing.T) {
	phase := newPhase("PREP", 2, models.PhaseCategoryPreparation,
		withDocs(doc("A", true), doc("B", true)),
		requires("PLAN", models.DependencyStatusCompleted),
		withOverride(models.PhaseTypeOverride{
			ID:                  uuid.New(),
			ContractTypeCode:    "MENOR_CUANTIA",
			ExcludedDocuments:   []string{"A"},
			AdditionalDocuments: models.DocumentSpecs{doc("D", false)},
		}),
	)
	before := phase

	first := ResolveEffectiveConfig(&phase, "MENOR_CUANTIA")
	first.Documents[0].Name = "mutated"
	first.Dependencies.RequiredPhases[0].Phase = "mutated"
	second := ResolveEffectiveConfig(&phase, "MENOR_CUANTIA")
	third := ResolveEffectiveConfig(&phase, "MENOR_CUANTIA")

	if diff := cmp.Diff(second, third); diff != "" {
		t.Errorf("repeated resolution differs (-second +third):\n%s", diff)
	}
	if diff := cmp.Diff(before, phase); diff != "" {
		t.Errorf("phase template was mutated (-before +after):\n%s", diff)
	}
	require.Len(t, second.Documents, 2)
	assert.Equal(t, "Document B", second.Documents[0].Name)
}

func TestApplyPhaseConfigPatch_Nil(t *testing.T) {
	base := models.PhaseConfig{EstimatedDays: 3, NotificationDays: 1}
	assert.Equal(t, base, ApplyPhaseConfigPatch(base, nil))
}

func TestMissingDocuments(t *testing.T) {
	docs := models.DocumentSpecs{doc("A", true), doc("B", false), doc("C", true)}

	missing := MissingDocuments(docs, []DocumentRecord{
		{DocumentCode: "A", Status: models.DocumentStatusActive},
		{DocumentCode: "C", Status: models.DocumentStatusDeleted},
	})

	assert.Equal(t, []string{"C"}, missing)
	assert.Empty(t, MissingDocuments(docs, []DocumentRecord{
		{DocumentCode: "A", Status: models.DocumentStatusActive},
		{DocumentCode: "C", Status: models.DocumentStatusActive},
	}))
}
