// internal/engine/effective.go
package engine

import (
	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

// EffectiveConfig is a phase template merged with the override entry of one
// contract type.
type EffectiveConfig struct {
	PhaseID      uuid.UUID                `json:"phase_id"`
	PhaseCode    string                   `json:"phase_code"`
	PhaseName    string                   `json:"phase_name"`
	Order        int                      `json:"order"`
	Category     models.PhaseCategory     `json:"category"`
	Documents    models.DocumentSpecs     `json:"effective_documents"`
	Duration     int                      `json:"effective_duration"`
	PhaseConfig  models.PhaseConfig       `json:"effective_phase_config"`
	Dependencies models.PhaseDependencies `json:"dependencies"`
	AllowedRoles []string                 `json:"allowed_roles,omitempty"`
}

// MandatoryDocuments returns the effective documents flagged mandatory.
func (e EffectiveConfig) MandatoryDocuments() models.DocumentSpecs {
	return MandatoryDocuments(e.Documents)
}

func MandatoryDocuments(docs models.DocumentSpecs) models.DocumentSpecs {
	out := make(models.DocumentSpecs, 0, len(docs))
	for _, doc := range docs {
		if doc.IsMandatory {
			out = append(out, doc)
		}
	}
	return out
}

// ResolveEffectiveConfig merges phase with its override for contractTypeCode.
// It never mutates phase and returns freshly allocated slices, so repeated
// calls on the same input yield equal results.
func ResolveEffectiveConfig(phase *models.ContractPhase, contractTypeCode string) EffectiveConfig {
	override, _ := phase.Override(contractTypeCode)

	cfg := phase.PhaseConfig
	duration := cfg.EstimatedDays
	if override != nil {
		cfg = ApplyPhaseConfigPatch(phase.PhaseConfig, override.OverridePhaseConfig)
		duration = cfg.EstimatedDays
		if override.CustomDuration != nil {
			duration = *override.CustomDuration
		}
	}

	return EffectiveConfig{
		PhaseID:      phase.ID,
		PhaseCode:    phase.Code,
		PhaseName:    phase.Name,
		Order:        phase.Order,
		Category:     phase.Category,
		Documents:    resolveDocuments(phase.RequiredDocuments, override),
		Duration:     duration,
		PhaseConfig:  cfg,
		Dependencies: copyDependencies(phase.Dependencies),
		AllowedRoles: copyStrings(phase.AllowedRoles),
	}
}

// resolveDocuments drops base documents whose code or name is excluded and
// appends the additional documents in declaration order.
func resolveDocuments(base models.DocumentSpecs, override *models.PhaseTypeOverride) models.DocumentSpecs {
	if override == nil {
		return copyDocuments(base)
	}

	excluded := make(map[string]bool, len(override.ExcludedDocuments))
	for _, name := range override.ExcludedDocuments {
		excluded[name] = true
	}

	out := make(models.DocumentSpecs, 0, len(base)+len(override.AdditionalDocuments))
	for _, doc := range base {
		if excluded[doc.Code] || excluded[doc.Name] {
			continue
		}
		out = append(out, copyDocument(doc))
	}
	for _, doc := range override.AdditionalDocuments {
		out = append(out, copyDocument(doc))
	}
	return out
}

// ApplyPhaseConfigPatch shallow-replaces the fields present in patch.
func ApplyPhaseConfigPatch(base models.PhaseConfig, patch *models.PhaseConfigPatch) models.PhaseConfig {
	out := base
	if patch == nil {
		return out
	}
	if patch.IsOptional != nil {
		out.IsOptional = *patch.IsOptional
	}
	if patch.AllowParallel != nil {
		out.AllowParallel = *patch.AllowParallel
	}
	if patch.EstimatedDays != nil {
		out.EstimatedDays = *patch.EstimatedDays
	}
	if patch.RequiresApproval != nil {
		out.RequiresApproval = *patch.RequiresApproval
	}
	if patch.AutoAdvance != nil {
		out.AutoAdvance = *patch.AutoAdvance
	}
	if patch.NotificationDays != nil {
		out.NotificationDays = *patch.NotificationDays
	}
	return out
}

func copyDocuments(docs models.DocumentSpecs) models.DocumentSpecs {
	out := make(models.DocumentSpecs, 0, len(docs))
	for _, doc := range docs {
		out = append(out, copyDocument(doc))
	}
	return out
}

func copyDocument(doc models.DocumentSpec) models.DocumentSpec {
	doc.AllowedFileTypes = copyStrings(doc.AllowedFileTypes)
	return doc
}

func copyDependencies(deps models.PhaseDependencies) models.PhaseDependencies {
	out := models.PhaseDependencies{
		RequiredPhases: make([]models.RequiredPhase, len(deps.RequiredPhases)),
		BlockedBy:      copyStrings(deps.BlockedBy),
	}
	copy(out.RequiredPhases, deps.RequiredPhases)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
