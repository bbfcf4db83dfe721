// internal/engine/sequence.go
package engine

import (
	"fmt"
)

// PhaseSequenceBuilder turns the phase catalog into the ordered plan of one
// contract type.
type PhaseSequenceBuilder struct {
	catalog *PhaseCatalog
}

func NewPhaseSequenceBuilder(catalog *PhaseCatalog) *PhaseSequenceBuilder {
	return &PhaseSequenceBuilder{catalog: catalog}
}

// BuildSequence returns the applicable phases for contractTypeCode sorted by
// order (ties by category declaration order) with their effective
// configuration attached. A required phase that is absent from the sequence,
// or any dependency on a phase ordered after the dependent, is a
// configuration error.
func (b *PhaseSequenceBuilder) BuildSequence(contractTypeCode string) ([]EffectiveConfig, error) {
	phases := b.catalog.FindApplicablePhases(contractTypeCode)
	sortPhases(phases)

	position := make(map[string]int, len(phases))
	for i, p := range phases {
		position[p.Code] = i
	}

	var issues []Issue
	sequence := make([]EffectiveConfig, 0, len(phases))
	for i := range phases {
		p := &phases[i]
		for _, req := range p.Dependencies.RequiredPhases {
			at, ok := position[req.Phase]
			if !ok {
				issues = append(issues, Issue{
					Code: IssueMissingDependency,
					Message: fmt.Sprintf("phase %s requires %s, which does not apply to type %s",
						p.Code, req.Phase, contractTypeCode),
					Refs: []string{p.Code, req.Phase, contractTypeCode},
				})
				continue
			}
			if at > i {
				issues = append(issues, dependencyOrderIssue(p.Code, req.Phase, contractTypeCode))
			}
		}
		for _, blocker := range p.Dependencies.BlockedBy {
			if at, ok := position[blocker]; ok && at > i {
				issues = append(issues, dependencyOrderIssue(p.Code, blocker, contractTypeCode))
			}
		}
		sequence = append(sequence, ResolveEffectiveConfig(p, contractTypeCode))
	}

	if len(issues) > 0 {
		return nil, newConfigError(issues...)
	}
	return sequence, nil
}

func dependencyOrderIssue(phase, dependency, contractTypeCode string) Issue {
	return Issue{
		Code: IssueDependencyOrder,
		Message: fmt.Sprintf("phase %s depends on %s, which is ordered after it for type %s",
			phase, dependency, contractTypeCode),
		Refs: []string{phase, dependency, contractTypeCode},
	}
}

// SequenceCodes returns the phase codes of a built sequence.
func SequenceCodes(sequence []EffectiveConfig) []string {
	codes := make([]string, 0, len(sequence))
	for _, s := range sequence {
		codes = append(codes, s.PhaseCode)
	}
	return codes
}
