// internal/engine/integrity.go
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/municipal/procurement-backend/internal/models"
)

// CatalogSnapshot is a consistent read of the three configuration catalogs.
type CatalogSnapshot struct {
	Types  []models.ContractType
	Ranges []models.AmountRange
	Phases []models.ContractPhase
}

// ValidateCatalogIntegrity lists every configuration problem in the snapshot:
// overlapping ranges across types, references to unknown types, duplicate
// order/category pairs, duplicate document codes and overrides, orphaned
// dependency references, cycles, and per-type sequence violations.
func ValidateCatalogIntegrity(s CatalogSnapshot) []Issue {
	types := NewContractTypeCatalog(s.Types)
	phases := NewPhaseCatalog(s.Phases)

	var issues []Issue
	issues = append(issues, rangeIssues(s.Ranges, types)...)
	issues = append(issues, phaseIssues(phases, types)...)

	if err := phases.ValidateDependencyGraph(); err != nil {
		issues = append(issues, err.(*ConfigError).Issues...)
	}

	builder := NewPhaseSequenceBuilder(phases)
	for _, t := range types.Active() {
		if _, err := builder.BuildSequence(t.Code); err != nil {
			if cerr, ok := err.(*ConfigError); ok {
				issues = append(issues, cerr.Issues...)
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Code != issues[j].Code {
			return issues[i].Code < issues[j].Code
		}
		return strings.Join(issues[i].Refs, ",") < strings.Join(issues[j].Refs, ",")
	})
	return issues
}

func rangeIssues(ranges []models.AmountRange, types *ContractTypeCatalog) []Issue {
	var issues []Issue
	active := make([]models.AmountRange, 0, len(ranges))
	for _, r := range ranges {
		if r.IsActive {
			active = append(active, r)
		}
	}

	for i, a := range active {
		if t, err := types.GetByCode(a.ContractTypeCode); err != nil || !t.IsActive {
			issues = append(issues, Issue{
				Code:    IssueUnknownContractType,
				Message: fmt.Sprintf("%s range %s maps to unknown or inactive type %s", a.ObjectCategory, formatInterval(a), a.ContractTypeCode),
				Refs:    []string{a.ContractTypeCode},
			})
		}
		for _, b := range active[i+1:] {
			if a.ObjectCategory != b.ObjectCategory || a.ContractTypeCode == b.ContractTypeCode {
				continue
			}
			if RangesOverlap(a.MinAmount, a.MaxAmount, b.MinAmount, b.MaxAmount) {
				issues = append(issues, overlapIssue(a, b))
			}
		}
	}
	return issues
}

func phaseIssues(phases *PhaseCatalog, types *ContractTypeCatalog) []Issue {
	var issues []Issue
	all := phases.Phases()

	known := make(map[string]bool, len(all))
	for _, p := range all {
		known[p.Code] = true
	}

	type slot struct {
		category models.PhaseCategory
		order    int
	}
	slots := make(map[slot][]string)
	for i := range all {
		p := &all[i]
		key := slot{p.Category, p.Order}
		slots[key] = append(slots[key], p.Code)

		issues = append(issues, documentCodeIssues(p)...)
		issues = append(issues, overrideIssues(p)...)

		for _, o := range p.TypeOverrides {
			if _, err := types.GetByCode(o.ContractTypeCode); err != nil {
				issues = append(issues, Issue{
					Code:    IssueUnknownContractType,
					Message: fmt.Sprintf("phase %s overrides unknown type %s", p.Code, o.ContractTypeCode),
					Refs:    []string{p.Code, o.ContractTypeCode},
				})
			}
		}
		for _, ref := range p.Dependencies.References() {
			if !known[ref] {
				issues = append(issues, Issue{
					Code:    IssueOrphanedDependency,
					Message: fmt.Sprintf("phase %s depends on unknown or inactive phase %s", p.Code, ref),
					Refs:    []string{p.Code, ref},
				})
			}
		}
	}

	for key, codes := range slots {
		if len(codes) > 1 {
			sort.Strings(codes)
			issues = append(issues, duplicateOrderIssue(key.category, key.order, codes...))
		}
	}
	return issues
}
