// internal/engine/phases.go
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

// PhaseCatalog is a snapshot of the active phase templates.
type PhaseCatalog struct {
	phases []models.ContractPhase
}

// NewPhaseCatalog keeps only active phases.
func NewPhaseCatalog(phases []models.ContractPhase) *PhaseCatalog {
	active := make([]models.ContractPhase, 0, len(phases))
	for _, p := range phases {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return &PhaseCatalog{phases: active}
}

func (c *PhaseCatalog) Phases() []models.ContractPhase {
	return c.phases
}

func (c *PhaseCatalog) Get(code string) (*models.ContractPhase, error) {
	for i := range c.phases {
		if c.phases[i].Code == code {
			return &c.phases[i], nil
		}
	}
	return nil, NotFound(ResourcePhase, code)
}

// FindApplicablePhases returns the phases that carry an override entry for
// the contract type, in catalog order.
func (c *PhaseCatalog) FindApplicablePhases(contractTypeCode string) []models.ContractPhase {
	var out []models.ContractPhase
	for i := range c.phases {
		if _, ok := c.phases[i].Override(contractTypeCode); ok {
			out = append(out, c.phases[i])
		}
	}
	return out
}

// With returns a snapshot in which phase replaces the entry with the same ID,
// or is appended. Inactive phases are removed.
func (c *PhaseCatalog) With(phase models.ContractPhase) *PhaseCatalog {
	next := make([]models.ContractPhase, 0, len(c.phases)+1)
	for _, p := range c.phases {
		if p.ID == phase.ID && phase.ID != uuid.Nil {
			continue
		}
		next = append(next, p)
	}
	if phase.IsActive {
		next = append(next, phase)
	}
	return &PhaseCatalog{phases: next}
}

// ValidatePhase runs the structural checks of a single phase: field shapes,
// document code uniqueness and one override per contract type.
func ValidatePhase(p *models.ContractPhase) error {
	verr := &ValidationError{}
	if !IsValidPhaseCode(p.Code) {
		verr.add("code", "must be 2-30 uppercase letters, digits or underscores")
	}
	if p.Name == "" {
		verr.add("name", "is required")
	}
	if p.Order <= 0 {
		verr.add("order", "must be a positive integer")
	}
	if !p.Category.IsValid() {
		verr.add("category", "is not a known phase category")
	}
	if p.PhaseConfig.EstimatedDays < 0 || p.PhaseConfig.EstimatedDays > 3650 {
		verr.add("phase_config.estimated_days", "must be between 0 and 3650")
	}
	if p.PhaseConfig.NotificationDays < 0 {
		verr.add("phase_config.notification_days", "must not be negative")
	}
	for i, req := range p.Dependencies.RequiredPhases {
		if !req.RequiredStatus.IsValid() {
			verr.add(fmt.Sprintf("dependencies.required_phases[%d].required_status", i), "must be COMPLETED or IN_PROGRESS")
		}
		if req.Phase == p.Code {
			verr.add(fmt.Sprintf("dependencies.required_phases[%d].phase", i), "a phase cannot depend on itself")
		}
	}
	for i, code := range p.Dependencies.BlockedBy {
		if code == p.Code {
			verr.add(fmt.Sprintf("dependencies.blocked_by[%d]", i), "a phase cannot block itself")
		}
	}
	for i, o := range p.TypeOverrides {
		if !IsValidTypeCode(o.ContractTypeCode) {
			verr.add(fmt.Sprintf("type_specific_config[%d].contract_type", i), "must be a valid contract type code")
		}
		if o.CustomDuration != nil && (*o.CustomDuration < 0 || *o.CustomDuration > 3650) {
			verr.add(fmt.Sprintf("type_specific_config[%d].custom_duration", i), "must be between 0 and 3650")
		}
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	var issues []Issue
	issues = append(issues, documentCodeIssues(p)...)
	issues = append(issues, overrideIssues(p)...)
	if len(issues) > 0 {
		return newConfigError(issues...)
	}
	return nil
}

func documentCodeIssues(p *models.ContractPhase) []Issue {
	var issues []Issue
	base := make(map[string]bool, len(p.RequiredDocuments))
	for _, doc := range p.RequiredDocuments {
		if base[doc.Code] {
			issues = append(issues, Issue{
				Code:    IssueDuplicateDocumentCode,
				Message: fmt.Sprintf("phase %s declares document %s more than once", p.Code, doc.Code),
				Refs:    []string{p.Code, doc.Code},
			})
		}
		base[doc.Code] = true
	}

	// Additional documents must not collide with documents that survive the
	// exclusion, nor with each other.
	for _, o := range p.TypeOverrides {
		effective := resolveDocuments(p.RequiredDocuments, &o)
		seen := make(map[string]bool, len(effective))
		for _, doc := range effective {
			if seen[doc.Code] {
				issues = append(issues, Issue{
					Code:    IssueDuplicateDocumentCode,
					Message: fmt.Sprintf("phase %s resolves document %s twice for type %s", p.Code, doc.Code, o.ContractTypeCode),
					Refs:    []string{p.Code, doc.Code, o.ContractTypeCode},
				})
			}
			seen[doc.Code] = true
		}
	}
	return issues
}

func overrideIssues(p *models.ContractPhase) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(p.TypeOverrides))
	for _, o := range p.TypeOverrides {
		if seen[o.ContractTypeCode] {
			issues = append(issues, Issue{
				Code:    IssueDuplicateTypeOverride,
				Message: fmt.Sprintf("phase %s has more than one entry for type %s", p.Code, o.ContractTypeCode),
				Refs:    []string{p.Code, o.ContractTypeCode},
			})
		}
		seen[o.ContractTypeCode] = true
	}
	return issues
}

// CheckPhase validates p against the snapshot before it is created or
// updated: structural checks, code uniqueness, (order, category) uniqueness
// among active phases and acyclicity of the resulting dependency graph.
func (c *PhaseCatalog) CheckPhase(p *models.ContractPhase) error {
	if err := ValidatePhase(p); err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}

	var issues []Issue
	for _, other := range c.phases {
		if other.ID == p.ID && p.ID != uuid.Nil {
			continue
		}
		if other.Code == p.Code {
			issues = append(issues, Issue{
				Code:    IssueDuplicateCode,
				Message: "phase code " + p.Code + " already exists",
				Refs:    []string{p.Code},
			})
		}
		if other.Order == p.Order && other.Category == p.Category {
			issues = append(issues, duplicateOrderIssue(p.Category, p.Order, other.Code, p.Code))
		}
	}
	if len(issues) > 0 {
		return newConfigError(issues...)
	}

	return c.With(*p).ValidateDependencyGraph()
}

func duplicateOrderIssue(category models.PhaseCategory, order int, codes ...string) Issue {
	return Issue{
		Code:    IssueDuplicateOrder,
		Message: fmt.Sprintf("order %d is used more than once in category %s", order, category),
		Refs:    codes,
	}
}

// ValidateDependencyGraph fails when requiredPhases and blockedBy edges
// across the active phases form a cycle.
func (c *PhaseCatalog) ValidateDependencyGraph() error {
	cycles := newDependencyGraph(c.phases).cycles()
	if len(cycles) == 0 {
		return nil
	}
	issues := make([]Issue, 0, len(cycles))
	for _, path := range cycles {
		issues = append(issues, cycleIssue(path))
	}
	return newConfigError(issues...)
}

// sortPhases orders by order, then category declaration order, then code.
func sortPhases(phases []models.ContractPhase) {
	sort.SliceStable(phases, func(i, j int) bool {
		if phases[i].Order != phases[j].Order {
			return phases[i].Order < phases[j].Order
		}
		ri, rj := phases[i].Category.Rank(), phases[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		return phases[i].Code < phases[j].Code
	})
}
