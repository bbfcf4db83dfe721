// internal/engine/progression.go
package engine

import (
	"sort"
	"time"

	"github.com/municipal/procurement-backend/internal/models"
)

// DocumentRecord is what the engine needs to know about an uploaded document.
type DocumentRecord struct {
	DocumentCode string
	Status       models.DocumentStatus
}

type ProgressionOptions struct {
	// AutoStartFirstPhase starts the first phase at initialization even when
	// its effective config does not ask for auto-advance.
	AutoStartFirstPhase bool
}

// ProgressionEngine drives the phase occurrences of one contract snapshot.
// Every method either fails leaving the contract untouched or applies the
// whole transition to it; persisting the result is up to the caller.
type ProgressionEngine struct {
	opts ProgressionOptions
}

func NewProgressionEngine(opts ProgressionOptions) *ProgressionEngine {
	return &ProgressionEngine{opts: opts}
}

// CompletionResult reports the side effects of Complete.
type CompletionResult struct {
	Phase        string `json:"phase"`
	AutoAdvanced bool   `json:"auto_advanced"`
	NextPhase    string `json:"next_phase,omitempty"`
}

// Initialize instantiates the sequence on a contract that has no phases yet.
func (e *ProgressionEngine) Initialize(c *models.Contract, sequence []EffectiveConfig, now time.Time) error {
	if len(c.Phases) > 0 {
		return Invalid("phases", "contract phases are already initialized")
	}
	if len(sequence) == 0 {
		return newConfigError(Issue{
			Code:    IssueEmptySequence,
			Message: "no phases apply to contract type " + c.ContractTypeCode,
			Refs:    []string{c.ContractTypeCode},
		})
	}

	c.Phases = make([]models.PhaseOccurrence, 0, len(sequence))
	for i, s := range sequence {
		c.Phases = append(c.Phases, models.PhaseOccurrence{
			ContractID:         c.ID,
			Position:           i,
			PhaseID:            s.PhaseID,
			PhaseCode:          s.PhaseCode,
			PhaseName:          s.PhaseName,
			Category:           s.Category,
			Status:             models.PhaseStatusPending,
			EffectiveDocuments: copyDocuments(s.Documents),
			EffectiveDuration:  s.Duration,
			EffectiveConfig:    s.PhaseConfig,
			Dependencies:       copyDependencies(s.Dependencies),
			AllowedRoles:       copyStrings(s.AllowedRoles),
		})
	}

	first := &c.Phases[0]
	if e.opts.AutoStartFirstPhase || first.EffectiveConfig.AutoAdvance {
		first.Status = models.PhaseStatusInProgress
		first.StartDate = timePtr(now)
	}
	phaseID := first.PhaseID
	c.CurrentPhaseID = &phaseID
	c.Progress = Progress(c)
	return nil
}

// Eligible reports why the phase could not start now, or nil.
func (e *ProgressionEngine) Eligible(c *models.Contract, phaseCode string) error {
	orderPhases(c)
	occ, _ := c.Occurrence(phaseCode)
	if occ == nil {
		return NotFound(ResourcePhase, phaseCode)
	}
	return checkDependencies(c, occ)
}

// Start moves a phase from PENDING to IN_PROGRESS.
func (e *ProgressionEngine) Start(c *models.Contract, phaseCode string, now time.Time) error {
	orderPhases(c)
	occ, _ := c.Occurrence(phaseCode)
	if occ == nil {
		return NotFound(ResourcePhase, phaseCode)
	}
	if occ.Status != models.PhaseStatusPending {
		return &InvalidTransitionError{Phase: phaseCode, From: occ.Status, To: models.PhaseStatusInProgress}
	}
	if err := checkDependencies(c, occ); err != nil {
		return err
	}

	occ.Status = models.PhaseStatusInProgress
	occ.StartDate = timePtr(now)
	occ.EndDate = nil
	if c.CurrentPhaseID == nil {
		phaseID := occ.PhaseID
		c.CurrentPhaseID = &phaseID
	}
	c.Progress = Progress(c)
	return nil
}

// Complete moves a phase from IN_PROGRESS to COMPLETED once every mandatory
// effective document has an active record. When the phase auto-advances and
// the next phase is PENDING and eligible, the next phase is started and
// becomes current.
func (e *ProgressionEngine) Complete(c *models.Contract, phaseCode string, docs []DocumentRecord, now time.Time) (*CompletionResult, error) {
	orderPhases(c)
	occ, idx := c.Occurrence(phaseCode)
	if occ == nil {
		return nil, NotFound(ResourcePhase, phaseCode)
	}
	if occ.Status != models.PhaseStatusInProgress {
		return nil, &InvalidTransitionError{Phase: phaseCode, From: occ.Status, To: models.PhaseStatusCompleted}
	}
	if missing := MissingDocuments(occ.EffectiveDocuments, docs); len(missing) > 0 {
		return nil, &MissingMandatoryDocumentsError{Phase: phaseCode, Missing: missing}
	}

	occ.Status = models.PhaseStatusCompleted
	occ.EndDate = timePtr(now)
	occ.CompletionPercentage = 100

	result := &CompletionResult{Phase: phaseCode}
	if occ.EffectiveConfig.AutoAdvance && idx+1 < len(c.Phases) {
		next := &c.Phases[idx+1]
		if next.Status == models.PhaseStatusPending && checkDependencies(c, next) == nil {
			next.Status = models.PhaseStatusInProgress
			next.StartDate = timePtr(now)
			if _, current := c.CurrentOccurrence(); current < idx+1 {
				phaseID := next.PhaseID
				c.CurrentPhaseID = &phaseID
			}
			result.AutoAdvanced = true
			result.NextPhase = next.PhaseCode
		}
	}
	c.Progress = Progress(c)
	return result, nil
}

// CanAdvance reports whether the current phase is COMPLETED.
func CanAdvance(c *models.Contract) bool {
	occ, _ := c.CurrentOccurrence()
	return occ != nil && occ.Status == models.PhaseStatusCompleted
}

// AdvanceToNextPhase moves the current phase pointer to the next occurrence.
// The next phase keeps its status; starting it is a separate action.
func (e *ProgressionEngine) AdvanceToNextPhase(c *models.Contract) (*models.PhaseOccurrence, error) {
	orderPhases(c)
	occ, idx := c.CurrentOccurrence()
	if occ == nil {
		return nil, NotFound(ResourcePhase, "current")
	}
	if occ.Status != models.PhaseStatusCompleted {
		return nil, &PhaseNotCompleteError{Phase: occ.PhaseCode, Status: occ.Status}
	}
	if idx+1 >= len(c.Phases) {
		return nil, &NoNextPhaseError{Phase: occ.PhaseCode}
	}

	next := &c.Phases[idx+1]
	phaseID := next.PhaseID
	c.CurrentPhaseID = &phaseID
	return next, nil
}

// Cancel moves a PENDING or IN_PROGRESS phase to CANCELLED. Dependent phases
// are not touched; their eligibility is evaluated when they are started.
func (e *ProgressionEngine) Cancel(c *models.Contract, phaseCode, reason string, now time.Time) error {
	orderPhases(c)
	occ, _ := c.Occurrence(phaseCode)
	if occ == nil {
		return NotFound(ResourcePhase, phaseCode)
	}
	if occ.Status != models.PhaseStatusPending && occ.Status != models.PhaseStatusInProgress {
		return &InvalidTransitionError{Phase: phaseCode, From: occ.Status, To: models.PhaseStatusCancelled}
	}

	occ.Status = models.PhaseStatusCancelled
	occ.EndDate = timePtr(now)
	occ.CancelReason = reason
	c.Progress = Progress(c)
	return nil
}

// UpdateCompletion records partial work on an IN_PROGRESS phase.
func (e *ProgressionEngine) UpdateCompletion(c *models.Contract, phaseCode string, percentage float64) error {
	if percentage < 0 || percentage > 100 {
		return Invalid("completion_percentage", "must be between 0 and 100")
	}
	occ, _ := c.Occurrence(phaseCode)
	if occ == nil {
		return NotFound(ResourcePhase, phaseCode)
	}
	if occ.Status != models.PhaseStatusInProgress {
		return &InvalidTransitionError{Phase: phaseCode, From: occ.Status, To: models.PhaseStatusInProgress}
	}
	occ.CompletionPercentage = percentage
	c.Progress = Progress(c)
	return nil
}

// Progress averages 100 for completed phases, the recorded percentage for
// phases in progress and 0 for the rest.
func Progress(c *models.Contract) float64 {
	if len(c.Phases) == 0 {
		return 0
	}
	var total float64
	for _, occ := range c.Phases {
		switch occ.Status {
		case models.PhaseStatusCompleted:
			total += 100
		case models.PhaseStatusInProgress:
			total += occ.CompletionPercentage
		}
	}
	return total / float64(len(c.Phases))
}

// MissingDocuments returns the codes of mandatory documents without an
// active record, in declaration order.
func MissingDocuments(docs models.DocumentSpecs, records []DocumentRecord) []string {
	present := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == models.DocumentStatusActive {
			present[r.DocumentCode] = true
		}
	}
	var missing []string
	for _, doc := range MandatoryDocuments(docs) {
		if !present[doc.Code] {
			missing = append(missing, doc.Code)
		}
	}
	return missing
}

// CategoryStatus maps the category of the current phase to the general
// status it implies. Closeout and archive phases do not imply one; closing
// a contract is an explicit decision.
func CategoryStatus(category models.PhaseCategory) (models.GeneralStatus, bool) {
	switch category {
	case models.PhaseCategoryPlanning, models.PhaseCategoryPreparation:
		return models.GeneralStatusPreparation, true
	case models.PhaseCategoryCall:
		return models.GeneralStatusCall, true
	case models.PhaseCategoryEvaluation:
		return models.GeneralStatusEvaluation, true
	case models.PhaseCategoryAward:
		return models.GeneralStatusAward, true
	case models.PhaseCategoryExecution:
		return models.GeneralStatusExecution, true
	}
	return "", false
}

func checkDependencies(c *models.Contract, occ *models.PhaseOccurrence) error {
	var blocking []string
	for _, code := range occ.Dependencies.BlockedBy {
		other, _ := c.Occurrence(code)
		if other != nil && other.Status != models.PhaseStatusCompleted {
			blocking = append(blocking, code)
		}
	}
	if len(blocking) > 0 {
		return &PhaseBlockedError{Phase: occ.PhaseCode, BlockedBy: blocking}
	}

	var unmet []UnmetDependency
	for _, req := range occ.Dependencies.RequiredPhases {
		other, _ := c.Occurrence(req.Phase)
		if other == nil {
			unmet = append(unmet, UnmetDependency{Phase: req.Phase, RequiredStatus: req.RequiredStatus})
			continue
		}
		if !satisfies(other.Status, req.RequiredStatus) {
			unmet = append(unmet, UnmetDependency{Phase: req.Phase, RequiredStatus: req.RequiredStatus, ActualStatus: other.Status})
		}
	}
	if len(unmet) > 0 {
		return &PhaseDependencyUnmetError{Phase: occ.PhaseCode, Unmet: unmet}
	}
	return nil
}

// satisfies treats COMPLETED as having passed through IN_PROGRESS.
func satisfies(actual models.PhaseStatus, required models.DependencyStatus) bool {
	switch required {
	case models.DependencyStatusCompleted:
		return actual == models.PhaseStatusCompleted
	case models.DependencyStatusInProgress:
		return actual == models.PhaseStatusInProgress || actual == models.PhaseStatusCompleted
	}
	return false
}

func orderPhases(c *models.Contract) {
	sort.SliceStable(c.Phases, func(i, j int) bool {
		return c.Phases[i].Position < c.Phases[j].Position
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
