// internal/services/contract_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/utils"
)

// GeneralStatusTransitions lists the manual general status changes a
// contract may go through.
var GeneralStatusTransitions = map[models.GeneralStatus]map[models.GeneralStatus]bool{
	models.GeneralStatusDraft:       {models.GeneralStatusPreparation: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusPreparation: {models.GeneralStatusCall: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusCall:        {models.GeneralStatusEvaluation: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusEvaluation:  {models.GeneralStatusAward: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusAward:       {models.GeneralStatusContracting: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusContracting: {models.GeneralStatusExecution: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusExecution:   {models.GeneralStatusFinished: true, models.GeneralStatusSuspended: true, models.GeneralStatusCancelled: true},
	models.GeneralStatusFinished:    {models.GeneralStatusLiquidated: true},
	models.GeneralStatusSuspended: {
		models.GeneralStatusPreparation: true,
		models.GeneralStatusCall:        true,
		models.GeneralStatusEvaluation:  true,
		models.GeneralStatusAward:       true,
		models.GeneralStatusContracting: true,
		models.GeneralStatusExecution:   true,
		models.GeneralStatusCancelled:   true,
	},
	models.GeneralStatusLiquidated: {},
	models.GeneralStatusCancelled:  {},
}

// lifecycleRank orders the statuses phases can move a contract through.
var lifecycleRank = map[models.GeneralStatus]int{
	models.GeneralStatusDraft:       0,
	models.GeneralStatusPreparation: 1,
	models.GeneralStatusCall:        2,
	models.GeneralStatusEvaluation:  3,
	models.GeneralStatusAward:       4,
	models.GeneralStatusContracting: 5,
	models.GeneralStatusExecution:   6,
}

func CanTransitionStatus(from, to models.GeneralStatus) bool {
	return GeneralStatusTransitions[from][to]
}

type ContractService struct {
	catalog     CatalogStore
	contracts   ContractStore
	documents   DocumentStore
	permissions *PermissionService
	engine      *engine.ProgressionEngine
	metrics     *metrics.Metrics
	defaultType string
	now         func() time.Time
}

type CreateContractRequest struct {
	Title            string     `json:"title" validate:"required,max=255"`
	Description      string     `json:"description,omitempty"`
	ProcessCode      string     `json:"process_code,omitempty" validate:"max=100"`
	ObjectCategory   string     `json:"object_category" validate:"required,max=30"`
	Amount           float64    `json:"amount" validate:"money"`
	ContractTypeCode string     `json:"contract_type_code,omitempty" validate:"omitempty,contract_code"`
	DepartmentID     *uuid.UUID `json:"department_id,omitempty"`
}

type UpdateStatusRequest struct {
	Status models.GeneralStatus `json:"status" validate:"required"`
	Reason string               `json:"reason,omitempty"`
}

type PhaseProgress struct {
	Code                 string               `json:"code"`
	Name                 string               `json:"name"`
	Category             models.PhaseCategory `json:"category"`
	Status               models.PhaseStatus   `json:"status"`
	CompletionPercentage float64              `json:"completion_percentage"`
	StartDate            *time.Time           `json:"start_date,omitempty"`
	DueDate              *time.Time           `json:"due_date,omitempty"`
	Eligible             bool                 `json:"eligible"`
}

type ProgressReport struct {
	ContractID    uuid.UUID            `json:"contract_id"`
	GeneralStatus models.GeneralStatus `json:"general_status"`
	Progress      float64              `json:"progress"`
	CurrentPhase  string               `json:"current_phase,omitempty"`
	CanAdvance    bool                 `json:"can_advance"`
	Phases        []PhaseProgress      `json:"phases"`
}

// PhaseTransitionResult is returned by the phase mutators.
type PhaseTransitionResult struct {
	Contract   *models.Contract         `json:"contract"`
	Completion *engine.CompletionResult `json:"completion,omitempty"`
}

func NewContractService(
	catalog CatalogStore,
	contracts ContractStore,
	documents DocumentStore,
	permissions *PermissionService,
	cfg config.ProcurementConfig,
	m *metrics.Metrics,
) *ContractService {
	return &ContractService{
		catalog:     catalog,
		contracts:   contracts,
		documents:   documents,
		permissions: permissions,
		engine:      engine.NewProgressionEngine(engine.ProgressionOptions{AutoStartFirstPhase: cfg.AutoStartFirstPhase}),
		metrics:     m,
		defaultType: cfg.DefaultContractType,
		now:         time.Now,
	}
}

// CreateContract resolves the contract type, checks the department's
// approval limit and instantiates the phase sequence. An explicit type code
// wins over range resolution, which wins over the configured default.
func (s *ContractService) CreateContract(ctx context.Context, actor Actor, req *CreateContractRequest) (*models.Contract, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	departmentID := actor.DepartmentID
	if req.DepartmentID != nil {
		departmentID = *req.DepartmentID
	}
	if err := s.permissions.Require(ctx, actor, departmentID, models.PermissionCategoryContracts, models.PermissionActionCreate); err != nil {
		return nil, err
	}
	if err := s.permissions.CheckApprovalLimit(ctx, departmentID, req.Amount); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	contractType, err := s.pickContractType(snap, req)
	if err != nil {
		return nil, err
	}

	sequence, err := engine.NewPhaseSequenceBuilder(engine.NewPhaseCatalog(snap.Phases)).BuildSequence(contractType.Code)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	contract := &models.Contract{
		ProcessCode:      req.ProcessCode,
		Title:            req.Title,
		Description:      req.Description,
		ObjectCategory:   req.ObjectCategory,
		Amount:           req.Amount,
		DepartmentID:     departmentID,
		ContractTypeID:   contractType.ID,
		ContractTypeCode: contractType.Code,
		GeneralStatus:    models.GeneralStatusDraft,
		Version:          1,
		CreatedBy:        actor.UserID,
	}
	contract.ID = uuid.New()
	if err := s.engine.Initialize(contract, sequence, s.now()); err != nil {
		s.recordError(err)
		return nil, err
	}
	syncGeneralStatus(contract)

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"contract_id":   contract.ID,
		"contract_type": contract.ContractTypeCode,
		"department_id": departmentID,
		"phases":        len(contract.Phases),
	}).Info("Contract created")
	return contract, nil
}

func (s *ContractService) pickContractType(snap engine.CatalogSnapshot, req *CreateContractRequest) (*models.ContractType, error) {
	types := engine.NewContractTypeCatalog(snap.Types)
	if req.ContractTypeCode != "" {
		t, err := types.GetByCode(req.ContractTypeCode)
		if err != nil {
			return nil, err
		}
		if !t.IsActive {
			return nil, engine.Invalid("contract_type_code", "contract type "+t.Code+" is inactive")
		}
		if !t.AppliesTo(req.ObjectCategory) {
			return nil, engine.Invalid("contract_type_code", "contract type "+t.Code+" does not apply to "+req.ObjectCategory)
		}
		s.metrics.Resolution("explicit")
		return t, nil
	}

	resolution, err := resolve(snap, req.ObjectCategory, req.Amount, s.defaultType, s.metrics)
	if err != nil {
		return nil, err
	}
	return types.GetByCode(resolution.ContractType)
}

func (s *ContractService) GetContract(ctx context.Context, actor Actor, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryContracts, models.PermissionActionRead); err != nil {
		return nil, err
	}
	return contract, nil
}

// ListContracts pages through contracts. Non-admin callers only see their
// own department.
func (s *ContractService) ListContracts(ctx context.Context, actor Actor, filter repository.ContractFilter, params utils.PaginationParams) ([]models.Contract, int64, error) {
	if !actor.IsAdmin() {
		departmentID := actor.DepartmentID
		filter.DepartmentID = &departmentID
	}
	if filter.DepartmentID != nil {
		if err := s.permissions.Require(ctx, actor, *filter.DepartmentID, models.PermissionCategoryContracts, models.PermissionActionRead); err != nil {
			return nil, 0, err
		}
	}
	return s.contracts.List(ctx, filter, params)
}

func (s *ContractService) StartPhase(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode string) (*PhaseTransitionResult, error) {
	contract, err := s.mutate(ctx, actor, contractID, func(c *models.Contract) error {
		if err := s.authorizePhase(actor, c, phaseCode); err != nil {
			return err
		}
		return s.engine.Start(c, phaseCode, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(contract, phaseCode, models.PhaseStatusPending, models.PhaseStatusInProgress)
	return &PhaseTransitionResult{Contract: contract}, nil
}

// CompletePhase closes the phase once its mandatory documents are on file.
// Auto-advancing phases start the next phase in the same save.
func (s *ContractService) CompletePhase(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode string) (*PhaseTransitionResult, error) {
	docs, err := s.documents.ListByPhase(ctx, contractID, phaseCode)
	if err != nil {
		return nil, err
	}
	records := make([]engine.DocumentRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, engine.DocumentRecord{DocumentCode: d.DocumentCode, Status: d.Status})
	}

	var completion *engine.CompletionResult
	contract, err := s.mutate(ctx, actor, contractID, func(c *models.Contract) error {
		if err := s.authorizePhase(actor, c, phaseCode); err != nil {
			return err
		}
		result, err := s.engine.Complete(c, phaseCode, records, s.now())
		completion = result
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(contract, phaseCode, models.PhaseStatusInProgress, models.PhaseStatusCompleted)
	if completion.AutoAdvanced {
		s.logTransition(contract, completion.NextPhase, models.PhaseStatusPending, models.PhaseStatusInProgress)
	}
	return &PhaseTransitionResult{Contract: contract, Completion: completion}, nil
}

// AdvanceToNextPhase moves the current pointer past a completed phase.
func (s *ContractService) AdvanceToNextPhase(ctx context.Context, actor Actor, contractID uuid.UUID) (*PhaseTransitionResult, error) {
	var from, to string
	contract, err := s.mutate(ctx, actor, contractID, func(c *models.Contract) error {
		if current, _ := c.CurrentOccurrence(); current != nil {
			from = current.PhaseCode
		}
		next, err := s.engine.AdvanceToNextPhase(c)
		if err != nil {
			return err
		}
		to = next.PhaseCode
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("advance", to)
	logrus.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"from":        from,
		"to":          to,
	}).Info("Contract advanced to next phase")
	return &PhaseTransitionResult{Contract: contract}, nil
}

func (s *ContractService) CancelPhase(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode, reason string) (*PhaseTransitionResult, error) {
	var from models.PhaseStatus
	contract, err := s.mutate(ctx, actor, contractID, func(c *models.Contract) error {
		if err := s.authorizePhase(actor, c, phaseCode); err != nil {
			return err
		}
		if occ, _ := c.Occurrence(phaseCode); occ != nil {
			from = occ.Status
		}
		return s.engine.Cancel(c, phaseCode, reason, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(contract, phaseCode, from, models.PhaseStatusCancelled)
	return &PhaseTransitionResult{Contract: contract}, nil
}

func (s *ContractService) UpdatePhaseProgress(ctx context.Context, actor Actor, contractID uuid.UUID, phaseCode string, percentage float64) (*models.Contract, error) {
	return s.mutate(ctx, actor, contractID, func(c *models.Contract) error {
		if err := s.authorizePhase(actor, c, phaseCode); err != nil {
			return err
		}
		return s.engine.UpdateCompletion(c, phaseCode, percentage)
	})
}

// UpdateGeneralStatus applies a manual lifecycle change such as suspending,
// cancelling or closing a contract.
func (s *ContractService) UpdateGeneralStatus(ctx context.Context, actor Actor, contractID uuid.UUID, req *UpdateStatusRequest) (*models.Contract, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryContracts, models.PermissionActionApprove); err != nil {
		return nil, err
	}

	from := contract.GeneralStatus
	if !CanTransitionStatus(from, req.Status) {
		err := &StatusTransitionError{From: from, To: req.Status}
		s.recordError(err)
		return nil, err
	}
	contract.GeneralStatus = req.Status
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"from":        from,
		"to":          req.Status,
		"reason":      req.Reason,
	}).Info("Contract status updated")
	return contract, nil
}

func (s *ContractService) GetProgress(ctx context.Context, actor Actor, contractID uuid.UUID) (*ProgressReport, error) {
	contract, err := s.GetContract(ctx, actor, contractID)
	if err != nil {
		return nil, err
	}

	report := &ProgressReport{
		ContractID:    contract.ID,
		GeneralStatus: contract.GeneralStatus,
		Progress:      engine.Progress(contract),
		CanAdvance:    engine.CanAdvance(contract),
		Phases:        make([]PhaseProgress, 0, len(contract.Phases)),
	}
	if current, _ := contract.CurrentOccurrence(); current != nil {
		report.CurrentPhase = current.PhaseCode
	}
	for i := range contract.Phases {
		occ := &contract.Phases[i]
		report.Phases = append(report.Phases, PhaseProgress{
			Code:                 occ.PhaseCode,
			Name:                 occ.PhaseName,
			Category:             occ.Category,
			Status:               occ.Status,
			CompletionPercentage: occ.CompletionPercentage,
			StartDate:            occ.StartDate,
			DueDate:              occ.DueDate(),
			Eligible:             occ.Status == models.PhaseStatusPending && s.engine.Eligible(contract, occ.PhaseCode) == nil,
		})
	}
	return report, nil
}

// mutate loads the contract, checks the update grant, applies fn and saves
// the result under optimistic concurrency. Nothing is saved when fn fails.
func (s *ContractService) mutate(ctx context.Context, actor Actor, contractID uuid.UUID, fn func(*models.Contract) error) (*models.Contract, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Require(ctx, actor, contract.DepartmentID, models.PermissionCategoryContracts, models.PermissionActionUpdate); err != nil {
		return nil, err
	}
	if isClosed(contract.GeneralStatus) {
		return nil, &ContractClosedError{Status: contract.GeneralStatus}
	}

	if err := fn(contract); err != nil {
		s.recordError(err)
		return nil, err
	}
	syncGeneralStatus(contract)

	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) authorizePhase(actor Actor, c *models.Contract, phaseCode string) error {
	occ, _ := c.Occurrence(phaseCode)
	if occ == nil {
		return engine.NotFound(engine.ResourcePhase, phaseCode)
	}
	return requireRole(actor, occ)
}

func (s *ContractService) recordError(err error) {
	if kind := engine.KindOf(err); kind != "" {
		s.metrics.EngineError(string(kind), engine.CodeOf(err))
	}
}

func (s *ContractService) logTransition(c *models.Contract, phaseCode string, from, to models.PhaseStatus) {
	s.metrics.Transition(string(from)+"->"+string(to), phaseCode)
	logrus.WithFields(logrus.Fields{
		"contract_id":   c.ID,
		"contract_type": c.ContractTypeCode,
		"phase":         phaseCode,
		"from":          from,
		"to":            to,
	}).Info("Phase transition")
}

func isClosed(status models.GeneralStatus) bool {
	switch status {
	case models.GeneralStatusCancelled, models.GeneralStatusSuspended,
		models.GeneralStatusFinished, models.GeneralStatusLiquidated:
		return true
	}
	return false
}

// syncGeneralStatus moves the general status forward to the one implied by
// the current phase once that phase has started. It never moves it back and
// leaves closed contracts alone.
func syncGeneralStatus(c *models.Contract) {
	current, _ := c.CurrentOccurrence()
	if current == nil || current.Status == models.PhaseStatusPending {
		return
	}
	implied, ok := engine.CategoryStatus(current.Category)
	if !ok {
		return
	}
	from, tracked := lifecycleRank[c.GeneralStatus]
	if !tracked {
		return
	}
	if lifecycleRank[implied] > from {
		c.GeneralStatus = implied
	}
}
