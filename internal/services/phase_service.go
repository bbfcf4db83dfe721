// internal/services/phase_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
)

type PhaseService struct {
	store   CatalogStore
	metrics *metrics.Metrics
}

type PhaseRequest struct {
	Code              string                   `json:"code" validate:"required,phase_code"`
	Name              string                   `json:"name" validate:"required,max=255"`
	Description       string                   `json:"description,omitempty"`
	Order             int                      `json:"order" validate:"min=1"`
	Category          models.PhaseCategory     `json:"category" validate:"required,oneof=PLANNING PREPARATION CALL EVALUATION AWARD EXECUTION CLOSEOUT ARCHIVE"`
	RequiredDocuments []models.DocumentSpec    `json:"required_documents" validate:"dive"`
	PhaseConfig       models.PhaseConfig       `json:"phase_config"`
	Dependencies      models.PhaseDependencies `json:"dependencies"`
	AllowedRoles      []string                 `json:"allowed_roles,omitempty"`
	TypeOverrides     []OverrideRequest        `json:"type_specific_config" validate:"dive"`
	IsActive          *bool                    `json:"is_active,omitempty"`
}

type OverrideRequest struct {
	ContractTypeCode    string                   `json:"contract_type" validate:"required,contract_code"`
	ExcludedDocuments   []string                 `json:"excluded_documents,omitempty"`
	AdditionalDocuments []models.DocumentSpec    `json:"additional_documents,omitempty" validate:"dive"`
	CustomDuration      *int                     `json:"custom_duration,omitempty" validate:"omitempty,min=0,max=3650"`
	OverridePhaseConfig *models.PhaseConfigPatch `json:"override_phase_config,omitempty"`
}

func NewPhaseService(store CatalogStore, m *metrics.Metrics) *PhaseService {
	return &PhaseService{store: store, metrics: m}
}

// ListPhases returns the phase templates in catalog order.
func (s *PhaseService) ListPhases(ctx context.Context, includeInactive bool) ([]models.ContractPhase, error) {
	phases, err := s.store.ListPhases(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return phases, nil
	}
	return engine.NewPhaseCatalog(phases).Phases(), nil
}

func (s *PhaseService) GetPhase(ctx context.Context, code string) (*models.ContractPhase, error) {
	return s.store.GetPhase(ctx, code)
}

func (s *PhaseService) CreatePhase(ctx context.Context, req *PhaseRequest) (*models.ContractPhase, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	phase := &models.ContractPhase{IsActive: true}
	applyPhaseRequest(phase, req)
	if err := s.createPhase(ctx, phase); err != nil {
		return nil, err
	}
	return phase, nil
}

func (s *PhaseService) createPhase(ctx context.Context, phase *models.ContractPhase) error {
	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	if err := checkPhase(snap, phase); err != nil {
		return err
	}
	if err := s.store.CreatePhase(ctx, phase); err != nil {
		return err
	}

	s.metrics.CatalogMutation("phase", "create")
	logrus.WithFields(logrus.Fields{
		"phase":    phase.Code,
		"order":    phase.Order,
		"category": phase.Category,
		"types":    len(phase.TypeOverrides),
	}).Info("Phase created")
	return nil
}

// UpdatePhase replaces the phase template, including its override set.
// Contracts already initialized keep their snapshot.
func (s *PhaseService) UpdatePhase(ctx context.Context, code string, req *PhaseRequest) (*models.ContractPhase, error) {
	if req.Code == "" {
		req.Code = code
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Code != code {
		return nil, engine.Invalid("code", "cannot be changed")
	}

	phase, err := s.store.GetPhase(ctx, code)
	if err != nil {
		return nil, err
	}
	wasActive := phase.IsActive
	applyPhaseRequest(phase, req)

	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if wasActive && !phase.IsActive {
		if err := checkDependents(snap.Phases, code); err != nil {
			return nil, err
		}
	}
	if err := checkPhase(snap, phase); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePhase(ctx, phase); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("phase", "update")
	logrus.WithField("phase", phase.Code).Info("Phase updated")
	return phase, nil
}

// DeactivatePhase removes the phase from future sequences. It is refused
// while another active phase still depends on it.
func (s *PhaseService) DeactivatePhase(ctx context.Context, code string) (*models.ContractPhase, error) {
	phase, err := s.store.GetPhase(ctx, code)
	if err != nil {
		return nil, err
	}
	if !phase.IsActive {
		return phase, nil
	}

	phases, err := s.store.ListPhases(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkDependents(phases, code); err != nil {
		return nil, err
	}

	phase.IsActive = false
	if err := s.store.UpdatePhase(ctx, phase); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("phase", "deactivate")
	logrus.WithField("phase", phase.Code).Info("Phase deactivated")
	return phase, nil
}

// UpsertOverride makes the phase apply to the contract type with the given
// customization, replacing any previous entry for that type.
func (s *PhaseService) UpsertOverride(ctx context.Context, phaseCode, contractTypeCode string, req *OverrideRequest) (*models.PhaseTypeOverride, error) {
	if req.ContractTypeCode == "" {
		req.ContractTypeCode = contractTypeCode
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.ContractTypeCode != contractTypeCode {
		return nil, engine.Invalid("contract_type", "must match the path")
	}

	phase, err := s.store.GetPhase(ctx, phaseCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetContractType(ctx, contractTypeCode); err != nil {
		return nil, err
	}

	override := newOverride(req)
	override.PhaseID = phase.ID
	if existing, ok := phase.Override(contractTypeCode); ok {
		*existing = override
	} else {
		phase.TypeOverrides = append(phase.TypeOverrides, override)
	}
	if err := engine.ValidatePhase(phase); err != nil {
		return nil, err
	}
	if err := s.store.UpsertOverride(ctx, &override); err != nil {
		return nil, err
	}

	s.metrics.CatalogMutation("phase_override", "upsert")
	logrus.WithFields(logrus.Fields{
		"phase":         phase.Code,
		"contract_type": contractTypeCode,
	}).Info("Phase override saved")
	return &override, nil
}

// DeleteOverride stops the phase from applying to the contract type.
func (s *PhaseService) DeleteOverride(ctx context.Context, phaseCode, contractTypeCode string) error {
	phase, err := s.store.GetPhase(ctx, phaseCode)
	if err != nil {
		return err
	}
	if _, ok := phase.Override(contractTypeCode); !ok {
		return engine.NotFound(engine.ResourceContractType, contractTypeCode)
	}
	if err := s.store.DeleteOverride(ctx, phase.ID, contractTypeCode); err != nil {
		return err
	}

	s.metrics.CatalogMutation("phase_override", "delete")
	logrus.WithFields(logrus.Fields{
		"phase":         phase.Code,
		"contract_type": contractTypeCode,
	}).Info("Phase override removed")
	return nil
}

// GetPhaseSequence returns the effective phase plan of a contract type.
func (s *PhaseService) GetPhaseSequence(ctx context.Context, contractTypeCode string) ([]engine.EffectiveConfig, error) {
	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if _, err := engine.NewContractTypeCatalog(snap.Types).GetByCode(contractTypeCode); err != nil {
		return nil, err
	}
	return engine.NewPhaseSequenceBuilder(engine.NewPhaseCatalog(snap.Phases)).BuildSequence(contractTypeCode)
}

func (s *PhaseService) FindApplicablePhases(ctx context.Context, contractTypeCode string) ([]models.ContractPhase, error) {
	phases, err := s.store.ListPhases(ctx)
	if err != nil {
		return nil, err
	}
	return engine.NewPhaseCatalog(phases).FindApplicablePhases(contractTypeCode), nil
}

// checkDependents refuses to take code out of the active catalog while an
// active phase still references it.
func checkDependents(phases []models.ContractPhase, code string) error {
	var issues []engine.Issue
	for _, other := range engine.NewPhaseCatalog(phases).Phases() {
		if other.Code == code {
			continue
		}
		for _, ref := range other.Dependencies.References() {
			if ref == code {
				issues = append(issues, engine.Issue{
					Code:    engine.IssueOrphanedDependency,
					Message: "phase " + other.Code + " depends on " + code,
					Refs:    []string{other.Code, code},
				})
				break
			}
		}
	}
	if len(issues) > 0 {
		return &engine.ConfigError{Issues: issues}
	}
	return nil
}

// checkPhase validates a candidate phase against the snapshot: overrides
// must reference known types and codes are unique across active and
// inactive phases, whichever state the candidate is in.
func checkPhase(snap engine.CatalogSnapshot, phase *models.ContractPhase) error {
	if err := engine.ValidatePhase(phase); err != nil {
		return err
	}

	types := engine.NewContractTypeCatalog(snap.Types)
	var issues []engine.Issue
	for _, o := range phase.TypeOverrides {
		if _, err := types.GetByCode(o.ContractTypeCode); err != nil {
			issues = append(issues, engine.Issue{
				Code:    engine.IssueUnknownContractType,
				Message: "phase " + phase.Code + " references unknown contract type " + o.ContractTypeCode,
				Refs:    []string{phase.Code, o.ContractTypeCode},
			})
		}
	}
	for _, other := range snap.Phases {
		if other.Code == phase.Code && other.ID != phase.ID {
			issues = append(issues, engine.Issue{
				Code:    engine.IssueDuplicateCode,
				Message: "phase code " + phase.Code + " already exists",
				Refs:    []string{phase.Code},
			})
		}
	}
	if len(issues) > 0 {
		return &engine.ConfigError{Issues: issues}
	}
	return engine.NewPhaseCatalog(snap.Phases).CheckPhase(phase)
}

func applyPhaseRequest(phase *models.ContractPhase, req *PhaseRequest) {
	phase.Code = req.Code
	phase.Name = req.Name
	phase.Description = req.Description
	phase.Order = req.Order
	phase.Category = req.Category
	phase.RequiredDocuments = req.RequiredDocuments
	phase.PhaseConfig = req.PhaseConfig
	phase.Dependencies = req.Dependencies
	phase.AllowedRoles = req.AllowedRoles
	phase.TypeOverrides = make([]models.PhaseTypeOverride, 0, len(req.TypeOverrides))
	for i := range req.TypeOverrides {
		phase.TypeOverrides = append(phase.TypeOverrides, newOverride(&req.TypeOverrides[i]))
	}
	if req.IsActive != nil {
		phase.IsActive = *req.IsActive
	}
}

func newOverride(req *OverrideRequest) models.PhaseTypeOverride {
	return models.PhaseTypeOverride{
		ContractTypeCode:    req.ContractTypeCode,
		ExcludedDocuments:   req.ExcludedDocuments,
		AdditionalDocuments: req.AdditionalDocuments,
		CustomDuration:      req.CustomDuration,
		OverridePhaseConfig: req.OverridePhaseConfig,
	}
}
