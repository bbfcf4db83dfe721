// internal/repository/catalog_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

// CatalogRepository persists contract types, amount ranges and phase
// templates with their per-type overrides.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Contract types

func (r *CatalogRepository) ListContractTypes(ctx context.Context) ([]models.ContractType, error) {
	var types []models.ContractType
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list contract types: %w", err)
	}
	return types, nil
}

func (r *CatalogRepository) GetContractType(ctx context.Context, code string) (*models.ContractType, error) {
	var t models.ContractType
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&t).Error; err != nil {
		return nil, notFound(err, engine.ResourceContractType, code)
	}
	return &t, nil
}

func (r *CatalogRepository) CreateContractType(ctx context.Context, t *models.ContractType) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create contract type: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateContractType(ctx context.Context, t *models.ContractType) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update contract type: %w", err)
	}
	return nil
}

// Amount ranges

func (r *CatalogRepository) ListAmountRanges(ctx context.Context) ([]models.AmountRange, error) {
	var ranges []models.AmountRange
	err := r.db.WithContext(ctx).
		Order("object_category ASC, min_amount ASC, priority ASC").
		Find(&ranges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list amount ranges: %w", err)
	}
	return ranges, nil
}

func (r *CatalogRepository) GetAmountRange(ctx context.Context, id uuid.UUID) (*models.AmountRange, error) {
	var rng models.AmountRange
	if err := r.db.WithContext(ctx).First(&rng, "id = ?", id).Error; err != nil {
		return nil, notFound(err, engine.ResourceAmountRange, id.String())
	}
	return &rng, nil
}

func (r *CatalogRepository) CreateAmountRange(ctx context.Context, rng *models.AmountRange) error {
	if err := r.db.WithContext(ctx).Create(rng).Error; err != nil {
		return fmt.Errorf("failed to create amount range: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateAmountRange(ctx context.Context, rng *models.AmountRange) error {
	if err := r.db.WithContext(ctx).Save(rng).Error; err != nil {
		return fmt.Errorf("failed to update amount range: %w", err)
	}
	return nil
}

// Phases

func (r *CatalogRepository) ListPhases(ctx context.Context) ([]models.ContractPhase, error) {
	var phases []models.ContractPhase
	err := r.db.WithContext(ctx).
		Preload("TypeOverrides", func(db *gorm.DB) *gorm.DB {
			return db.Order("contract_type_code ASC")
		}).
		Order("phase_order ASC, code ASC").
		Find(&phases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	return phases, nil
}

func (r *CatalogRepository) GetPhase(ctx context.Context, code string) (*models.ContractPhase, error) {
	var phase models.ContractPhase
	err := r.db.WithContext(ctx).
		Preload("TypeOverrides").
		Where("code = ?", code).
		First(&phase).Error
	if err != nil {
		return nil, notFound(err, engine.ResourcePhase, code)
	}
	return &phase, nil
}

// CreatePhase inserts the phase and its overrides in one transaction.
func (r *CatalogRepository) CreatePhase(ctx context.Context, phase *models.ContractPhase) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overrides := phase.TypeOverrides
		if err := tx.Omit("TypeOverrides").Create(phase).Error; err != nil {
			return err
		}
		return replaceOverrides(tx, phase, overrides)
	})
	if err != nil {
		return fmt.Errorf("failed to create phase: %w", err)
	}
	return nil
}

// UpdatePhase saves the phase and replaces its override set.
func (r *CatalogRepository) UpdatePhase(ctx context.Context, phase *models.ContractPhase) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overrides := phase.TypeOverrides
		if err := tx.Omit("TypeOverrides").Save(phase).Error; err != nil {
			return err
		}
		if err := tx.Where("phase_id = ?", phase.ID).Delete(&models.PhaseTypeOverride{}).Error; err != nil {
			return err
		}
		return replaceOverrides(tx, phase, overrides)
	})
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", err)
	}
	return nil
}

func replaceOverrides(tx *gorm.DB, phase *models.ContractPhase, overrides []models.PhaseTypeOverride) error {
	for i := range overrides {
		overrides[i].ID = uuid.Nil
		overrides[i].PhaseID = phase.ID
	}
	if len(overrides) > 0 {
		if err := tx.Create(&overrides).Error; err != nil {
			return err
		}
	}
	phase.TypeOverrides = overrides
	return nil
}

// UpsertOverride inserts or replaces the override for (phase, type).
func (r *CatalogRepository) UpsertOverride(ctx context.Context, override *models.PhaseTypeOverride) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phase_id"}, {Name: "contract_type_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"excluded_documents", "additional_documents", "custom_duration", "override_phase_config", "updated_at",
		}),
	}).Create(override).Error
	if err != nil {
		return fmt.Errorf("failed to save phase override: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteOverride(ctx context.Context, phaseID uuid.UUID, contractTypeCode string) error {
	result := r.db.WithContext(ctx).
		Where("phase_id = ? AND contract_type_code = ?", phaseID, contractTypeCode).
		Delete(&models.PhaseTypeOverride{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete phase override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return engine.NotFound(engine.ResourcePhase, contractTypeCode)
	}
	return nil
}
