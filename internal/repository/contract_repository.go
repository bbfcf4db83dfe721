// internal/repository/contract_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/utils"
)

type ContractFilter struct {
	DepartmentID     *uuid.UUID
	ContractTypeCode string
	GeneralStatus    models.GeneralStatus
	Search           string
}

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func orderedPhases(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the contract together with its phase occurrences.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	if contract.Version == 0 {
		contract.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(contract).Error; err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Preload("Phases", orderedPhases).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, engine.ResourceContract, id.String())
	}
	return &contract, nil
}

func (r *ContractRepository) List(ctx context.Context, filter ContractFilter, params utils.PaginationParams) ([]models.Contract, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Contract{})

	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.ContractTypeCode != "" {
		query = query.Where("contract_type_code = ?", filter.ContractTypeCode)
	}
	if filter.GeneralStatus != "" {
		query = query.Where("general_status = ?", filter.GeneralStatus)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR process_code ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "amount", "title", "progress"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var contracts []models.Contract
	if err := query.Preload("Phases", orderedPhases).Find(&contracts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, total, nil
}

// Save writes the contract and its occurrences if the stored version still
// matches contract.Version, then reloads it. A concurrent save in between
// yields ErrStaleWrite and nothing is written.
func (r *ContractRepository) Save(ctx context.Context, contract *models.Contract) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Contract{}).
			Where("id = ? AND version = ?", contract.ID, contract.Version).
			Updates(map[string]interface{}{
				"general_status":   contract.GeneralStatus,
				"current_phase_id": contract.CurrentPhaseID,
				"progress":         contract.Progress,
				"version":          contract.Version + 1,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleWrite
		}

		for i := range contract.Phases {
			if err := tx.Omit("Documents").Save(&contract.Phases[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == ErrStaleWrite {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}

	saved, err := r.Get(ctx, contract.ID)
	if err != nil {
		return err
	}
	*contract = *saved
	return nil
}
