// internal/repository/department_repository.go
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

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	var dept models.Department
	if err := r.db.WithContext(ctx).First(&dept, "id = ?", id).Error; err != nil {
		return nil, notFound(err, engine.ResourceDepartment, id.String())
	}
	return &dept, nil
}

func (r *DepartmentRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var depts []models.Department
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&depts).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, nil
}

func (r *DepartmentRepository) HasPermission(ctx context.Context, userID, departmentID uuid.UUID, category, action string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DepartmentPermission{}).
		Where("user_id = ? AND department_id = ? AND category = ? AND action = ?", userID, departmentID, category, action).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return count > 0, nil
}

// GrantPermission is a no-op when the grant already exists.
func (r *DepartmentRepository) GrantPermission(ctx context.Context, perm *models.DepartmentPermission) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(perm).Error
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}
