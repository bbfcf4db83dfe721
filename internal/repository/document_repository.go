// internal/repository/document_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.ContractDocument) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error) {
	var doc models.ContractDocument
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, notFound(err, engine.ResourceDocument, id.String())
	}
	return &doc, nil
}

// ListByPhase returns the active documents of one phase of a contract,
// oldest first.
func (r *DocumentRepository) ListByPhase(ctx context.Context, contractID uuid.UUID, phaseCode string) ([]models.ContractDocument, error) {
	var docs []models.ContractDocument
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND phase_code = ? AND status = ?", contractID, phaseCode, models.DocumentStatusActive).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) MarkDeleted(ctx context.Context, id, deletedBy uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.ContractDocument{}).
		Where("id = ? AND status = ?", id, models.DocumentStatusActive).
		Updates(map[string]interface{}{
			"status":     models.DocumentStatusDeleted,
			"deleted_by": deletedBy,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return engine.NotFound(engine.ResourceDocument, id.String())
	}
	return nil
}
