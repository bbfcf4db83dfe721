// internal/repository/notification_repository.go
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/municipal/procurement-backend/internal/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListInProgressOccurrences returns every started, unfinished phase across
// all contracts.
func (r *NotificationRepository) ListInProgressOccurrences(ctx context.Context) ([]models.PhaseOccurrence, error) {
	var occurrences []models.PhaseOccurrence
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date IS NOT NULL", models.PhaseStatusInProgress).
		Order("start_date ASC").
		Find(&occurrences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress phases: %w", err)
	}
	return occurrences, nil
}

// CreateIfAbsent inserts the notification unless one already exists for the
// same occurrence and due date. It reports whether a row was written.
func (r *NotificationRepository) CreateIfAbsent(ctx context.Context, n *models.PhaseNotification) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "occurrence_id"}, {Name: "due_date"}},
		DoNothing: true,
	}).Create(n)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create notification: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]models.PhaseNotification, error) {
	var notifications []models.PhaseNotification
	err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("due_date ASC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
