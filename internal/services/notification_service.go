// internal/services/notification_service.go
package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
)

const (
	NotificationStatusPending = "pending"

	maxPendingNotifications = 200
)

// NotificationService records due-date reminders for phases in progress.
// Delivering them is left to downstream consumers of phase_notifications.
type NotificationService struct {
	store   NotificationStore
	metrics *metrics.Metrics
}

type ScanResult struct {
	Scanned int `json:"scanned"`
	Due     int `json:"due"`
	Created int `json:"created"`
}

func NewNotificationService(store NotificationStore, m *metrics.Metrics) *NotificationService {
	return &NotificationService{store: store, metrics: m}
}

// ScanDueNotifications creates one notification per in-progress occurrence
// whose due date is within its notification window, overdue ones included.
// Running it again for the same due date creates nothing new.
func (s *NotificationService) ScanDueNotifications(ctx context.Context, now time.Time) (*ScanResult, error) {
	occurrences, err := s.store.ListInProgressOccurrences(ctx)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Scanned: len(occurrences)}
	for i := range occurrences {
		occ := &occurrences[i]
		due := occ.DueDate()
		if due == nil {
			continue
		}
		remaining := DaysUntil(now, *due)
		if remaining > occ.EffectiveConfig.NotificationDays {
			continue
		}
		result.Due++

		created, err := s.store.CreateIfAbsent(ctx, &models.PhaseNotification{
			ContractID:    occ.ContractID,
			OccurrenceID:  occ.ID,
			PhaseCode:     occ.PhaseCode,
			DueDate:       truncateDay(*due),
			DaysRemaining: remaining,
			Status:        NotificationStatusPending,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		}
	}

	s.metrics.NotificationsCreated(result.Created)
	logrus.WithFields(logrus.Fields{
		"scanned": result.Scanned,
		"due":     result.Due,
		"created": result.Created,
	}).Info("Phase due dates scanned")
	return result, nil
}

// ListPending returns undelivered notifications, earliest due date first.
func (s *NotificationService) ListPending(ctx context.Context, limit int) ([]models.PhaseNotification, error) {
	if limit <= 0 || limit > maxPendingNotifications {
		limit = maxPendingNotifications
	}
	return s.store.ListPending(ctx, limit)
}

// DaysUntil counts whole calendar days from now to due; negative when overdue.
func DaysUntil(now, due time.Time) int {
	return int(math.Round(truncateDay(due).Sub(truncateDay(now)).Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
