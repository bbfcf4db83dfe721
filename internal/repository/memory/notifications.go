// internal/repository/memory/notifications.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

// Notifications keeps phase notifications in memory. Occurrences come from
// Contracts when set, plus any listed in Occurrences.
type Notifications struct {
	mu          sync.Mutex
	Contracts   *Contracts
	Occurrences []models.PhaseOccurrence
	created     map[string]models.PhaseNotification
}

func (s *Notifications) ListInProgressOccurrences(ctx context.Context) ([]models.PhaseOccurrence, error) {
	all := append([]models.PhaseOccurrence(nil), s.Occurrences...)
	if s.Contracts != nil {
		all = append(all, s.Contracts.occurrences()...)
	}

	var out []models.PhaseOccurrence
	for _, o := range all {
		if o.Status == models.PhaseStatusInProgress && o.StartDate != nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Notifications) CreateIfAbsent(ctx context.Context, n *models.PhaseNotification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created == nil {
		s.created = make(map[string]models.PhaseNotification)
	}
	key := n.OccurrenceID.String() + n.DueDate.Format("2006-01-02")
	if _, ok := s.created[key]; ok {
		return false, nil
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.created[key] = *n
	return true, nil
}

func (s *Notifications) ListPending(ctx context.Context, limit int) ([]models.PhaseNotification, error) {
	out := s.Created()
	pending := out[:0]
	for _, n := range out {
		if n.Status == "pending" {
			pending = append(pending, n)
		}
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Created returns every stored notification, earliest due date first.
func (s *Notifications) Created() []models.PhaseNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PhaseNotification, 0, len(s.created))
	for _, n := range s.created {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].PhaseCode < out[j].PhaseCode
	})
	return out
}
