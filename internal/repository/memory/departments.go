// internal/repository/memory/departments.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

type grantKey struct {
	user, department uuid.UUID
	category, action string
}

type Departments struct {
	mu          sync.Mutex
	departments map[uuid.UUID]models.Department
	grants      map[grantKey]bool
}

func NewDepartments() *Departments {
	return &Departments{
		departments: make(map[uuid.UUID]models.Department),
		grants:      make(map[grantKey]bool),
	}
}

// AddDepartment registers an active department; a nil limit is unlimited.
func (s *Departments) AddDepartment(code, name string, limit *float64) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := models.Department{Code: code, Name: name, ApprovalLimit: limit, IsActive: true}
	d.ID = uuid.New()
	s.departments[d.ID] = d
	return d.ID
}

func (s *Departments) Grant(user, department uuid.UUID, category string, actions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.grants[grantKey{user, department, category, a}] = true
	}
}

func (s *Departments) GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, engine.NotFound(engine.ResourceDepartment, id.String())
	}
	return &d, nil
}

func (s *Departments) ListDepartments(ctx context.Context) ([]models.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Departments) HasPermission(ctx context.Context, userID, departmentID uuid.UUID, category, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grants[grantKey{userID, departmentID, category, action}], nil
}

func (s *Departments) GrantPermission(ctx context.Context, perm *models.DepartmentPermission) error {
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	s.Grant(perm.UserID, perm.DepartmentID, perm.Category, perm.Action)
	return nil
}
