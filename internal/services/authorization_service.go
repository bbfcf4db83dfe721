// internal/services/authorization_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/models"
)

type GrantPermissionRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	Category string    `json:"category" validate:"required,oneof=contracts documents catalog"`
	Action   string    `json:"action" validate:"required,oneof=read create update approve delete"`
}

// PermissionService answers department-scoped permission questions before
// any engine mutator runs.
type PermissionService struct {
	store DepartmentStore
}

func NewPermissionService(store DepartmentStore) *PermissionService {
	return &PermissionService{store: store}
}

func (s *PermissionService) IsPermitted(ctx context.Context, userID, departmentID uuid.UUID, category, action string) (bool, error) {
	return s.store.HasPermission(ctx, userID, departmentID, category, action)
}

// Require fails with ErrPermissionDenied unless the actor holds the grant in
// the department. Admins hold every grant.
func (s *PermissionService) Require(ctx context.Context, actor Actor, departmentID uuid.UUID, category, action string) error {
	if actor.IsAdmin() {
		return nil
	}
	ok, err := s.IsPermitted(ctx, actor.UserID, departmentID, category, action)
	if err != nil {
		return err
	}
	if !ok {
		return &PermissionError{Action: action, Category: category, DepartmentID: departmentID}
	}
	return nil
}

// DepartmentApprovalLimit returns the highest amount the department may
// contract, or nil when it is unlimited.
func (s *PermissionService) DepartmentApprovalLimit(ctx context.Context, departmentID uuid.UUID) (*float64, error) {
	dept, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return dept.ApprovalLimit, nil
}

func (s *PermissionService) CheckApprovalLimit(ctx context.Context, departmentID uuid.UUID, amount float64) error {
	limit, err := s.DepartmentApprovalLimit(ctx, departmentID)
	if err != nil {
		return err
	}
	if limit != nil && amount > *limit {
		return fmt.Errorf("%w: %.2f > %.2f", ErrApprovalLimitExceeded, amount, *limit)
	}
	return nil
}

func (s *PermissionService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return s.store.ListDepartments(ctx)
}

// GrantPermission gives a user an action on a category within a department.
func (s *PermissionService) GrantPermission(ctx context.Context, departmentID uuid.UUID, req *GrantPermissionRequest) (*models.DepartmentPermission, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}

	perm := &models.DepartmentPermission{
		UserID:       req.UserID,
		DepartmentID: departmentID,
		Category:     req.Category,
		Action:       req.Action,
	}
	if err := s.store.GrantPermission(ctx, perm); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"department_id": departmentID,
		"category":      req.Category,
		"action":        req.Action,
	}).Info("Department permission granted")
	return perm, nil
}

// requireRole checks the phase's allowed roles; an empty list admits everyone.
func requireRole(actor Actor, occ *models.PhaseOccurrence) error {
	if actor.IsAdmin() || len(occ.AllowedRoles) == 0 {
		return nil
	}
	for _, role := range occ.AllowedRoles {
		if role == actor.Role {
			return nil
		}
	}
	return &RoleError{Phase: occ.PhaseCode, Role: actor.Role, Allowed: []string(occ.AllowedRoles)}
}
