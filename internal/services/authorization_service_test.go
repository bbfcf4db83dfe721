// internal/services/authorization_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
)

func TestPermissionService_GrantPermission(t *testing.T) {
	f := newFixture(t)
	permissions := NewPermissionService(f.departments)
	auditor := Actor{UserID: uuid.New(), DepartmentID: f.departmentID, Role: "auditor"}

	err := permissions.Require(f.ctx, auditor, f.departmentID, models.PermissionCategoryContracts, models.PermissionActionRead)
	var permErr *PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Equal(t, models.PermissionActionRead, permErr.Action)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	perm, err := permissions.GrantPermission(f.ctx, f.departmentID, &GrantPermissionRequest{
		UserID:   auditor.UserID,
		Category: models.PermissionCategoryContracts,
		Action:   models.PermissionActionRead,
	})
	require.NoError(t, err)
	assert.Equal(t, f.departmentID, perm.DepartmentID)
	assert.NoError(t, permissions.Require(f.ctx, auditor, f.departmentID, models.PermissionCategoryContracts, models.PermissionActionRead))

	_, err = permissions.GrantPermission(f.ctx, f.departmentID, &GrantPermissionRequest{
		UserID: auditor.UserID, Category: "payments", Action: models.PermissionActionRead,
	})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	_, err = permissions.GrantPermission(f.ctx, uuid.New(), &GrantPermissionRequest{
		UserID: auditor.UserID, Category: models.PermissionCategoryContracts, Action: models.PermissionActionRead,
	})
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))

	departments, err := permissions.ListDepartments(f.ctx)
	require.NoError(t, err)
	assert.Len(t, departments, 1)
}

func TestPermissionService_ApprovalLimit(t *testing.T) {
	f := newFixture(t)
	permissions := NewPermissionService(f.departments)

	assert.NoError(t, permissions.CheckApprovalLimit(f.ctx, f.departmentID, 100000))
	assert.ErrorIs(t, permissions.CheckApprovalLimit(f.ctx, f.departmentID, 100000.01), ErrApprovalLimitExceeded)

	unlimited := f.departments.AddDepartment("ALCALDIA", "Alcaldía", nil)
	limit, err := permissions.DepartmentApprovalLimit(f.ctx, unlimited)
	require.NoError(t, err)
	assert.Nil(t, limit)
	assert.NoError(t, permissions.CheckApprovalLimit(f.ctx, unlimited, 1e12))
}

func TestRequireRole(t *testing.T) {
	occ := &models.PhaseOccurrence{PhaseCode: "ADJUDICACION", AllowedRoles: []string{"legal"}}

	err := requireRole(Actor{Role: "planner"}, occ)
	var roleErr *RoleError
	require.True(t, errors.As(err, &roleErr))
	assert.Equal(t, "ADJUDICACION", roleErr.Phase)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	assert.NoError(t, requireRole(Actor{Role: "legal"}, occ))
	assert.NoError(t, requireRole(Actor{Role: "admin"}, occ))
	assert.NoError(t, requireRole(Actor{Role: "planner"}, &models.PhaseOccurrence{PhaseCode: "ARCHIVO"}))
}
