// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/utils"
)

var (
	ErrPermissionDenied       = errors.New("permission denied")
	ErrRoleNotAllowed         = errors.New("role is not allowed to act on this phase")
	ErrApprovalLimitExceeded  = errors.New("amount exceeds the department approval limit")
	ErrContractTypeUnresolved = errors.New("no contract type matches the object category and amount")
)

// PermissionError reports the missing department grant. It matches
// ErrPermissionDenied.
type PermissionError struct {
	Action       string    `json:"action"`
	Category     string    `json:"category"`
	DepartmentID uuid.UUID `json:"department_id"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s %s in department %s", ErrPermissionDenied, e.Action, e.Category, e.DepartmentID)
}
func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

// RoleError reports a caller role outside the phase's allowed roles. It
// matches ErrRoleNotAllowed.
type RoleError struct {
	Phase   string   `json:"phase"`
	Role    string   `json:"role"`
	Allowed []string `json:"allowed_roles"`
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("%s: %s requires one of %v", ErrRoleNotAllowed, e.Phase, e.Allowed)
}
func (e *RoleError) Is(target error) bool { return target == ErrRoleNotAllowed }

// UnresolvedError reports an amount no active range or default covers. It
// matches ErrContractTypeUnresolved.
type UnresolvedError struct {
	ObjectCategory string  `json:"object_category"`
	Amount         float64 `json:"amount"`
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s %.2f", ErrContractTypeUnresolved, e.ObjectCategory, e.Amount)
}
func (e *UnresolvedError) Is(target error) bool { return target == ErrContractTypeUnresolved }

// StatusTransitionError rejects a general status change outside the
// lifecycle table.
type StatusTransitionError struct {
	From models.GeneralStatus `json:"from"`
	To   models.GeneralStatus `json:"to"`
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("contract cannot move from %s to %s", e.From, e.To)
}
func (e *StatusTransitionError) Kind() engine.ErrorKind { return engine.KindState }
func (e *StatusTransitionError) Code() string           { return "INVALID_STATUS_TRANSITION" }

// ContractClosedError rejects phase work on a contract that is no longer
// being processed.
type ContractClosedError struct {
	Status models.GeneralStatus `json:"status"`
}

func (e *ContractClosedError) Error() string {
	return fmt.Sprintf("contract is %s and accepts no phase changes", e.Status)
}
func (e *ContractClosedError) Kind() engine.ErrorKind { return engine.KindState }
func (e *ContractClosedError) Code() string           { return "CONTRACT_NOT_ACTIVE" }

// PhaseClosedError rejects document changes on a finished phase.
type PhaseClosedError struct {
	Phase  string             `json:"phase"`
	Status models.PhaseStatus `json:"status"`
}

func (e *PhaseClosedError) Error() string {
	return fmt.Sprintf("phase %s is %s and accepts no documents", e.Phase, e.Status)
}
func (e *PhaseClosedError) Kind() engine.ErrorKind { return engine.KindState }
func (e *PhaseClosedError) Code() string           { return "PHASE_CLOSED" }

// validateRequest runs the struct tags of req and reports failures as an
// engine validation error.
func validateRequest(req interface{}) error {
	err := utils.ValidateStruct(req)
	if err == nil {
		return nil
	}
	fields := utils.GetValidationErrors(err)
	if len(fields) == 0 {
		return engine.Invalid("request", err.Error())
	}
	verr := &engine.ValidationError{}
	for _, f := range fields {
		verr.Fields = append(verr.Fields, engine.FieldError{Field: f.Field, Message: f.Message})
	}
	return verr
}
