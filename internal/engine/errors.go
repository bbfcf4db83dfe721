// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/municipal/procurement-backend/internal/models"
)

// ErrorKind classifies engine failures so callers can pick a response
// without matching on concrete types.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindState         ErrorKind = "state"
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
)

// Error is implemented by every error the engine returns.
type Error interface {
	error
	Kind() ErrorKind
	Code() string
}

// KindOf returns the kind of the first engine error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// CodeOf returns the machine-readable code of the first engine error in err's chain, or "".
func CodeOf(err error) string {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// Configuration

type IssueCode string

const (
	IssueConfigConflict        IssueCode = "CONFIG_CONFLICT"
	IssueDuplicateOrder        IssueCode = "DUPLICATE_ORDER"
	IssueDuplicateCode         IssueCode = "DUPLICATE_CODE"
	IssueDuplicateDocumentCode IssueCode = "DUPLICATE_DOCUMENT_CODE"
	IssueDuplicateTypeOverride IssueCode = "DUPLICATE_TYPE_OVERRIDE"
	IssueCyclicDependency      IssueCode = "CYCLIC_DEPENDENCY"
	IssueOrphanedDependency    IssueCode = "ORPHANED_DEPENDENCY"
	IssueUnknownContractType   IssueCode = "UNKNOWN_CONTRACT_TYPE_REFERENCE"
	IssueMissingDependency     IssueCode = "MISSING_DEPENDENCY"
	IssueDependencyOrder       IssueCode = "DEPENDENCY_ORDER"
	IssueEmptySequence         IssueCode = "EMPTY_SEQUENCE"
)

// Issue is one configuration problem. Refs lists the codes involved; for
// cycles it is the cycle path with the first node repeated at the end.
type Issue struct {
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
	Refs    []string  `json:"refs,omitempty"`
}

type ConfigError struct {
	Issues []Issue `json:"issues"`
}

func newConfigError(issues ...Issue) *ConfigError {
	return &ConfigError{Issues: issues}
}

func (e *ConfigError) Error() string {
	if len(e.Issues) == 0 {
		return "configuration error"
	}
	msg := e.Issues[0].Message
	if len(e.Issues) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e.Issues)-1)
	}
	return "configuration error: " + msg
}

func (e *ConfigError) Kind() ErrorKind { return KindConfiguration }

func (e *ConfigError) Code() string {
	if len(e.Issues) == 0 {
		return "CONFIGURATION_ERROR"
	}
	return string(e.Issues[0].Code)
}

// Has reports whether any issue carries the given code.
func (e *ConfigError) Has(code IssueCode) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// State

type PhaseBlockedError struct {
	Phase     string   `json:"phase"`
	BlockedBy []string `json:"blocked_by"`
}

func (e *PhaseBlockedError) Error() string {
	return fmt.Sprintf("phase %s is blocked by %s", e.Phase, strings.Join(e.BlockedBy, ", "))
}
func (e *PhaseBlockedError) Kind() ErrorKind { return KindState }
func (e *PhaseBlockedError) Code() string    { return "PHASE_BLOCKED" }

type UnmetDependency struct {
	Phase          string                  `json:"phase"`
	RequiredStatus models.DependencyStatus `json:"required_status"`
	ActualStatus   models.PhaseStatus      `json:"actual_status,omitempty"`
}

type PhaseDependencyUnmetError struct {
	Phase string            `json:"phase"`
	Unmet []UnmetDependency `json:"unmet"`
}

func (e *PhaseDependencyUnmetError) Error() string {
	parts := make([]string, 0, len(e.Unmet))
	for _, u := range e.Unmet {
		actual := string(u.ActualStatus)
		if actual == "" {
			actual = "absent"
		}
		parts = append(parts, fmt.Sprintf("%s (requires %s, is %s)", u.Phase, u.RequiredStatus, actual))
	}
	return fmt.Sprintf("phase %s has unmet dependencies: %s", e.Phase, strings.Join(parts, "; "))
}
func (e *PhaseDependencyUnmetError) Kind() ErrorKind { return KindState }
func (e *PhaseDependencyUnmetError) Code() string    { return "PHASE_DEPENDENCY_UNMET" }

type PhaseNotCompleteError struct {
	Phase  string             `json:"phase"`
	Status models.PhaseStatus `json:"status"`
}

func (e *PhaseNotCompleteError) Error() string {
	return fmt.Sprintf("phase %s is %s, not COMPLETED", e.Phase, e.Status)
}
func (e *PhaseNotCompleteError) Kind() ErrorKind { return KindState }
func (e *PhaseNotCompleteError) Code() string    { return "PHASE_NOT_COMPLETE" }

type NoNextPhaseError struct {
	Phase string `json:"phase"`
}

func (e *NoNextPhaseError) Error() string {
	return fmt.Sprintf("phase %s is the last phase in the sequence", e.Phase)
}
func (e *NoNextPhaseError) Kind() ErrorKind { return KindState }
func (e *NoNextPhaseError) Code() string    { return "NO_NEXT_PHASE" }

type MissingMandatoryDocumentsError struct {
	Phase   string   `json:"phase"`
	Missing []string `json:"missing"`
}

func (e *MissingMandatoryDocumentsError) Error() string {
	return fmt.Sprintf("phase %s is missing mandatory documents: %s", e.Phase, strings.Join(e.Missing, ", "))
}
func (e *MissingMandatoryDocumentsError) Kind() ErrorKind { return KindState }
func (e *MissingMandatoryDocumentsError) Code() string    { return "MISSING_MANDATORY_DOCUMENTS" }

type InvalidTransitionError struct {
	Phase string             `json:"phase"`
	From  models.PhaseStatus `json:"from"`
	To    models.PhaseStatus `json:"to"`
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("phase %s cannot move from %s to %s", e.Phase, e.From, e.To)
}
func (e *InvalidTransitionError) Kind() ErrorKind { return KindState }
func (e *InvalidTransitionError) Code() string    { return "INVALID_TRANSITION" }

// Not found

const (
	ResourceContractType = "contract_type"
	ResourcePhase        = "phase"
	ResourceContract     = "contract"
	ResourceAmountRange  = "amount_range"
	ResourceDocument     = "document"
	ResourceDepartment   = "department"
)

type NotFoundError struct {
	Resource string `json:"resource"`
	Key      string `json:"key,omitempty"`
}

var (
	ErrUnknownContractType = &NotFoundError{Resource: ResourceContractType}
	ErrUnknownPhase        = &NotFoundError{Resource: ResourcePhase}
	ErrContractNotFound    = &NotFoundError{Resource: ResourceContract}
)

func NotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}
func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

func (e *NotFoundError) Code() string {
	switch e.Resource {
	case ResourceContractType:
		return "UNKNOWN_CONTRACT_TYPE"
	case ResourcePhase:
		return "UNKNOWN_PHASE"
	}
	return "NOT_FOUND"
}

// Is matches on resource, and on key when the target carries one.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Resource == e.Resource && (t.Key == "" || t.Key == e.Key)
}

// Validation

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
func (e *ValidationError) Kind() ErrorKind { return KindValidation }
func (e *ValidationError) Code() string    { return "VALIDATION_ERROR" }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
