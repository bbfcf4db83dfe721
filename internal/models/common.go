// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

// scanJSON decodes a jsonb column regardless of whether the driver hands back
// bytes or a string.
func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Enums
type Regime string

const (
	RegimeCommon  Regime = "COMMON"
	RegimeSpecial Regime = "SPECIAL"
)

func (r Regime) IsValid() bool {
	return r == RegimeCommon || r == RegimeSpecial
}

type ContractTypeCategory string

const (
	ContractTypeCategoryLowValue   ContractTypeCategory = "LOW_VALUE"
	ContractTypeCategoryDynamic    ContractTypeCategory = "DYNAMIC"
	ContractTypeCategoryCommon     ContractTypeCategory = "COMMON"
	ContractTypeCategoryConsulting ContractTypeCategory = "CONSULTING"
	ContractTypeCategorySpecial    ContractTypeCategory = "SPECIAL"
)

func (c ContractTypeCategory) IsValid() bool {
	switch c {
	case ContractTypeCategoryLowValue, ContractTypeCategoryDynamic, ContractTypeCategoryCommon,
		ContractTypeCategoryConsulting, ContractTypeCategorySpecial:
		return true
	}
	return false
}

const (
	ObjectCategoryGoods      = "goods"
	ObjectCategoryServices   = "services"
	ObjectCategoryWorks      = "works"
	ObjectCategoryConsulting = "consulting"
)

type PhaseCategory string

const (
	PhaseCategoryPlanning    PhaseCategory = "PLANNING"
	PhaseCategoryPreparation PhaseCategory = "PREPARATION"
	PhaseCategoryCall        PhaseCategory = "CALL"
	PhaseCategoryEvaluation  PhaseCategory = "EVALUATION"
	PhaseCategoryAward       PhaseCategory = "AWARD"
	PhaseCategoryExecution   PhaseCategory = "EXECUTION"
	PhaseCategoryCloseout    PhaseCategory = "CLOSEOUT"
	PhaseCategoryArchive     PhaseCategory = "ARCHIVE"
)

// PhaseCategories is the procurement lifecycle in declaration order.
var PhaseCategories = []PhaseCategory{
	PhaseCategoryPlanning,
	PhaseCategoryPreparation,
	PhaseCategoryCall,
	PhaseCategoryEvaluation,
	PhaseCategoryAward,
	PhaseCategoryExecution,
	PhaseCategoryCloseout,
	PhaseCategoryArchive,
}

// Rank returns the declaration index of the category, or -1 when unknown.
func (c PhaseCategory) Rank() int {
	for i, category := range PhaseCategories {
		if category == c {
			return i
		}
	}
	return -1
}

func (c PhaseCategory) IsValid() bool {
	return c.Rank() >= 0
}

type DependencyStatus string

const (
	DependencyStatusCompleted  DependencyStatus = "COMPLETED"
	DependencyStatusInProgress DependencyStatus = "IN_PROGRESS"
)

func (s DependencyStatus) IsValid() bool {
	return s == DependencyStatusCompleted || s == DependencyStatusInProgress
}

type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "PENDING"
	PhaseStatusInProgress PhaseStatus = "IN_PROGRESS"
	PhaseStatusCompleted  PhaseStatus = "COMPLETED"
	PhaseStatusCancelled  PhaseStatus = "CANCELLED"
)

type GeneralStatus string

const (
	GeneralStatusDraft       GeneralStatus = "DRAFT"
	GeneralStatusPreparation GeneralStatus = "PREPARATION"
	GeneralStatusCall        GeneralStatus = "CALL"
	GeneralStatusEvaluation  GeneralStatus = "EVALUATION"
	GeneralStatusAward       GeneralStatus = "AWARD"
	GeneralStatusContracting GeneralStatus = "CONTRACTING"
	GeneralStatusExecution   GeneralStatus = "EXECUTION"
	GeneralStatusFinished    GeneralStatus = "FINISHED"
	GeneralStatusLiquidated  GeneralStatus = "LIQUIDATED"
	GeneralStatusCancelled   GeneralStatus = "CANCELLED"
	GeneralStatusSuspended   GeneralStatus = "SUSPENDED"
)

type DocumentStatus string

const (
	DocumentStatusActive  DocumentStatus = "active"
	DocumentStatusDeleted DocumentStatus = "deleted"
)
