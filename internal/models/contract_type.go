// internal/models/contract_type.go
package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/lib/pq"
)

// ProcedureConfig holds the procedural parameters of a procurement type.
type ProcedureConfig struct {
	RequiresPublication bool    `json:"requires_publication" yaml:"requires_publication"`
	PublicationDays     int     `json:"publication_days" yaml:"publication_days" validate:"min=0,max=365"`
	EvaluationDays      int     `json:"evaluation_days" yaml:"evaluation_days" validate:"min=0,max=365"`
	RequiresInsurance   bool    `json:"requires_insurance" yaml:"requires_insurance"`
	InsurancePercentage float64 `json:"insurance_percentage" yaml:"insurance_percentage" validate:"min=0,max=100"`
}

func (p ProcedureConfig) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ProcedureConfig) Scan(value interface{}) error {
	return scanJSON(value, p)
}

type ContractType struct {
	BaseModel
	Code             string               `json:"code" gorm:"size:20;not null;uniqueIndex"`
	Name             string               `json:"name" gorm:"size:255;not null"`
	Description      string               `json:"description" gorm:"type:text"`
	Regime           Regime               `json:"regime" gorm:"type:varchar(20);not null;index"`
	Category         ContractTypeCategory `json:"category" gorm:"type:varchar(30);not null;index"`
	ObjectCategories pq.StringArray       `json:"object_categories" gorm:"type:text[]"`
	MinAmount        float64              `json:"min_amount" gorm:"type:decimal(18,2);default:0"`
	MaxAmount        *float64             `json:"max_amount" gorm:"type:decimal(18,2)"`
	ProcedureConfig  ProcedureConfig      `json:"procedure_config" gorm:"type:jsonb"`
	LegalReference   string               `json:"legal_reference" gorm:"size:255"`
	IsActive         bool                 `json:"is_active" gorm:"default:true;index"`
}

// AppliesTo reports whether the type lists the object category. An empty
// list means the type is not restricted by object category.
func (t *ContractType) AppliesTo(objectCategory string) bool {
	if len(t.ObjectCategories) == 0 {
		return true
	}
	for _, c := range t.ObjectCategories {
		if c == objectCategory {
			return true
		}
	}
	return false
}

type AmountRange struct {
	BaseModel
	ObjectCategory   string   `json:"object_category" gorm:"size:30;not null;index"`
	ContractTypeCode string   `json:"contract_type_code" gorm:"size:20;not null;index"`
	MinAmount        float64  `json:"min_amount" gorm:"type:decimal(18,2);not null"`
	MaxAmount        *float64 `json:"max_amount" gorm:"type:decimal(18,2)"` // nil = unbounded
	Priority         int      `json:"priority" gorm:"default:0"`
	IsActive         bool     `json:"is_active" gorm:"default:true;index"`
	Notes            string   `json:"notes,omitempty" gorm:"type:text"`
}
