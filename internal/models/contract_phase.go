// internal/models/contract_phase.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DocumentSpec describes one document a phase asks for.
type DocumentSpec struct {
	Code             string   `json:"code" yaml:"code" validate:"required,max=50"`
	Name             string   `json:"name" yaml:"name" validate:"required,max=255"`
	Description      string   `json:"description,omitempty" yaml:"description"`
	IsMandatory      bool     `json:"is_mandatory" yaml:"is_mandatory"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty" yaml:"allowed_file_types"`
	MaxFileSize      int64    `json:"max_file_size,omitempty" yaml:"max_file_size" validate:"min=0"` // bytes, 0 = service default
}

type DocumentSpecs []DocumentSpec

func (d DocumentSpecs) Value() (driver.Value, error) {
	if d == nil {
		return json.Marshal([]DocumentSpec{})
	}
	return json.Marshal([]DocumentSpec(d))
}

func (d *DocumentSpecs) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// Codes returns document codes in declaration order.
func (d DocumentSpecs) Codes() []string {
	codes := make([]string, 0, len(d))
	for _, doc := range d {
		codes = append(codes, doc.Code)
	}
	return codes
}

// Find returns the spec with the given code.
func (d DocumentSpecs) Find(code string) (DocumentSpec, bool) {
	for _, doc := range d {
		if doc.Code == code {
			return doc, true
		}
	}
	return DocumentSpec{}, false
}

// PhaseConfig is the default behavior of a phase.
type PhaseConfig struct {
	IsOptional       bool `json:"is_optional" yaml:"is_optional"`
	AllowParallel    bool `json:"allow_parallel" yaml:"allow_parallel"`
	EstimatedDays    int  `json:"estimated_days" yaml:"estimated_days" validate:"min=0,max=3650"`
	RequiresApproval bool `json:"requires_approval" yaml:"requires_approval"`
	AutoAdvance      bool `json:"auto_advance" yaml:"auto_advance"`
	NotificationDays int  `json:"notification_days" yaml:"notification_days" validate:"min=0,max=365"`
}

func (p PhaseConfig) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PhaseConfig) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// PhaseConfigPatch carries only the fields an override replaces.
type PhaseConfigPatch struct {
	IsOptional       *bool `json:"is_optional,omitempty" yaml:"is_optional"`
	AllowParallel    *bool `json:"allow_parallel,omitempty" yaml:"allow_parallel"`
	EstimatedDays    *int  `json:"estimated_days,omitempty" yaml:"estimated_days" validate:"omitempty,min=0,max=3650"`
	RequiresApproval *bool `json:"requires_approval,omitempty" yaml:"requires_approval"`
	AutoAdvance      *bool `json:"auto_advance,omitempty" yaml:"auto_advance"`
	NotificationDays *int  `json:"notification_days,omitempty" yaml:"notification_days" validate:"omitempty,min=0,max=365"`
}

func (p PhaseConfigPatch) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PhaseConfigPatch) Scan(value interface{}) error {
	return scanJSON(value, p)
}

type RequiredPhase struct {
	Phase          string           `json:"phase" yaml:"phase" validate:"required"`
	RequiredStatus DependencyStatus `json:"required_status" yaml:"required_status" validate:"required,oneof=COMPLETED IN_PROGRESS"`
}

type PhaseDependencies struct {
	RequiredPhases []RequiredPhase `json:"required_phases" yaml:"required_phases" validate:"dive"`
	BlockedBy      []string        `json:"blocked_by" yaml:"blocked_by"`
}

func (p PhaseDependencies) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PhaseDependencies) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// References returns every phase code the dependencies point at.
func (p PhaseDependencies) References() []string {
	refs := make([]string, 0, len(p.RequiredPhases)+len(p.BlockedBy))
	for _, req := range p.RequiredPhases {
		refs = append(refs, req.Phase)
	}
	return append(refs, p.BlockedBy...)
}

type ContractPhase struct {
	BaseModel
	Code              string            `json:"code" gorm:"size:30;not null;index"`
	Name              string            `json:"name" gorm:"size:255;not null"`
	Description       string            `json:"description" gorm:"type:text"`
	Order             int               `json:"order" gorm:"column:phase_order;not null"`
	Category          PhaseCategory     `json:"category" gorm:"type:varchar(20);not null;index"`
	RequiredDocuments DocumentSpecs     `json:"required_documents" gorm:"type:jsonb"`
	PhaseConfig       PhaseConfig       `json:"phase_config" gorm:"type:jsonb"`
	Dependencies      PhaseDependencies `json:"dependencies" gorm:"type:jsonb"`
	AllowedRoles      pq.StringArray    `json:"allowed_roles" gorm:"type:text[]"`
	IsActive          bool              `json:"is_active" gorm:"default:true;index"`

	// Relationships
	TypeOverrides []PhaseTypeOverride `json:"type_specific_config" gorm:"foreignKey:PhaseID"`
}

// Override returns the override entry for the contract type, if any.
func (p *ContractPhase) Override(contractTypeCode string) (*PhaseTypeOverride, bool) {
	for i := range p.TypeOverrides {
		if p.TypeOverrides[i].ContractTypeCode == contractTypeCode {
			return &p.TypeOverrides[i], true
		}
	}
	return nil, false
}

// PhaseTypeOverride is the association between a phase and a contract type it
// applies to. Absence of a row means the phase does not apply to that type.
type PhaseTypeOverride struct {
	ID                  uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PhaseID             uuid.UUID         `json:"phase_id" gorm:"type:uuid;not null;uniqueIndex:uq_phase_type_override"`
	ContractTypeCode    string            `json:"contract_type" gorm:"size:20;not null;uniqueIndex:uq_phase_type_override;index"`
	ExcludedDocuments   pq.StringArray    `json:"excluded_documents" gorm:"type:text[]"`
	AdditionalDocuments DocumentSpecs     `json:"additional_documents" gorm:"type:jsonb"`
	CustomDuration      *int              `json:"custom_duration,omitempty"`
	OverridePhaseConfig *PhaseConfigPatch `json:"override_phase_config,omitempty" gorm:"type:jsonb"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}
