// internal/models/contract.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Contract struct {
	BaseModel
	ProcessCode      string        `json:"process_code,omitempty" gorm:"size:100;index"`
	Title            string        `json:"title" gorm:"size:255;not null"`
	Description      string        `json:"description" gorm:"type:text"`
	ObjectCategory   string        `json:"object_category" gorm:"size:30;not null;index"`
	Amount           float64       `json:"amount" gorm:"type:decimal(18,2);not null"`
	DepartmentID     uuid.UUID     `json:"department_id" gorm:"type:uuid;not null;index"`
	ContractTypeID   uuid.UUID     `json:"contract_type_id" gorm:"type:uuid;not null;index"`
	ContractTypeCode string        `json:"contract_type_code" gorm:"size:20;not null;index"`
	GeneralStatus    GeneralStatus `json:"general_status" gorm:"type:varchar(20);default:'DRAFT';index"`
	CurrentPhaseID   *uuid.UUID    `json:"current_phase_id" gorm:"type:uuid"`
	Progress         float64       `json:"progress" gorm:"type:decimal(5,2);default:0"`
	Version          int           `json:"version" gorm:"not null;default:1"`
	CreatedBy        uuid.UUID     `json:"created_by" gorm:"type:uuid"`

	// Relationships
	Phases []PhaseOccurrence `json:"phases" gorm:"foreignKey:ContractID"`
}

// Occurrence returns the phase occurrence for the given phase code.
func (c *Contract) Occurrence(phaseCode string) (*PhaseOccurrence, int) {
	for i := range c.Phases {
		if c.Phases[i].PhaseCode == phaseCode {
			return &c.Phases[i], i
		}
	}
	return nil, -1
}

// CurrentOccurrence returns the occurrence referenced by CurrentPhaseID.
func (c *Contract) CurrentOccurrence() (*PhaseOccurrence, int) {
	if c.CurrentPhaseID == nil {
		return nil, -1
	}
	for i := range c.Phases {
		if c.Phases[i].PhaseID == *c.CurrentPhaseID {
			return &c.Phases[i], i
		}
	}
	return nil, -1
}

// PhaseOccurrence is the per-contract instance of a catalog phase. The
// effective configuration is copied when the contract is created so later
// template edits do not reach contracts already in progress.
type PhaseOccurrence struct {
	ID                   uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ContractID           uuid.UUID         `json:"contract_id" gorm:"type:uuid;not null;uniqueIndex:uq_occurrence_position"`
	Position             int               `json:"position" gorm:"not null;uniqueIndex:uq_occurrence_position"`
	PhaseID              uuid.UUID         `json:"phase_id" gorm:"type:uuid;not null;index"`
	PhaseCode            string            `json:"phase_code" gorm:"size:30;not null"`
	PhaseName            string            `json:"phase_name" gorm:"size:255"`
	Category             PhaseCategory     `json:"category" gorm:"type:varchar(20)"`
	Status               PhaseStatus       `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`
	StartDate            *time.Time        `json:"start_date"`
	EndDate              *time.Time        `json:"end_date"`
	CompletionPercentage float64           `json:"completion_percentage" gorm:"type:decimal(5,2);default:0"`
	EffectiveDocuments   DocumentSpecs     `json:"effective_documents" gorm:"type:jsonb"`
	EffectiveDuration    int               `json:"effective_duration"`
	EffectiveConfig      PhaseConfig       `json:"effective_config" gorm:"type:jsonb"`
	Dependencies         PhaseDependencies `json:"dependencies" gorm:"type:jsonb"`
	AllowedRoles         pq.StringArray    `json:"allowed_roles" gorm:"type:text[]"`
	CancelReason         string            `json:"cancel_reason,omitempty" gorm:"type:text"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`

	// Relationships
	Documents []ContractDocument `json:"documents,omitempty" gorm:"foreignKey:OccurrenceID"`
}

func (PhaseOccurrence) TableName() string {
	return "contract_phase_occurrences"
}

// DueDate is the expected end of an in-progress occurrence.
func (o *PhaseOccurrence) DueDate() *time.Time {
	if o.StartDate == nil {
		return nil
	}
	due := o.StartDate.AddDate(0, 0, o.EffectiveDuration)
	return &due
}

type ContractDocument struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ContractID   uuid.UUID      `json:"contract_id" gorm:"type:uuid;not null;index"`
	OccurrenceID uuid.UUID      `json:"occurrence_id" gorm:"type:uuid;not null;index"`
	PhaseCode    string         `json:"phase_code" gorm:"size:30;not null"`
	DocumentCode string         `json:"document_code" gorm:"size:50;not null;index"`
	FileName     string         `json:"file_name" gorm:"size:255;not null"`
	StorageKey   string         `json:"storage_key" gorm:"size:512"`
	URL          string         `json:"url" gorm:"size:1024"`
	Size         int64          `json:"size"`
	MimeType     string         `json:"mime_type" gorm:"size:100"`
	Checksum     string         `json:"checksum" gorm:"size:64"`
	Status       DocumentStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	UploadedBy   uuid.UUID      `json:"uploaded_by" gorm:"type:uuid"`
	DeletedBy    *uuid.UUID     `json:"deleted_by,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
