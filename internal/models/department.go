// internal/models/department.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Department struct {
	BaseModel
	Code          string   `json:"code" gorm:"size:30;not null;uniqueIndex"`
	Name          string   `json:"name" gorm:"size:255;not null"`
	ApprovalLimit *float64 `json:"approval_limit" gorm:"type:decimal(18,2)"` // nil = unlimited
	IsActive      bool     `json:"is_active" gorm:"default:true"`
}

// Permission categories and actions checked before engine mutators run.
const (
	PermissionCategoryContracts = "contracts"
	PermissionCategoryDocuments = "documents"
	PermissionCategoryCatalog   = "catalog"

	PermissionActionRead    = "read"
	PermissionActionCreate  = "create"
	PermissionActionUpdate  = "update"
	PermissionActionApprove = "approve"
	PermissionActionDelete  = "delete"
)

type DepartmentPermission struct {
	BaseModel
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	DepartmentID uuid.UUID `json:"department_id" gorm:"type:uuid;not null;index"`
	Category     string    `json:"category" gorm:"size:30;not null"`
	Action       string    `json:"action" gorm:"size:30;not null"`

	// Relationships
	Department Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

type PhaseNotification struct {
	BaseModel
	ContractID    uuid.UUID  `json:"contract_id" gorm:"type:uuid;not null;index"`
	OccurrenceID  uuid.UUID  `json:"occurrence_id" gorm:"type:uuid;not null;uniqueIndex:uq_phase_notification"`
	PhaseCode     string     `json:"phase_code" gorm:"size:30;not null"`
	DueDate       time.Time  `json:"due_date" gorm:"type:date;not null;uniqueIndex:uq_phase_notification"`
	DaysRemaining int        `json:"days_remaining"`
	Status        string     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ReadAt        *time.Time `json:"read_at"`
}
