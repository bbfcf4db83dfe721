// internal/services/stores.go
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/repository/memory"
	"github.com/municipal/procurement-backend/internal/utils"
)

// Storage contracts the services depend on. The gorm repositories implement
// them; memory.Catalog backs offline catalog checks and tests.

type CatalogStore interface {
	ListContractTypes(ctx context.Context) ([]models.ContractType, error)
	GetContractType(ctx context.Context, code string) (*models.ContractType, error)
	CreateContractType(ctx context.Context, t *models.ContractType) error
	UpdateContractType(ctx context.Context, t *models.ContractType) error

	ListAmountRanges(ctx context.Context) ([]models.AmountRange, error)
	GetAmountRange(ctx context.Context, id uuid.UUID) (*models.AmountRange, error)
	CreateAmountRange(ctx context.Context, rng *models.AmountRange) error
	UpdateAmountRange(ctx context.Context, rng *models.AmountRange) error

	ListPhases(ctx context.Context) ([]models.ContractPhase, error)
	GetPhase(ctx context.Context, code string) (*models.ContractPhase, error)
	CreatePhase(ctx context.Context, phase *models.ContractPhase) error
	UpdatePhase(ctx context.Context, phase *models.ContractPhase) error
	UpsertOverride(ctx context.Context, override *models.PhaseTypeOverride) error
	DeleteOverride(ctx context.Context, phaseID uuid.UUID, contractTypeCode string) error
}

type ContractStore interface {
	Create(ctx context.Context, contract *models.Contract) error
	Get(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, filter repository.ContractFilter, params utils.PaginationParams) ([]models.Contract, int64, error)
	Save(ctx context.Context, contract *models.Contract) error
}

type DocumentStore interface {
	Create(ctx context.Context, doc *models.ContractDocument) error
	Get(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error)
	ListByPhase(ctx context.Context, contractID uuid.UUID, phaseCode string) ([]models.ContractDocument, error)
	MarkDeleted(ctx context.Context, id, deletedBy uuid.UUID) error
}

type DepartmentStore interface {
	GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	HasPermission(ctx context.Context, userID, departmentID uuid.UUID, category, action string) (bool, error)
	GrantPermission(ctx context.Context, perm *models.DepartmentPermission) error
}

type NotificationStore interface {
	ListInProgressOccurrences(ctx context.Context) ([]models.PhaseOccurrence, error)
	CreateIfAbsent(ctx context.Context, n *models.PhaseNotification) (bool, error)
	ListPending(ctx context.Context, limit int) ([]models.PhaseNotification, error)
}

// BlobStore keeps document contents. Put returns the public URL of the blob.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	_ CatalogStore      = (*repository.CatalogRepository)(nil)
	_ CatalogStore      = (*memory.Catalog)(nil)
	_ ContractStore     = (*repository.ContractRepository)(nil)
	_ DocumentStore     = (*repository.DocumentRepository)(nil)
	_ DepartmentStore   = (*repository.DepartmentRepository)(nil)
	_ NotificationStore = (*repository.NotificationRepository)(nil)
)
