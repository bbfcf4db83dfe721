// internal/services/helpers_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/repository/memory"
	"github.com/municipal/procurement-backend/internal/seed"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx         context.Context
	catalog     *memory.Catalog
	contracts   *memory.Contracts
	documents   *memory.Documents
	departments *memory.Departments
	blobs       *memBlobs
	metrics     *metrics.Metrics

	types     *ContractTypeService
	ranges    *AmountRangeService
	phases    *PhaseService
	integrity *IntegrityService
	contract  *ContractService
	docs      *DocumentService

	departmentID uuid.UUID
	admin        Actor
	clerk        Actor
}

type fixtureOption func(*config.ProcurementConfig)

func withDefaultType(code string) fixtureOption {
	return func(c *config.ProcurementConfig) { c.DefaultContractType = code }
}

func withAutoStart() fixtureOption {
	return func(c *config.ProcurementConfig) { c.AutoStartFirstPhase = true }
}

// newFixture wires every service over in-memory stores holding the default
// LOSNCP catalog. The clerk may read and update contracts and documents of
// the department; the admin may do anything.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := config.ProcurementConfig{MaxDocumentSize: 1 << 20}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		ctx:         context.Background(),
		catalog:     &memory.Catalog{},
		contracts:   memory.NewContracts(),
		documents:   &memory.Documents{},
		departments: memory.NewDepartments(),
		blobs:       newMemBlobs(),
		metrics:     metrics.New(),
	}
	f.types = NewContractTypeService(f.catalog, f.metrics, cfg.DefaultContractType)
	f.ranges = NewAmountRangeService(f.catalog, f.metrics)
	f.phases = NewPhaseService(f.catalog, f.metrics)
	f.integrity = NewIntegrityService(f.catalog)

	permissions := NewPermissionService(f.departments)
	f.contract = NewContractService(f.catalog, f.contracts, f.documents, permissions, cfg, f.metrics)
	f.contract.now = func() time.Time { return fixedNow }
	f.docs = NewDocumentService(f.contracts, f.documents, f.blobs, permissions, cfg.MaxDocumentSize)

	limit := 100000.0
	f.departmentID = f.departments.AddDepartment("DEPT", "Obras Públicas", &limit)
	f.admin = Actor{UserID: uuid.New(), DepartmentID: f.departmentID, Role: "admin"}
	f.clerk = Actor{UserID: uuid.New(), DepartmentID: f.departmentID, Role: "planner"}
	f.departments.Grant(f.clerk.UserID, f.departmentID, "contracts", "read", "create", "update")
	f.departments.Grant(f.clerk.UserID, f.departmentID, "documents", "read", "create", "delete")

	catalog, err := seed.Default()
	require.NoError(t, err)
	_, err = NewCatalogSeeder(f.catalog, f.types, f.ranges, f.phases).Seed(f.ctx, catalog)
	require.NoError(t, err)
	return f
}

func (f *fixture) createContract(t *testing.T, category string, amount float64) uuid.UUID {
	t.Helper()
	c, err := f.contract.CreateContract(f.ctx, f.admin, &CreateContractRequest{
		Title:          "Adquisición de insumos",
		ObjectCategory: category,
		Amount:         amount,
	})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) upload(t *testing.T, actor Actor, contractID uuid.UUID, phase, code string) {
	t.Helper()
	_, err := f.docs.Upload(f.ctx, actor, contractID, phase, &UploadDocumentRequest{
		DocumentCode: code,
		FileName:     code + ".pdf",
		ContentType:  "application/pdf",
		Data:         []byte("%PDF-1.4 " + code),
	})
	require.NoError(t, err)
}
