// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/repository/memory"
	"github.com/municipal/procurement-backend/internal/router"
	"github.com/municipal/procurement-backend/internal/seed"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// APITestSuite drives the full router over in-memory stores seeded with the
// default catalog.
type APITestSuite struct {
	suite.Suite
	router *gin.Engine
	cancel context.CancelFunc

	departmentID uuid.UUID
	adminToken   string
	clerkToken   string
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("api-test-secret")
	utils.SetJWTIssuer("api-test")
	suite.Require().NoError(i18n.Initialize())
}

func (suite *APITestSuite) SetupTest() {
	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel

	cfg := &config.Config{
		Environment: "test",
		Procurement: config.ProcurementConfig{
			AutoStartFirstPhase: true,
			MaxDocumentSize:     1 << 20,
		},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 6000, Burst: 1000},
		I18n:      config.I18nConfig{DefaultLocale: "en"},
		Frontend:  config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
	m := metrics.New()

	catalog := &memory.Catalog{}
	contracts := memory.NewContracts()
	documents := &memory.Documents{}
	departments := memory.NewDepartments()
	notifications := &memory.Notifications{Contracts: contracts}
	blobs := services.NewLocalBlobStore(suite.T().TempDir(), "http://localhost:8080/files")

	permissions := services.NewPermissionService(departments)
	svc := &router.Services{
		Catalog:       catalog,
		ContractTypes: services.NewContractTypeService(catalog, m, ""),
		AmountRanges:  services.NewAmountRangeService(catalog, m),
		Phases:        services.NewPhaseService(catalog, m),
		Contracts:     services.NewContractService(catalog, contracts, documents, permissions, cfg.Procurement, m),
		Documents:     services.NewDocumentService(contracts, documents, blobs, permissions, cfg.Procurement.MaxDocumentSize),
		Integrity:     services.NewIntegrityService(catalog),
		Notifications: services.NewNotificationService(notifications, m),
		Permissions:   permissions,
	}

	defaults, err := seed.Default()
	suite.Require().NoError(err)
	_, err = services.NewCatalogSeeder(catalog, svc.ContractTypes, svc.AmountRanges, svc.Phases).Seed(ctx, defaults)
	suite.Require().NoError(err)

	limit := 100000.0
	suite.departmentID = departments.AddDepartment("OOPP", "Obras Públicas", &limit)
	clerkID := uuid.New()
	departments.Grant(clerkID, suite.departmentID, models.PermissionCategoryContracts, "read", "create", "update")
	departments.Grant(clerkID, suite.departmentID, models.PermissionCategoryDocuments, "read", "create", "delete")

	suite.adminToken, err = utils.GenerateJWT(uuid.New(), suite.departmentID, utils.RoleAdmin, 1)
	suite.Require().NoError(err)
	suite.clerkToken, err = utils.GenerateJWT(clerkID, suite.departmentID, "planner", 1)
	suite.Require().NoError(err)

	suite.router = router.Setup(ctx, cfg, m, svc)
}

func (suite *APITestSuite) TearDownTest() {
	suite.cancel()
}

func (suite *APITestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return suite.serve(req, token)
}

func (suite *APITestSuite) serve(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (suite *APITestSuite) createContract(amount float64) models.Contract {
	w, env := suite.do(http.MethodPost, "/v1/contracts", suite.clerkToken, map[string]interface{}{
		"title":           "Adquisición de equipos de cómputo",
		"object_category": models.ObjectCategoryGoods,
		"amount":          amount,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Contract models.Contract `json:"contract"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &data))
	return data.Contract
}

func (suite *APITestSuite) TestHealthAndMetrics() {
	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "procurement_http_requests_total")
}

func (suite *APITestSuite) TestCatalogReadsArePublic() {
	t := suite.T()

	w, env := suite.do(http.MethodGet, "/v1/contract-types", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		ContractTypes []models.ContractType `json:"contract_types"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.ContractTypes, 9)

	w, env = suite.do(http.MethodGet, "/v1/contract-types/resolve?object_category=goods&amount=7212.61", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolution services.Resolution
	require.NoError(t, json.Unmarshal(env.Data, &resolution))
	assert.Equal(t, "MENOR_CUANTIA", resolution.ContractType)

	w, env = suite.do(http.MethodGet, "/v1/contract-types/resolve?object_category=goods", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	w, env = suite.do(http.MethodGet, "/v1/contract-types/LEASING", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_CONTRACT_TYPE", env.Error.Code)

	w, env = suite.do(http.MethodGet, "/v1/contract-types/INFIMA_CUANTIA/phases", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sequence struct {
		Phases []json.RawMessage `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sequence))
	assert.NotEmpty(t, sequence.Phases)

	w, _ = suite.do(http.MethodGet, "/v1/phases/PLAN_ANUAL", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestCatalogWritesRequireAdmin() {
	t := suite.T()
	req := map[string]interface{}{
		"code":     "SUBASTA_ESPECIAL",
		"name":     "Subasta especial",
		"regime":   models.RegimeSpecial,
		"category": models.ContractTypeCategorySpecial,
	}

	w, env := suite.do(http.MethodPost, "/v1/contract-types", "", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, env = suite.do(http.MethodPost, "/v1/contract-types", suite.clerkToken, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = suite.do(http.MethodPost, "/v1/contract-types", suite.adminToken, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = suite.do(http.MethodPost, "/v1/contract-types", suite.adminToken, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_CODE", env.Error.Code)

	w, _ = suite.do(http.MethodGet, "/v1/amount-ranges", suite.clerkToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestContractLifecycle() {
	t := suite.T()
	contract := suite.createContract(5000)
	assert.Equal(t, "INFIMA_CUANTIA", contract.ContractTypeCode)
	path := "/v1/contracts/" + contract.ID.String()

	w, env := suite.do(http.MethodPost, path+"/phases/PLAN_ANUAL/complete", suite.clerkToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MISSING_MANDATORY_DOCUMENTS", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "PAC_CERT")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("document_code", "PAC_CERT"))
	part, err := form.CreateFormFile("file", "pac.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 plan anual"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, path+"/phases/PLAN_ANUAL/documents", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w, _ = suite.serve(req, suite.clerkToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = suite.do(http.MethodGet, path+"/phases/PLAN_ANUAL/documents", suite.clerkToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs struct {
		Documents []models.ContractDocument `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	require.Len(t, docs.Documents, 1)
	assert.Equal(t, "PAC_CERT", docs.Documents[0].DocumentCode)

	w, _ = suite.do(http.MethodPost, path+"/phases/PLAN_ANUAL/complete", suite.clerkToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, path+"/advance", suite.clerkToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = suite.do(http.MethodGet, path+"/progress", suite.clerkToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report services.ProgressReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "CERT_PRESUPUESTARIA", report.CurrentPhase)
	assert.Greater(t, report.Progress, 0.0)

	w, env = suite.do(http.MethodGet, "/v1/contracts", suite.clerkToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Contract
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Len(t, listed, 1)
}

func (suite *APITestSuite) TestContractErrors() {
	t := suite.T()

	w, _ := suite.do(http.MethodGet, "/v1/contracts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := suite.do(http.MethodPost, "/v1/contracts", suite.clerkToken, map[string]interface{}{
		"title": "Construcción de puente", "object_category": models.ObjectCategoryWorks, "amount": 300000,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "APPROVAL_LIMIT_EXCEEDED", env.Error.Code)

	w, env = suite.do(http.MethodPost, "/v1/contracts", suite.clerkToken, map[string]interface{}{
		"object_category": models.ObjectCategoryGoods, "amount": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = suite.do(http.MethodGet, "/v1/contracts/not-a-uuid", suite.clerkToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = suite.do(http.MethodGet, "/v1/contracts/"+uuid.NewString(), suite.clerkToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	contract := suite.createContract(5000)
	w, env = suite.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/phases/PUJA/start", suite.clerkToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "PUJA is not part of an ínfima cuantía plan")
	assert.Equal(t, "UNKNOWN_PHASE", env.Error.Code)
}

func (suite *APITestSuite) TestMessagesFollowAcceptLanguage() {
	req := httptest.NewRequest(http.MethodGet, "/v1/contracts", nil)
	req.Header.Set("Accept-Language", "es-EC,es;q=0.9")
	w, env := suite.serve(req, "")

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "Se requiere autenticación", env.Error.Message)
}

func (suite *APITestSuite) TestAdminEndpoints() {
	t := suite.T()
	suite.createContract(5000)

	w, env := suite.do(http.MethodGet, "/v1/admin/catalog/integrity", suite.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var integrity struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &integrity))
	assert.True(t, integrity.Valid)

	w, env = suite.do(http.MethodPost, "/v1/admin/notifications/scan", suite.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scan struct {
		Result services.ScanResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.Equal(t, 1, scan.Result.Scanned)

	w, env = suite.do(http.MethodGet, "/v1/admin/departments", suite.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "OOPP")

	w, _ = suite.do(http.MethodPost, "/v1/admin/departments/"+suite.departmentID.String()+"/permissions", suite.adminToken, map[string]interface{}{
		"user_id": uuid.NewString(), "category": "documents", "action": "read",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodGet, "/v1/admin/catalog/integrity", suite.clerkToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
