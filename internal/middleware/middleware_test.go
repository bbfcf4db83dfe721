// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{"title":"Puente"}`))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	require.NoError(t, i18n.Initialize())

	userID, departmentID := uuid.New(), uuid.New()
	token, err := utils.GenerateJWT(userID, departmentID, "planner", 1)
	require.NoError(t, err)

	r := gin.New()
	r.Use(I18nMiddleware("en"))
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		gotUser, _ := utils.GetUserIDFromContext(c)
		gotDepartment, _ := utils.GetDepartmentIDFromContext(c)
		role, _ := utils.GetRoleFromContext(c)
		assert.Equal(t, userID, gotUser)
		assert.Equal(t, departmentID, gotDepartment)
		assert.Equal(t, "planner", role)
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/public", OptionalAuth(), func(c *gin.Context) {
		_, ok := utils.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Token " + token}}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer garbage"}}).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + token}}).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", http.Header{"Authorization": {"Bearer " + token}}).Code)

	w := serve(r, http.MethodGet, "/public", nil)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	w = serve(r, http.MethodGet, "/public", http.Header{"Authorization": {"Bearer " + token}})
	assert.JSONEq(t, `{"authenticated":true}`, w.Body.String())
}

func TestI18nMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware("es"))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, utils.GetLangFromContext(c)) })

	tests := map[string]string{
		"":                      "es",
		"en-US,en;q=0.9":        "en",
		"es_EC":                 "es",
		"fr-FR,fr;q=0.9,en;q=1": "es",
	}
	for header, want := range tests {
		h := http.Header{}
		if header != "" {
			h.Set("Accept-Language", header)
		}
		assert.Equal(t, want, serve(r, http.MethodGet, "/lang", h).Body.String(), header)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ping", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/ping", nil).Code)

	limiter.evict(time.Now().Add(time.Minute))
	assert.Empty(t, limiter.visitors)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ping", nil).Code, "evicted visitors start with a full bucket")
}

type recordingWriter struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	done    chan struct{}
}

func (w *recordingWriter) Create(ctx context.Context, entry *models.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	close(w.done)
	return nil
}

func TestAuditLogMiddleware(t *testing.T) {
	writer := &recordingWriter{done: make(chan struct{})}
	r := gin.New()
	r.Use(AuditLogMiddleware(writer))
	r.GET("/v1/contracts", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/v1/contracts/:id/advance", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/v1/contracts", nil)
	id := uuid.New()
	serve(r, http.MethodPost, "/v1/contracts/"+id.String()+"/advance", nil)

	select {
	case <-writer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not written")
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, "contracts", entry.ResourceType)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, id, *entry.ResourceID)
	assert.Equal(t, "Puente", entry.NewValues["title"])
}

func TestExtractResourceType(t *testing.T) {
	assert.Equal(t, "amount-ranges", extractResourceType("/v1/amount-ranges/123"))
	assert.Equal(t, "notifications", extractResourceType("/v1/admin/notifications/scan"))
	assert.Equal(t, "health", extractResourceType("/health"))
	assert.Equal(t, "unknown", extractResourceType("/"))
}
