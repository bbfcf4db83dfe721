package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorders(t *testing.T) {
	m := New()

	m.Transition("start", "PLAN_ANUAL")
	m.Transition("start", "PLAN_ANUAL")
	m.EngineError("state", "PHASE_BLOCKED")
	m.CatalogMutation("contract_type", "create")
	m.NotificationsCreated(3)
	m.NotificationsCreated(0)

	body := scrape(t, m)
	assert.Contains(t, body, `procurement_phase_transitions_total{phase="PLAN_ANUAL",transition="start"} 2`)
	assert.Contains(t, body, `procurement_engine_errors_total{code="PHASE_BLOCKED",kind="state"} 1`)
	assert.Contains(t, body, `procurement_catalog_mutations_total{action="create",entity="contract_type"} 1`)
	assert.Contains(t, body, `procurement_phase_notifications_created_total 3`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("start", "X")
		m.EngineError("state", "X")
		m.CatalogMutation("phase", "create")
		m.Resolution("matched")
		m.NotificationsCreated(1)
		m.Request("GET", "/v1/health", "200")
	})
}
