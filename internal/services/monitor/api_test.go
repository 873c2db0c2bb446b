package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "test-ingest-token"
	testUser  = "admin"
	testPass  = "hunter2"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(newTestService(t), nil, RouterConfig{
		IngestToken:       testToken,
		DashboardUser:     testUser,
		DashboardPassword: testPass,
	})
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitRequiresIngestToken(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"t1": 25.0}`))
	w := do(r, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"t1": 25.0}`))
	req.Header.Set("X-Ingest-Token", "wrong")
	w = do(r, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitAcceptAndReject(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"t1": 25.0, "t2": null, "ts": null}`))
	req.Header.Set("X-Ingest-Token", testToken)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	// All temps invalid -> client error, not a server fault.
	req = httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"t1": 95.0}`))
	req.Header.Set("X-Ingest-Token", testToken)
	w = do(r, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "No valid temperature data")
}

func TestDashboardAPIRequiresBasicAuth(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), "Soil Monitor")

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.SetBasicAuth(testUser, "wrong")
	require.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.SetBasicAuth(testUser, testPass)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"t1": 42.0}`))
	req.Header.Set("X-Ingest-Token", testToken)
	require.Equal(t, http.StatusOK, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats?hours=24", nil)
	req.SetBasicAuth(testUser, testPass)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"current":42`)
	require.Contains(t, w.Body.String(), `"t2":null`)
}

func TestDebugEndpointNoData(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/debug", nil)
	req.SetBasicAuth(testUser, testPass)
	w := do(r, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "No debug data available")
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.SetBasicAuth(testUser, testPass)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"healthy"`)
	require.Contains(t, w.Body.String(), `"total_readings":0`)
}
