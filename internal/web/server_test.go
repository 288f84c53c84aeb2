package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/tableclean/internal/config"
	"github.com/JonMunkholm/tableclean/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20},
		Clean: config.CleanConfig{
			SkewThreshold: 1,
			ZThreshold:    3,
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
		},
		Export:   config.ExportConfig{Dir: "exports", Format: "csv"},
		Security: config.SecurityConfig{RequestsPerMinute: 1000},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s := NewServer(core.NewService(nil, nil, cfg.Clean), cfg)
	t.Cleanup(s.limiter.stop)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ----------------------------------------------------------------------------
// Health / Metrics Tests
// ----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Runs.MaxConcurrent)
	assert.Equal(t, 2, resp.Runs.Available)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// ----------------------------------------------------------------------------
// Transform Tests
// ----------------------------------------------------------------------------

func TestTransform_BoxCoxWins(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/transform",
		`{"columns":[{"name":"x","values":[1,2,4,8,16,1000,3]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.True(t, strings.HasSuffix(resp.Lines[0], "using transform BOX_COX"), resp.Lines[0])
	require.Len(t, resp.Report.Results, 1)
	assert.NotNil(t, resp.Report.Results[0].Lambda)
}

func TestTransform_RestrictedToLog(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/transform",
		`{"columns":[{"name":"x","values":[1,2,4,8,16,1000]}],"skew":{"allowed":["log","sqrt","cube"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Column X skew was changed from 2.45 to 1.62 using transform LOG"}, resp.Lines)
}

func TestTransform_ManualAndMissing(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/transform",
		`{"columns":[{"name":"y","values":[0,1,null,9,16,25]}],"skew":{"manual":{"y":"sqrt"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Columns, 1)

	values := resp.Columns[0].Values
	require.Len(t, values, 6)
	require.NotNil(t, values[2], "sqrt maps a missing value to 0")
	assert.Equal(t, 0.0, *values[2])
	require.NotNil(t, values[3])
	assert.InDelta(t, 3.0, *values[3], 1e-9)
	assert.True(t, strings.HasSuffix(resp.Lines[0], "using transform SQRT"))
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"columns":`, http.StatusBadRequest, "PLAN002"},
		{"unknown field", `{"colums":[]}`, http.StatusBadRequest, "PLAN002"},
		{"no columns", `{"columns":[]}`, http.StatusBadRequest, "DATA001"},
		{"duplicate column", `{"columns":[{"name":"a","values":[1]},{"name":"a","values":[2]}]}`, http.StatusBadRequest, "DATA001"},
		{"unknown allowed", `{"columns":[{"name":"a","values":[1,2,3]}],"skew":{"allowed":["square"]}}`, http.StatusBadRequest, "SKW003"},
		{"box-cox domain", `{"columns":[{"name":"a","values":[-1,2,3]}],"skew":{"manual":{"a":"box_cox"}}}`, http.StatusUnprocessableEntity, "SKW001"},
		{"negative threshold", `{"columns":[{"name":"a","values":[1,2,3]}],"skew":{"threshold":-1}}`, http.StatusUnprocessableEntity, "SKW002"},
		{"strict unknown manual", `{"columns":[{"name":"a","values":[1,2,3]}],"skew":{"manual":{"a":"square"},"strict_overrides":true}}`, http.StatusUnprocessableEntity, "SKW003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())

			rec := do(t, s, http.MethodPost, "/api/transform", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestTransform_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	s := newTestServer(t, cfg)

	rec := do(t, s, http.MethodPost, "/api/transform", `{"columns":[{"name":"a","values":[1,2,3]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "exceeds 16 bytes")
}

// ----------------------------------------------------------------------------
// Table Tests
// ----------------------------------------------------------------------------

func TestTableRoutes_NoDatabase(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/tables/loans/skew", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/tables/loans/clean", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCleanTable_RejectsInput(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/tables/loans/clean", `{"input":"/etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PLAN001", decodeError(t, rec).Code)
}

// ----------------------------------------------------------------------------
// Auth / Rate Limit Tests
// ----------------------------------------------------------------------------

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1", "k2"}
	s := newTestServer(t, cfg)

	body := `{"columns":[{"name":"a","values":[1,2,3]}]}`
	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusForbidden},
		{"valid key", "k2", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transform", strings.NewReader(body))
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	// Health stays open
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequestsPerMinute = 2
	s := newTestServer(t, cfg)

	body := `{"columns":[{"name":"a","values":[1,2,3]}]}`
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/transform", body).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/transform", body).Code)

	rec := do(t, s, http.MethodPost, "/api/transform", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"SKW001", http.StatusUnprocessableEntity},
		{"PLAN001", http.StatusBadRequest},
		{"DATA001", http.StatusBadRequest},
		{"EXP001", http.StatusBadRequest},
		{"DB004", http.StatusNotFound},
		{"DB001", http.StatusBadGateway},
		{"RUN001", http.StatusServiceUnavailable},
		{"RUN003", http.StatusGatewayTimeout},
		{"ERR000", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(assert.AnError, tt.code); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
