package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(checks map[string]Check) *Server {
	return NewServer(":0", "test", checks, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantHealth string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name: "healthy database",
			checks: map[string]Check{
				"database": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name: "redis down",
			checks: map[string]Check{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(tt.checks), "/health")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantHealth, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestServer_Ready(t *testing.T) {
	s := newTestServer(nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, "/health/ready").Code)

	s.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(s, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(s, "/health/live").Code)
}

func TestServer_Metrics(t *testing.T) {
	RecordsLoaded.Add(3)

	rec := serve(newTestServer(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "clover_ingest_records_loaded_total"))
}

func TestServer_UnknownRoute(t *testing.T) {
	rec := serve(newTestServer(nil), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not Found", body.Message)
}
