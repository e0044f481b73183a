package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/services"
)

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	cfg := services.IndexServiceConfig{
		SnapshotPath: filepath.Join(dir, "hinosemi_stats.json"),
		SeriesPath:   filepath.Join(dir, "hinosemi_intraday.csv"),
	}
	h := NewHealthHandler(services.NewHealthService("1.2.3", services.NewIndexService(cfg, nil, logger), nil), logger)

	rec := httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)

	rec = httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")

	snapshot := `{"key":"HINOSEMI","pct_intraday":0.5,"updated_at":"2025/03/14 10:05","unit":"pct","tickers":["8035.T"]}`
	require.NoError(t, os.WriteFile(cfg.SnapshotPath, []byte(snapshot), 0o644))

	rec = httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}
