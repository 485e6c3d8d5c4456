package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muniflow/internal/async"
	"muniflow/internal/dispatch"
	"muniflow/internal/domain"
	"muniflow/internal/exporter"
	"muniflow/internal/viewmodel"
)

type nopHub struct{}

func (nopHub) BroadcastUpdate(event string, payload any) {}

type fixture struct {
	repo        *domain.MemoryRepository
	vm          *viewmodel.EnterpriseViewModel
	broadcaster *async.Broadcaster
	server      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := domain.NewMemoryRepository()
	broadcaster := async.NewBroadcaster(nopHub{}, logger)
	t.Cleanup(broadcaster.Stop)

	loadExecutor := async.NewExecutor(logger, async.WithBroadcaster(broadcaster))
	t.Cleanup(loadExecutor.Close)
	vm := viewmodel.NewEnterpriseViewModel(logger, repo, dispatch.Synchronous{}, loadExecutor, 0)

	dir := t.TempDir()
	exportExecutor := async.NewExecutor(logger, async.WithBroadcaster(broadcaster))
	t.Cleanup(exportExecutor.Close)
	reports := viewmodel.NewReportExporter(logger, repo, exportExecutor,
		exporter.NewCSVWriter(dir, false, logger),
		exporter.NewExcelWriter(dir, logger))

	handler := NewHandler(logger, vm, reports, broadcaster)
	server := httptest.NewServer(handler.Routes(RouterConfig{}))
	t.Cleanup(server.Close)

	return &fixture{repo: repo, vm: vm, broadcaster: broadcaster, server: server}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func (f *fixture) post(t *testing.T, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	resp, err := http.Post(f.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestEnterprisesEmptyBeforeLoad(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/enterprises")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var enterprises []domain.Enterprise
	require.NoError(t, json.Unmarshal(body, &enterprises))
	assert.Empty(t, enterprises)
}

func TestLoadThenReadEnterprises(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/api/enterprises/load", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return f.repo.FetchCount() > 0 && !f.vm.Executor().Running()
	}, 2*time.Second, 10*time.Millisecond)

	resp, body := f.get(t, "/api/enterprises")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var enterprises []domain.Enterprise
	require.NoError(t, json.Unmarshal(body, &enterprises))
	assert.Len(t, enterprises, 4)
}

func TestLoadConflictWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.repo.SetLatency(300 * time.Millisecond)

	resp, _ := f.post(t, "/api/enterprises/load", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return f.vm.Executor().Running()
	}, time.Second, 5*time.Millisecond)

	resp, body := f.post(t, "/api/enterprises/refresh", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var apiErr map[string]any
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "ALREADY_RUNNING", apiErr["error_code"])
}

func TestSummaryAfterLoad(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.vm.Load(context.Background()))

	resp, body := f.get(t, "/api/summary")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var summary viewmodel.BudgetSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 4, summary.EnterpriseRows)
	assert.Equal(t, 3, summary.ActiveCount)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/api/export", map[string]string{"format": "csv"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Path  string               `json:"path"`
		Steps []async.ProgressStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.FileExists(t, result.Path)
	require.Len(t, result.Steps, 3)
	for _, step := range result.Steps {
		assert.True(t, step.IsCompleted)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/api/export", map[string]string{"format": "pdf"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr map[string]any
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "VALIDATION_FAILED", apiErr["error_code"])
}

func TestOperationsListAndLookup(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.vm.Load(context.Background()))

	var snapshots []*async.OperationSnapshot
	require.Eventually(t, func() bool {
		_, body := f.get(t, "/api/operations")
		snapshots = nil
		return json.Unmarshal(body, &snapshots) == nil && len(snapshots) > 0
	}, 2*time.Second, 10*time.Millisecond, "the broadcaster records the load operation")

	resp, _ := f.get(t, "/api/operations/"+snapshots[0].OperationID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.get(t, "/api/operations/no-such-id")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var apiErr map[string]any
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "OPERATION_NOT_FOUND", apiErr["error_code"])
}

func TestCancelEndpoint(t *testing.T) {
	f := newFixture(t)
	f.repo.SetLatency(5 * time.Second)

	go f.vm.Load(context.Background())
	require.Eventually(t, func() bool {
		return f.vm.Executor().Running()
	}, time.Second, 5*time.Millisecond)

	resp, _ := f.post(t, "/api/operations/cancel", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return !f.vm.Executor().Running()
	}, 2*time.Second, 10*time.Millisecond, "cancellation frees the guard")

	// The epoch was reset, so a fresh load works.
	f.repo.SetLatency(0)
	require.NoError(t, f.vm.Load(context.Background()))
}

func TestRateLimitRejectsBursts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := domain.NewMemoryRepository()
	broadcaster := async.NewBroadcaster(nopHub{}, logger)
	t.Cleanup(broadcaster.Stop)
	executor := async.NewExecutor(logger)
	t.Cleanup(executor.Close)
	vm := viewmodel.NewEnterpriseViewModel(logger, repo, dispatch.Synchronous{}, executor, 0)

	handler := NewHandler(logger, vm, nil, broadcaster)
	server := httptest.NewServer(handler.Routes(RouterConfig{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}))
	t.Cleanup(server.Close)

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "a burst over the limit must hit 429")
}
