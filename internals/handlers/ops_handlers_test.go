package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcageai/ti-sync/internals/scheduler"
	"github.com/steelcageai/ti-sync/internals/syncer"
)

type fakeStats struct {
	snapshot scheduler.Snapshot
}

func (f *fakeStats) Snapshot() scheduler.Snapshot {
	return f.snapshot
}

func TestHealthz(t *testing.T) {
	handler := NewOpsHandler(&fakeStats{}, BuildInfo{
		Version:       "1.2.3",
		Cloud:         "public",
		SourceBaseURL: "http://localhost:8080",
		MaskedAPIKey:  "key-****-123",
	})

	rec := httptest.NewRecorder()
	handler.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "1.2.3", payload["version"])
	assert.Equal(t, "public", payload["cloud"])
	assert.Equal(t, "key-****-123", payload["apiKey"])
}

func TestStatus(t *testing.T) {
	stats := &fakeStats{snapshot: scheduler.Snapshot{
		Running: true,
		State: scheduler.RunState{
			CycleCount:           3,
			ConsecutiveFailures:  1,
			TotalUploadedAllTime: 120,
		},
		LastCycle: &syncer.CycleResult{
			TotalIndicators:    50,
			UploadedIndicators: 40,
			SuccessfulBatches:  4,
			FailedBatches:      1,
			SourceSystem:       "X-GEN TI",
		},
	}}
	handler := NewOpsHandler(stats, BuildInfo{})

	rec := httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot scheduler.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.Running)
	assert.Equal(t, 3, snapshot.State.CycleCount)
	require.NotNil(t, snapshot.LastCycle)
	assert.Equal(t, 40, snapshot.LastCycle.UploadedIndicators)
	assert.Equal(t, "X-GEN TI", snapshot.LastCycle.SourceSystem)
}
