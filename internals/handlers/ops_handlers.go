package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/steelcageai/ti-sync/internals/scheduler"
)

// StatsProvider exposes a read-only snapshot of the scheduler run state
type StatsProvider interface {
	Snapshot() scheduler.Snapshot
}

// BuildInfo carries the static, already-masked process information served by healthz
type BuildInfo struct {
	Version       string `json:"version"`
	BuildDate     string `json:"buildDate"`
	Cloud         string `json:"cloud"`
	SourceBaseURL string `json:"sourceBaseUrl"`
	MaskedAPIKey  string `json:"apiKey"`
}

// OpsHandler is a basic struct allowing to setup the read-only ops endpoints.
// It never mutates the run state; the scheduler publishes snapshots to it.
type OpsHandler struct {
	stats StatsProvider
	info  BuildInfo
}

// NewOpsHandler returns a pointer to an OpsHandler instance
func NewOpsHandler(stats StatsProvider, info BuildInfo) *OpsHandler {
	return &OpsHandler{stats: stats, info: info}
}

type healthzResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	BuildInfo
}

// Healthz godoc
// @Title Healthz
// @Description Liveness probe with a masked configuration summary
// @tags Ops
// @Resource /healthz
// @Router /healthz [get]
// @Produce json
// @Success 200 "Status OK"
func (h *OpsHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render(w, healthzResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		BuildInfo: h.info,
	})
}

// Status godoc
// @Title Status
// @Description Current run state snapshot (cycle counts, breaker state, last cycle result)
// @tags Ops
// @Resource /status
// @Router /status [get]
// @Produce json
// @Success 200 "Status OK"
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	render(w, h.stats.Snapshot())
}

func render(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("Ops response encode", zap.Error(err))
	}
}
