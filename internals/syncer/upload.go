package syncer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	jsoniter "github.com/json-iterator/go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	config "github.com/steelcageai/ti-sync/internals/configuration"
)

var (
	_metricUploadBatches = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "upload_batches_total",
		Help:        "number of uploaded batches by outcome",
	}, []string{"status"})
	_metricUploadIndicators = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "upload_indicators_total",
		Help:        "number of successfully uploaded indicators",
	}, []string{})
)

// UploadOutcome records the result of one batch upload attempt. A failed batch is
// never retried within a cycle; retry happens only via the next scheduled cycle.
type UploadOutcome struct {
	BatchIndex int
	Size       int
	Success    bool
	HTTPStatus int
	ErrorBody  string
}

// Uploader POSTs indicator batches to the destination ingestion API
type Uploader struct {
	httpClient             *http.Client
	delay                  time.Duration
	dryRun                 bool
	metricUploadBatches    metrics.Counter
	metricUploadIndicators metrics.Counter
}

// NewUploader returns a pointer to a new Uploader instance.
// delay is inserted between consecutive batches, never after the last one.
func NewUploader(delay time.Duration, timeout time.Duration, dryRun bool) *Uploader {
	return &Uploader{
		httpClient:             &http.Client{Timeout: timeout},
		delay:                  delay,
		dryRun:                 dryRun,
		metricUploadBatches:    _metricUploadBatches,
		metricUploadIndicators: _metricUploadIndicators,
	}
}

type uploadRequest struct {
	SourceSystem string `json:"sourcesystem"`
	StixObjects  Batch  `json:"stixobjects"`
}

// UploadBatch POSTs a single batch with bearer-token authorization.
// Any 2xx response is a success; on failure the HTTP status and, best-effort,
// the response body are captured in the outcome.
func (u *Uploader) UploadBatch(ctx context.Context, batchIndex int, batch Batch, sourceSystem, destinationURL, token string) UploadOutcome {
	// Both fields are mandatory per the destination contract. An empty value here
	// is a programming error upstream, not a runtime condition.
	if sourceSystem == "" || len(batch) == 0 {
		panic("uploader: sourcesystem and stixobjects are mandatory")
	}

	outcome := UploadOutcome{BatchIndex: batchIndex, Size: len(batch)}

	if u.dryRun {
		zap.L().Info("Dry-run: skipping batch upload", zap.Int("batchIndex", batchIndex), zap.Int("size", len(batch)))
		outcome.Success = true
		return outcome
	}

	body, err := jsoniter.Marshal(uploadRequest{SourceSystem: sourceSystem, StixObjects: batch})
	if err != nil {
		outcome.ErrorBody = fmt.Sprintf("marshal error: %v", err)
		u.metricUploadBatches.With("status", "failure").Add(1)
		return outcome
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationURL, bytes.NewReader(body))
	if err != nil {
		outcome.ErrorBody = fmt.Sprintf("create request error: %v", err)
		u.metricUploadBatches.With("status", "failure").Add(1)
		return outcome
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		outcome.ErrorBody = fmt.Sprintf("http error: %v", err)
		u.metricUploadBatches.With("status", "failure").Add(1)
		return outcome
	}
	defer resp.Body.Close()

	outcome.HTTPStatus = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		outcome.Success = true
		u.metricUploadBatches.With("status", "success").Add(1)
		u.metricUploadIndicators.Add(float64(len(batch)))
		return outcome
	}

	// Best-effort body capture: a read failure must not mask the HTTP failure itself.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Warn("Could not read upload error response body", zap.Int("batchIndex", batchIndex), zap.Error(err))
	} else {
		outcome.ErrorBody = string(respBody)
	}
	u.metricUploadBatches.With("status", "failure").Add(1)
	return outcome
}

// UploadAll uploads every batch in order, strictly sequentially, and records one
// outcome per batch. A single batch failure does not stop subsequent batches.
// The inter-batch delay applies only after a successful non-final batch; failures
// proceed to the next batch immediately.
func (u *Uploader) UploadAll(ctx context.Context, batches []Batch, sourceSystem, destinationURL, token string) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(batches))
	for i, batch := range batches {
		outcome := u.UploadBatch(ctx, i, batch, sourceSystem, destinationURL, token)
		if outcome.Success {
			zap.L().Info("Batch uploaded", zap.Int("batchIndex", i), zap.Int("size", outcome.Size), zap.Int("httpStatus", outcome.HTTPStatus))
		} else {
			zap.L().Error("Batch upload failed", zap.Int("batchIndex", i), zap.Int("size", outcome.Size),
				zap.Int("httpStatus", outcome.HTTPStatus), zap.String("errorBody", outcome.ErrorBody))
		}
		outcomes = append(outcomes, outcome)

		if outcome.Success && i < len(batches)-1 && u.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(u.delay):
			}
		}
	}
	return outcomes
}
