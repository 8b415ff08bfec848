package syncer

import (
	"context"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/google/uuid"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	config "github.com/steelcageai/ti-sync/internals/configuration"
	"github.com/steelcageai/ti-sync/internals/source"
)

var (
	_metricFetchedIndicators = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "fetched_indicators_total",
		Help:        "number of indicators fetched from the source feed",
	}, []string{})
)

// TokenClient acquires a bearer token for the destination API
type TokenClient interface {
	AcquireToken(ctx context.Context, authority, tenantID, clientID, clientSecret, scope string) (string, error)
}

// Fetcher retrieves the full current indicator set from the source feed
type Fetcher interface {
	FetchAll(ctx context.Context) (*source.FetchResult, error)
}

// BatchUploader uploads partitioned batches to the destination in order
type BatchUploader interface {
	UploadAll(ctx context.Context, batches []Batch, sourceSystem, destinationURL, token string) []UploadOutcome
}

// CycleResult aggregates every UploadOutcome of one sync cycle. It is the unit
// returned to the caller and to the scheduler.
type CycleResult struct {
	TotalIndicators    int    `json:"totalIndicators"`
	UploadedIndicators int    `json:"uploadedIndicators"`
	SuccessfulBatches  int    `json:"successfulBatches"`
	FailedBatches      int    `json:"failedBatches"`
	SourceSystem       string `json:"sourceSystem"`
}

// Orchestrator composes the token client, source fetcher, partitioner and upload
// engine into one sync cycle. It is stateless per call, parameterized by Config.
type Orchestrator struct {
	cfg      Config
	tokens   TokenClient
	fetcher  Fetcher
	uploader BatchUploader
}

// NewOrchestrator returns a pointer to a new Orchestrator instance
func NewOrchestrator(cfg Config, tokens TokenClient, fetcher Fetcher, uploader BatchUploader) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		tokens:   tokens,
		fetcher:  fetcher,
		uploader: uploader,
	}
}

// RunOneCycle executes one full sync cycle: resolve cloud endpoints, acquire a
// fresh token, fetch the indicator set, partition it and upload every batch in
// order. AuthError, FetchError and ConfigError abort the cycle with no partial
// result; per-batch upload failures are isolated and reported in the CycleResult.
// Once the fetch succeeds a CycleResult is returned unconditionally, even if
// every upload fails.
func (o *Orchestrator) RunOneCycle(ctx context.Context) (*CycleResult, error) {
	cycleID := uuid.New().String()
	logger := zap.L().With(zap.String("cycleId", cycleID))

	endpoints, err := ResolveCloud(o.cfg.Cloud, o.cfg.WorkspaceID)
	if err != nil {
		return nil, err
	}

	logger.Info("Acquiring destination token", zap.String("authority", endpoints.Authority), zap.String("cloud", o.cfg.Cloud))
	token, err := o.tokens.AcquireToken(ctx, endpoints.Authority, o.cfg.TenantID, o.cfg.ClientID, o.cfg.ClientSecret, endpoints.Scope)
	if err != nil {
		logger.Error("Token acquisition failed", zap.Error(err))
		return nil, err
	}

	logger.Info("Fetching indicators", zap.String("sourceBaseUrl", o.cfg.SourceBaseURL))
	fetched, err := o.fetcher.FetchAll(ctx)
	if err != nil {
		logger.Error("Indicator fetch failed", zap.Error(err))
		return nil, err
	}
	_metricFetchedIndicators.Add(float64(len(fetched.Indicators)))
	logger.Info("Fetched indicators",
		zap.String("sourceSystem", fetched.SourceSystem),
		zap.Int("count", len(fetched.Indicators)),
		zap.Any("byType", countByType(fetched.Indicators)),
	)

	result := &CycleResult{
		TotalIndicators: len(fetched.Indicators),
		SourceSystem:    fetched.SourceSystem,
	}
	if result.TotalIndicators == 0 {
		logger.Info("Source returned no indicators, nothing to upload")
		return result, nil
	}

	batches := Partition(fetched.Indicators, o.cfg.MaxPerUpload)
	logger.Info("Partitioned indicators", zap.Int("batches", len(batches)), zap.Int("maxPerUpload", o.cfg.MaxPerUpload))

	outcomes := o.uploader.UploadAll(ctx, batches, fetched.SourceSystem, endpoints.UploadURL, token)
	for _, outcome := range outcomes {
		if outcome.Success {
			result.SuccessfulBatches++
			result.UploadedIndicators += outcome.Size
		} else {
			result.FailedBatches++
		}
	}

	logger.Info("Sync cycle finished",
		zap.Int("totalIndicators", result.TotalIndicators),
		zap.Int("uploadedIndicators", result.UploadedIndicators),
		zap.Int("successfulBatches", result.SuccessfulBatches),
		zap.Int("failedBatches", result.FailedBatches),
	)
	return result, nil
}

// countByType groups fetched indicators by their STIX type, for reporting only
func countByType(indicators []map[string]interface{}) map[string]int {
	counts := make(map[string]int)
	for _, indicator := range indicators {
		indicatorType, ok := indicator["type"].(string)
		if !ok || indicatorType == "" {
			indicatorType = "unknown"
		}
		counts[indicatorType]++
	}
	return counts
}
