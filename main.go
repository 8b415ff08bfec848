package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/steelcageai/ti-sync/internals/auth"
	config "github.com/steelcageai/ti-sync/internals/configuration"
	"github.com/steelcageai/ti-sync/internals/handlers"
	"github.com/steelcageai/ti-sync/internals/helpers"
	"github.com/steelcageai/ti-sync/internals/router"
	"github.com/steelcageai/ti-sync/internals/scheduler"
	"github.com/steelcageai/ti-sync/internals/source"
	"github.com/steelcageai/ti-sync/internals/syncer"
)

var (
	// Version is the binary version (tag) + build number (CI pipeline)
	Version string
	// BuildDate is the date of build
	BuildDate string
)

func main() {
	hostname, _ := os.Hostname()
	config.InitMetricLabels(hostname)

	helpers.InitializeConfig(config.AllowedConfigKey, config.ConfigName, config.ConfigPath, config.EnvPrefix)
	helpers.InitLogger(viper.GetBool("LOGGER_PRODUCTION"))

	zap.L().Info("Starting TI-Sync...", zap.String("version", Version), zap.String("build_date", BuildDate))

	cfg := syncer.Config{
		TenantID:      viper.GetString("TENANT_ID"),
		ClientID:      viper.GetString("CLIENT_ID"),
		ClientSecret:  viper.GetString("CLIENT_SECRET"),
		WorkspaceID:   viper.GetString("WORKSPACE_ID"),
		Cloud:         viper.GetString("CLOUD"),
		SourceBaseURL: viper.GetString("SOURCE_BASE_URL"),
		SourceAPIKey:  viper.GetString("SOURCE_API_KEY"),
		MaxPerUpload:  viper.GetInt("MAX_PER_UPLOAD"),
		BatchDelay:    time.Duration(viper.GetInt("BATCH_DELAY_MS")) * time.Millisecond,
		DryRun:        viper.GetBool("DEBUG_DRY_RUN_UPLOAD"),
	}
	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("Configuration validation", zap.Error(err))
	}
	// Unsupported clouds are fatal at startup, before any network call
	if _, err := syncer.ResolveCloud(cfg.Cloud, cfg.WorkspaceID); err != nil {
		zap.L().Fatal("Cloud resolution", zap.Error(err))
	}

	zap.L().Info("Configuration resolved",
		zap.String("cloud", cfg.Cloud),
		zap.String("sourceBaseUrl", cfg.SourceBaseURL),
		zap.String("sourceApiKey", helpers.MaskSensitive(cfg.SourceAPIKey)),
		zap.Int("maxPerUpload", cfg.MaxPerUpload),
		zap.Bool("dryRun", cfg.DryRun),
	)

	tokens := auth.NewClient(30 * time.Second)
	fetcher := source.NewFetcher(cfg.SourceBaseURL, cfg.SourceAPIKey, 60*time.Second)
	uploader := syncer.NewUploader(cfg.BatchDelay, 2*time.Minute, cfg.DryRun)
	orchestrator := syncer.NewOrchestrator(cfg, tokens, fetcher, uploader)

	interval := time.Duration(viper.GetInt("SYNC_INTERVAL_MINUTES")) * time.Minute
	sched := scheduler.New(orchestrator, interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-done
		zap.L().Info("Received termination signal", zap.String("signal", sig.String()))
		cancel()
	}()

	var srv *http.Server
	if viper.GetBool("HTTP_SERVER_ENABLED") {
		ops := handlers.NewOpsHandler(sched, handlers.BuildInfo{
			Version:       Version,
			BuildDate:     BuildDate,
			Cloud:         cfg.Cloud,
			SourceBaseURL: cfg.SourceBaseURL,
			MaskedAPIKey:  helpers.MaskSensitive(cfg.SourceAPIKey),
		})
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%d", viper.GetInt("HTTP_SERVER_PORT")),
			Handler: router.New(ops),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Fatal("Ops server listen", zap.Error(err))
			}
		}()
		zap.L().Info("Ops server started", zap.String("addr", srv.Addr))
	}

	exitCode := 0
	if viper.GetBool("SYNC_RUN_ONCE") {
		result, err := sched.RunOnce(ctx)
		switch {
		case err != nil:
			zap.L().Error("Sync cycle failed", zap.Error(err))
			exitCode = 1
		case result.TotalIndicators > 0 && result.SuccessfulBatches == 0:
			zap.L().Error("Sync cycle uploaded nothing",
				zap.Int("totalIndicators", result.TotalIndicators),
				zap.Int("failedBatches", result.FailedBatches),
			)
			exitCode = 1
		default:
			zap.L().Info("Sync cycle completed",
				zap.Int("totalIndicators", result.TotalIndicators),
				zap.Int("uploadedIndicators", result.UploadedIndicators),
				zap.Int("successfulBatches", result.SuccessfulBatches),
				zap.Int("failedBatches", result.FailedBatches),
			)
		}
	} else {
		state, err := sched.Run(ctx)
		if errors.Is(err, scheduler.ErrCircuitOpen) {
			exitCode = 1
		}
		zap.L().Info("Sync loop stopped",
			zap.Int("cycleCount", state.CycleCount),
			zap.Int("totalUploadedAllTime", state.TotalUploadedAllTime),
			zap.Int("consecutiveFailures", state.ConsecutiveFailures),
			zap.Bool("circuitTripped", state.CircuitTripped),
		)
	}

	if srv != nil {
		ctxShutDown, cancelShutDown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutDown()
		if err := srv.Shutdown(ctxShutDown); err != nil {
			zap.L().Error("Ops server shutdown failed", zap.Error(err))
		}
		zap.L().Info("Ops server shutdown")
	}

	_ = zap.L().Sync()
	os.Exit(exitCode)
}
