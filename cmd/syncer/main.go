package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/freightops/ordersync/internal/audit"
	"github.com/freightops/ordersync/internal/config"
	"github.com/freightops/ordersync/internal/core"
	"github.com/freightops/ordersync/internal/logging"
	"github.com/freightops/ordersync/internal/salesforce"
	"github.com/freightops/ordersync/internal/store"
	"github.com/freightops/ordersync/internal/web"
)

func main() {
	serve := flag.Bool("serve", false, "run as an HTTP service instead of a one-shot sync")
	flag.Parse()

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Source store session: acquired once, released at exit. A failure
	// here is fatal; no partial processing is attempted.
	src, err := store.Connect(ctx, cfg.Mongo)
	if err != nil {
		slog.Error("failed to connect to source store", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := src.Close(closeCtx); err != nil {
			slog.Error("failed to close source store", "error", err)
		}
	}()

	// CRM session: same fatal treatment.
	crm, err := salesforce.Login(ctx, salesforce.Config{
		Username:      cfg.Salesforce.Username,
		Password:      cfg.Salesforce.Password,
		SecurityToken: cfg.Salesforce.SecurityToken,
		Domain:        cfg.Salesforce.Domain,
		ClientID:      cfg.Salesforce.ClientID,
		APIVersion:    cfg.Salesforce.APIVersion,
		Timeout:       cfg.Salesforce.Timeout,
	})
	if err != nil {
		slog.Error("failed to connect to Salesforce", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Salesforce", "instance", crm.InstanceURL())

	// The run recorder is optional; a failure to open it degrades to
	// log-only history rather than blocking the sync.
	recorder, err := audit.Open(ctx, cfg.Audit.DatabaseURL)
	if err != nil {
		slog.Warn("run auditing disabled", "error", err)
		recorder = nil
	}
	defer recorder.Close()

	transformer := core.NewTransformer(
		cfg.Sync.CustomerPlaceholder,
		cfg.Sync.ShipmentPlaceholder,
		cfg.Sync.DateFallback,
	)
	resolver := core.NewAccountResolver(crm, slog.Default())
	sink := core.NewOpportunitySink(crm, slog.Default())
	pipeline := core.NewPipeline(src, transformer, resolver, sink, cfg.Sync.Workers, slog.Default())

	if *serve {
		server := web.NewServer(pipeline, recorder)
		if err := server.ListenAndServe(ctx, cfg.Server.Addr(),
			cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout); err != nil {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	runID := uuid.New()
	logger := logging.WithFields(ctx, "run_id", runID)
	logger.Info("sync run starting")

	started := time.Now().UTC()
	summary, runErr := pipeline.Run(ctx)
	finished := time.Now().UTC()

	rec := audit.RunRecord{
		ID:         runID,
		Trigger:    "cli",
		StartedAt:  started,
		FinishedAt: finished,
		Total:      summary.Total,
		Skipped:    summary.Skipped,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
	}
	if runErr != nil {
		rec.Fatal = runErr.Error()
	}
	if err := recorder.RecordRun(ctx, rec); err != nil {
		logger.Error("failed to record run", "error", err)
	}

	logger.Info("sync run finished",
		"total", summary.Total, "skipped", summary.Skipped,
		"succeeded", summary.Succeeded, "failed", summary.Failed,
		"duration", finished.Sub(started))

	// Partial per-record failures still exit 0; only a broken session
	// or scan is a hard failure.
	if runErr != nil {
		logger.Error("sync run aborted", "error", runErr)
		os.Exit(1)
	}
}
