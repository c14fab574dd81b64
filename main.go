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

	appinv "github.com/Zhima-Mochi/invoicebook/internal/application/inventory"
	appinvoice "github.com/Zhima-Mochi/invoicebook/internal/application/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/application/sales"
	"github.com/Zhima-Mochi/invoicebook/internal/config"
	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/id"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/pkg/logging"
	"github.com/Zhima-Mochi/invoicebook/internal/presentation/console"
	httppresentation "github.com/Zhima-Mochi/invoicebook/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/invoicebook/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConsoleLogFile = "invoicebook.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "invoicebook:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Console mode keeps stdout for prompts; logs go to a file instead.
	logFile := cfg.LogFile
	if cfg.Mode == config.ModeConsole && logFile == "" {
		logFile = defaultConsoleLogFile
	}
	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    logFile,
		Quiet:   cfg.Mode == config.ModeConsole,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	logger := zaplogger.New(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.SetupOptions{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Env:            cfg.Env,
		Endpoint:       cfg.OtelEndpoint,
		Insecure:       cfg.OtelInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			baseLogger.Warn("tracing_shutdown_error", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		infraobs.NewInstruments(prometrics.New("", "", reg)),
	)

	// In-memory event bus; committed sales and low-stock notices reach the sales worker through it.
	bus := outbox.NewBus(logger)
	sales.New(workerpresentation.NewSubscriber(bus, logger, "sales_worker"), tel).Start()
	bus.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bus.Stop(drainCtx)
	}()

	inventoryRepo, sink := buildStores(cfg)

	var (
		inventory *appinv.Service
		stock     appinvoice.Stock
	)
	if cfg.InventoryTracking {
		inventory = appinv.NewService(inventoryRepo, bus, tel, appinv.WithLowStockThreshold(cfg.LowStockThreshold))
		if err := inventory.Load(ctx); err != nil {
			return err
		}
		stock = inventory
	}
	invoices := appinvoice.NewService(memory.NewInvoiceRepository(), stock, sink, bus, id.NewUUIDGenerator(), tel)

	logger.Info("invoicebook_start",
		observability.F("mode", cfg.Mode),
		observability.F("store", cfg.Store),
		observability.F("inventory_tracking", cfg.InventoryTracking),
		observability.F("report_policy", string(cfg.ReportPolicy)),
	)

	if cfg.Mode == config.ModeHTTP {
		var inv httppresentation.Inventory
		if inventory != nil {
			inv = inventory
		}
		return serveHTTP(ctx, cfg, baseLogger, reg, httppresentation.NewHandler(invoices, inv, tel))
	}

	var inv console.Inventory
	if inventory != nil {
		inv = inventory
	}
	return runConsole(ctx, console.New(os.Stdin, os.Stdout, invoices, inv, cfg.ReportFile))
}

// runConsole returns when the session ends or a signal arrives; a read blocked on stdin is abandoned.
func runConsole(ctx context.Context, c *console.Console) error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func buildStores(cfg *config.Config) (dominv.Repository, dominvoice.ReportSink) {
	if cfg.Store == config.StoreMemory {
		return memory.NewInventoryRepository(), memory.NewReportSink(cfg.ReportPolicy)
	}
	return jsonfile.NewInventoryRepository(cfg.InventoryFile), jsonfile.NewReportSink(cfg.ReportFile, cfg.ReportPolicy)
}

func serveHTTP(ctx context.Context, cfg *config.Config, systemLogger *zap.Logger, reg *prometheus.Registry, handler *httppresentation.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			systemLogger.Error("http_server_error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
		return err
	}
	systemLogger.Info("http_server_stopped")
	return nil
}
