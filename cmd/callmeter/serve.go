package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mstrand/callmeter/internal/analytics"
	"github.com/mstrand/callmeter/internal/api"
	"github.com/mstrand/callmeter/internal/cdr"
	"github.com/mstrand/callmeter/internal/config"
	"github.com/mstrand/callmeter/internal/export"
	"github.com/mstrand/callmeter/internal/ingest"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the callmeter API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	table, err := rates.Load(cfg.Rates.Path, cfg.Rates.DefaultCarrier)
	if err != nil {
		return err
	}
	slog.Info("rate table loaded", "carriers", table.CarrierCount(), "default_carrier", table.DefaultCarrier())

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	store := cdr.NewStore(pool)
	calc := rates.NewCalculator(table)
	ingestSvc := ingest.New(store, calc, m, cfg.Ingest.MaxBatchSize)
	engine := analytics.NewEngine(store)
	exportSvc := export.NewService(store)

	router := api.NewRouter(api.RouterDeps{
		Ingest:         ingestSvc,
		Records:        store,
		Analytics:      engine,
		Export:         exportSvc,
		Rates:          table,
		Metrics:        m,
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
