package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mstrand/callmeter/internal/cdr"
	"github.com/mstrand/callmeter/internal/config"
	"github.com/mstrand/callmeter/internal/ingest"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo call records",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 50, "number of demo records to generate")
	rootCmd.AddCommand(seedCmd)
}

// seedShapes rotates through realistic call shapes so the analytics reports
// have something to show on a fresh database.
var seedShapes = []struct {
	caller, called  string
	carrierID       string
	callType        string
	countryCode     string
	durationSeconds int64
}{
	{"+14155551234", "+14155559876", "carrier_001", "local", "", 45},
	{"+14155551234", "+12125554321", "carrier_001", "national", "", 180},
	{"+14155551234", "+442071234567", "carrier_001", "international", "GB", 330},
	{"+12125554321", "+4930123456", "carrier_002", "international", "DE", 615},
	{"+12125554321", "+12125558888", "carrier_002", "local", "", 25},
	{"+16505557777", "+33142123456", "carrier_003", "international", "FR", 900},
	{"+16505557777", "+13105552222", "carrier_003", "national", "", 480},
	{"+16505557777", "+81312345678", "carrier_001", "international", "JP", 1230},
	{"+14155551234", "+61298765432", "carrier_002", "international", "AU", 75},
	{"+12125554321", "+12125551111", "carrier_003", "local", "", 300},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	table, err := rates.Load(cfg.Rates.Path, cfg.Rates.DefaultCarrier)
	if err != nil {
		return err
	}

	store := cdr.NewStore(pool)
	svc := ingest.New(store, rates.NewCalculator(table), metrics.New(), 0)

	inputs := make([]cdr.Input, 0, seedCount)
	base := time.Now().UTC().Add(-time.Duration(seedCount) * time.Hour)
	for i := 0; i < seedCount; i++ {
		shape := seedShapes[i%len(seedShapes)]
		start := base.Add(time.Duration(i) * time.Hour)
		end := start.Add(time.Duration(shape.durationSeconds) * time.Second)

		inputs = append(inputs, cdr.Input{
			CallID:          fmt.Sprintf("seed_%s", uuid.NewString()),
			CallerNumber:    shape.caller,
			CalledNumber:    shape.called,
			StartTime:       start.Format(time.RFC3339),
			EndTime:         end.Format(time.RFC3339),
			DurationSeconds: shape.durationSeconds,
			CarrierID:       shape.carrierID,
			CallType:        shape.callType,
			CountryCode:     shape.countryCode,
		})
	}

	result, err := svc.SubmitBatch(ctx, inputs)
	if err != nil {
		return err
	}

	slog.Info("seed complete", "succeeded", result.SuccessCount, "failed", result.ErrorCount)
	for _, e := range result.Errors {
		slog.Warn("seed record rejected", "index", e.Index, "call_id", e.CallID, "error", e.Error)
	}
	return nil
}
