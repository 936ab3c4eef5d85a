package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/refresh"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

func main() {
	installationID := lflag.String("seed-installation-id", "12345", "Installation id stored with the seeded data")
	interval := lflag.String("seed-interval", types.DefaultRefreshInterval, "Spacing between seeded snapshots")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	if err := s.SetConfig(ctx, types.RefreshConfig{InstallationID: *installationID, RefreshInterval: *interval}.WithDefaults()); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed config", "error", err)
		os.Exit(1)
	}

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	last, err := seedDay(ctx, s, time.Now(), refresh.ParseInterval(*interval), rng)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed snapshots", "error", err)
		os.Exit(1)
	}

	if !last.IsZero() {
		if err := s.SetLastRefresh(ctx, last); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed last refresh", "error", err)
			os.Exit(1)
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data successfully")
}

const (
	SolarPeakW       = 6500.0
	LifetimeStartWh  = 31.2e6
	MonthStartWh     = 380e3
	WeekStartWh      = 70e3
	SolarNoonHour    = 13.0
	SolarSpreadHours = 12.0
)

// seedDay inserts one snapshot per step from local midnight up to now and
// returns the time of the last one.
func seedDay(ctx context.Context, s storage.Database, now time.Time, step time.Duration, rng *rand.Rand) (time.Time, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var todayWh float64
	var last time.Time
	for t := start; t.Before(now); t = t.Add(step) {
		// Solar (bell curve)
		hour := float64(t.Hour()) + float64(t.Minute())/60
		currentW := 0.0
		if hour > 6 && hour < 20 {
			dist := hour - SolarNoonHour
			currentW = SolarPeakW * math.Exp(-(dist*dist)/SolarSpreadHours)
			// clouds
			currentW *= 0.8 + rng.Float64()*0.2
		}
		todayWh += currentW * step.Hours()

		snapshot := types.Snapshot{
			CurrentWatts:      math.Round(currentW),
			TodayWattHours:    math.Round(todayWh),
			WeekWattHours:     math.Round(WeekStartWh + todayWh),
			MonthWattHours:    math.Round(MonthStartWh + todayWh),
			LifetimeWattHours: math.Round(LifetimeStartWh + todayWh),
			FetchedAt:         t,
		}
		if err := s.InsertSnapshot(ctx, snapshot); err != nil {
			return last, fmt.Errorf("failed to insert snapshot at %s: %w", t, err)
		}
		last = t

		fmt.Printf("Seeded snapshot at %s: %s\n", t.Format(time.Kitchen), snapshot)
	}
	return last, nil
}
