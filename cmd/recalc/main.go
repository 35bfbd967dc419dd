// Command recalc triggers an RPI calculation for a date and waits for it to
// finish, printing the top of the resulting rankings. Intended for operators:
// backfilling a missed day, or forcing a recalculation after match data was
// corrected.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"ncaasoccer_etl/rpi/internal/cache"
	"ncaasoccer_etl/rpi/internal/config"
	"ncaasoccer_etl/rpi/internal/coordinator"
	"ncaasoccer_etl/rpi/internal/models"
	"ncaasoccer_etl/rpi/internal/repository"

	"github.com/rs/zerolog/log"
)

func main() {
	dateFlag := flag.String("date", "", "calculation date (YYYY-MM-DD, default today)")
	topFlag := flag.Int("top", 25, "number of ranked teams to print")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "how long to wait for the calculation")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	date := time.Now().UTC()
	if *dateFlag != "" {
		parsed, err := models.ParseDateKey(*dateFlag)
		if err != nil {
			log.Fatal().Err(err).Str("date", *dateFlag).Msg("Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     fmt.Sprintf("%d", cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	coordCfg := coordinator.DefaultConfig()
	coordCfg.MaxRunAge = cfg.MaxRunAge
	coordCfg.Retention = cfg.StatusRetention
	coordCfg.RetryAttempts = cfg.RetryAttempts
	coordCfg.RetryBase = cfg.RetryBase
	coordCfg.SeasonStartMonth = time.Month(cfg.SeasonStartMonth)
	coordCfg.SeasonStartDay = cfg.SeasonStartDay

	// Invalidate the cached result for the date so readers pick up the new
	// output. The coordinator does this itself after publishing, so the CLI
	// skips wiring a memory tier of its own.
	resultCache := cache.NewResultCache(cache.NewRedisDurable(redisCache), cfg.CacheTTLMemory, cfg.CacheTTLDurable)

	coord := coordinator.New(
		coordinator.NewRedisRunStore(redisCache),
		db.Matches, db.Teams, db.Results,
		resultCache,
		coordCfg,
	)

	run, started, err := coord.Request(ctx, date)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to request calculation")
	}
	if started {
		log.Info().
			Str("calculation_id", run.CalculationID).
			Str("calculation_date", run.CalculationDate).
			Msg("Calculation started")
	} else {
		log.Info().
			Str("calculation_id", run.CalculationID).
			Str("status", run.Status).
			Msg("Calculation already in flight, waiting for it")
	}

	final, err := waitForCompletion(ctx, coord, date, *timeoutFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Calculation did not complete")
	}

	log.Info().
		Str("calculation_id", final.CalculationID).
		Int("matches_processed", final.MatchesProcessed).
		Int("teams_calculated", final.TeamsCalculated).
		Msg("Calculation complete")

	printTopRankings(ctx, db, models.DateKey(date), *topFlag)
}

// waitForCompletion polls the run status until it reaches a terminal state.
func waitForCompletion(ctx context.Context, coord *coordinator.Coordinator, date time.Time, timeout time.Duration) (*models.CalculationRun, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		run, err := coord.Status(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("failed to poll status: %w", err)
		}
		switch {
		case run == nil:
			return nil, fmt.Errorf("run record vanished, it was abandoned after store errors")
		case run.Status == models.CalculationCompleted:
			return run, nil
		case run.Status == models.CalculationFailed:
			return nil, fmt.Errorf("calculation failed: %s", run.Error)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out after %s", timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printTopRankings(ctx context.Context, db *repository.Database, date string, top int) {
	snapshot, err := db.Results.SnapshotByDate(ctx, date)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load published rankings")
		return
	}
	if snapshot == nil {
		log.Warn().Str("calculation_date", date).Msg("No published rankings for date")
		return
	}

	fmt.Printf("\nRPI rankings for %s (%d teams)\n", snapshot.CalculationDate, snapshot.TotalTeams)
	fmt.Printf("%-5s %-30s %-8s %-8s %-8s %-8s %s\n", "Rank", "Team", "RPI", "WP", "OWP", "OOWP", "Record")
	for _, r := range snapshot.Results {
		if r.Rank > top {
			break
		}
		fmt.Printf("%-5d %-30s %-8.4f %-8.4f %-8.4f %-8.4f %d-%d-%d\n",
			r.Rank, r.TeamID, r.RPI, r.WP, r.OWP, r.OOWP, r.Wins, r.Losses, r.Ties)
	}
}
