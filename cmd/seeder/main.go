package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ski_resort_finder/internal/adapters/observability"
	"ski_resort_finder/internal/domain"
	"ski_resort_finder/internal/shared"
	mysqlrepo "ski_resort_finder/internal/storage/mysql"
)

// seeder copies the geography tables (built-in, or GEOGRAPHY_FILE when set)
// into MySQL so the API can run with GEOGRAPHY_SOURCE=mysql.
func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	observability.SetupGlobal(cfg.AppEnv, cfg.LogLevel)

	geo := domain.DefaultGeography()
	if cfg.GeographyFile != "" {
		if geo, err = shared.LoadGeography(cfg.GeographyFile); err != nil {
			log.Fatal().Err(err).Msg("geography file")
		}
	}

	log.Info().
		Int("regions", len(geo.Regions)).
		Int("workers", cfg.SeedWorkers).
		Str("file", cfg.GeographyFile).
		Msg("seeder starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	var failed atomic.Int32

	// regions go in one at a time: insertion order is trigger priority
	for _, r := range geo.Regions {
		if err := repo.UpsertRegion(ctx, r); err != nil {
			failed.Add(1)
			log.Warn().Str("region", r.Key).Err(err).Msg("seed region failed")
			continue
		}
		log.Info().Str("region", r.Key).Int("seeds", len(r.Seeds)).Msg("region seeded")
	}

	// regions dropped from the source must not keep matching queries
	if failed.Load() == 0 {
		keep := make([]string, 0, len(geo.Regions))
		for _, r := range geo.Regions {
			keep = append(keep, r.Key)
		}
		n, err := repo.PruneRegions(ctx, keep)
		if err != nil {
			failed.Add(1)
			log.Warn().Err(err).Msg("prune regions failed")
		} else {
			log.Info().Int64("pruned", n).Msg("stale regions removed")
		}
	}

	lists := []struct {
		kind  string
		words []string
	}{
		{domain.KeywordsSearch, geo.SearchKeywords},
		{domain.KeywordsInclude, geo.IncludeKeywords},
		{domain.KeywordsExclude, geo.ExcludeKeywords},
	}
	sem := semaphore.NewWeighted(int64(max(cfg.SeedWorkers, 1)))
	var wg sync.WaitGroup

	for _, l := range lists {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(kind string, words []string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := repo.UpsertKeywords(ctx, kind, words); err != nil {
				failed.Add(1)
				log.Warn().Str("kind", kind).Err(err).Msg("seed keywords failed")
				return
			}
			log.Info().Str("kind", kind).Int("words", len(words)).Msg("keywords seeded")
		}(l.kind, l.words)
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		log.Fatal().Int32("failed", n).Msg("seeding finished with errors")
	}
	log.Info().Msg("seeding completed")
}
