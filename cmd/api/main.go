package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"ski_resort_finder/internal/adapters/embedding"
	"ski_resort_finder/internal/adapters/geocache"
	"ski_resort_finder/internal/adapters/google"
	server "ski_resort_finder/internal/adapters/http_server"
	"ski_resort_finder/internal/adapters/nlp"
	"ski_resort_finder/internal/adapters/observability"
	redisad "ski_resort_finder/internal/adapters/redis"
	"ski_resort_finder/internal/app"
	"ski_resort_finder/internal/domain"
	"ski_resort_finder/internal/shared"
	mysqlrepo "ski_resort_finder/internal/storage/mysql"
)

func main() {
	query := flag.String("query", "", "run one search, print the results as JSON and exit")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// set global logger (console in dev, JSON otherwise)
	observability.SetupGlobal(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geo, err := loadGeography(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.GeographySource).Msg("geography load failed")
	}
	log.Info().Str("source", cfg.GeographySource).Int("regions", len(geo.Regions)).Msg("geography loaded")

	deps, closeDeps := buildDeps(ctx, cfg, geo)
	defer closeDeps()

	svc := app.NewSearchService(deps, app.SearchConfig{
		StepKm:        cfg.TileStepKm,
		TileRadius:    cfg.TileRadius,
		MaxDistanceKm: cfg.MaxDistanceKm,
		Timeout:       cfg.SearchTimeout,
		CacheTTL:      cfg.SearchCacheTTL,
	})

	if *query != "" {
		code := runOnce(ctx, svc, *query)
		closeDeps()
		stop()
		os.Exit(code)
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// http
	srv := server.New(server.Options{
		Timeout:     cfg.SearchTimeout + 15*time.Second,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: svc, APIKeyConfigured: cfg.APIKeyConfigured()})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Bool("ready", svc.Ready()).Str("ranking", cfg.RankingMode).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// buildDeps wires the provider clients. A missing API key leaves Places and
// Geocoder nil so the service answers Unavailable instead of failing startup.
func buildDeps(ctx context.Context, cfg shared.Config, geo domain.Geography) (app.SearchDeps, func()) {
	mode, err := app.ParseRankingMode(cfg.RankingMode)
	if err != nil {
		log.Fatal().Err(err).Msg("ranking mode")
	}
	deps := app.SearchDeps{
		Extractor: nlp.NewExtractor(),
		Geography: geo,
		Tiles: app.TileSearchConfig{
			RadiusKm:      cfg.SearchRadiusKm,
			Workers:       cfg.TileWorkers,
			EnrichDetails: cfg.EnrichDetails,
		},
		Mode: mode,
		TopN: cfg.RankingTopN,
		Weights: app.Weights{
			Similarity: cfg.WeightSimilarity,
			Proximity:  cfg.WeightProximity,
			Rating:     cfg.WeightRating,
			NormKm:     cfg.RankingNormKm,
		},
	}
	closers := []func(){}

	if cfg.APIKeyConfigured() {
		client, err := google.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS,
			google.WithMaxRetries(cfg.PlacesMaxRetries),
			google.WithPageDelay(cfg.PlacesPageDelay),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize places client")
		}
		deps.Places = client
		deps.Geocoder = geocache.New(client, cfg.GeocodeCacheSize)
	}

	if mode != app.ModeRating {
		switch cfg.EmbeddingBackend {
		case shared.EmbeddingHTTP:
			e, err := embedding.NewHTTP(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingKey)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to initialize embedding client")
			}
			deps.Embedder = e
			log.Info().Str("model", cfg.EmbeddingModel).Msg("remote embeddings enabled")
		case shared.EmbeddingHashing:
			deps.Embedder = embedding.NewHashing(0)
			log.Info().Msg("offline hashing embeddings enabled")
		default:
			e, err := embedding.NewHugot(cfg.EmbeddingModelPath)
			if err != nil {
				// ranker degrades to rating order without an embedder
				log.Error().Err(err).Str("path", cfg.EmbeddingModelPath).Msg("embedding model not loaded")
				break
			}
			deps.Embedder = e
			closers = append(closers, func() { _ = e.Close() })
			log.Info().Str("path", cfg.EmbeddingModelPath).Msg("embedding model loaded")
		}
	}

	if cfg.RedisAddr != "" {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, result cache disabled")
			_ = cache.Close()
		} else {
			deps.Cache = cache
			closers = append(closers, func() { _ = cache.Close() })
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis result cache enabled")
		}
	}

	return deps, func() {
		for _, c := range closers {
			c()
		}
	}
}

func loadGeography(ctx context.Context, cfg shared.Config) (domain.Geography, error) {
	switch cfg.GeographySource {
	case shared.GeographyFile:
		return shared.LoadGeography(cfg.GeographyFile)
	case shared.GeographyMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return domain.Geography{}, fmt.Errorf("sql.Open: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return domain.Geography{}, fmt.Errorf("db.Ping: %w", err)
		}
		g, err := mysqlrepo.New(db).LoadGeography(ctx)
		if err != nil {
			return domain.Geography{}, err
		}
		g = shared.MergeGeography(g, domain.DefaultGeography())
		return g, shared.ValidateGeography(g)
	default:
		return domain.DefaultGeography(), nil
	}
}

func runOnce(ctx context.Context, svc *app.SearchService, q string) int {
	res, err := svc.Search(ctx, q)
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		fmt.Fprintln(os.Stderr, "No ski resorts found for the given query")
		return 1
	default:
		log.Error().Err(err).Str("query", q).Msg("search failed")
		return 2
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Error().Err(err).Msg("encode results")
		return 2
	}
	return 0
}
