package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"ski_resort_finder/internal/adapters/observability"
	"ski_resort_finder/internal/domain"
)

type SearchConfig struct {
	StepKm        float64
	TileRadius    int
	MaxDistanceKm float64
	Timeout       time.Duration
	CacheTTL      time.Duration
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		StepKm:        30,
		TileRadius:    2,
		MaxDistanceKm: DefaultMaxDistanceKm,
		Timeout:       60 * time.Second,
		CacheTTL:      15 * time.Minute,
	}
}

// SearchDeps are the collaborators of a SearchService. Places and Geocoder
// are required; without them the service reports domain.ErrUnavailable.
type SearchDeps struct {
	Places    domain.PlacesClient
	Geocoder  domain.Geocoder
	Extractor domain.EntityExtractor
	Embedder  domain.Embedder
	Cache     domain.Cache // optional
	Geography domain.Geography
	Tiles     TileSearchConfig
	Mode      RankingMode
	TopN      int
	Weights   Weights
}

// SearchService is the single entry point of the pipeline:
// resolve → tiles → provider search → seeds → aggregate → rank.
type SearchService struct {
	resolver *LocationResolver
	tiles    *TileSearcher
	ranker   *Ranker
	geo      domain.Geography
	cache    domain.Cache
	cfg      SearchConfig
	ready    bool
}

func NewSearchService(d SearchDeps, cfg SearchConfig) *SearchService {
	def := DefaultSearchConfig()
	if cfg.StepKm <= 0 {
		cfg.StepKm = def.StepKm
	}
	if cfg.MaxDistanceKm <= 0 {
		cfg.MaxDistanceKm = def.MaxDistanceKm
	}
	if d.Weights == (Weights{}) {
		d.Weights = DefaultWeights()
	}
	s := &SearchService{
		geo:   d.Geography,
		cache: d.Cache,
		cfg:   cfg,
		ready: d.Places != nil && d.Geocoder != nil,
	}
	if s.ready {
		s.resolver = NewLocationResolver(d.Extractor, d.Geocoder, d.Geography)
		s.tiles = NewTileSearcher(d.Places, d.Geography, d.Tiles)
		s.ranker = NewRanker(d.Embedder, d.Mode, d.TopN, d.Weights)
	}
	return s
}

// Ready reports whether the service was built with its provider clients.
func (s *SearchService) Ready() bool { return s.ready }

// Search answers one free-text query. Errors are domain sentinels:
// ErrEmptyQuery, ErrNoLocation, ErrNoResults, ErrUnavailable; anything else
// is an unexpected failure.
func (s *SearchService) Search(ctx context.Context, query string) (out []domain.RankedResort, err error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if !s.ready {
		return nil, domain.ErrUnavailable
	}

	start := time.Now()
	id := uuid.NewString()
	lg := zerolog.Ctx(ctx).With().Str("search_id", id).Logger()
	ctx = lg.WithContext(ctx)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx, span := observability.StartSpan(ctx, "search",
		attribute.String("search.id", id), attribute.String("search.query", q))
	defer func() {
		observability.ObserveSearch(err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	key := s.cacheKey(q)
	if s.cache != nil {
		var cached []domain.RankedResort
		if ok, cerr := s.cache.Get(ctx, key, &cached); cerr != nil {
			lg.Debug().Err(cerr).Msg("result cache read failed")
		} else if ok && len(cached) > 0 {
			lg.Info().Int("results", len(cached)).Msg("search served from cache")
			return cached, nil
		}
	}

	loc, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	lg.Info().Str("place", loc.Place).Str("region", loc.Region).
		Float64("lat", loc.Point.Lat).Float64("lng", loc.Point.Lon).Msg("location resolved")

	cands := s.searchTiles(ctx, loc)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search %s: %w", id, err)
	}

	if reg, ok := s.geo.Region(loc.Region); ok {
		seeds := reg.SeedCandidates()
		cands = append(cands, seeds...)
		lg.Debug().Int("seeds", len(seeds)).Msg("known-region seeds added")
	}

	kept, err := Aggregate(loc.Point, s.cfg.MaxDistanceKm, cands)
	if err != nil {
		lg.Info().Int("candidates", len(cands)).Msg("no candidates survived filtering")
		return nil, err
	}

	_, rspan := observability.StartSpan(ctx, "search.rank", attribute.Int("candidates", len(kept)))
	out = s.ranker.Rank(ctx, q, kept)
	observability.EndSpan(rspan, nil)

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if cerr := s.cache.Set(ctx, key, out, int(s.cfg.CacheTTL.Seconds())); cerr != nil {
			lg.Debug().Err(cerr).Msg("result cache write failed")
		}
	}
	lg.Info().Int("candidates", len(cands)).Int("kept", len(kept)).Int("results", len(out)).
		Dur("took", time.Since(start)).Msg("search completed")
	return out, nil
}

func (s *SearchService) resolve(ctx context.Context, q string) (loc domain.Location, err error) {
	ctx, span := observability.StartSpan(ctx, "search.resolve")
	defer func() {
		if domain.IsNotFound(err) {
			observability.EndSpan(span, nil)
			return
		}
		observability.EndSpan(span, err)
	}()
	return s.resolver.Resolve(ctx, q)
}

func (s *SearchService) searchTiles(ctx context.Context, loc domain.Location) []domain.Candidate {
	tiles := GenerateTiles(loc.Point, s.cfg.StepKm, s.cfg.TileRadius)
	ctx, span := observability.StartSpan(ctx, "search.tiles", attribute.Int("tiles", len(tiles)))
	defer span.End()

	cands := s.tiles.Search(ctx, tiles)
	span.SetAttributes(attribute.Int("candidates", len(cands)))
	zerolog.Ctx(ctx).Debug().Int("tiles", len(tiles)).Int("candidates", len(cands)).Msg("tile search done")
	return cands
}

func (s *SearchService) cacheKey(q string) string {
	return fmt.Sprintf("search:v1:%s:%s", s.ranker.Mode(), strings.ToLower(q))
}
