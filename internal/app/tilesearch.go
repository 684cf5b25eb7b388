package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"ski_resort_finder/internal/adapters/observability"
	"ski_resort_finder/internal/domain"
)

// maxPagesPerTile caps pagination; the provider serves at most three pages.
const maxPagesPerTile = 3

type TileSearchConfig struct {
	RadiusKm      float64
	Workers       int
	EnrichDetails bool
}

// TileSearcher runs the provider call sequence for every tile on a bounded
// worker pool and merges the per-tile results once all workers are done.
type TileSearcher struct {
	places domain.PlacesClient
	geo    domain.Geography
	cfg    TileSearchConfig
}

func NewTileSearcher(p domain.PlacesClient, geo domain.Geography, cfg TileSearchConfig) *TileSearcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 50
	}
	return &TileSearcher{places: p, geo: geo, cfg: cfg}
}

// Search returns the concatenation of every tile's candidates in tile order.
// A failing tile contributes what it collected before the failure.
func (s *TileSearcher) Search(ctx context.Context, tiles []domain.GeoPoint) []domain.Candidate {
	perTile := make([][]domain.Candidate, len(tiles))
	memo := newDetailsMemo(s.places)
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var wg sync.WaitGroup

	for i, p := range tiles {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("tile", i).Msg("tile pool stopped")
			break
		}
		wg.Add(1)
		go func(i int, p domain.GeoPoint) {
			defer wg.Done()
			defer sem.Release(1)
			perTile[i] = s.searchTile(ctx, memo, i, p)
		}(i, p)
	}
	wg.Wait()

	n := 0
	for _, c := range perTile {
		n += len(c)
	}
	out := make([]domain.Candidate, 0, n)
	for _, c := range perTile {
		out = append(out, c...)
	}
	return out
}

func (s *TileSearcher) searchTile(ctx context.Context, memo *detailsMemo, idx int, center domain.GeoPoint) []domain.Candidate {
	lg := zerolog.Ctx(ctx).With().Int("tile", idx).Logger()
	q := domain.NearbyQuery{
		Center:   center,
		RadiusM:  int(s.cfg.RadiusKm * 1000),
		Keywords: s.geo.SearchKeywords,
	}

	seen := map[string]bool{}
	var out []domain.Candidate
	for page := 0; page < maxPagesPerTile; page++ {
		res, err := s.places.NearbySearch(ctx, q)
		if err != nil {
			lg.Warn().Err(err).Int("page", page).Msg("nearby search failed; keeping collected results")
			break
		}
		for _, ps := range res.Places {
			if ps.PlaceID != "" {
				if seen[ps.PlaceID] {
					continue
				}
				seen[ps.PlaceID] = true
			}
			if !s.Accept(ps.Name, ps.Vicinity) {
				continue
			}
			if c, ok := s.candidate(ctx, lg, memo, ps); ok {
				out = append(out, c)
			}
		}
		if res.NextPageToken == "" {
			break
		}
		q.PageToken = res.NextPageToken
	}

	observability.ObserveTile(len(out))
	lg.Debug().Int("kept", len(out)).Msg("tile done")
	return out
}

// Accept applies the inclusion and exclusion keyword heuristics. Exclusion
// wins over inclusion.
func (s *TileSearcher) Accept(name, vicinity string) bool {
	n := strings.ToLower(name)
	for _, kw := range s.geo.ExcludeKeywords {
		if kw != "" && strings.Contains(n, strings.ToLower(kw)) {
			return false
		}
	}
	v := strings.ToLower(vicinity)
	for _, kw := range s.geo.IncludeKeywords {
		kw = strings.ToLower(kw)
		if kw != "" && (strings.Contains(n, kw) || strings.Contains(v, kw)) {
			return true
		}
	}
	return false
}

// candidate builds a Candidate from a summary, optionally enriched with a
// details lookup. Details failures fall back to the summary fields.
func (s *TileSearcher) candidate(ctx context.Context, lg zerolog.Logger, memo *detailsMemo, ps domain.PlaceSummary) (domain.Candidate, bool) {
	c := domain.Candidate{
		Name:    ps.Name,
		Address: ps.Vicinity,
		Rating:  ps.Rating,
		Lat:     ps.Lat,
		Lon:     ps.Lon,
		PlaceID: ps.PlaceID,
	}
	hasGeo := ps.HasGeo

	if s.cfg.EnrichDetails && ps.PlaceID != "" {
		d, err := memo.details(ctx, ps.PlaceID)
		if err != nil {
			lg.Warn().Err(err).Str("place_id", ps.PlaceID).Msg("details lookup failed; using summary")
		} else {
			if d.FormattedAddress != "" {
				c.Address = d.FormattedAddress
			}
			if d.Rating > 0 {
				c.Rating = d.Rating
			}
			c.Website = d.Website
			c.Reviews = d.Reviews
			if !hasGeo && d.HasGeo {
				c.Lat, c.Lon, hasGeo = d.Lat, d.Lon, true
			}
		}
	}

	if c.Name == "" || !hasGeo || !c.Point().Valid() {
		return domain.Candidate{}, false
	}
	return c, true
}

// detailsMemo shares one details lookup per place id across the tiles of a
// search; overlapping tiles see the same places.
type detailsMemo struct {
	places domain.PlacesClient
	group  singleflight.Group

	mu   sync.Mutex
	done map[string]detailsResult
}

type detailsResult struct {
	d   domain.PlaceDetails
	err error
}

func newDetailsMemo(p domain.PlacesClient) *detailsMemo {
	return &detailsMemo{places: p, done: map[string]detailsResult{}}
}

func (m *detailsMemo) details(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	m.mu.Lock()
	r, ok := m.done[placeID]
	m.mu.Unlock()
	if ok {
		return r.d, r.err
	}
	v, _, _ := m.group.Do(placeID, func() (any, error) {
		m.mu.Lock()
		r, ok := m.done[placeID]
		m.mu.Unlock()
		if ok {
			return r, nil
		}
		d, err := m.places.Details(ctx, placeID)
		res := detailsResult{d: d, err: err}
		// a canceled lookup says nothing about the place
		if ctx.Err() == nil {
			m.mu.Lock()
			m.done[placeID] = res
			m.mu.Unlock()
		}
		return res, nil
	})
	res := v.(detailsResult)
	return res.d, res.err
}
