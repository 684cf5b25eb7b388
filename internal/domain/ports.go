package domain

import "context"

// GeocodeResult is the first match a geocoding provider returns. Found is
// false when the provider had nothing for the text.
type GeocodeResult struct {
	Point            GeoPoint
	FormattedAddress string
	Found            bool
}

type Geocoder interface {
	Geocode(ctx context.Context, text string) (GeocodeResult, error)
}

// NearbyQuery is one nearby-search page request around a tile point.
type NearbyQuery struct {
	Center    GeoPoint
	RadiusM   int
	Keywords  []string
	PageToken string
}

// PlaceSummary is a raw nearby-search hit before heuristics are applied.
type PlaceSummary struct {
	PlaceID  string
	Name     string
	Vicinity string
	Rating   float64
	Lat, Lon float64
	HasGeo   bool
}

type NearbyPage struct {
	Places        []PlaceSummary
	NextPageToken string
}

// PlaceDetails carries the fields a details lookup can add to a candidate.
type PlaceDetails struct {
	Name             string
	FormattedAddress string
	Rating           float64
	Website          string
	Reviews          []Review
	Lat, Lon         float64
	HasGeo           bool
}

type PlacesClient interface {
	NearbySearch(ctx context.Context, q NearbyQuery) (NearbyPage, error)
	Details(ctx context.Context, placeID string) (PlaceDetails, error)
}

// EntityExtractor returns place mentions (geo-political entities and
// locations) in the order they appear.
type EntityExtractor interface {
	ExtractPlaces(text string) []string
}

// Embedder maps texts into one fixed-dimension vector space. One call must
// use one model so vectors are comparable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}

// GeographyRepository stores the swappable region/keyword tables.
type GeographyRepository interface {
	UpsertRegion(ctx context.Context, r Region) error
	PruneRegions(ctx context.Context, keep []string) (int64, error)
	UpsertKeywords(ctx context.Context, kind string, words []string) error
	LoadGeography(ctx context.Context) (Geography, error)
}
