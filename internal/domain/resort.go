package domain

import "strings"

// GeoPoint is a WGS-84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

type Review struct {
	AuthorName   string  `json:"author_name,omitempty"`
	Rating       float64 `json:"rating"`
	Text         string  `json:"text,omitempty"`
	RelativeTime string  `json:"relative_time_description,omitempty"`
	Time         int64   `json:"time,omitempty"`
	Language     string  `json:"language,omitempty"`
}

// Candidate is a resort-like place before ranking. Rating 0 means unknown.
// PlaceID is empty for seeded entries; DistanceKm stays nil until the
// aggregator measures it.
type Candidate struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Rating     float64  `json:"rating"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lng"`
	PlaceID    string   `json:"place_id,omitempty"`
	DistanceKm *float64 `json:"distance,omitempty"`
	Website    string   `json:"website,omitempty"`
	Reviews    []Review `json:"reviews,omitempty"`
	Seeded     bool     `json:"-"`
}

func (c Candidate) Point() GeoPoint { return GeoPoint{Lat: c.Lat, Lon: c.Lon} }

// DedupKey is the case-insensitive (name, address) identity.
func (c Candidate) DedupKey() string {
	return strings.ToLower(c.Name) + "\x00" + strings.ToLower(c.Address)
}

// Distance returns the measured distance or 0 when it was never computed.
func (c Candidate) Distance() float64 {
	if c.DistanceKm == nil {
		return 0
	}
	return *c.DistanceKm
}

// Completeness scores how much data a record carries; used to pick between
// duplicates.
func (c Candidate) Completeness() int {
	n := 0
	if c.PlaceID != "" {
		n += 4
	}
	if c.Website != "" {
		n += 2
	}
	if len(c.Reviews) > 0 {
		n += 2
	}
	if c.Rating > 0 {
		n++
	}
	return n
}

// RankedResort is the terminal artifact returned to callers.
type RankedResort struct {
	Candidate
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// Location is what the resolver hands to the rest of the pipeline.
type Location struct {
	Place  string
	Point  GeoPoint
	Region string // known region key, empty when none matched
}
