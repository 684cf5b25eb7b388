package app

import "ski_resort_finder/internal/domain"

const DefaultMaxDistanceKm = 100.0

// FilterByDistance keeps candidates within maxKm of center and records the
// measured distance on each kept candidate.
func FilterByDistance(center domain.GeoPoint, maxKm float64, in []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(in))
	for _, c := range in {
		d := HaversineKm(center, c.Point())
		if d > maxKm {
			continue
		}
		c.DistanceKm = &d
		out = append(out, c)
	}
	return out
}

// Dedupe collapses candidates sharing a case-insensitive (name, address).
// The more complete record wins; on a tie the first one seen stays. Output
// keeps first-seen positions, so Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(in []domain.Candidate) []domain.Candidate {
	pos := make(map[string]int, len(in))
	out := make([]domain.Candidate, 0, len(in))
	for _, c := range in {
		k := c.DedupKey()
		if i, ok := pos[k]; ok {
			if c.Completeness() > out[i].Completeness() {
				out[i] = c
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, c)
	}
	return out
}

// FilterRated drops candidates with no positive rating.
func FilterRated(in []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(in))
	for _, c := range in {
		if c.Rating > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Aggregate runs distance filter, dedup and validity filter in that order.
// An empty outcome is domain.ErrNoResults.
func Aggregate(center domain.GeoPoint, maxKm float64, in []domain.Candidate) ([]domain.Candidate, error) {
	if maxKm <= 0 {
		maxKm = DefaultMaxDistanceKm
	}
	out := FilterRated(Dedupe(FilterByDistance(center, maxKm, in)))
	if len(out) == 0 {
		return nil, domain.ErrNoResults
	}
	return out, nil
}
