package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ski_resort_finder/internal/domain"
)

// LocationResolver turns query text into a geocoded location.
type LocationResolver struct {
	extractor domain.EntityExtractor
	geocoder  domain.Geocoder
	geo       domain.Geography
}

func NewLocationResolver(ex domain.EntityExtractor, gc domain.Geocoder, geo domain.Geography) *LocationResolver {
	return &LocationResolver{extractor: ex, geocoder: gc, geo: geo}
}

// Resolve prefers a known-region keyword hit over extracted entities. A
// trigger naming a resort or town inside the region ("killington") is
// geocoded as "Killington, Vermont" so the search centres on it, falling back
// to the region itself. It returns domain.ErrNoLocation when nothing can be
// resolved; that includes provider failures, which are logged.
func (r *LocationResolver) Resolve(ctx context.Context, query string) (domain.Location, error) {
	places, region := r.pick(query)
	if len(places) == 0 {
		return domain.Location{}, domain.ErrNoLocation
	}

	var lastErr error
	for _, place := range places {
		res, err := r.geocoder.Geocode(ctx, place)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Location{}, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return domain.Location{}, err
			}
			zerolog.Ctx(ctx).Warn().Err(err).Str("place", place).Msg("geocode failed")
			lastErr = fmt.Errorf("%w: geocode %q: %v", domain.ErrNoLocation, place, err)
			continue
		}
		if !res.Found || !res.Point.Valid() {
			lastErr = fmt.Errorf("%w: no geocode result for %q", domain.ErrNoLocation, place)
			continue
		}

		if region == "" {
			if reg, ok := r.geo.MatchRegion(res.FormattedAddress); ok {
				region = reg.Key
			}
		}
		return domain.Location{Place: place, Point: res.Point, Region: region}, nil
	}
	return domain.Location{}, lastErr
}

// pick returns the place strings to geocode, best first, and the region a
// keyword selected.
func (r *LocationResolver) pick(query string) (places []string, region string) {
	if reg, trigger, ok := r.geo.MatchTrigger(query); ok {
		if reg.NamesPlace(trigger) {
			places = append(places, domain.TitleCase(trigger)+", "+domain.TitleCase(reg.Key))
		}
		return append(places, reg.Key), reg.Key
	}
	if r.extractor != nil {
		if ents := r.extractor.ExtractPlaces(query); len(ents) > 0 {
			return ents[:1], ""
		}
	}
	return nil, ""
}
