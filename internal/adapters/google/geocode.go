package google

import (
	"context"
	"net/url"

	"ski_resort_finder/internal/domain"
)

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string   `json:"formatted_address"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves free text to the provider's first match.
func (c *Client) Geocode(ctx context.Context, text string) (domain.GeocodeResult, error) {
	v := url.Values{}
	v.Set("address", text)

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", v, &resp); err != nil {
		return domain.GeocodeResult{}, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.GeocodeResult{}, nil
	default:
		return domain.GeocodeResult{}, &StatusError{Endpoint: "geocode", Status: resp.Status, Message: resp.ErrorMessage}
	}
	if len(resp.Results) == 0 || resp.Results[0].Geometry.Location == nil {
		return domain.GeocodeResult{}, nil
	}
	first := resp.Results[0]
	return domain.GeocodeResult{
		Point:            domain.GeoPoint{Lat: first.Geometry.Location.Lat, Lon: first.Geometry.Location.Lng},
		FormattedAddress: first.FormattedAddress,
		Found:            true,
	}, nil
}
