package google

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ski_resort_finder/internal/domain"
)

const detailsFields = "name,formatted_address,rating,website,reviews,geometry"

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location *latLng `json:"location"`
}

type nearbyResponse struct {
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
	NextPageToken string `json:"next_page_token"`
	Results       []struct {
		PlaceID  string    `json:"place_id"`
		Name     string    `json:"name"`
		Vicinity string    `json:"vicinity"`
		Rating   float64   `json:"rating"`
		Geometry *geometry `json:"geometry"`
	} `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name             string          `json:"name"`
		FormattedAddress string          `json:"formatted_address"`
		Rating           float64         `json:"rating"`
		Website          string          `json:"website"`
		Reviews          []domain.Review `json:"reviews"`
		Geometry         *geometry       `json:"geometry"`
	} `json:"result"`
}

// NearbySearch fetches one page of results. With a PageToken set the other
// query fields are ignored and the call first waits the page delay.
// ZERO_RESULTS is an empty page, not an error.
func (c *Client) NearbySearch(ctx context.Context, q domain.NearbyQuery) (domain.NearbyPage, error) {
	v := url.Values{}
	if q.PageToken != "" {
		if !c.sleep(ctx, c.pageDelay) {
			return domain.NearbyPage{}, ctx.Err()
		}
		v.Set("pagetoken", q.PageToken)
	} else {
		v.Set("location", formatPoint(q.Center))
		v.Set("radius", strconv.Itoa(q.RadiusM))
		if len(q.Keywords) > 0 {
			v.Set("keyword", strings.Join(q.Keywords, "|"))
		}
		v.Set("type", "establishment")
	}

	var resp nearbyResponse
	if err := c.get(ctx, "/place/nearbysearch/json", v, &resp); err != nil {
		return domain.NearbyPage{}, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.NearbyPage{}, nil
	default:
		return domain.NearbyPage{}, &StatusError{Endpoint: "nearbysearch", Status: resp.Status, Message: resp.ErrorMessage}
	}

	page := domain.NearbyPage{NextPageToken: resp.NextPageToken}
	page.Places = make([]domain.PlaceSummary, 0, len(resp.Results))
	for _, r := range resp.Results {
		ps := domain.PlaceSummary{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Rating:   r.Rating,
		}
		if r.Geometry != nil && r.Geometry.Location != nil {
			ps.Lat, ps.Lon, ps.HasGeo = r.Geometry.Location.Lat, r.Geometry.Location.Lng, true
		}
		page.Places = append(page.Places, ps)
	}
	return page, nil
}

func (c *Client) Details(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	if placeID == "" {
		return domain.PlaceDetails{}, fmt.Errorf("details: empty place id")
	}
	v := url.Values{}
	v.Set("place_id", placeID)
	v.Set("fields", detailsFields)

	var resp detailsResponse
	if err := c.get(ctx, "/place/details/json", v, &resp); err != nil {
		return domain.PlaceDetails{}, err
	}
	if resp.Status != "OK" {
		return domain.PlaceDetails{}, &StatusError{Endpoint: "details", Status: resp.Status, Message: resp.ErrorMessage}
	}

	r := resp.Result
	d := domain.PlaceDetails{
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Rating:           r.Rating,
		Website:          r.Website,
		Reviews:          r.Reviews,
	}
	if r.Geometry != nil && r.Geometry.Location != nil {
		d.Lat, d.Lon, d.HasGeo = r.Geometry.Location.Lat, r.Geometry.Location.Lng, true
	}
	return d, nil
}

func formatPoint(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 6, 64)
}
