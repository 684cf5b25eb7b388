package google_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ski_resort_finder/internal/adapters/google"
	"ski_resort_finder/internal/domain"
)

func newClient(t *testing.T, base string, opts ...google.Option) *google.Client {
	t.Helper()
	opts = append([]google.Option{google.WithPageDelay(0)}, opts...)
	cl, err := google.New(base, "test-key", 100, opts...) // high RPS for tests
	require.NoError(t, err)
	return cl
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := google.New("http://example.invalid", "", 10)
	require.Error(t, err)
}

func TestNearbySearch_ParsesPageAndSendsQuery(t *testing.T) {
	var gotQuery map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"location": q.Get("location"),
			"radius":   q.Get("radius"),
			"keyword":  q.Get("keyword"),
			"type":     q.Get("type"),
			"key":      q.Get("key"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":          "OK",
			"next_page_token": "tok-2",
			"results": []map[string]any{
				{
					"place_id": "p1", "name": "Berkshire East Mountain Resort", "vicinity": "66 Thunder Mountain Rd, Charlemont",
					"rating":   4.6,
					"geometry": map[string]any{"location": map[string]any{"lat": 42.62, "lng": -72.87}},
				},
				{"place_id": "p2", "name": "No Geometry Ski Area"},
			},
		})
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)
	page, err := cl.NearbySearch(context.Background(), domain.NearbyQuery{
		Center:   domain.GeoPoint{Lat: 42.3732, Lon: -72.5199},
		RadiusM:  50000,
		Keywords: []string{"ski resort", "ski area"},
	})
	require.NoError(t, err)

	assert.Equal(t, "42.373200,-72.519900", gotQuery["location"])
	assert.Equal(t, "50000", gotQuery["radius"])
	assert.Equal(t, "ski resort|ski area", gotQuery["keyword"])
	assert.Equal(t, "establishment", gotQuery["type"])
	assert.Equal(t, "test-key", gotQuery["key"])

	assert.Equal(t, "tok-2", page.NextPageToken)
	require.Len(t, page.Places, 2)
	assert.Equal(t, "p1", page.Places[0].PlaceID)
	assert.True(t, page.Places[0].HasGeo)
	assert.InDelta(t, 42.62, page.Places[0].Lat, 1e-9)
	assert.InDelta(t, 4.6, page.Places[0].Rating, 1e-9)
	assert.False(t, page.Places[1].HasGeo)
}

func TestNearbySearch_ZeroResultsIsEmptyPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer ts.Close()

	page, err := newClient(t, ts.URL).NearbySearch(context.Background(), domain.NearbyQuery{RadiusM: 1000})
	require.NoError(t, err)
	assert.Empty(t, page.Places)
	assert.Empty(t, page.NextPageToken)
}

func TestNearbySearch_RequestDeniedIsForbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`))
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL).NearbySearch(context.Background(), domain.NearbyQuery{RadiusM: 1000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, google.ErrForbidden))

	var se *google.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "REQUEST_DENIED", se.Status)
}

func TestGet_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := newClient(t, ts.URL).NearbySearch(ctx, domain.NearbyQuery{RadiusM: 1000})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(3))
}

func TestGet_NoRetriesReturnsServerError(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(500)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, google.WithMaxRetries(0)).
		NearbySearch(context.Background(), domain.NearbyQuery{RadiusM: 1000})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGet_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	_, err := newClient(t, ts.URL).Details(context.Background(), "p1")
	assert.ErrorIs(t, err, google.ErrNotFound)
}

func TestNearbySearch_PageTokenWaitsForDelay(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "tok-2", r.URL.Query().Get("pagetoken"))
		assert.Empty(t, r.URL.Query().Get("location"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"p9","name":"Jiminy Peak Mountain Resort"}]}`))
	}))
	defer ts.Close()

	fc := clockwork.NewFakeClock()
	cl := newClient(t, ts.URL, google.WithClock(fc), google.WithPageDelay(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		page domain.NearbyPage
		err  error
	}
	done := make(chan result, 1)
	go func() {
		p, err := cl.NearbySearch(ctx, domain.NearbyQuery{PageToken: "tok-2"})
		done <- result{p, err}
	}()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "token must not be used before the delay")
	fc.Advance(2 * time.Second)

	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.page.Places, 1)
	assert.Equal(t, "p9", res.page.Places[0].PlaceID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDetails_ParsesFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/details/json", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("place_id"))
		assert.Contains(t, r.URL.Query().Get("fields"), "reviews")
		_, _ = w.Write([]byte(`{"status":"OK","result":{
			"name":"Jiminy Peak Mountain Resort",
			"formatted_address":"37 Corey Rd, Hancock, MA 01237, USA",
			"rating":4.5,
			"website":"https://www.jiminypeak.com/",
			"geometry":{"location":{"lat":42.5559,"lng":-73.2926}},
			"reviews":[{"author_name":"Sam","rating":5,"text":"Great snow","time":1700000000}]
		}}`))
	}))
	defer ts.Close()

	d, err := newClient(t, ts.URL).Details(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "37 Corey Rd, Hancock, MA 01237, USA", d.FormattedAddress)
	assert.Equal(t, "https://www.jiminypeak.com/", d.Website)
	assert.True(t, d.HasGeo)
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, "Sam", d.Reviews[0].AuthorName)
	assert.InDelta(t, 5.0, d.Reviews[0].Rating, 1e-9)
}

func TestGeocode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		if r.URL.Query().Get("address") == "Nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{
			"formatted_address":"Amherst, MA 01002, USA",
			"geometry":{"location":{"lat":42.3732,"lng":-72.5199}}
		}]}`))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)

	res, err := cl.Geocode(context.Background(), "Amherst")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "Amherst, MA 01002, USA", res.FormattedAddress)
	assert.InDelta(t, -72.5199, res.Point.Lon, 1e-9)

	miss, err := cl.Geocode(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.False(t, miss.Found)
}
