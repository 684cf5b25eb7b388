package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ski_resort_finder/internal/domain"
)

// ---- fakes ----

type fakeExtractor struct{ places []string }

func (f fakeExtractor) ExtractPlaces(string) []string { return f.places }

type fakeGeocoder struct {
	mu     sync.Mutex
	result map[string]domain.GeocodeResult
	err    error
	calls  []string
}

func (g *fakeGeocoder) Geocode(_ context.Context, text string) (domain.GeocodeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, text)
	if g.err != nil {
		return domain.GeocodeResult{}, g.err
	}
	return g.result[text], nil
}

var (
	amherst    = domain.GeoPoint{Lat: 42.3732, Lon: -72.5199}
	killington = domain.GeoPoint{Lat: 43.6045, Lon: -72.8201}
)

func amherstGeocoder() *fakeGeocoder {
	return &fakeGeocoder{result: map[string]domain.GeocodeResult{
		"Amherst":       {Point: amherst, FormattedAddress: "Amherst, MA 01002, USA", Found: true},
		"massachusetts": {Point: domain.GeoPoint{Lat: 42.4072, Lon: -71.3824}, FormattedAddress: "Massachusetts, USA", Found: true},
		"Denver":        {Point: domain.GeoPoint{Lat: 39.7392, Lon: -104.9903}, FormattedAddress: "Denver, CO, USA", Found: true},
		"Killington, Vermont": {
			Point: killington, FormattedAddress: "Killington, VT 05751, USA", Found: true,
		},
		"vermont": {Point: domain.GeoPoint{Lat: 44.5588, Lon: -72.5778}, FormattedAddress: "Vermont, USA", Found: true},
	}}
}

// fakePlaces answers nearby searches through a callback and counts calls and
// peak concurrency.
type fakePlaces struct {
	nearby  func(q domain.NearbyQuery) (domain.NearbyPage, error)
	details map[string]domain.PlaceDetails
	delay   time.Duration

	calls       int32
	detailCalls int32
	inflight    int32
	peak        int32
}

func (f *fakePlaces) NearbySearch(_ context.Context, q domain.NearbyQuery) (domain.NearbyPage, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.nearby(q)
}

func (f *fakePlaces) Details(_ context.Context, id string) (domain.PlaceDetails, error) {
	atomic.AddInt32(&f.detailCalls, 1)
	d, ok := f.details[id]
	if !ok {
		return domain.PlaceDetails{}, errors.New("details unavailable")
	}
	return d, nil
}

func place(id, name, vicinity string, rating, lat, lon float64) domain.PlaceSummary {
	return domain.PlaceSummary{PlaceID: id, Name: name, Vicinity: vicinity, Rating: rating, Lat: lat, Lon: lon, HasGeo: true}
}

type fakeEmbedder struct {
	vecs  map[string][]float32
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vecs[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
}

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}

func ptr[T any](v T) *T { return &v }
