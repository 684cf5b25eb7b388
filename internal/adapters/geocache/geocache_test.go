package geocache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ski_resort_finder/internal/domain"
)

type countingGeocoder struct {
	mu    sync.Mutex
	calls map[string]int
	miss  map[string]bool
	err   error
}

func (g *countingGeocoder) Geocode(_ context.Context, text string) (domain.GeocodeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[text]++
	if g.err != nil {
		return domain.GeocodeResult{}, g.err
	}
	if g.miss[text] {
		return domain.GeocodeResult{}, nil
	}
	return domain.GeocodeResult{
		Point:            domain.GeoPoint{Lat: 42.37, Lon: -72.52},
		FormattedAddress: text + ", USA",
		Found:            true,
	}, nil
}

func (g *countingGeocoder) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func TestCachedGeocoder_HitsAfterFirstLookup(t *testing.T) {
	inner := &countingGeocoder{}
	c := New(inner, 10)

	first, err := c.Geocode(context.Background(), "Amherst")
	require.NoError(t, err)
	second, err := c.Geocode(context.Background(), "  amherst ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.total(), "normalized text should share one entry")
}

func TestCachedGeocoder_DoesNotCacheMisses(t *testing.T) {
	inner := &countingGeocoder{miss: map[string]bool{"Atlantis": true}}
	c := New(inner, 10)

	for i := 0; i < 2; i++ {
		res, err := c.Geocode(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.False(t, res.Found)
	}
	assert.Equal(t, 2, inner.total())
	assert.Equal(t, 0, c.Len())
}

func TestCachedGeocoder_PropagatesErrors(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	c := New(inner, 10)

	_, err := c.Geocode(context.Background(), "Amherst")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCachedGeocoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingGeocoder{}
	c := New(inner, 2)
	ctx := context.Background()

	_, _ = c.Geocode(ctx, "a")
	_, _ = c.Geocode(ctx, "b")
	_, _ = c.Geocode(ctx, "a") // a is now most recent
	_, _ = c.Geocode(ctx, "c") // evicts b

	assert.Equal(t, 2, c.Len())
	_, _ = c.Geocode(ctx, "a")
	assert.Equal(t, 1, inner.calls["a"])
	_, _ = c.Geocode(ctx, "b")
	assert.Equal(t, 2, inner.calls["b"])
}

func TestCachedGeocoder_ConcurrentUse(t *testing.T) {
	inner := &countingGeocoder{}
	c := New(inner, 5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Geocode(context.Background(), fmt.Sprintf("town-%d", i%8))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 5)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "new york city", Normalize("  New   York\tCity "))
	assert.Equal(t, "", Normalize("   "))
}
