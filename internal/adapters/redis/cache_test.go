package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "ski_resort_finder/internal/adapters/redis"
	"ski_resort_finder/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	d := 12.5
	in := []domain.RankedResort{{
		Candidate: domain.Candidate{Name: "Jiminy Peak", Address: "Hancock, MA", Rating: 4.5, DistanceKm: &d},
		Score:     0.8,
		Rank:      1,
	}}
	require.NoError(t, c.Set(ctx, "search:v1:blended:amherst", in, 900))
	assert.True(t, mr.Exists("skifinder:search:v1:blended:amherst"))
	assert.Equal(t, 900*time.Second, mr.TTL("skifinder:search:v1:blended:amherst"))

	var out []domain.RankedResort
	ok, err := c.Get(ctx, "search:v1:blended:amherst", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, "Jiminy Peak", out[0].Name)
	require.NotNil(t, out[0].DistanceKm)
	assert.Equal(t, 12.5, *out[0].DistanceKm)
}

func TestCache_MissAndExpiry(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var out []string
	ok, err := c.Get(ctx, "nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []string{"a"}, 10))
	mr.FastForward(11 * time.Second)
	ok, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")
}

func TestCache_CorruptPayloadIsMissAndDropped(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("skifinder:bad", "{not json"))

	var out []domain.RankedResort
	ok, err := c.Get(context.Background(), "bad", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("skifinder:bad"), "corrupt entry should be removed")
}

func TestCache_ServerDown(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	var out []string
	_, err := c.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
