package geocache

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"ski_resort_finder/internal/adapters/observability"
	"ski_resort_finder/internal/domain"
)

const DefaultSize = 100

// CachedGeocoder wraps a Geocoder with a bounded in-memory LRU keyed by the
// normalized place text. Only found results are cached so a miss can be
// retried later.
type CachedGeocoder struct {
	inner domain.Geocoder
	cache *lru
}

func New(inner domain.Geocoder, size int) *CachedGeocoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &CachedGeocoder{inner: inner, cache: newLRU(size)}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, text string) (domain.GeocodeResult, error) {
	key := Normalize(text)
	if res, ok := c.cache.get(key); ok {
		observability.ObserveCache("geocode", "hit")
		return res, nil
	}
	observability.ObserveCache("geocode", "miss")

	res, err := c.inner.Geocode(ctx, text)
	if err != nil {
		return res, err
	}
	if res.Found {
		if c.cache.put(key, res) {
			observability.ObserveCache("geocode", "evict")
		}
	}
	return res, nil
}

func (c *CachedGeocoder) Len() int { return c.cache.len() }

// Normalize lower-cases text and collapses internal whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

type lru struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type item struct {
	key string
	val domain.GeocodeResult
}

func newLRU(max int) *lru {
	return &lru{max: max, order: list.New(), entries: make(map[string]*list.Element, max)}
}

func (l *lru) get(key string) (domain.GeocodeResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.entries[key]
	if !ok {
		return domain.GeocodeResult{}, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*item).val, true
}

// put stores val and reports whether an entry was evicted to make room.
func (l *lru) put(key string, val domain.GeocodeResult) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.entries[key]; ok {
		el.Value.(*item).val = val
		l.order.MoveToFront(el)
		return false
	}
	l.entries[key] = l.order.PushFront(&item{key: key, val: val})
	if l.order.Len() <= l.max {
		return false
	}
	oldest := l.order.Back()
	l.order.Remove(oldest)
	delete(l.entries, oldest.Value.(*item).key)
	return true
}

func (l *lru) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
