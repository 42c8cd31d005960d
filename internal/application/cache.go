package application

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/danu-shop/insights/pkg/metrics"
)

// Memo caches immutable results by input signature. Concurrent callers asking
// for the same key share one computation; failed computations are not cached.
type Memo struct {
	name    string
	cache   *gocache.Cache
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewMemo creates a memo whose entries expire after ttl. A non-positive ttl keeps entries forever.
func NewMemo(name string, ttl time.Duration, m *metrics.Metrics) *Memo {
	expiration, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &Memo{
		name:    name,
		cache:   gocache.New(expiration, cleanup),
		metrics: m,
	}
}

// Name returns the cache label used in metrics
func (m *Memo) Name() string {
	return m.name
}

// Len returns the number of live entries
func (m *Memo) Len() int {
	return m.cache.ItemCount()
}

// Flush drops every entry
func (m *Memo) Flush() {
	m.cache.Flush()
}

func (m *Memo) do(key string, compute func() (any, error)) (any, bool, error) {
	if v, ok := m.cache.Get(key); ok {
		m.metrics.RecordCacheLookup(m.name, true)
		return v, true, nil
	}
	m.metrics.RecordCacheLookup(m.name, false)

	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		m.cache.SetDefault(key, v)
		return v, nil
	})
	return v, false, err
}

// Remember returns the cached value for key or computes and stores it.
// cached reports whether the value came from the cache.
func Remember[T any](m *Memo, key string, compute func() (T, error)) (value T, cached bool, err error) {
	v, hit, err := m.do(key, func() (any, error) { return compute() })
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), hit, nil
}
