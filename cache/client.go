// Package cache is the client-side query cache. Entries are populated on
// fetch, patched by optimistic mutations, marked stale and refetched on
// invalidation, and evicted when the view that owns them goes away.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entry is the stored envelope around a cached value.
type entry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Stale     bool            `json:"stale,omitempty"`
}

type refetcher struct {
	id    uint64
	key   Key
	fetch func(ctx context.Context) error
}

type Client struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time

	// mu serialises read-modify-write cycles on the store and guards the
	// registrations below.
	mu       sync.Mutex
	seq      uint64
	active   map[string]refetcher
	inflight map[*inflight]struct{}
}

type Option func(*Client)

// WithTTL sets how long a fetched entry stays fresh. Zero keeps entries
// fresh until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(store Store, opts ...Option) *Client {
	c := &Client{
		store:  store,
		log:    zap.NewNop(),
		now:    time.Now,
		active:   make(map[string]refetcher),
		inflight: make(map[*inflight]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Close() error {
	return c.store.Close()
}

func (c *Client) load(key string) (entry, error) {
	var e entry
	raw, err := c.store.Get(key)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return e, nil
}

func (c *Client) save(key string, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return c.store.Set(key, raw)
}

func (c *Client) fresh(e entry) bool {
	if e.Stale {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.FetchedAt) < c.ttl
}

// Get returns the cached value at key, fresh or not.
func Get[T any](c *Client, key Key) (T, error) {
	var v T
	e, err := c.load(key.String())
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Set stores v at key as freshly fetched data.
func Set[T any](c *Client, key Key, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return setLocked(c, key.String(), v)
}

func setLocked[T any](c *Client, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.save(key, entry{Value: raw, FetchedAt: c.now()})
}

// Update patches the value at key in place, keeping its freshness. It
// returns ErrNotFound if nothing is cached there.
func Update[T any](c *Client, key Key, fn func(T) T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := patchLocked(c, key.String(), func(raw json.RawMessage) (json.RawMessage, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return json.Marshal(fn(v))
	})
	return err
}

// patchLocked rewrites the value of key and returns the envelope it replaced.
func patchLocked(c *Client, key string, fn func(json.RawMessage) (json.RawMessage, error)) ([]byte, error) {
	snapshot, err := c.store.Get(key)
	if err != nil {
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(snapshot, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	value, err := fn(e.Value)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", key, err)
	}
	e.Value = value
	if err := c.save(key, e); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Fetch returns the value at key, calling fetch when nothing fresh is
// cached. The query stays registered for refetch on invalidation until
// Remove is called for it. A result that arrives after Remove (or after a
// newer Fetch of the same key) is returned to the caller but not cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) (T, error) {
	k := key.String()
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.active[k] = refetcher{id: id, key: key, fetch: func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		_, err = setIfActive(c, k, id, v)
		return err
	}}
	c.mu.Unlock()

	var v T
	e, err := c.load(k)
	switch {
	case err == nil && c.fresh(e):
		if err := json.Unmarshal(e.Value, &v); err == nil {
			c.log.Debug("cache hit", zap.String("key", k))
			return v, nil
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		c.log.Warn("cache read failed", zap.String("key", k), zap.Error(err))
	}

	v, err = fetch(ctx)
	if err != nil {
		c.log.Error("fetch failed", zap.String("key", k), zap.Error(err))
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", k, err)
	}
	stored, err := setIfActive(c, k, id, v)
	if err != nil {
		c.log.Warn("cache write failed", zap.String("key", k), zap.Error(err))
	} else if !stored {
		c.log.Debug("late fetch dropped", zap.String("key", k))
	}
	return v, nil
}

// setIfActive stores v only while the registration id still owns key.
func setIfActive[T any](c *Client, key string, id uint64, v T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.active[key]; !ok || r.id != id {
		return false, nil
	}
	return true, setLocked(c, key, v)
}

// Invalidate marks every entry under the given prefixes stale and refetches
// the active queries among them concurrently. Refetches run independently of
// any mutation ordering; the first refetch error is returned.
func (c *Client) Invalidate(ctx context.Context, prefixes ...Key) error {
	var todo []refetcher
	seen := make(map[string]bool)

	c.mu.Lock()
	for _, prefix := range prefixes {
		p := prefix.String()
		keys, err := c.store.Keys(p)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("list %s: %w", p, err)
		}
		for _, k := range keys {
			e, err := c.load(k)
			if err != nil {
				continue
			}
			e.Stale = true
			if err := c.save(k, e); err != nil {
				c.mu.Unlock()
				return err
			}
		}
		for k, r := range c.active {
			if !seen[k] && r.key.HasPrefix(prefix) {
				seen[k] = true
				todo = append(todo, r)
			}
		}
	}
	c.mu.Unlock()

	// a failing refetch must not cancel its siblings
	var g errgroup.Group
	for _, r := range todo {
		r := r
		g.Go(func() error {
			if err := r.fetch(ctx); err != nil {
				return fmt.Errorf("refetch %s: %w", r.key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Remove evicts every entry under prefix and forgets its queries. Fetches
// and mutations still in flight for those keys will not write them back.
func (c *Client) Remove(prefix Key) error {
	p := prefix.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.active {
		if r.key.HasPrefix(prefix) {
			delete(c.active, k)
		}
	}
	for m := range c.inflight {
		m.evict(p)
	}
	keys, err := c.store.Keys(p)
	if err != nil {
		return fmt.Errorf("list %s: %w", p, err)
	}
	for _, k := range keys {
		if err := c.store.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// IsStale reports whether key is missing, invalidated or past its TTL.
func (c *Client) IsStale(key Key) bool {
	e, err := c.load(key.String())
	if err != nil {
		return true
	}
	return !c.fresh(e)
}
