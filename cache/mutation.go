package cache

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Patch is one optimistic edit of a cached value. Build it with Edit.
type Patch struct {
	key       Key
	predict   func(json.RawMessage) (json.RawMessage, error)
	reconcile func(json.RawMessage, any) (json.RawMessage, error)
}

// Edit describes how a mutation with result R changes the T cached at key:
// predict runs before the request is sent, reconcile (optional) folds the
// server result in once it succeeds.
func Edit[T, R any](key Key, predict func(T) T, reconcile func(T, R) T) Patch {
	p := Patch{
		key: key,
		predict: func(raw json.RawMessage) (json.RawMessage, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return json.Marshal(predict(v))
		},
	}
	if reconcile != nil {
		p.reconcile = func(raw json.RawMessage, result any) (json.RawMessage, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			r, _ := result.(R)
			return json.Marshal(reconcile(v, r))
		}
	}
	return p
}

type Mutation[R any] struct {
	Patches []Patch
	Request func(ctx context.Context) (R, error)
	// OnRollback runs after the snapshots are restored.
	OnRollback func(err error)
	// Invalidate lists the views to refetch after the request succeeds.
	Invalidate []Key
}

type snapshot struct {
	key     string
	raw     []byte
	evicted bool
}

// inflight holds the snapshots of a mutation waiting for its response.
type inflight struct {
	snapshots []snapshot
}

func (m *inflight) evict(prefix string) {
	for i := range m.snapshots {
		if matchesPrefix(m.snapshots[i].key, prefix) {
			m.snapshots[i].evicted = true
		}
	}
}

// Mutate applies the patches to the cache synchronously, sends the request
// and then either restores the exact pre-mutation snapshots (on failure) or
// reconciles with the server result and invalidates dependent views.
//
// Patches whose key is not cached are skipped, as are keys removed while the
// request was in flight. Overlapping mutations on the same key are not
// coordinated: whichever response lands last wins until the next fetch.
func Mutate[R any](ctx context.Context, c *Client, m Mutation[R]) (R, error) {
	pending := c.predict(m.Patches)

	result, err := m.Request(ctx)
	if err != nil {
		c.rollback(pending)
		c.log.Warn("mutation rolled back", zap.Strings("keys", snapshotKeys(pending.snapshots)), zap.Error(err))
		if m.OnRollback != nil {
			m.OnRollback(err)
		}
		return result, err
	}

	c.reconcile(m.Patches, pending, result)
	if len(m.Invalidate) > 0 {
		if err := c.Invalidate(ctx, m.Invalidate...); err != nil {
			c.log.Error("invalidate after mutation", zap.Error(err))
		}
	}
	return result, nil
}

// PerformOptimisticMutation is Mutate for a single cached entity.
func PerformOptimisticMutation[T, R any](
	ctx context.Context,
	c *Client,
	key Key,
	predict func(T) T,
	request func(context.Context) (R, error),
	onReconcile func(T, R) T,
	onRollback func(error),
	invalidate ...Key,
) (R, error) {
	return Mutate(ctx, c, Mutation[R]{
		Patches:    []Patch{Edit(key, predict, onReconcile)},
		Request:    request,
		OnRollback: onRollback,
		Invalidate: invalidate,
	})
}

func (c *Client) predict(patches []Patch) *inflight {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := &inflight{}
	c.inflight[m] = struct{}{}
	for _, p := range patches {
		k := p.key.String()
		raw, err := patchLocked(c, k, p.predict)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.log.Warn("optimistic patch skipped", zap.String("key", k), zap.Error(err))
			}
			continue
		}
		m.snapshots = append(m.snapshots, snapshot{key: k, raw: raw})
	}
	return m
}

func (c *Client) rollback(m *inflight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, m)
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		s := m.snapshots[i]
		if s.evicted {
			continue
		}
		if err := c.store.Set(s.key, s.raw); err != nil {
			c.log.Error("restore snapshot", zap.String("key", s.key), zap.Error(err))
		}
	}
}

func (c *Client) reconcile(patches []Patch, m *inflight, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, m)
	patched := make(map[string]bool, len(m.snapshots))
	for _, s := range m.snapshots {
		if !s.evicted {
			patched[s.key] = true
		}
	}
	for _, p := range patches {
		k := p.key.String()
		if p.reconcile == nil || !patched[k] {
			continue
		}
		if _, err := patchLocked(c, k, func(raw json.RawMessage) (json.RawMessage, error) {
			return p.reconcile(raw, result)
		}); err != nil && !errors.Is(err, ErrNotFound) {
			c.log.Warn("reconcile failed", zap.String("key", k), zap.Error(err))
		}
	}
}

func snapshotKeys(snapshots []snapshot) []string {
	keys := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		keys = append(keys, s.key)
	}
	return keys
}
