package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/mybookstore-cart/internal/cache"
	"github.com/ahinestrog/mybookstore-cart/internal/domain"
	"github.com/ahinestrog/mybookstore-cart/internal/events"
	"github.com/ahinestrog/mybookstore-cart/internal/store"
)

type memCache struct {
	mu     sync.Mutex
	counts map[string]domain.ItemCount
	err    error
}

func newMemCache() *memCache { return &memCache{counts: map[string]domain.ItemCount{}} }

func (c *memCache) Get(_ context.Context, userID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	n, ok := c.counts[userID]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return n.Lines, nil
}

func (c *memCache) Set(_ context.Context, userID string, count domain.ItemCount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if cur, ok := c.counts[userID]; ok && cur.Version > count.Version {
		return nil
	}
	c.counts[userID] = count
	return nil
}

func (c *memCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, userID)
	return c.err
}

func (c *memCache) peek(userID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[userID]
	return n.Lines, ok
}

func (c *memCache) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

type recorder struct {
	mu     sync.Mutex
	keyLog []string
	bodies [][]byte
	err    error
}

func (r *recorder) Publish(_ context.Context, key string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.keyLog = append(r.keyLog, key)
	r.bodies = append(r.bodies, body)
	return nil
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keyLog...)
}

func (r *recorder) payload(t *testing.T, i int) events.CartItemPayload {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Less(t, i, len(r.bodies))
	var p events.CartItemPayload
	require.NoError(t, json.Unmarshal(r.bodies[i], &p))
	return p
}

// faultyStore injects failures into the transactions it opens. With
// upsertErr set, the first failures attempts fail at UpsertLineItem, or
// every attempt when failures is 0. block makes UpsertLineItem wait for the
// transaction context to end.
type faultyStore struct {
	store.CartStore
	upsertErr error
	failures  int
	block     bool

	mu    sync.Mutex
	calls int
}

func (f *faultyStore) InTx(ctx context.Context, fn func(store.CartStore) error) error {
	f.mu.Lock()
	f.calls++
	var upsertErr error
	if f.upsertErr != nil && (f.failures == 0 || f.calls <= f.failures) {
		upsertErr = f.upsertErr
	}
	f.mu.Unlock()

	return f.CartStore.InTx(ctx, func(tx store.CartStore) error {
		return fn(&txFaults{CartStore: tx, upsertErr: upsertErr, block: f.block})
	})
}

func (f *faultyStore) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type txFaults struct {
	store.CartStore
	upsertErr error
	block     bool
}

func (t *txFaults) UpsertLineItem(ctx context.Context, cartID, bookID int64, delta int) error {
	if t.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if t.upsertErr != nil {
		return t.upsertErr
	}
	return t.CartStore.UpsertLineItem(ctx, cartID, bookID, delta)
}

// gatedStore holds the first CountLineItems call made outside a
// transaction open after the read. reached is closed once the count has
// been read; the call returns when release is closed or its context ends,
// and reports its error on done.
type gatedStore struct {
	store.CartStore
	reached chan struct{}
	release chan struct{}
	done    chan error

	once sync.Once
}

func newGatedStore(st store.CartStore) *gatedStore {
	return &gatedStore{
		CartStore: st,
		reached:   make(chan struct{}),
		release:   make(chan struct{}),
		done:      make(chan error, 1),
	}
}

func (g *gatedStore) CountLineItems(ctx context.Context, userID string) (domain.ItemCount, error) {
	n, err := g.CartStore.CountLineItems(ctx, userID)
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return n, err
	}
	close(g.reached)
	select {
	case <-g.release:
	case <-ctx.Done():
		n, err = domain.ItemCount{}, ctx.Err()
	}
	g.done <- err
	return n, err
}
