package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

// BreakerCache stops calling a failing count cache for a while so a Redis
// outage costs one timeout per breaker window instead of one per request.
// Delete always reaches the cache: a skipped invalidation would leave a
// stale count behind.
type BreakerCache struct {
	next CountCache
	cb   *gobreaker.CircuitBreaker[int]
}

func NewBreakerCache(next CountCache, name string) *BreakerCache {
	return &BreakerCache{
		next: next,
		cb: gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrCacheMiss)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("count cache breaker state changed")
			},
		}),
	}
}

func (b *BreakerCache) Get(ctx context.Context, userID string) (int, error) {
	return b.cb.Execute(func() (int, error) {
		return b.next.Get(ctx, userID)
	})
}

func (b *BreakerCache) Set(ctx context.Context, userID string, count domain.ItemCount) error {
	_, err := b.cb.Execute(func() (int, error) {
		return 0, b.next.Set(ctx, userID, count)
	})
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, userID string) error {
	return b.next.Delete(ctx, userID)
}

func (b *BreakerCache) State() gobreaker.State { return b.cb.State() }
