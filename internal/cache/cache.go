// Package cache holds the per-user line-item count shown in the cart badge.
package cache

import (
	"context"
	"errors"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CountCache stores the latest known ItemCount per user. Set keeps the
// entry with the highest cart version, so a count read before a write
// committed can never replace the count that write produced.
type CountCache interface {
	Get(ctx context.Context, userID string) (int, error)
	Set(ctx context.Context, userID string, count domain.ItemCount) error
	Delete(ctx context.Context, userID string) error
}

// Noop is used when no Redis address is configured. Every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (int, error)            { return 0, ErrCacheMiss }
func (Noop) Set(context.Context, string, domain.ItemCount) error { return nil }
func (Noop) Delete(context.Context, string) error                { return nil }
