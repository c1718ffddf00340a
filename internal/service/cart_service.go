package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ahinestrog/mybookstore-cart/internal/cache"
	"github.com/ahinestrog/mybookstore-cart/internal/catalog"
	"github.com/ahinestrog/mybookstore-cart/internal/domain"
	"github.com/ahinestrog/mybookstore-cart/internal/events"
	"github.com/ahinestrog/mybookstore-cart/internal/store"
)

type Options struct {
	TxTimeout    time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func DefaultOptions() Options {
	return Options{
		TxTimeout:    5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 20 * time.Millisecond,
	}
}

const sideEffectTimeout = 2 * time.Second

type CartService struct {
	store   store.CartStore
	catalog catalog.Reader
	cache   cache.CountCache
	events  events.Publisher
	opts    Options
	sfg     singleflight.Group
}

// NewCartService wires the service. counts and pub may be nil, which
// disables the count cache and event publishing.
func NewCartService(st store.CartStore, cat catalog.Reader, counts cache.CountCache, pub events.Publisher, opts Options) *CartService {
	if counts == nil {
		counts = cache.Noop{}
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = DefaultOptions().TxTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &CartService{
		store:   st,
		catalog: cat,
		cache:   counts,
		events:  pub,
		opts:    opts,
	}
}

// AddItem puts qty copies of a book in the user's cart, creating the cart
// on first use, and returns the number of distinct line-items afterwards.
func (s *CartService) AddItem(ctx context.Context, userID string, bookID int64, qty int) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if qty < 1 || qty > domain.MaxLineQuantity {
		return 0, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidArgument, domain.MaxLineQuantity)
	}
	if bookID <= 0 {
		return 0, fmt.Errorf("%w: invalid book id %d", ErrInvalidArgument, bookID)
	}
	if _, err := s.catalog.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			return 0, fmt.Errorf("%w: unknown book %d", ErrInvalidArgument, bookID)
		}
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var count domain.ItemCount
	err := s.write(ctx, func(ctx context.Context, tx store.CartStore) error {
		cart, err := tx.FindCartByUser(ctx, userID)
		if errors.Is(err, store.ErrCartNotFound) {
			cart, err = tx.CreateCart(ctx, userID)
		}
		if err != nil {
			return err
		}
		err = tx.UpsertLineItem(ctx, cart.ID, bookID, qty)
		if errors.Is(err, store.ErrQuantityLimit) {
			return fmt.Errorf("%w: book %d would exceed %d copies", ErrInvalidArgument, bookID, domain.MaxLineQuantity)
		}
		if err != nil {
			return err
		}
		if err := tx.BumpVersion(ctx, cart.ID); err != nil {
			return err
		}
		count, err = tx.CountLineItems(ctx, userID)
		return err
	})
	if errors.Is(err, ErrInvalidArgument) {
		return 0, err
	}
	if err != nil {
		logger(ctx).Error().Err(err).
			Str("user", userID).Int64("book", bookID).Int("qty", qty).
			Msg("add to cart failed")
		return 0, ErrOperationFailed
	}

	s.afterWrite(ctx, userID, count, events.RKCartItemAdded, events.NewCartItemPayload(userID, bookID, qty, count.Lines))
	return count.Lines, nil
}

// RemoveItem takes one copy of a book out of the user's cart. The line is
// deleted when its last copy goes.
func (s *CartService) RemoveItem(ctx context.Context, userID string, bookID int64) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if bookID <= 0 {
		return 0, fmt.Errorf("%w: invalid book id %d", ErrInvalidArgument, bookID)
	}

	var (
		count   domain.ItemCount
		removed bool
	)
	err := s.write(ctx, func(ctx context.Context, tx store.CartStore) error {
		cart, err := tx.FindCartByUser(ctx, userID)
		if errors.Is(err, store.ErrCartNotFound) {
			return fmt.Errorf("%w: user has no cart", ErrNotFound)
		}
		if err != nil {
			return err
		}
		it, err := tx.FindLineItem(ctx, cart.ID, bookID)
		if errors.Is(err, store.ErrLineItemNotFound) {
			return fmt.Errorf("%w: book %d is not in the cart", ErrNotFound, bookID)
		}
		if err != nil {
			return err
		}
		removed, err = tx.DecrementOrRemove(ctx, it.ID, 1)
		if errors.Is(err, store.ErrLineItemNotFound) {
			return fmt.Errorf("%w: book %d is not in the cart", ErrNotFound, bookID)
		}
		if err != nil {
			return err
		}
		if err := tx.BumpVersion(ctx, cart.ID); err != nil {
			return err
		}
		count, err = tx.CountLineItems(ctx, userID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		logger(ctx).Error().Err(err).
			Str("user", userID).Int64("book", bookID).
			Msg("remove from cart failed")
		return 0, ErrOperationFailed
	}

	payload := events.NewCartItemPayload(userID, bookID, -1, count.Lines)
	payload.Removed = removed
	s.afterWrite(ctx, userID, count, events.RKCartItemRemoved, payload)
	return count.Lines, nil
}

// ClearCart removes every line from the user's cart. Clearing a cart that
// does not exist or is already empty succeeds and publishes nothing.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	var (
		cleared int
		count   domain.ItemCount
	)
	err := s.write(ctx, func(ctx context.Context, tx store.CartStore) error {
		cart, err := tx.FindCartByUser(ctx, userID)
		if errors.Is(err, store.ErrCartNotFound) {
			cleared = 0
			return nil
		}
		if err != nil {
			return err
		}
		cleared, err = tx.ClearLineItems(ctx, cart.ID)
		if err != nil || cleared == 0 {
			return err
		}
		if err := tx.BumpVersion(ctx, cart.ID); err != nil {
			return err
		}
		count, err = tx.CountLineItems(ctx, userID)
		return err
	})
	if err != nil {
		logger(ctx).Error().Err(err).Str("user", userID).Msg("clear cart failed")
		return ErrOperationFailed
	}

	if cleared > 0 {
		s.afterWrite(ctx, userID, count, events.RKCartCleared, events.NewCartClearedPayload(userID, cleared))
	}
	return nil
}

// GetUserCart returns the cart with every line joined to its book. A user
// who never added anything gets an empty cart with ID 0. The result may be
// shared between concurrent callers and must not be modified.
func (s *CartService) GetUserCart(ctx context.Context, userID string) (*domain.CartDetails, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	v, err := s.shared(ctx, cartKey(userID), func(ctx context.Context) (any, error) {
		details, err := s.store.GetCartWithDetails(ctx, userID)
		if errors.Is(err, store.ErrCartNotFound) {
			return &domain.CartDetails{UserID: userID}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return details, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartDetails), nil
}

// GetCartItemCount returns the number of distinct line-items in the
// user's cart, 0 when there is no cart.
func (s *CartService) GetCartItemCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}

	n, err := s.cache.Get(ctx, userID)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger(ctx).Warn().Err(err).Str("user", userID).Msg("count cache get failed")
	}

	v, err := s.shared(ctx, countKey(userID), func(ctx context.Context) (any, error) {
		n, err := s.store.CountLineItems(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if err := s.cache.Set(ctx, userID, n); err != nil {
			logger(ctx).Warn().Err(err).Str("user", userID).Msg("count cache set failed")
		}
		return n.Lines, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// shared collapses concurrent reads of key into one call of fn. fn runs
// detached from any caller's cancellation and is bounded by TxTimeout;
// each caller stops waiting when its own ctx ends.
func (s *CartService) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.sfg.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TxTimeout)
		defer cancel()
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, ctx.Err())
	case res := <-ch:
		return res.Val, res.Err
	}
}

func cartKey(userID string) string  { return "cart:" + userID }
func countKey(userID string) string { return "count:" + userID }

// write runs fn in a transaction bounded by TxTimeout and retries the whole
// transaction while the store reports a conflict.
func (s *CartService) write(ctx context.Context, fn func(context.Context, store.CartStore) error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			logger(ctx).Debug().Err(err).Int("attempt", attempt).Msg("retrying cart transaction")
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(time.Duration(attempt) * s.opts.RetryBackoff):
			}
		}

		err = s.inTx(ctx, fn)
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.opts.MaxRetries+1, err)
}

func (s *CartService) inTx(ctx context.Context, fn func(context.Context, store.CartStore) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	return s.store.InTx(ctx, func(tx store.CartStore) error {
		return fn(ctx, tx)
	})
}

// afterWrite runs once the transaction has committed. Reads already in
// flight for the user are forgotten so later callers start a fresh one,
// and the committed count goes to the cache. Failures here are logged and
// never change the result of the write.
func (s *CartService) afterWrite(ctx context.Context, userID string, count domain.ItemCount, key string, payload any) {
	s.sfg.Forget(cartKey(userID))
	s.sfg.Forget(countKey(userID))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	l := logger(ctx)
	if err := s.cache.Set(ctx, userID, count); err != nil {
		l.Warn().Err(err).Str("user", userID).Msg("count cache update failed")
		if err := s.cache.Delete(ctx, userID); err != nil {
			l.Warn().Err(err).Str("user", userID).Msg("count cache invalidate failed")
		}
	}
	if err := events.PublishJSON(ctx, s.events, key, payload); err != nil {
		l.Warn().Err(err).Str("key", key).Str("user", userID).Msg("publish cart event failed")
	}
}

// logger prefers the request-scoped logger installed by the HTTP layer.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
