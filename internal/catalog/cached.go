package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

// CachedReader keeps recently looked up books in an expiring LRU. Misses
// are not cached, so a book added to the catalog shows up immediately.
type CachedReader struct {
	next  Reader
	cache *expirable.LRU[int64, domain.Book]
}

func NewCachedReader(next Reader, size int, ttl time.Duration) *CachedReader {
	if size <= 0 {
		size = 1024
	}
	return &CachedReader{
		next:  next,
		cache: expirable.NewLRU[int64, domain.Book](size, nil, ttl),
	}
}

func (r *CachedReader) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	if b, ok := r.cache.Get(id); ok {
		return &b, nil
	}
	b, err := r.next.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, *b)
	return b, nil
}
