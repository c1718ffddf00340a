package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
	"github.com/ahinestrog/mybookstore-cart/internal/store"
)

func setupReader(t *testing.T) *SQLReader {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db, store.DriverSQLite))
	require.NoError(t, store.Seed(ctx, db, store.DriverSQLite))

	return NewSQLReader(db, store.DriverSQLite)
}

func TestSQLReader_GetBook(t *testing.T) {
	r := setupReader(t)

	b, err := r.GetBook(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "A Brief History of Time", b.Name)
	assert.Equal(t, "Stephen Hawking", b.Author)
	assert.Equal(t, "Science", b.Genre.Name)
	assert.Equal(t, int64(6200000), b.Price.Cents)
}

func TestSQLReader_NotFound(t *testing.T) {
	r := setupReader(t)

	b, err := r.GetBook(context.Background(), 404)
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Nil(t, b)
}

type countingReader struct {
	mu    sync.Mutex
	calls map[int64]int
	books map[int64]domain.Book
}

func (c *countingReader) GetBook(_ context.Context, id int64) (*domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[id]++
	b, ok := c.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return &b, nil
}

func TestCachedReader_HitsAndMisses(t *testing.T) {
	next := &countingReader{
		calls: map[int64]int{},
		books: map[int64]domain.Book{1: {ID: 1, Name: "Cosmos"}},
	}
	r := NewCachedReader(next, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b, err := r.GetBook(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Cosmos", b.Name)
	}
	assert.Equal(t, 1, next.calls[1])

	for i := 0; i < 2; i++ {
		_, err := r.GetBook(ctx, 2)
		assert.ErrorIs(t, err, ErrBookNotFound)
	}
	assert.Equal(t, 2, next.calls[2], "misses are not cached")
}

func TestCachedReader_Expires(t *testing.T) {
	next := &countingReader{
		calls: map[int64]int{},
		books: map[int64]domain.Book{1: {ID: 1}},
	}
	r := NewCachedReader(next, 8, 20*time.Millisecond)
	ctx := context.Background()

	_, err := r.GetBook(ctx, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if _, err := r.GetBook(ctx, 1); err != nil {
			return false
		}
		next.mu.Lock()
		defer next.mu.Unlock()
		return next.calls[1] >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestCachedReader_ReturnsCopies(t *testing.T) {
	next := &countingReader{
		calls: map[int64]int{},
		books: map[int64]domain.Book{1: {ID: 1, Name: "Sapiens"}},
	}
	r := NewCachedReader(next, 8, time.Minute)
	ctx := context.Background()

	b, err := r.GetBook(ctx, 1)
	require.NoError(t, err)
	b.Name = "changed"

	again, err := r.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sapiens", again.Name)
}
