// Package catalog gives the cart read-only access to books.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
	"github.com/ahinestrog/mybookstore-cart/internal/store"
)

var ErrBookNotFound = errors.New("book not found")

type Reader interface {
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
}

type SQLReader struct {
	db     *sql.DB
	driver string
}

func NewSQLReader(db *sql.DB, driver string) *SQLReader {
	return &SQLReader{db: db, driver: driver}
}

func (r *SQLReader) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var b domain.Book
	err := r.db.QueryRowContext(ctx, store.Rebind(r.driver, `
		SELECT b.id, b.name, b.author, b.price_cents, b.image, g.id, g.name
		FROM books b JOIN genres g ON g.id = b.genre_id
		WHERE b.id = ?`), id).
		Scan(&b.ID, &b.Name, &b.Author, &b.Price.Cents, &b.Image, &b.Genre.ID, &b.Genre.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &b, nil
}
