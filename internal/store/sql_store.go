package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements CartStore on database/sql for the SQLite and
// Postgres drivers. Queries are written with ? placeholders and rebound
// for Postgres.
type SQLStore struct {
	db     *sql.DB // nil when bound to a transaction
	q      querier
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, q: db, driver: driver}
}

func (s *SQLStore) InTx(ctx context.Context, fn func(CartStore) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLStore{q: tx, driver: s.driver}); err != nil {
		return err
	}
	return wrap("commit", tx.Commit())
}

func (s *SQLStore) FindCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	err := s.q.QueryRowContext(ctx, s.rebind(`SELECT id, user_id FROM carts WHERE user_id = ?`), userID).
		Scan(&c.ID, &c.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, wrap("find cart", err)
	}
	return &c, nil
}

func (s *SQLStore) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	c := domain.Cart{UserID: userID}
	err := s.q.QueryRowContext(ctx, s.rebind(`INSERT INTO carts(user_id) VALUES (?) RETURNING id`), userID).
		Scan(&c.ID)
	if err != nil {
		return nil, wrap("create cart", err)
	}
	return &c, nil
}

func (s *SQLStore) FindLineItem(ctx context.Context, cartID, bookID int64) (*domain.LineItem, error) {
	var it domain.LineItem
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, cart_id, book_id, quantity
		FROM cart_items WHERE cart_id = ? AND book_id = ?`), cartID, bookID).
		Scan(&it.ID, &it.CartID, &it.BookID, &it.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLineItemNotFound
	}
	if err != nil {
		return nil, wrap("find line item", err)
	}
	return &it, nil
}

func (s *SQLStore) UpsertLineItem(ctx context.Context, cartID, bookID int64, delta int) error {
	if delta < 1 {
		return ErrInvalidQuantity
	}
	if delta > domain.MaxLineQuantity {
		return ErrQuantityLimit
	}
	res, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO cart_items(cart_id, book_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(cart_id, book_id)
		DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
		WHERE cart_items.quantity + excluded.quantity <= ?`), cartID, bookID, delta, domain.MaxLineQuantity)
	if err != nil {
		return wrap("upsert line item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("upsert line item", err)
	}
	// the conflicting row existed and the guard refused the update
	if n == 0 {
		return ErrQuantityLimit
	}
	return nil
}

func (s *SQLStore) DecrementOrRemove(ctx context.Context, lineItemID int64, amount int) (bool, error) {
	if amount < 1 {
		return false, ErrInvalidQuantity
	}

	res, err := s.q.ExecContext(ctx, s.rebind(`
		UPDATE cart_items SET quantity = quantity - ?
		WHERE id = ? AND quantity > ?`), amount, lineItemID, amount)
	if err != nil {
		return false, wrap("decrement line item", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, wrap("decrement line item", err)
	} else if n == 1 {
		return false, nil
	}

	// quantity would drop to zero or below: the line goes away
	res, err = s.q.ExecContext(ctx, s.rebind(`DELETE FROM cart_items WHERE id = ?`), lineItemID)
	if err != nil {
		return false, wrap("delete line item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete line item", err)
	}
	if n == 0 {
		return false, ErrLineItemNotFound
	}
	return true, nil
}

func (s *SQLStore) ClearLineItems(ctx context.Context, cartID int64) (int, error) {
	res, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM cart_items WHERE cart_id = ?`), cartID)
	if err != nil {
		return 0, wrap("clear cart", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("clear cart", err)
	}
	return int(n), nil
}

func (s *SQLStore) GetCartWithDetails(ctx context.Context, userID string) (*domain.CartDetails, error) {
	cart, err := s.FindCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, s.rebind(`
		SELECT ci.id, ci.cart_id, ci.book_id, ci.quantity,
		       b.name, b.author, b.price_cents, b.image,
		       g.id, g.name
		FROM cart_items ci
		JOIN books b ON b.id = ci.book_id
		JOIN genres g ON g.id = b.genre_id
		WHERE ci.cart_id = ?
		ORDER BY ci.id`), cart.ID)
	if err != nil {
		return nil, wrap("query cart details", err)
	}
	defer rows.Close()

	details := &domain.CartDetails{ID: cart.ID, UserID: cart.UserID}
	for rows.Next() {
		var it domain.LineItemDetail
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.BookID, &it.Quantity,
			&it.Book.Name, &it.Book.Author, &it.Book.Price.Cents, &it.Book.Image,
			&it.Book.Genre.ID, &it.Book.Genre.Name,
		); err != nil {
			return nil, wrap("scan cart details", err)
		}
		it.Book.ID = it.BookID
		details.Items = append(details.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate cart details", err)
	}
	return details, nil
}

func (s *SQLStore) BumpVersion(ctx context.Context, cartID int64) error {
	res, err := s.q.ExecContext(ctx, s.rebind(`UPDATE carts SET version = version + 1 WHERE id = ?`), cartID)
	if err != nil {
		return wrap("bump cart version", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("bump cart version", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (s *SQLStore) CountLineItems(ctx context.Context, userID string) (domain.ItemCount, error) {
	var c domain.ItemCount
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(ci.id), COALESCE(MAX(c.version), 0)
		FROM carts c LEFT JOIN cart_items ci ON ci.cart_id = c.id
		WHERE c.user_id = ?`), userID).Scan(&c.Lines, &c.Version)
	if err != nil {
		return domain.ItemCount{}, wrap("count line items", err)
	}
	return c, nil
}

func (s *SQLStore) rebind(query string) string { return Rebind(s.driver, query) }

// Rebind rewrites ? placeholders into the numbered form postgres expects.
// Queries for the SQLite drivers are returned unchanged.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
