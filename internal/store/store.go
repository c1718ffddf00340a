package store

import (
	"context"
	"errors"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrLineItemNotFound = errors.New("line item not found in cart")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrQuantityLimit    = errors.New("line quantity limit exceeded")
	// ErrConflict marks errors that a fresh transaction may not hit again:
	// unique violations between concurrent writers, busy databases,
	// serialization failures.
	ErrConflict = errors.New("concurrent modification")
)

// CartStore is the persistence contract of the cart service.
type CartStore interface {
	FindCartByUser(ctx context.Context, userID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, userID string) (*domain.Cart, error)
	FindLineItem(ctx context.Context, cartID, bookID int64) (*domain.LineItem, error)
	// UpsertLineItem adds delta copies of a book to the cart. It fails with
	// ErrQuantityLimit, leaving the line untouched, when the resulting
	// quantity would exceed domain.MaxLineQuantity.
	UpsertLineItem(ctx context.Context, cartID, bookID int64, delta int) error
	// DecrementOrRemove reports removed=true when the line was deleted
	// instead of decremented.
	DecrementOrRemove(ctx context.Context, lineItemID int64, amount int) (removed bool, err error)
	// ClearLineItems empties a cart and reports how many lines it held.
	ClearLineItems(ctx context.Context, cartID int64) (int, error)
	GetCartWithDetails(ctx context.Context, userID string) (*domain.CartDetails, error)
	// BumpVersion marks the cart as changed. Writers call it inside the
	// transaction that changes the cart's lines.
	BumpVersion(ctx context.Context, cartID int64) error
	// CountLineItems reads the line count and cart version in one
	// statement. A user without a cart gets the zero ItemCount.
	CountLineItems(ctx context.Context, userID string) (domain.ItemCount, error)

	// InTx runs fn against a store bound to one transaction. The
	// transaction commits only when fn returns nil and is rolled back on
	// every other path.
	InTx(ctx context.Context, fn func(CartStore) error) error
}
