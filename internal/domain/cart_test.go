package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartDetails_Totals(t *testing.T) {
	c := &CartDetails{
		ID:     1,
		UserID: "u1",
		Items: []LineItemDetail{
			{LineItem: LineItem{BookID: 1, Quantity: 2}, Book: Book{ID: 1, Price: Money{Cents: 1250}}},
			{LineItem: LineItem{BookID: 2, Quantity: 1}, Book: Book{ID: 2, Price: Money{Cents: 999}}},
		},
	}

	assert.Equal(t, int64(2500), c.Items[0].LineTotal().Cents)
	assert.Equal(t, int64(3499), c.Total().Cents)
	assert.Equal(t, 3, c.TotalQuantity())
	assert.False(t, c.Empty())
}

func TestCartDetails_EmptyCart(t *testing.T) {
	c := &CartDetails{UserID: "u1"}

	assert.True(t, c.Empty())
	assert.Equal(t, int64(0), c.Total().Cents)
	assert.Equal(t, 0, c.TotalQuantity())
}

func TestMoney_Saturates(t *testing.T) {
	huge := Money{Cents: math.MaxInt64 / 2}

	assert.Equal(t, int64(math.MaxInt64), huge.Mul(3).Cents)
	assert.Equal(t, int64(math.MaxInt64), huge.Add(huge).Add(Money{Cents: 10}).Cents)
	assert.Equal(t, int64(1998), Money{Cents: 2}.Mul(MaxLineQuantity).Cents)
}
