package domain

import "math"

type Genre struct {
	ID   int64
	Name string
}

type Book struct {
	ID     int64
	Name   string
	Author string
	Price  Money
	Image  string
	Genre  Genre
}

// Money is an amount in integer cents. Prices are never negative, and sums
// and products saturate at math.MaxInt64 instead of wrapping.
type Money struct{ Cents int64 }

func (m Money) Add(o Money) Money {
	if o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Mul(qty int) Money {
	if qty > 0 && m.Cents > math.MaxInt64/int64(qty) {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: m.Cents * int64(qty)}
}
