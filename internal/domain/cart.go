package domain

type Cart struct {
	ID     int64
	UserID string
}

type LineItem struct {
	ID       int64
	CartID   int64
	BookID   int64
	Quantity int
}

// CartDetails is a cart with every line joined to its book and genre.
// A zero ID means the user has no cart yet.
type CartDetails struct {
	ID     int64
	UserID string
	Items  []LineItemDetail
}

type LineItemDetail struct {
	LineItem
	Book Book
}

func (it LineItemDetail) LineTotal() Money { return it.Book.Price.Mul(it.Quantity) }

func (c *CartDetails) Total() Money {
	var total Money
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (c *CartDetails) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *CartDetails) Empty() bool { return len(c.Items) == 0 }

// MaxLineQuantity caps the copies of one book a single cart line can hold.
const MaxLineQuantity = 999

// ItemCount is the number of distinct lines in a user's cart together with
// the cart version it was read at. Version grows by one with every
// committed change to the cart and is 0 when the user has no cart.
type ItemCount struct {
	Lines   int
	Version int64
}
