package httpapi

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

type addItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity *int  `json:"quantity,omitempty"`
}

type countResponse struct {
	ItemCount int `json:"item_count"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type moneyView struct {
	Cents     int64  `json:"cents"`
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

func newMoneyView(m domain.Money) moneyView {
	amount := decimal.New(m.Cents, -2)
	return moneyView{
		Cents:     m.Cents,
		Amount:    amount.StringFixed(2),
		Formatted: "$" + humanize.CommafWithDigits(amount.InexactFloat64(), 2),
	}
}

type itemView struct {
	BookID    int64     `json:"book_id"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre"`
	Image     string    `json:"image,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice moneyView `json:"unit_price"`
	LineTotal moneyView `json:"line_total"`
}

type cartView struct {
	CartID        int64      `json:"cart_id,omitempty"`
	UserID        string     `json:"user_id"`
	Items         []itemView `json:"items"`
	ItemCount     int        `json:"item_count"`
	TotalQuantity int        `json:"total_quantity"`
	Total         moneyView  `json:"total"`
}

func toCartView(c *domain.CartDetails) cartView {
	v := cartView{
		CartID:        c.ID,
		UserID:        c.UserID,
		Items:         make([]itemView, 0, len(c.Items)),
		ItemCount:     len(c.Items),
		TotalQuantity: c.TotalQuantity(),
		Total:         newMoneyView(c.Total()),
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, itemView{
			BookID:    it.BookID,
			Name:      it.Book.Name,
			Author:    it.Book.Author,
			Genre:     it.Book.Genre.Name,
			Image:     it.Book.Image,
			Quantity:  it.Quantity,
			UnitPrice: newMoneyView(it.Book.Price),
			LineTotal: newMoneyView(it.LineTotal()),
		})
	}
	return v
}
