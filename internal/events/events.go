// Package events publishes cart changes for other bookstore services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RKCartItemAdded   = "cart.item.added"
	RKCartItemRemoved = "cart.item.removed"
	RKCartCleared     = "cart.cleared"
)

type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// CartItemPayload is the body of the cart.item.* routing keys. Delta is
// positive for additions and negative for removals.
type CartItemPayload struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	BookID     int64     `json:"book_id"`
	Delta      int       `json:"delta"`
	Removed    bool      `json:"removed,omitempty"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewCartItemPayload(userID string, bookID int64, delta, itemCount int) CartItemPayload {
	return CartItemPayload{
		EventID:    uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		Delta:      delta,
		ItemCount:  itemCount,
		OccurredAt: time.Now().UTC(),
	}
}

type CartClearedPayload struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	LinesRemoved int       `json:"lines_removed"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewCartClearedPayload(userID string, linesRemoved int) CartClearedPayload {
	return CartClearedPayload{
		EventID:      uuid.NewString(),
		UserID:       userID,
		LinesRemoved: linesRemoved,
		OccurredAt:   time.Now().UTC(),
	}
}

func PublishJSON(ctx context.Context, p Publisher, key string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return p.Publish(ctx, key, body)
}
