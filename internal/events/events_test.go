package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	keys []string
	body [][]byte
	err  error
}

func (r *recorder) Publish(_ context.Context, key string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.body = append(r.body, body)
	return r.err
}

func TestPublishJSON(t *testing.T) {
	rec := &recorder{}
	payload := NewCartItemPayload("u1", 7, 2, 3)

	require.NoError(t, PublishJSON(context.Background(), rec, RKCartItemAdded, payload))
	require.Len(t, rec.keys, 1)
	assert.Equal(t, "cart.item.added", rec.keys[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.body[0], &got))
	assert.Equal(t, "u1", got["user_id"])
	assert.EqualValues(t, 7, got["book_id"])
	assert.EqualValues(t, 2, got["delta"])
	assert.EqualValues(t, 3, got["item_count"])
	assert.NotContains(t, got, "removed")

	_, err := uuid.Parse(got["event_id"].(string))
	assert.NoError(t, err)
}

func TestPublishJSON_PropagatesPublisherError(t *testing.T) {
	boom := errors.New("channel closed")
	rec := &recorder{err: boom}

	err := PublishJSON(context.Background(), rec, RKCartItemRemoved, NewCartItemPayload("u1", 1, -1, 0))
	assert.ErrorIs(t, err, boom)
}

func TestPublishJSON_Unmarshalable(t *testing.T) {
	rec := &recorder{}

	err := PublishJSON(context.Background(), rec, RKCartItemAdded, make(chan int))
	assert.Error(t, err)
	assert.Empty(t, rec.keys)
}

func TestEventIDsAreUnique(t *testing.T) {
	a := NewCartItemPayload("u1", 1, 1, 1)
	b := NewCartItemPayload("u1", 1, 1, 1)
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestRabbit_DisabledWithoutURL(t *testing.T) {
	r, err := NewRabbit("", "bookstore")
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.NoError(t, r.Publish(context.Background(), RKCartItemAdded, []byte(`{}`)))
	assert.NoError(t, PublishJSON(context.Background(), r, RKCartItemAdded, NewCartItemPayload("u", 1, 1, 1)))
	assert.NoError(t, r.Close())
}
