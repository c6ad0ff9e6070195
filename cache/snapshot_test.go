package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"food-delivery/client/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot_DropsOrdersThatNoLongerValidate(t *testing.T) {
	data := []byte(`[
		{"_id":"o1","status":"accepted","rider":{"_id":"r1","name":"Ray"},"totalAmount":"12.50"},
		{"_id":"o2","status":"teleported"},
		{"status":"pending"}
	]`)
	orders, err := decodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, "r1", orders[0].RiderID())
	assert.Equal(t, "$12.50", orders[0].TotalAmount.String())

	_, err = decodeSnapshot([]byte(`{`))
	assert.Error(t, err)
}

func TestEncodeSnapshot_KeepsRiderAndMoney(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	in := []models.Order{{
		ID:          "o1",
		Status:      models.OrderStatusDelivered,
		Rider:       &models.PartyRef{ID: "r1", Name: "Ray"},
		TotalAmount: models.NewAmount(30),
		Rating:      &models.Rating{Rating: 5, Comment: "great"},
		DeliveredAt: &at,
	}}
	data, err := encodeSnapshot(in)
	require.NoError(t, err)

	out, err := decodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].OwnedBy("r1"))
	assert.Equal(t, "$30.00", out[0].TotalAmount.String())
	assert.Equal(t, 5, out[0].Rating.Rating)
	assert.True(t, at.Equal(*out[0].DeliveredAt))

	empty, err := encodeSnapshot(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

// TestSnapshotCache_Redis needs a reachable Redis in REDIS_ADDR.
func TestSnapshotCache_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), time.Minute)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	user := "test-user-" + time.Now().Format("150405.000")
	defer c.Clear(ctx, user)

	got, err := c.Load(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, got)

	orders := []models.Order{{ID: "o1", Status: models.OrderStatusPending, TotalAmount: models.NewAmount(9.5)}}
	require.NoError(t, c.Save(ctx, user, orders))

	got, err = c.Load(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)

	meta, err := c.Meta(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Count)
	assert.False(t, meta.SavedAt.IsZero())

	require.NoError(t, c.Clear(ctx, user))
	got, err = c.Load(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, got)
}
