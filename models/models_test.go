package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_Lenient(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`12.5`, "12.50"},
		{`"7.25"`, "7.25"},
		{`null`, "0.00"},
		{`"abc"`, "0.00"},
		{`-3`, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.in), &a))
			assert.Equal(t, tt.want, a.StringFixed(2))
		})
	}
	assert.Equal(t, "$0.00", Amount{}.String())
	assert.Equal(t, "$30.00", NewAmount(30).String())
}

func TestPartyRef_Forms(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"o1","status":"accepted","rider":" r1 ","customer":{"_id":"c1","name":"Ella"}}`), &o))
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "r1", o.RiderID())
	assert.True(t, o.OwnedBy("r1 "))
	require.NotNil(t, o.Customer)
	assert.Equal(t, "c1", o.Customer.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"o2","status":"pending","rider":{"_id":""}}`), &o))
	assert.Nil(t, o.Rider, "an empty rider binding is no rider")
	assert.False(t, o.OwnedBy(""))
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderStatusPending, OrderStatusAccepted},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusAccepted, OrderStatusPickedUp},
		{OrderStatusPickedUp, OrderStatusDelivered},
	}
	for _, p := range allowed {
		assert.True(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}

	rejected := [][2]OrderStatus{
		{OrderStatusAccepted, OrderStatusCancelled},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusAccepted},
		{OrderStatusPickedUp, OrderStatusAccepted},
	}
	for _, p := range rejected {
		assert.False(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.False(t, OrderStatusPickedUp.Terminal())
}

func TestCart_Total(t *testing.T) {
	var c Cart
	burger := MenuItem{ID: "m1", Name: "Burger", Price: NewAmount(10)}
	c.Add(burger)
	c.Add(burger)
	c.Add(MenuItem{ID: "m2", Name: "Fries", Price: NewAmount(5)})
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Total(DefaultDeliveryFee).Equal(decimal.NewFromInt(30)))

	c.SetQty("m2", 0)
	assert.Equal(t, 1, c.Len())
	items := c.Items()
	items[0].Qty = 99
	assert.Equal(t, 2, c.Items()[0].Qty, "Items returns a copy")

	c.Clear()
	assert.True(t, c.Subtotal().IsZero())
}

func TestParseEvent(t *testing.T) {
	ev, ok, err := ParseEvent([]byte(`{"type":"order-accepted","order_id":"o1","riderId":{"_id":"r1"},"riderName":"Ray"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, "r1", ev.RiderID)

	ev, ok, err = ParseEvent([]byte(`{"type":"new-order-available","order":{"_id":"o2","status":"pending","pickup":"Dock 4","dropoff":{"address":"Main St"}},"estimatedEarnings":"6"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o2", ev.OrderID)
	assert.Equal(t, "Dock 4", ev.Pickup)
	assert.Equal(t, "Main St", ev.Dropoff)
	assert.Equal(t, "$6.00", ev.EstimatedEarnings.String())

	_, ok, err = ParseEvent([]byte(`{"type":"typing"}`))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateAndRiderConsistent(t *testing.T) {
	assert.Error(t, Order{Status: OrderStatusPending}.Validate())
	assert.Error(t, Order{ID: "o", Status: "lost"}.Validate())
	assert.Error(t, Order{ID: "o", Status: OrderStatusPending, Items: []OrderItem{{MenuItemID: "m", Qty: 0}}}.Validate())
	assert.NoError(t, Order{ID: "o", Status: OrderStatusDelivered, Rating: &Rating{Rating: 5}}.Validate())

	rider := &PartyRef{ID: "r1"}
	assert.True(t, Order{Status: OrderStatusPending}.RiderConsistent())
	assert.False(t, Order{Status: OrderStatusPending, Rider: rider}.RiderConsistent())
	assert.False(t, Order{Status: OrderStatusAccepted}.RiderConsistent())
	assert.True(t, Order{Status: OrderStatusPickedUp, Rider: rider}.RiderConsistent())
	assert.True(t, Order{Status: OrderStatusCancelled, Rider: rider}.RiderConsistent())
}

func TestRating_BareScore(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":"o","status":"delivered","rating":4}`), &o))
	require.NotNil(t, o.Rating)
	assert.Equal(t, 4, o.Rating.Rating)
	assert.True(t, o.Rated())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"o","status":"delivered","rating":{"rating":"5","comment":"fast"}}`), &o))
	assert.Equal(t, Rating{Rating: 5, Comment: "fast"}, *o.Rating)
}

func TestClone_Independent(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	o := Order{
		ID:          "o",
		Status:      OrderStatusDelivered,
		Rider:       &PartyRef{ID: "r1"},
		Items:       []OrderItem{{MenuItemID: "m1", Qty: 1}},
		Rating:      &Rating{Rating: 3},
		DeliveredAt: &at,
	}
	c := o.Clone()
	c.Rider.ID = "r2"
	c.Items[0].Qty = 5
	c.Rating.Rating = 1
	*c.DeliveredAt = at.Add(time.Hour)

	assert.Equal(t, "r1", o.Rider.ID)
	assert.Equal(t, 1, o.Items[0].Qty)
	assert.Equal(t, 3, o.Rating.Rating)
	assert.Equal(t, at, *o.DeliveredAt)
	assert.Nil(t, CloneOrders(nil))
}

func TestSortOrders(t *testing.T) {
	orders := []Order{
		{ID: "b", CreatedAt: time.Unix(100, 0)},
		{ID: "a", CreatedAt: time.Unix(100, 0)},
		{ID: "c", CreatedAt: time.Unix(200, 0)},
	}
	SortOrders(orders)
	assert.Equal(t, "c", orders[0].ID)
	assert.Equal(t, "a", orders[1].ID)
	assert.Equal(t, "b", orders[2].ID)
}

func TestCategories(t *testing.T) {
	menu := []MenuItem{{ID: "1", Category: "Mains"}, {ID: "2", Category: "Sides"}, {ID: "3", Category: "Mains"}, {ID: "4"}}
	assert.Equal(t, []string{"all", "Mains", "Sides"}, Categories(menu))
	assert.Len(t, FilterByCategory(menu, "Mains"), 2)
	assert.Len(t, FilterByCategory(menu, "all"), 4)
}
