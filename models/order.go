package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseStatus rejects anything outside the five known lifecycle states.
func ParseStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.TrimSpace(s)); st {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPickedUp, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Terminal reports whether no further mutation is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Claimed reports whether an order in this status carries a rider binding.
func (s OrderStatus) Claimed() bool {
	return s == OrderStatusAccepted || s == OrderStatusPickedUp || s == OrderStatusDelivered
}

type Order struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	Customer     *PartyRef   `json:"customer,omitempty"`
	Rider        *PartyRef   `json:"rider,omitempty"`
	Items        []OrderItem `json:"items"`
	Pickup       Location    `json:"pickup"`
	Dropoff      Location    `json:"dropoff"`
	TotalAmount  Amount      `json:"totalAmount"`
	Notes        string      `json:"notes,omitempty"`
	CancelReason string      `json:"cancelReason,omitempty"`
	Rating       *Rating     `json:"rating,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	AcceptedAt   *time.Time  `json:"acceptedAt,omitempty"`
	PickedUpAt   *time.Time  `json:"pickedUpAt,omitempty"`
	DeliveredAt  *time.Time  `json:"deliveredAt,omitempty"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	Name       string `json:"name"`
	Price      Amount `json:"price"`
	Qty        int    `json:"qty" validate:"gte=1"`
}

type Location struct {
	Address string `json:"address"`
}

// UnmarshalJSON accepts both {"address": "..."} and a bare address string.
func (l *Location) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		l.Address = s
		return nil
	}
	type alias Location
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*l = Location(a)
	return nil
}

type Rating struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// UnmarshalJSON accepts a bare score as well as {"rating": n, "comment": ...}.
func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		n, _ := ParseAmount(b).Float64()
		*r = Rating{Rating: int(n)}
		return nil
	}
	type alias Rating
	var a struct {
		alias
		Score json.RawMessage `json:"rating"`
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	n, _ := ParseAmount(a.Score).Float64()
	*r = Rating{Rating: int(n), Comment: a.Comment}
	return nil
}

// UnmarshalJSON normalises the identity field and drops empty rider bindings.
func (o *Order) UnmarshalJSON(b []byte) error {
	type alias Order
	aux := struct {
		*alias
		UnderscoreID string `json:"_id"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.ID = CanonicalID(o.ID, aux.UnderscoreID)
	if o.Rider != nil && o.Rider.ID == "" {
		o.Rider = nil
	}
	if o.Customer != nil && o.Customer.ID == "" && o.Customer.Name == "" {
		o.Customer = nil
	}
	if o.Rating != nil && o.Rating.Rating == 0 {
		o.Rating = nil
	}
	return nil
}

// Validate checks the structural invariants an ingested order must satisfy.
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order without id")
	}
	if _, err := ParseStatus(string(o.Status)); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	for i, it := range o.Items {
		if it.Qty < 1 {
			return fmt.Errorf("order %s: item %d has qty %d", o.ID, i, it.Qty)
		}
	}
	if o.Rating != nil && (o.Rating.Rating < 1 || o.Rating.Rating > 5) {
		return fmt.Errorf("order %s: rating %d out of range", o.ID, o.Rating.Rating)
	}
	return nil
}

// RiderConsistent reports whether rider presence matches the status.
// Cancelled orders may carry a stale rider and are accepted either way.
func (o Order) RiderConsistent() bool {
	if o.Status == OrderStatusCancelled {
		return true
	}
	return (o.Rider != nil) == o.Status.Claimed()
}

// RiderID is the normalised id of the assigned rider, or "".
func (o Order) RiderID() string {
	if o.Rider == nil {
		return ""
	}
	return NormalizeID(o.Rider.ID)
}

// OwnedBy reports whether riderID is the rider bound to this order.
func (o Order) OwnedBy(riderID string) bool {
	id := NormalizeID(riderID)
	return id != "" && o.RiderID() == id
}

// ShortRef is the "#abc123" reference used in notices.
func (o Order) ShortRef() string {
	return ShortRef(o.ID)
}

func ShortRef(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "#" + id
}

// Rated reports whether a rating has already been attached.
func (o Order) Rated() bool {
	return o.Rating != nil && o.Rating.Rating > 0
}

// Clone returns a copy that shares no slices or pointers with o.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.Customer != nil {
		v := *o.Customer
		c.Customer = &v
	}
	if o.Rider != nil {
		v := *o.Rider
		c.Rider = &v
	}
	if o.Rating != nil {
		v := *o.Rating
		c.Rating = &v
	}
	c.AcceptedAt = cloneTime(o.AcceptedAt)
	c.PickedUpAt = cloneTime(o.PickedUpAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CloneOrders deep-copies a collection; nil stays nil.
func CloneOrders(orders []Order) []Order {
	if orders == nil {
		return nil
	}
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
