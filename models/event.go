package models

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventOrderAccepted     EventType = "order-accepted"
	EventOrderPickedUp     EventType = "order-picked-up"
	EventOrderDelivered    EventType = "order-delivered"
	EventOrderCancelled    EventType = "order-cancelled"
	EventNewOrderAvailable EventType = "new-order-available"
)

// Known reports whether t is one of the event types this client understands.
func (t EventType) Known() bool {
	switch t {
	case EventOrderAccepted, EventOrderPickedUp, EventOrderDelivered, EventOrderCancelled, EventNewOrderAvailable:
		return true
	}
	return false
}

// Lifecycle reports whether the event announces a status change on an
// existing order.
func (t EventType) Lifecycle() bool {
	return t == EventOrderAccepted || t == EventOrderPickedUp || t == EventOrderDelivered || t == EventOrderCancelled
}

// RealtimeEvent is a push message from the socket. Its fields are
// denormalised copies good enough for notice text, never for order state.
type RealtimeEvent struct {
	Type              EventType       `json:"type"`
	OrderID           string          `json:"orderId,omitempty"`
	Order             *Order          `json:"order,omitempty"`
	RiderID           string          `json:"riderId,omitempty"`
	RiderName         string          `json:"riderName,omitempty"`
	RiderPhone        string          `json:"riderPhone,omitempty"`
	CustomerName      string          `json:"customerName,omitempty"`
	Pickup            string          `json:"pickup,omitempty"`
	Dropoff           string          `json:"dropoff,omitempty"`
	EstimatedEarnings Amount          `json:"estimatedEarnings"`
	Message           string          `json:"message,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

// ParseEvent decodes one socket frame. ok is false for frames whose type is
// not a known event; err is set only for frames that are not valid JSON.
func ParseEvent(frame []byte) (ev RealtimeEvent, ok bool, err error) {
	var aux struct {
		Type     EventType       `json:"type"`
		OrderID  string          `json:"orderId"`
		OrderID2 string          `json:"order_id"`
		ID       string          `json:"_id"`
		Order    *Order          `json:"order"`
		RiderID  json.RawMessage `json:"riderId"`
		Pickup   Location        `json:"pickup"`
		Dropoff  Location        `json:"dropoff"`

		RiderName         string `json:"riderName"`
		RiderPhone        string `json:"riderPhone"`
		CustomerName      string `json:"customerName"`
		EstimatedEarnings Amount `json:"estimatedEarnings"`
		Message           string `json:"message"`
	}
	if err := json.Unmarshal(frame, &aux); err != nil {
		return RealtimeEvent{}, false, fmt.Errorf("decode realtime frame: %w", err)
	}
	if !aux.Type.Known() {
		return RealtimeEvent{Type: aux.Type}, false, nil
	}
	ev = RealtimeEvent{
		Type:              aux.Type,
		OrderID:           CanonicalID(aux.OrderID, aux.OrderID2),
		Order:             aux.Order,
		RiderName:         aux.RiderName,
		RiderPhone:        aux.RiderPhone,
		CustomerName:      aux.CustomerName,
		Pickup:            aux.Pickup.Address,
		Dropoff:           aux.Dropoff.Address,
		EstimatedEarnings: aux.EstimatedEarnings,
		Message:           aux.Message,
		Raw:               append(json.RawMessage(nil), frame...),
	}
	if len(aux.RiderID) > 0 {
		var ref PartyRef
		if err := json.Unmarshal(aux.RiderID, &ref); err == nil {
			ev.RiderID = ref.ID
		}
	}
	if ev.OrderID == "" && ev.Order != nil {
		ev.OrderID = ev.Order.ID
	}
	if ev.OrderID == "" {
		ev.OrderID = NormalizeID(aux.ID)
	}
	if ev.Order != nil {
		if ev.Pickup == "" {
			ev.Pickup = ev.Order.Pickup.Address
		}
		if ev.Dropoff == "" {
			ev.Dropoff = ev.Order.Dropoff.Address
		}
	}
	return ev, true, nil
}
