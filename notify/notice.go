// Package notify turns lifecycle events and user actions into the SMS, email
// and banner notices the dashboards show, and hands them to sinks.
package notify

import (
	"fmt"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/models"

	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelSMS    Channel = "sms"
	ChannelEmail  Channel = "email"
	ChannelBanner Channel = "banner"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Channel  Channel   `json:"channel"`
	Level    Level     `json:"level"`
	To       string    `json:"to,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Body     string    `json:"body"`
	OrderRef string    `json:"orderRef,omitempty"`
	UserID   string    `json:"userId,omitempty"`
	At       time.Time `json:"at"`
}

// Templates builds notices. It holds no state beyond the clock.
type Templates struct {
	Now func() time.Time
}

func (t Templates) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t Templates) sms(u models.User, ref, body string) Notice {
	return Notice{Channel: ChannelSMS, Level: LevelInfo, To: u.Phone, Body: body, OrderRef: ref, UserID: u.ID, At: t.now()}
}

func (t Templates) email(u models.User, ref, subject, body string) Notice {
	return Notice{Channel: ChannelEmail, Level: LevelInfo, To: u.Email, Subject: subject, Body: body, OrderRef: ref, UserID: u.ID, At: t.now()}
}

func (t Templates) banner(u models.User, level Level, ref, body string) Notice {
	return Notice{Channel: ChannelBanner, Level: level, Body: body, OrderRef: ref, UserID: u.ID, At: t.now()}
}

func (t Templates) Signup(u models.User) []Notice {
	return []Notice{
		t.email(u, "", "Welcome to FastBite!", fmt.Sprintf("Hi %s, welcome to FastBite!", u.Name)),
		t.sms(u, "", fmt.Sprintf("FastBite: Welcome %s! Your account has been created.", u.Name)),
	}
}

func (t Templates) Login(u models.User) []Notice {
	return []Notice{t.sms(u, "", fmt.Sprintf("FastBite: Welcome back %s!", u.Name))}
}

// OrderPlaced confirms a customer's order with the charged total.
func (t Templates) OrderPlaced(u models.User, o models.Order, total decimal.Decimal) []Notice {
	ref := o.ShortRef()
	return []Notice{
		t.email(u, ref, "Order Confirmed", fmt.Sprintf("Your order has been placed! Total: $%s", total.StringFixed(2))),
		t.sms(u, ref, "FastBite: Order confirmed! We're finding a rider for you."),
	}
}

// ForAction is what the acting user sees after a successful lifecycle action.
func (t Templates) ForAction(action models.Action, u models.User, o models.Order) []Notice {
	ref := o.ShortRef()
	switch action {
	case models.ActionAccept:
		return []Notice{t.sms(u, ref, fmt.Sprintf("FastBite: You've accepted order %s", ref))}
	case models.ActionPickup:
		return []Notice{t.sms(u, ref, fmt.Sprintf("FastBite: Order %s picked up", ref))}
	case models.ActionDeliver:
		return []Notice{t.sms(u, ref, fmt.Sprintf("FastBite: Order %s delivered!", ref))}
	case models.ActionCancel:
		return []Notice{t.banner(u, LevelSuccess, ref, fmt.Sprintf("Order %s cancelled", ref))}
	}
	return nil
}

func (t Templates) Rated(u models.User, o models.Order) []Notice {
	ref := o.ShortRef()
	score := 0
	if o.Rating != nil {
		score = o.Rating.Rating
	}
	return []Notice{t.banner(u, LevelSuccess, ref, fmt.Sprintf("Thanks! You rated order %s %d/5", ref, score))}
}

// Failure is the dismissable banner naming the action that failed.
func (t Templates) Failure(u models.User, label, orderID string, err error) []Notice {
	ref := ""
	if orderID != "" {
		ref = models.ShortRef(orderID)
	}
	body := fmt.Sprintf("%s failed", label)
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		body = fmt.Sprintf("Order %s was already accepted by another rider", ref)
	case apperr.KindValidation:
		if msg := apperr.MessageOf(err); msg != "" {
			body = fmt.Sprintf("%s failed: %s", label, msg)
		}
	case apperr.KindUnauthorized:
		body = "Your session has expired. Please log in again."
	}
	return []Notice{t.banner(u, LevelError, ref, body)}
}

// ForEvent maps a pushed lifecycle event to notices for the viewing user.
func (t Templates) ForEvent(ev models.RealtimeEvent, u models.User) []Notice {
	ref := models.ShortRef(ev.OrderID)
	self := ev.RiderID != "" && models.NormalizeID(ev.RiderID) == models.NormalizeID(u.ID)
	switch u.Role {
	case models.RoleCustomer:
		return t.customerEvent(ev, u, ref)
	case models.RoleRider:
		return t.riderEvent(ev, u, ref, self)
	case models.RoleAdmin:
		if ev.Type.Lifecycle() {
			return []Notice{t.banner(u, LevelInfo, ref, fmt.Sprintf("Order %s: %s", ref, eventVerb(ev.Type)))}
		}
	}
	return nil
}

func (t Templates) customerEvent(ev models.RealtimeEvent, u models.User, ref string) []Notice {
	rider := ev.RiderName
	if rider == "" {
		rider = "a rider"
	}
	switch ev.Type {
	case models.EventOrderAccepted:
		body := fmt.Sprintf("FastBite: Your order %s was accepted by %s", ref, rider)
		return []Notice{t.sms(u, ref, body), t.banner(u, LevelInfo, ref, body)}
	case models.EventOrderPickedUp:
		body := fmt.Sprintf("FastBite: Your order %s is on its way!", ref)
		return []Notice{t.sms(u, ref, body), t.banner(u, LevelInfo, ref, body)}
	case models.EventOrderDelivered:
		return []Notice{
			t.sms(u, ref, fmt.Sprintf("FastBite: Order %s delivered. Enjoy your meal!", ref)),
			t.email(u, ref, "Order Delivered", fmt.Sprintf("Your order %s has been delivered. Let us know how %s did by rating the delivery.", ref, rider)),
		}
	case models.EventOrderCancelled:
		return []Notice{t.banner(u, LevelInfo, ref, fmt.Sprintf("Order %s was cancelled", ref))}
	}
	return nil
}

func (t Templates) riderEvent(ev models.RealtimeEvent, u models.User, ref string, self bool) []Notice {
	switch ev.Type {
	case models.EventNewOrderAvailable:
		body := fmt.Sprintf("New order available %s: %s → %s", ref, orDash(ev.Pickup), orDash(ev.Dropoff))
		if ev.EstimatedEarnings.IsPositive() {
			body += fmt.Sprintf(" (earn %s)", ev.EstimatedEarnings)
		}
		return []Notice{t.banner(u, LevelInfo, ref, body)}
	case models.EventOrderAccepted:
		if self {
			return nil
		}
		return []Notice{t.banner(u, LevelInfo, ref, fmt.Sprintf("Order %s was taken by another rider", ref))}
	case models.EventOrderCancelled:
		if self {
			return []Notice{t.banner(u, LevelError, ref, fmt.Sprintf("Order %s was cancelled by the customer", ref))}
		}
	}
	return nil
}

func eventVerb(t models.EventType) string {
	switch t {
	case models.EventOrderAccepted:
		return "accepted"
	case models.EventOrderPickedUp:
		return "picked up"
	case models.EventOrderDelivered:
		return "delivered"
	case models.EventOrderCancelled:
		return "cancelled"
	}
	return string(t)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
