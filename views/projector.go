// Package views derives role-specific slices and aggregates from a reconciled
// order collection. Nothing here mutates its input.
package views

import (
	"time"

	"food-delivery/client/models"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is the share of an order total paid to the rider.
const DefaultCommissionRate = 0.2

type RoleView struct {
	Role models.Role `json:"role"`

	// rider tabs
	Available []models.Order `json:"available,omitempty"`
	Completed []models.Order `json:"completed,omitempty"`

	// customer tabs
	Pending   []models.Order `json:"pending,omitempty"`
	Delivered []models.Order `json:"delivered,omitempty"`
	Cancelled []models.Order `json:"cancelled,omitempty"`

	// shared by rider and customer
	Active []models.Order `json:"active,omitempty"`

	// admin
	All []models.Order `json:"all,omitempty"`

	TodayEarnings decimal.Decimal `json:"todayEarnings"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	Rating        RatingSummary   `json:"rating"`
}

type RatingSummary struct {
	Average   decimal.Decimal `json:"average"`
	Count     int             `json:"count"`
	Available bool            `json:"available"`
}

// String renders "4.5" or "N/A" when nothing has been rated yet.
func (r RatingSummary) String() string {
	if !r.Available {
		return "N/A"
	}
	return r.Average.StringFixed(1)
}

// IsAvailable reports whether o can be claimed by a rider.
func IsAvailable(o models.Order) bool {
	return o.Status == models.OrderStatusPending && o.Rider == nil
}

// IsActiveFor reports whether o is in progress under riderID.
func IsActiveFor(o models.Order, riderID string) bool {
	return (o.Status == models.OrderStatusAccepted || o.Status == models.OrderStatusPickedUp) && o.OwnedBy(riderID)
}

// IsCompletedFor reports whether o was delivered by riderID.
func IsCompletedFor(o models.Order, riderID string) bool {
	return o.Status == models.OrderStatusDelivered && o.OwnedBy(riderID)
}

// Project builds the view of orders for user. now anchors "today".
func Project(orders []models.Order, user models.User, now time.Time, commissionRate float64) RoleView {
	v := RoleView{Role: user.Role}
	switch user.Role {
	case models.RoleRider:
		for _, o := range orders {
			switch {
			case IsAvailable(o):
				v.Available = append(v.Available, o)
			case IsActiveFor(o, user.ID):
				v.Active = append(v.Active, o)
			case IsCompletedFor(o, user.ID):
				v.Completed = append(v.Completed, o)
			}
		}
		v.TotalEarnings = Earnings(v.Completed, commissionRate, nil)
		v.TodayEarnings = Earnings(v.Completed, commissionRate, &now)
		v.Rating = AverageRating(v.Completed)
	case models.RoleCustomer:
		for _, o := range orders {
			switch o.Status {
			case models.OrderStatusPending:
				v.Pending = append(v.Pending, o)
			case models.OrderStatusAccepted, models.OrderStatusPickedUp:
				v.Active = append(v.Active, o)
			case models.OrderStatusDelivered:
				v.Delivered = append(v.Delivered, o)
			case models.OrderStatusCancelled:
				v.Cancelled = append(v.Cancelled, o)
			}
		}
		v.Rating = AverageRating(v.Delivered)
	case models.RoleAdmin:
		v.All = append(v.All, orders...)
		var delivered []models.Order
		for _, o := range orders {
			if o.Status == models.OrderStatusDelivered {
				delivered = append(delivered, o)
			}
		}
		v.Rating = AverageRating(delivered)
	}
	return v
}

// Earnings sums totalAmount * rate over orders, restricted to orders delivered
// on the same calendar day as *day when day is non-nil.
func Earnings(orders []models.Order, rate float64, day *time.Time) decimal.Decimal {
	r := decimal.NewFromFloat(rate)
	sum := decimal.Zero
	for _, o := range orders {
		if day != nil && !deliveredOn(o, *day) {
			continue
		}
		sum = sum.Add(o.TotalAmount.Mul(r))
	}
	return sum.Round(2)
}

func deliveredOn(o models.Order, day time.Time) bool {
	at := o.UpdatedAt
	if o.DeliveredAt != nil {
		at = *o.DeliveredAt
	}
	if at.IsZero() {
		return false
	}
	y1, m1, d1 := at.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func AverageRating(orders []models.Order) RatingSummary {
	sum := decimal.Zero
	n := 0
	for _, o := range orders {
		if !o.Rated() {
			continue
		}
		sum = sum.Add(decimal.NewFromInt(int64(o.Rating.Rating)))
		n++
	}
	if n == 0 {
		return RatingSummary{}
	}
	return RatingSummary{Average: sum.Div(decimal.NewFromInt(int64(n))).Round(2), Count: n, Available: true}
}

// Visible is every order the view shows, across all tabs.
func (v RoleView) Visible() []models.Order {
	var out []models.Order
	for _, tab := range v.Partition() {
		out = append(out, tab...)
	}
	return out
}

// Partition returns the named slices the role's dashboard shows.
func (v RoleView) Partition() map[string][]models.Order {
	switch v.Role {
	case models.RoleRider:
		return map[string][]models.Order{"available": v.Available, "active": v.Active, "completed": v.Completed}
	case models.RoleCustomer:
		return map[string][]models.Order{"pending": v.Pending, "active": v.Active, "delivered": v.Delivered, "cancelled": v.Cancelled}
	case models.RoleAdmin:
		return map[string][]models.Order{"all": v.All}
	}
	return nil
}
