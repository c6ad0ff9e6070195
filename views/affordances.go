package views

import (
	"strconv"

	"food-delivery/client/models"
)

// Actions lists the lifecycle buttons user should see on o.
func Actions(o models.Order, user models.User) []models.Action {
	switch user.Role {
	case models.RoleRider:
		switch {
		case IsAvailable(o):
			return []models.Action{models.ActionAccept}
		case o.Status == models.OrderStatusAccepted && o.OwnedBy(user.ID):
			return []models.Action{models.ActionPickup}
		case o.Status == models.OrderStatusPickedUp && o.OwnedBy(user.ID):
			return []models.Action{models.ActionDeliver}
		}
	case models.RoleCustomer, models.RoleAdmin:
		if o.Status == models.OrderStatusPending {
			return []models.Action{models.ActionCancel}
		}
	}
	return nil
}

// CanRate reports whether the customer may attach a rating to o.
func CanRate(o models.Order, user models.User) bool {
	return user.Role == models.RoleCustomer && o.Status == models.OrderStatusDelivered && !o.Rated()
}

// RatingLabel is the rating line shown on a delivered order: "5/5" once
// rated, otherwise the role-specific placeholder.
func RatingLabel(o models.Order, role models.Role) string {
	if o.Status != models.OrderStatusDelivered {
		return ""
	}
	if o.Rated() {
		return strconv.Itoa(o.Rating.Rating) + "/5"
	}
	if role == models.RoleCustomer {
		return "rate this order"
	}
	return "waiting for rating"
}
