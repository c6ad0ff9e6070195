package models

import "fmt"

// AllowedTransitions is the order lifecycle. Anything not listed, including
// every move out of delivered or cancelled, is rejected.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted: {OrderStatusPickedUp},
	OrderStatusPickedUp: {OrderStatusDelivered},
}

var allowedTransitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(transitions map[OrderStatus][]OrderStatus) map[OrderStatus]map[OrderStatus]struct{} {
	set := make(map[OrderStatus]map[OrderStatus]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[OrderStatus]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

func CanTransition(from, to OrderStatus) bool {
	next, ok := allowedTransitionSet[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

type Action string

const (
	ActionAccept  Action = "accept"
	ActionPickup  Action = "pickup"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAccept, ActionPickup, ActionDeliver, ActionCancel:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Target is the status an order moves to when the action succeeds.
func (a Action) Target() OrderStatus {
	switch a {
	case ActionAccept:
		return OrderStatusAccepted
	case ActionPickup:
		return OrderStatusPickedUp
	case ActionDeliver:
		return OrderStatusDelivered
	case ActionCancel:
		return OrderStatusCancelled
	}
	return ""
}

// AllowedFor reports whether role may issue the action at all.
func (a Action) AllowedFor(role Role) bool {
	switch a {
	case ActionAccept, ActionPickup, ActionDeliver:
		return role == RoleRider
	case ActionCancel:
		return role == RoleCustomer || role == RoleAdmin
	}
	return false
}

// Label is the human name used in failure messages ("accept order failed").
func (a Action) Label() string {
	switch a {
	case ActionAccept:
		return "accept order"
	case ActionPickup:
		return "pick up order"
	case ActionDeliver:
		return "deliver order"
	case ActionCancel:
		return "cancel order"
	}
	return string(a)
}
