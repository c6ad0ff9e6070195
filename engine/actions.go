package engine

import (
	"context"
	"fmt"

	"food-delivery/client/apperr"
	"food-delivery/client/metrics"
	"food-delivery/client/models"
	"food-delivery/client/repository"
)

func (e *Engine) Accept(ctx context.Context, orderID string) (models.Order, error) {
	return e.transition(ctx, orderID, models.ActionAccept, "")
}

func (e *Engine) Pickup(ctx context.Context, orderID string) (models.Order, error) {
	return e.transition(ctx, orderID, models.ActionPickup, "")
}

func (e *Engine) Deliver(ctx context.Context, orderID string) (models.Order, error) {
	return e.transition(ctx, orderID, models.ActionDeliver, "")
}

func (e *Engine) Cancel(ctx context.Context, orderID, reason string) (models.Order, error) {
	return e.transition(ctx, orderID, models.ActionCancel, reason)
}

// Do runs a lifecycle action by name.
func (e *Engine) Do(ctx context.Context, orderID string, action models.Action, reason string) (models.Order, error) {
	return e.transition(ctx, orderID, action, reason)
}

func (e *Engine) transition(ctx context.Context, orderID string, action models.Action, reason string) (models.Order, error) {
	orderID = models.NormalizeID(orderID)
	if err := e.checkTransition(orderID, action); err != nil {
		metrics.ObserveAction(string(action), err)
		return models.Order{}, apperr.ActionFailed(action.Label(), err)
	}

	var (
		updated *models.Order
		err     error
	)
	if action == models.ActionCancel {
		updated, err = e.src.Cancel(ctx, e.cfg.Token, orderID, reason)
	} else {
		updated, err = e.src.Transition(ctx, e.cfg.Token, orderID, action, nil)
	}
	metrics.ObserveAction(string(action), err)
	if err != nil {
		if action == models.ActionAccept && apperr.Is(err, apperr.KindConflict) {
			e.logger.Printf("engine: order %s already claimed by another rider", orderID)
			e.markClaimed(orderID)
			e.kick()
		}
		return models.Order{}, apperr.ActionFailed(action.Label(), err)
	}

	if updated != nil {
		e.replace(*updated)
	}
	e.confirm(ctx)

	if o, ok := e.Order(orderID); ok {
		return o, nil
	}
	if updated != nil {
		return updated.Clone(), nil
	}
	return models.Order{ID: orderID, Status: action.Target()}, nil
}

// checkTransition rejects actions the lifecycle table or ownership rules
// forbid, without touching the network.
func (e *Engine) checkTransition(orderID string, action models.Action) error {
	const op = "check transition"
	user := e.cfg.User
	if !action.AllowedFor(user.Role) {
		return apperr.Validation(op, fmt.Sprintf("a %s cannot %s", user.Role, action))
	}
	o, ok := e.Order(orderID)
	if !ok {
		return apperr.Validation(op, fmt.Sprintf("order %s is not in the current view", models.ShortRef(orderID)))
	}
	target := action.Target()
	if !models.CanTransition(o.Status, target) {
		return apperr.Validation(op, fmt.Sprintf("order %s cannot go from %s to %s", o.ShortRef(), o.Status, target))
	}
	switch action {
	case models.ActionAccept:
		if o.Rider != nil {
			return apperr.Validation(op, fmt.Sprintf("order %s already has a rider", o.ShortRef()))
		}
	case models.ActionPickup, models.ActionDeliver:
		if !o.OwnedBy(user.ID) {
			return apperr.Validation(op, fmt.Sprintf("order %s is not assigned to you", o.ShortRef()))
		}
	}
	return nil
}

// Rate attaches a 1..5 rating to a delivered, unrated order.
func (e *Engine) Rate(ctx context.Context, orderID string, rating int, comment string) (models.Order, error) {
	const label = "rate order"
	orderID = models.NormalizeID(orderID)
	if err := e.checkRate(orderID, rating); err != nil {
		metrics.ObserveAction("rate", err)
		return models.Order{}, apperr.ActionFailed(label, err)
	}
	updated, err := e.src.Rate(ctx, e.cfg.Token, orderID, rating, comment)
	metrics.ObserveAction("rate", err)
	if err != nil {
		return models.Order{}, apperr.ActionFailed(label, err)
	}
	if updated != nil {
		e.replace(*updated)
	}
	e.confirm(ctx)
	if o, ok := e.Order(orderID); ok {
		return o, nil
	}
	if updated != nil {
		return updated.Clone(), nil
	}
	return models.Order{}, nil
}

func (e *Engine) checkRate(orderID string, rating int) error {
	const op = "check rating"
	if e.cfg.User.Role != models.RoleCustomer {
		return apperr.Validation(op, "only customers rate orders")
	}
	if rating < 1 || rating > 5 {
		return apperr.Validation(op, "rating must be between 1 and 5")
	}
	o, ok := e.Order(orderID)
	if !ok {
		return apperr.Validation(op, fmt.Sprintf("order %s is not in the current view", models.ShortRef(orderID)))
	}
	if o.Status != models.OrderStatusDelivered {
		return apperr.Validation(op, fmt.Sprintf("order %s is not delivered yet", o.ShortRef()))
	}
	if o.Rated() {
		return apperr.Validation(op, fmt.Sprintf("order %s is already rated", o.ShortRef()))
	}
	return nil
}

// Place submits a new order and adds the created record to the collection.
func (e *Engine) Place(ctx context.Context, draft repository.OrderDraft) (models.Order, error) {
	const label = "place order"
	if e.cfg.User.Role != models.RoleCustomer {
		err := apperr.Validation("check order", "only customers place orders")
		metrics.ObserveAction("place", err)
		return models.Order{}, apperr.ActionFailed(label, err)
	}
	created, err := e.src.CreateOrder(ctx, e.cfg.Token, draft)
	metrics.ObserveAction("place", err)
	if err != nil {
		return models.Order{}, apperr.ActionFailed(label, err)
	}
	e.replace(created)
	e.confirm(ctx)
	return created.Clone(), nil
}

// confirm is the refetch that follows every successful mutation. The
// mutation already succeeded, so a failure here is only logged.
func (e *Engine) confirm(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil {
		e.logger.Printf("engine: confirming refresh failed: %v", err)
		if apperr.Is(err, apperr.KindUnauthorized) && e.onUnauthorized != nil {
			e.onUnauthorized(err)
		}
	}
}

func (e *Engine) kick() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}
