package session

import (
	"context"
	"fmt"
	"strings"

	"food-delivery/client/apperr"
	"food-delivery/client/models"
	"food-delivery/client/repository"

	"github.com/shopspring/decimal"
)

// Act runs a lifecycle action and emits the matching notices.
func (s *Session) Act(ctx context.Context, orderID string, action models.Action, reason string) (models.Order, error) {
	o, err := s.engine.Do(ctx, orderID, action, reason)
	if err != nil {
		return models.Order{}, s.fail(ctx, action.Label(), orderID, err)
	}
	s.notes.Emit(ctx, s.notes.ForAction(action, s.user, o)...)
	return o, nil
}

func (s *Session) roleCheck(role models.Role) error {
	if s.user.Role != role {
		return apperr.Validation("open dashboard", fmt.Sprintf("%s dashboard requires role %s, signed in as %s", role, role, s.user.Role))
	}
	return nil
}

// Customer returns the customer dashboard, or a Validation error for other
// roles.
func (s *Session) Customer() (*CustomerDashboard, error) {
	if err := s.roleCheck(models.RoleCustomer); err != nil {
		return nil, err
	}
	return &CustomerDashboard{s: s}, nil
}

func (s *Session) Rider() (*RiderDashboard, error) {
	if err := s.roleCheck(models.RoleRider); err != nil {
		return nil, err
	}
	return &RiderDashboard{s: s}, nil
}

func (s *Session) Admin() (*AdminDashboard, error) {
	if err := s.roleCheck(models.RoleAdmin); err != nil {
		return nil, err
	}
	return &AdminDashboard{s: s}, nil
}

type CustomerDashboard struct{ s *Session }

func (d *CustomerDashboard) Menu(ctx context.Context) ([]models.MenuItem, error) {
	menu, err := d.s.api.FetchMenu(ctx)
	if err != nil {
		d.s.logger.Printf("session: failed to fetch menu: %v", err)
		return nil, d.s.guard(err)
	}
	return menu, nil
}

func (d *CustomerDashboard) AddToCart(item models.MenuItem) {
	d.s.cartMu.Lock()
	defer d.s.cartMu.Unlock()
	d.s.cart.Add(item)
}

// SetQty changes a cart line; qty <= 0 removes it.
func (d *CustomerDashboard) SetQty(menuItemID string, qty int) {
	d.s.cartMu.Lock()
	defer d.s.cartMu.Unlock()
	d.s.cart.SetQty(menuItemID, qty)
}

func (d *CustomerDashboard) Cart() []models.OrderItem {
	d.s.cartMu.Lock()
	defer d.s.cartMu.Unlock()
	return d.s.cart.Items()
}

func (d *CustomerDashboard) DeliveryFee() decimal.Decimal {
	return decimal.NewFromFloat(d.s.cfg.Engine.DeliveryFee)
}

// CartTotal is the item subtotal plus the delivery fee.
func (d *CustomerDashboard) CartTotal() decimal.Decimal {
	d.s.cartMu.Lock()
	defer d.s.cartMu.Unlock()
	return d.s.cart.Total(d.DeliveryFee())
}

// PlaceOrder submits the cart. The cart is only cleared once the backend
// accepted the order.
func (d *CustomerDashboard) PlaceOrder(ctx context.Context, pickup, dropoff, notes string) (models.Order, error) {
	const label = "place order"
	d.s.cartMu.Lock()
	items := d.s.cart.Items()
	total := d.s.cart.Total(d.DeliveryFee())
	d.s.cartMu.Unlock()

	if len(items) == 0 || strings.TrimSpace(pickup) == "" || strings.TrimSpace(dropoff) == "" {
		err := apperr.ActionFailed(label, apperr.Validation("check order", "Please fill all fields and add items to cart"))
		return models.Order{}, d.s.fail(ctx, label, "", err)
	}

	o, err := d.s.engine.Place(ctx, repository.OrderDraft{Items: items, Pickup: pickup, Dropoff: dropoff, Notes: notes})
	if err != nil {
		return models.Order{}, d.s.fail(ctx, label, "", err)
	}

	d.s.cartMu.Lock()
	d.s.cart.Clear()
	d.s.cartMu.Unlock()

	d.s.notes.Emit(ctx, d.s.notes.OrderPlaced(d.s.user, o, total)...)
	d.s.notes.LogEvent("order_placed", map[string]interface{}{
		"order_id":  o.ID,
		"order_ref": o.ShortRef(),
		"user_id":   d.s.user.ID,
		"items":     len(items),
		"total":     total.StringFixed(2),
	})
	return o, nil
}

func (d *CustomerDashboard) Cancel(ctx context.Context, orderID, reason string) (models.Order, error) {
	return d.s.Act(ctx, orderID, models.ActionCancel, reason)
}

func (d *CustomerDashboard) Rate(ctx context.Context, orderID string, rating int, comment string) (models.Order, error) {
	return d.s.Rate(ctx, orderID, rating, comment)
}

// Rate is shared by the customer dashboard and the local API.
func (s *Session) Rate(ctx context.Context, orderID string, rating int, comment string) (models.Order, error) {
	o, err := s.engine.Rate(ctx, orderID, rating, comment)
	if err != nil {
		return models.Order{}, s.fail(ctx, "rate order", orderID, err)
	}
	s.notes.Emit(ctx, s.notes.Rated(s.user, o)...)
	return o, nil
}

type RiderDashboard struct{ s *Session }

func (d *RiderDashboard) Accept(ctx context.Context, orderID string) (models.Order, error) {
	return d.s.Act(ctx, orderID, models.ActionAccept, "")
}

func (d *RiderDashboard) Pickup(ctx context.Context, orderID string) (models.Order, error) {
	return d.s.Act(ctx, orderID, models.ActionPickup, "")
}

func (d *RiderDashboard) Deliver(ctx context.Context, orderID string) (models.Order, error) {
	return d.s.Act(ctx, orderID, models.ActionDeliver, "")
}

type AdminDashboard struct{ s *Session }

func (d *AdminDashboard) Stats(ctx context.Context) (models.AdminStats, error) {
	stats, err := d.s.api.AdminStats(ctx, d.s.token)
	return stats, d.s.guard(err)
}

func (d *AdminDashboard) Users(ctx context.Context) ([]models.User, error) {
	users, err := d.s.api.AdminUsers(ctx, d.s.token)
	return users, d.s.guard(err)
}

// Orders is the reconciled all-orders collection, newest first.
func (d *AdminDashboard) Orders() []models.Order {
	orders := d.s.engine.Snapshot()
	models.SortOrders(orders)
	return orders
}

func (d *AdminDashboard) Menu(ctx context.Context) ([]models.MenuItem, error) {
	menu, err := d.s.api.FetchMenu(ctx)
	return menu, d.s.guard(err)
}

func (d *AdminDashboard) CreateMenuItem(ctx context.Context, item models.MenuItem) (*models.MenuItem, error) {
	const label = "create menu item"
	created, err := d.s.api.CreateMenuItem(ctx, d.s.token, item)
	if err != nil {
		return nil, d.s.fail(ctx, label, "", apperr.ActionFailed(label, err))
	}
	return created, nil
}

func (d *AdminDashboard) DeleteMenuItem(ctx context.Context, id string) error {
	const label = "delete menu item"
	if err := d.s.api.DeleteMenuItem(ctx, d.s.token, id); err != nil {
		return d.s.fail(ctx, label, "", apperr.ActionFailed(label, err))
	}
	return nil
}

func (d *AdminDashboard) Cancel(ctx context.Context, orderID, reason string) (models.Order, error) {
	return d.s.Act(ctx, orderID, models.ActionCancel, reason)
}
