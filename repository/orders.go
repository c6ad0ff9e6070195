package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"food-delivery/client/apperr"
	"food-delivery/client/models"
)

type Scope string

const (
	ScopeAll       Scope = ""
	ScopeAvailable Scope = "available"
)

// OrderDraft is the body of POST /orders.
type OrderDraft struct {
	Items   []models.OrderItem `json:"items" validate:"required,min=1,dive"`
	Pickup  string             `json:"pickup" validate:"required"`
	Dropoff string             `json:"dropoff" validate:"required"`
	Notes   string             `json:"notes,omitempty"`
}

// FetchOrders returns the viewer's full order snapshot.
func (c *Client) FetchOrders(ctx context.Context, token string, scope Scope) ([]models.Order, error) {
	const op = "fetch orders"
	path := "/orders"
	if scope != ScopeAll {
		path += "?status=" + url.QueryEscape(string(scope))
	}
	data, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, token: token, auth: true, retry: true})
	if err != nil {
		return nil, err
	}
	return c.decodeOrders(op, data)
}

func (c *Client) CreateOrder(ctx context.Context, token string, draft OrderDraft) (models.Order, error) {
	const op = "place order"
	draft.Pickup = strings.TrimSpace(draft.Pickup)
	draft.Dropoff = strings.TrimSpace(draft.Dropoff)
	if err := validateStruct(op, draft); err != nil {
		return models.Order{}, err
	}
	data, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/orders", token: token, body: draft, auth: true})
	if err != nil {
		return models.Order{}, err
	}
	o, err := c.decodeOrder(op, data)
	if err != nil {
		return models.Order{}, err
	}
	if o == nil {
		err := apperr.Protocolf(op, "response without created order")
		c.logf("%v", err)
		return models.Order{}, err
	}
	return *o, nil
}

// Transition issues accept, pickup, deliver or cancel. The returned order is
// nil when the server acknowledged without echoing the order back.
func (c *Client) Transition(ctx context.Context, token, orderID string, action models.Action, payload any) (*models.Order, error) {
	op := action.Label()
	if _, err := models.ParseAction(string(action)); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	orderID = models.NormalizeID(orderID)
	if orderID == "" {
		return nil, apperr.Validation(op, "missing order id")
	}
	data, err := c.do(ctx, request{
		op:               op,
		method:           http.MethodPost,
		path:             fmt.Sprintf("/orders/%s/%s", url.PathEscape(orderID), action),
		token:            token,
		body:             payload,
		auth:             true,
		rejectIsConflict: action == models.ActionAccept,
	})
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(op, data)
}

func (c *Client) Cancel(ctx context.Context, token, orderID, reason string) (*models.Order, error) {
	return c.Transition(ctx, token, orderID, models.ActionCancel, map[string]string{"reason": reason})
}

type rateRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

func (c *Client) Rate(ctx context.Context, token, orderID string, rating int, comment string) (*models.Order, error) {
	const op = "rate order"
	body := rateRequest{Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := validateStruct(op, body); err != nil {
		return nil, err
	}
	orderID = models.NormalizeID(orderID)
	if orderID == "" {
		return nil, apperr.Validation(op, "missing order id")
	}
	data, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   fmt.Sprintf("/orders/%s/rate", url.PathEscape(orderID)),
		token:  token,
		body:   body,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(op, data)
}

func (c *Client) decodeOrders(op string, data json.RawMessage) ([]models.Order, error) {
	var orders []models.Order
	if err := c.field(op, data, "orders", &orders); err != nil {
		return nil, err
	}
	// An unknown status fails the fetch; other broken orders are dropped by
	// the engine one at a time.
	for _, o := range orders {
		if _, err := models.ParseStatus(string(o.Status)); err != nil {
			err := apperr.Protocol(op, fmt.Errorf("order %s: %w", o.ID, err))
			c.logf("%v", err)
			return nil, err
		}
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// decodeOrder accepts data.order or the order itself as data.
func (c *Client) decodeOrder(op string, data json.RawMessage) (*models.Order, error) {
	if isNull(data) {
		return nil, nil
	}
	var wrapped struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		err := apperr.Protocol(op, fmt.Errorf("decode order: %w", err))
		c.logf("%v", err)
		return nil, err
	}
	raw := data
	if !isNull(wrapped.Order) {
		raw = wrapped.Order
	}
	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		err := apperr.Protocol(op, fmt.Errorf("decode order: %w", err))
		c.logf("%v", err)
		return nil, err
	}
	if o.ID == "" && o.Status == "" {
		return nil, nil
	}
	if err := o.Validate(); err != nil {
		err := apperr.Protocol(op, err)
		c.logf("%v", err)
		return nil, err
	}
	return &o, nil
}
