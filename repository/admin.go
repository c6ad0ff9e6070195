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

// FetchMenu is public; no credential is sent.
func (c *Client) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	const op = "fetch menu"
	data, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/menu", retry: true})
	if err != nil {
		return nil, err
	}
	var items []models.MenuItem
	if err := c.field(op, data, "menuItems", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, token string, item models.MenuItem) (*models.MenuItem, error) {
	const op = "create menu item"
	item.Name = strings.TrimSpace(item.Name)
	if err := validateStruct(op, item); err != nil {
		return nil, err
	}
	if !item.Price.IsPositive() {
		return nil, apperr.Validation(op, "price is required")
	}
	item.ID = ""
	data, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/menu", token: token, body: item, auth: true})
	if err != nil {
		return nil, err
	}
	var created struct {
		MenuItem *models.MenuItem `json:"menuItem"`
	}
	if isNull(data) {
		return nil, nil
	}
	if err := json.Unmarshal(data, &created); err != nil || created.MenuItem == nil {
		return nil, nil
	}
	return created.MenuItem, nil
}

func (c *Client) DeleteMenuItem(ctx context.Context, token, id string) error {
	const op = "delete menu item"
	id = models.NormalizeID(id)
	if id == "" {
		return apperr.Validation(op, "missing menu item id")
	}
	_, err := c.do(ctx, request{op: op, method: http.MethodDelete, path: fmt.Sprintf("/menu/%s", url.PathEscape(id)), token: token, auth: true})
	return err
}

func (c *Client) AdminStats(ctx context.Context, token string) (models.AdminStats, error) {
	const op = "fetch stats"
	data, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/admin/stats", token: token, auth: true, retry: true})
	if err != nil {
		return models.AdminStats{}, err
	}
	var stats models.AdminStats
	if err := c.field(op, data, "stats", &stats); err != nil {
		return models.AdminStats{}, err
	}
	return stats, nil
}

func (c *Client) AdminOrders(ctx context.Context, token string) ([]models.Order, error) {
	const op = "fetch all orders"
	data, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/admin/orders", token: token, auth: true, retry: true})
	if err != nil {
		return nil, err
	}
	return c.decodeOrders(op, data)
}

func (c *Client) AdminUsers(ctx context.Context, token string) ([]models.User, error) {
	const op = "fetch users"
	data, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/admin/users", token: token, auth: true, retry: true})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := c.field(op, data, "users", &users); err != nil {
		return nil, err
	}
	return users, nil
}
