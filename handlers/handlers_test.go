package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/config"
	_ "food-delivery/client/docs"
	"food-delivery/client/models"
	"food-delivery/client/notify"
	"food-delivery/client/repository"
	"food-delivery/client/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory backend with just enough behaviour for the routes.
type fakeAPI struct {
	mu            sync.Mutex
	orders        []models.Order
	menu          []models.MenuItem
	transitionErr error
	drafts        []repository.OrderDraft
}

func (f *fakeAPI) FetchOrders(context.Context, string, repository.Scope) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneOrders(f.orders), nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, _ string, draft repository.OrderDraft) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, draft)
	o := models.Order{
		ID:          "order-new001",
		Status:      models.OrderStatusPending,
		Items:       draft.Items,
		Pickup:      models.Location{Address: draft.Pickup},
		Dropoff:     models.Location{Address: draft.Dropoff},
		TotalAmount: models.AmountOf(models.ItemsSubtotal(draft.Items).Add(models.DefaultDeliveryFee)),
		CreatedAt:   time.Now(),
	}
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeAPI) Transition(_ context.Context, _ string, orderID string, action models.Action, _ any) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = action.Target()
			f.orders[i].Rider = &models.PartyRef{ID: "r1", Name: "Ray"}
			o := f.orders[i].Clone()
			return &o, nil
		}
	}
	return nil, apperr.Validation("transition", "Order not found")
}

func (f *fakeAPI) Cancel(context.Context, string, string, string) (*models.Order, error) {
	return nil, apperr.Validation("cancel order", "not supported")
}

func (f *fakeAPI) Rate(context.Context, string, string, int, string) (*models.Order, error) {
	return nil, apperr.Validation("rate order", "not supported")
}

func (f *fakeAPI) Login(context.Context, string, string) (repository.AuthResult, error) {
	return repository.AuthResult{}, apperr.Unauthorized("login", "not supported")
}

func (f *fakeAPI) Signup(context.Context, repository.SignupRequest) (repository.AuthResult, error) {
	return repository.AuthResult{}, apperr.Unauthorized("signup", "not supported")
}

func (f *fakeAPI) FetchMenu(context.Context) ([]models.MenuItem, error) { return f.menu, nil }

func (f *fakeAPI) CreateMenuItem(_ context.Context, _ string, item models.MenuItem) (*models.MenuItem, error) {
	item.ID = "m-created"
	return &item, nil
}

func (f *fakeAPI) DeleteMenuItem(context.Context, string, string) error { return nil }

func (f *fakeAPI) AdminStats(context.Context, string) (models.AdminStats, error) {
	return models.AdminStats{TotalOrders: 3}, nil
}

func (f *fakeAPI) AdminOrders(ctx context.Context, token string) ([]models.Order, error) {
	return f.FetchOrders(ctx, token, repository.ScopeAll)
}

func (f *fakeAPI) AdminUsers(context.Context, string) ([]models.User, error) { return nil, nil }

func newTestApp(t *testing.T, api *fakeAPI, role models.Role) (*fiber.App, *session.Session) {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	cfg := &config.Config{
		Engine:    config.EngineConfig{PollInterval: time.Hour, CommissionRate: 0.2, DeliveryFee: 5},
		Dashboard: config.DashboardConfig{JWTSecret: "test-secret"},
	}
	ids := map[models.Role]string{models.RoleCustomer: "c1", models.RoleRider: "r1", models.RoleAdmin: "a1"}
	sess, err := session.New(cfg, session.Deps{
		API:        api,
		Dispatcher: notify.NewDispatcher(nil, quiet),
		Logger:     quiet,
	}, repository.AuthResult{Token: "tok", User: models.User{ID: ids[role], Role: role, Name: "Test"}})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	require.NoError(t, sess.Engine().Refresh(context.Background()))
	return NewApp(New(cfg, sess, quiet)), sess
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func decodeList(t *testing.T, app *fiber.App, path string) []map[string]interface{} {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func offered() []models.Order {
	return []models.Order{{ID: "order-abc123", Status: models.OrderStatusPending, TotalAmount: models.NewAmount(30), CreatedAt: time.Now()}}
}

func TestHealth(t *testing.T) {
	app, sess := newTestApp(t, &fakeAPI{}, models.RoleRider)
	resp, body := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	sess.Close()
	_, body = do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, "signed_out", body["status"])
}

func TestGetOrders_RendersAffordances(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{orders: offered()}, models.RoleRider)

	orders := decodeList(t, app, "/api/v1/orders")
	require.Len(t, orders, 1)
	assert.Equal(t, "order-abc123", orders[0]["id"])
	assert.Equal(t, "#abc123", orders[0]["shortRef"])
	assert.EqualValues(t, 30, orders[0]["totalAmount"])
	assert.Equal(t, []interface{}{"accept"}, orders[0]["actions"])
	assert.Equal(t, false, orders[0]["rated"])
}

func TestActOnOrder(t *testing.T) {
	api := &fakeAPI{orders: offered()}
	app, _ := newTestApp(t, api, models.RoleRider)

	resp, body := do(t, app, http.MethodPost, "/api/v1/orders/order-abc123/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "r1", body["riderId"])
	assert.Equal(t, []interface{}{"pickup"}, body["actions"])

	resp, _ = do(t, app, http.MethodPost, "/api/v1/orders/order-abc123/fly", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, app, http.MethodPost, "/api/v1/orders/order-abc123/deliver", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "accepted orders must be picked up first")
	assert.Equal(t, "validation", body["kind"])
}

func TestActOnOrder_ConflictIs409(t *testing.T) {
	api := &fakeAPI{orders: offered(), transitionErr: apperr.Conflict("accept order", "Order already accepted")}
	app, sess := newTestApp(t, api, models.RoleRider)

	resp, body := do(t, app, http.MethodPost, "/api/v1/orders/order-abc123/accept", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["kind"])
	assert.Empty(t, sess.Engine().Snapshot(), "claimed order leaves the available list")
}

func TestCustomerCartAndPlaceOrder(t *testing.T) {
	api := &fakeAPI{menu: []models.MenuItem{
		{ID: "m1", Name: "Burger", Price: models.NewAmount(10)},
		{ID: "m2", Name: "Fries", Price: models.NewAmount(5)},
	}}
	app, _ := newTestApp(t, api, models.RoleCustomer)

	do(t, app, http.MethodPost, "/api/v1/cart", AddToCartRequest{MenuItemID: "m1"})
	do(t, app, http.MethodPost, "/api/v1/cart", AddToCartRequest{MenuItemID: "m1"})
	resp, cart := do(t, app, http.MethodPost, "/api/v1/cart", AddToCartRequest{MenuItemID: "m2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "25.00", cart["subtotal"])
	assert.Equal(t, "5.00", cart["deliveryFee"])
	assert.Equal(t, "30.00", cart["total"])

	resp, _ = do(t, app, http.MethodPost, "/api/v1/cart", AddToCartRequest{MenuItemID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/v1/orders", PlaceOrderRequest{Pickup: "", Dropoff: "Main St"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, order := do(t, app, http.MethodPost, "/api/v1/orders", PlaceOrderRequest{Pickup: "Dock 4", Dropoff: "Main St"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, []interface{}{"cancel"}, order["actions"])
	require.Len(t, api.drafts, 1)
	assert.Len(t, api.drafts[0].Items, 2)

	_, cart = do(t, app, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, "5.00", cart["total"])
}

func TestRoleMismatchIs400(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, models.RoleRider)
	resp, body := do(t, app, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["kind"])

	resp, _ = do(t, app, http.MethodGet, "/api/v1/admin/stats", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetView(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{orders: offered()}, models.RoleRider)
	resp, body := do(t, app, http.MethodGet, "/api/v1/views", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rider", body["role"])
	assert.Equal(t, "N/A", body["rating"])
	assert.Equal(t, "0.00", body["todayEarnings"])
	tabs, ok := body["tabs"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, tabs["available"], 1)
}

func TestAdminRoutes(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{orders: offered()}, models.RoleAdmin)

	resp, stats := do(t, app, http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, stats["totalOrders"])

	resp, created := do(t, app, http.MethodPost, "/api/v1/admin/menu", map[string]interface{}{"name": "Soup", "price": 4.5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "m-created", created["id"])

	resp, _ = do(t, app, http.MethodDelete, "/api/v1/admin/menu/m1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLogoutClosesAPI(t *testing.T) {
	app, sess := newTestApp(t, &fakeAPI{}, models.RoleCustomer)
	resp, _ := do(t, app, http.MethodPost, "/api/v1/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.ErrorIs(t, sess.Err(), session.ErrLoggedOut)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/views", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPushChannelToken(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, models.RoleRider)

	resp, _ := do(t, app, http.MethodGet, "/ws?user_id=r1&token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, issued := do(t, app, http.MethodPost, "/api/v1/session/ws-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := issued["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = do(t, app, http.MethodGet, "/ws?user_id=r2&token="+token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/ws?user_id=r1&token="+token, nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode, "valid token reaches the upgrade check")
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, models.RoleRider)
	do(t, app, http.MethodGet, "/health", nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "food_delivery_client_http_request_duration_seconds")
}

func TestMetricsRecordErrorStatus(t *testing.T) {
	api := &fakeAPI{orders: offered(), transitionErr: apperr.Conflict("accept order", "Order already accepted")}
	app, _ := newTestApp(t, api, models.RoleRider)

	resp, _ := do(t, app, http.MethodPost, "/api/v1/orders/order-abc123/accept", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `food_delivery_client_http_request_duration_seconds_count{method="POST",status="409"}`)
}

func TestSwaggerDocument(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, models.RoleRider)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Host  string                     `json:"host"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "localhost:8080", doc.Host)
	assert.Contains(t, doc.Paths, "/orders/{id}/{action}")
	assert.Contains(t, doc.Paths, "/views")
}
