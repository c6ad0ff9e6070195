package repository

import (
	"context"
	"net/http"
	"strings"

	"food-delivery/client/apperr"
	"food-delivery/client/models"
)

type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Phone           string      `json:"phone" validate:"required"`
	Password        string      `json:"password" validate:"required,min=6"`
	ConfirmPassword string      `json:"confirmPassword" validate:"eqfield=Password"`
	Role            models.Role `json:"role" validate:"required,oneof=customer rider admin"`
	VehicleType     string      `json:"vehicleType,omitempty" validate:"required_if=Role rider"`
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "login"
	body := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := validateStruct(op, body); err != nil {
		return AuthResult{}, err
	}
	return c.authenticate(ctx, op, "/auth/login", body)
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (AuthResult, error) {
	const op = "signup"
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(op, req); err != nil {
		return AuthResult{}, err
	}
	if req.Role != models.RoleRider {
		req.VehicleType = ""
	}
	return c.authenticate(ctx, op, "/auth/signup", req)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (AuthResult, error) {
	data, err := c.do(ctx, request{
		op:                   op,
		method:               http.MethodPost,
		path:                 path,
		body:                 body,
		rejectIsUnauthorized: op == "login",
	})
	if err != nil {
		return AuthResult{}, err
	}
	var res AuthResult
	if err := c.field(op, data, "user", &res.User); err != nil {
		return AuthResult{}, err
	}
	if err := c.field(op, data, "token", &res.Token); err != nil {
		return AuthResult{}, err
	}
	if res.User.ID == "" || res.Token == "" {
		err := apperr.Protocolf(op, "response without user id or token")
		c.logf("%v", err)
		return AuthResult{}, err
	}
	if !res.User.Role.Valid() {
		err := apperr.Protocolf(op, "unknown role %q", res.User.Role)
		c.logf("%v", err)
		return AuthResult{}, err
	}
	return res, nil
}
