// Package repository is the REST client for the FastBite backend. Every
// failure leaving this package is an *apperr.Error.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/config"

	"github.com/google/uuid"
)

type Client struct {
	BaseURL    string
	HTTP       *http.Client
	MaxRetries int
	Backoff    time.Duration
	Logger     *log.Logger
}

func New(cfg config.APIConfig) *Client {
	return &Client{
		BaseURL:    cfg.BaseURL,
		HTTP:       &http.Client{Timeout: cfg.RequestTimeout},
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		Logger:     log.Default(),
	}
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	op     string
	method string
	path   string
	token  string
	body   any
	// auth marks calls that need a bearer credential.
	auth bool
	// retry allows Transient failures to be retried; only safe for reads.
	retry bool
	// rejectIsConflict maps a success:false rejection to Conflict.
	rejectIsConflict bool
	// rejectIsUnauthorized maps a success:false rejection to Unauthorized.
	rejectIsUnauthorized bool
}

func (c *Client) do(ctx context.Context, r request) (json.RawMessage, error) {
	if r.auth && strings.TrimSpace(r.token) == "" {
		return nil, apperr.Unauthorized(r.op, "missing credential")
	}
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, apperr.Validation(r.op, err.Error())
		}
		payload = b
	}
	attempts := 1
	if r.retry && c.MaxRetries > 0 {
		attempts += c.MaxRetries
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := c.Backoff * time.Duration(i)
			c.logf("%s: attempt %d/%d failed: %v. Retrying in %s...", r.op, i, attempts, lastErr, wait)
			select {
			case <-ctx.Done():
				return nil, apperr.Transient(r.op, ctx.Err())
			case <-time.After(wait):
			}
		}
		data, err := c.once(ctx, r, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !apperr.Retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, r request, payload []byte) (json.RawMessage, error) {
	u := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + r.path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, apperr.Protocol(r.op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, apperr.Transient(r.op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transient(r.op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Op: r.op, Status: resp.StatusCode, Message: messageOr(env.Message, resp.Status)}
	case resp.StatusCode >= 500:
		return nil, &apperr.Error{Kind: apperr.KindTransient, Op: r.op, Status: resp.StatusCode, Message: messageOr(env.Message, resp.Status)}
	case resp.StatusCode == http.StatusConflict:
		return nil, &apperr.Error{Kind: apperr.KindConflict, Op: r.op, Status: resp.StatusCode, Message: messageOr(env.Message, "already claimed")}
	case resp.StatusCode >= 400:
		kind := apperr.KindValidation
		if r.rejectIsConflict {
			kind = apperr.KindConflict
		} else if r.rejectIsUnauthorized {
			kind = apperr.KindUnauthorized
		}
		return nil, &apperr.Error{Kind: kind, Op: r.op, Status: resp.StatusCode, Message: messageOr(env.Message, resp.Status)}
	}

	if decodeErr != nil {
		err := apperr.Protocol(r.op, fmt.Errorf("decode response: %w", decodeErr))
		c.logf("%v", err)
		return nil, err
	}
	if env.Success == nil {
		err := apperr.Protocolf(r.op, "response without success flag")
		c.logf("%v", err)
		return nil, err
	}
	if !*env.Success {
		kind := apperr.KindValidation
		if r.rejectIsConflict {
			kind = apperr.KindConflict
		} else if r.rejectIsUnauthorized {
			kind = apperr.KindUnauthorized
		}
		return nil, &apperr.Error{Kind: kind, Op: r.op, Status: resp.StatusCode, Message: messageOr(env.Message, "request rejected")}
	}
	return env.Data, nil
}

// field extracts data.<name>, failing with Protocol when it is absent.
func (c *Client) field(op string, data json.RawMessage, name string, out any) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		err = apperr.Protocol(op, fmt.Errorf("decode data: %w", err))
		c.logf("%v", err)
		return err
	}
	raw, ok := m[name]
	if !ok || isNull(raw) {
		err := apperr.Protocolf(op, "response without data.%s", name)
		c.logf("%v", err)
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		err = apperr.Protocol(op, fmt.Errorf("decode data.%s: %w", name, err))
		c.logf("%v", err)
		return err
	}
	return nil
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}
