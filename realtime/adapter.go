// Package realtime wraps the backend's push socket: it authenticates, parses
// frames into typed events and fans them out to any number of subscribers.
// It never reconnects on its own.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/models"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("realtime: connection closed")

type Options struct {
	Dialer *websocket.Dialer
	// HandshakeTimeout bounds how long events stay buffered waiting for the
	// server to acknowledge the auth frame.
	HandshakeTimeout time.Duration
	BufferSize       int
	Logger           *log.Logger
}

type Listener func(models.RealtimeEvent)

type authFrame struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type inbound struct {
	ack   bool
	event models.RealtimeEvent
}

type Conn struct {
	ws     *websocket.Conn
	logger *log.Logger
	opts   Options

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	closed    bool
	err       error

	inbox        chan inbound
	disconnected chan struct{}
	discOnce     sync.Once
	closeOnce    sync.Once
	writeMu      sync.Mutex
}

// Dial connects, sends the auth frame and starts reading. Events arriving
// before the server acknowledges the auth frame are held back, not dropped.
func Dial(ctx context.Context, url, token, userID string, opts Options) (*Conn, error) {
	const op = "realtime connect"
	if token == "" {
		return nil, apperr.Unauthorized(op, "missing credential")
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 3 * time.Second
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	ws, resp, err := opts.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Op: op, Status: resp.StatusCode, Err: err}
		}
		return nil, apperr.Transient(op, err)
	}

	c := &Conn{
		ws:           ws,
		logger:       opts.Logger,
		opts:         opts,
		listeners:    make(map[int]Listener),
		inbox:        make(chan inbound, 64),
		disconnected: make(chan struct{}),
	}
	if err := c.writeJSON(authFrame{Type: "auth", Token: token, UserID: models.NormalizeID(userID)}); err != nil {
		_ = ws.Close()
		return nil, apperr.Transient(op, err)
	}

	go c.readLoop()
	go c.dispatchLoop()
	return c, nil
}

// Subscribe registers fn for every subsequent event. The returned func
// removes it. Listeners run on the adapter's dispatch goroutine.
func (c *Conn) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Disconnected is closed exactly once, when the connection ends for any reason.
func (c *Conn) Disconnected() <-chan struct{} {
	return c.disconnected
}

// Err reports why the connection ended; nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close is idempotent. It releases every listener.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.listeners = make(map[int]Listener)
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
		c.signalDisconnected(ErrClosed)
	})
	return err
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) signalDisconnected(reason error) {
	c.discOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = reason
		}
		c.mu.Unlock()
		close(c.disconnected)
	})
}

func (c *Conn) readLoop() {
	defer close(c.inbox)
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Printf("realtime: connection lost: %v", err)
				c.signalDisconnected(apperr.Transient("realtime read", err))
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Conn) handleFrame(frame []byte) {
	var head struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		c.logger.Printf("realtime: skipping malformed frame: %v", err)
		return
	}
	switch head.Type {
	case "auth-ok", "auth_success", "authenticated":
		c.inbox <- inbound{ack: true}
		return
	case "auth-error", "auth_error", "unauthorized":
		c.logger.Printf("realtime: authentication rejected: %s", head.Message)
		c.signalDisconnected(apperr.Unauthorized("realtime auth", head.Message))
		go c.Close()
		return
	}
	ev, ok, err := models.ParseEvent(frame)
	if err != nil {
		c.logger.Printf("realtime: %v", err)
		return
	}
	if !ok {
		return
	}
	c.inbox <- inbound{event: ev}
}

func (c *Conn) dispatchLoop() {
	var pending []models.RealtimeEvent
	acked := false
	timer := time.NewTimer(c.opts.HandshakeTimeout)
	defer timer.Stop()

	flush := func() {
		acked = true
		for _, ev := range pending {
			c.emit(ev)
		}
		pending = nil
	}

	for {
		select {
		case in, ok := <-c.inbox:
			if !ok {
				return
			}
			switch {
			case in.ack:
				if !acked {
					flush()
				}
			case !acked:
				if len(pending) >= c.opts.BufferSize {
					c.logger.Printf("realtime: handshake buffer full, dropping %s for order %s", pending[0].Type, pending[0].OrderID)
					pending = pending[1:]
				}
				pending = append(pending, in.event)
			default:
				c.emit(in.event)
			}
		case <-timer.C:
			if !acked {
				c.logger.Printf("realtime: no auth acknowledgement after %s, releasing %d buffered events", c.opts.HandshakeTimeout, len(pending))
				flush()
			}
		}
	}
}

func (c *Conn) emit(ev models.RealtimeEvent) {
	c.mu.Lock()
	ls := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		ls = append(ls, fn)
	}
	c.mu.Unlock()
	for _, fn := range ls {
		fn(ev)
	}
}
