package handlers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"food-delivery/client/models"
	"food-delivery/client/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt"
)

const (
	wsTokenTTL   = time.Hour
	writeTimeout = 5 * time.Second
)

type pushFrame struct {
	Type   string          `json:"type"`
	Notice *notify.Notice  `json:"notice,omitempty"`
	Orders []OrderResponse `json:"orders,omitempty"`
}

// frameWriter is the write half of a dashboard socket.
type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
}

// pushClient owns the write side of one dashboard socket. Engine and notice
// listeners only hand frames over; a single writer goroutine does the I/O so
// a stalled page never holds up the engine.
type pushClient struct {
	conn    frameWriter
	orders  chan []models.Order
	notices chan notify.Notice
	done    chan struct{}
	once    sync.Once
}

func newPushClient(conn frameWriter) *pushClient {
	return &pushClient{
		conn:    conn,
		orders:  make(chan []models.Order, 1),
		notices: make(chan notify.Notice, 16),
		done:    make(chan struct{}),
	}
}

// offerOrders queues a snapshot, replacing any snapshot not yet written.
func (p *pushClient) offerOrders(orders []models.Order) {
	for {
		select {
		case p.orders <- orders:
			return
		default:
		}
		select {
		case <-p.orders:
		default:
		}
	}
}

// offerNotice queues a banner; it reports false when the page is too far behind.
func (p *pushClient) offerNotice(n notify.Notice) bool {
	select {
	case p.notices <- n:
		return true
	default:
		return false
	}
}

func (p *pushClient) stop() { p.once.Do(func() { close(p.done) }) }

func (p *pushClient) send(frame pushFrame) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(frame)
}

// run writes queued frames until stop is called.
func (p *pushClient) run(render func([]models.Order) ([]OrderResponse, error), logger *log.Logger) {
	for {
		var frame pushFrame
		select {
		case <-p.done:
			return
		case n := <-p.notices:
			frame = pushFrame{Type: "notice", Notice: &n}
		case orders := <-p.orders:
			resp, err := render(orders)
			if err != nil {
				logger.Printf("handlers: failed to render orders: %v", err)
				continue
			}
			frame = pushFrame{Type: "orders", Orders: resp}
		}
		if err := p.send(frame); err != nil {
			logger.Printf("handlers: push to dashboard failed: %v", err)
		}
	}
}

func (s *Server) secret() []byte {
	return []byte(s.cfg.Dashboard.JWTSecret)
}

// issueWSToken signs a short-lived token the dashboard page uses to open /ws.
func (s *Server) issueWSToken(c *fiber.Ctx) error {
	if len(s.secret()) == 0 {
		return fiber.NewError(fiber.StatusServiceUnavailable, "push channel disabled")
	}
	user := s.sess.User()
	exp := s.now().Add(wsTokenTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     exp.Unix(),
	}).SignedString(s.secret())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token, "expiresAt": exp})
}

func (s *Server) validateToken(c *fiber.Ctx) error {
	token := c.Query("token")
	userID := c.Query("user_id")

	if token == "" || userID == "" || len(s.secret()) == 0 || s.sess.Err() != nil {
		return fiber.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret(), nil
	})

	if err != nil || claims["user_id"] != userID || userID != s.sess.User().ID {
		return fiber.ErrUnauthorized
	}

	return c.Next()
}

// handlePushWebSocket streams notices and order snapshots to one dashboard
// page until it disconnects. A {"event":"refresh"} frame forces a refetch.
func (s *Server) handlePushWebSocket(c *websocket.Conn) {
	client := newPushClient(c)
	s.mu.Lock()
	s.wsClients[c] = client
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.wsClients, c)
		s.mu.Unlock()
	}()

	go client.run(s.renderOrders, s.logger)
	defer client.stop()

	unsubNotices := s.sess.Notices().Subscribe(func(n notify.Notice) {
		if n.Channel != notify.ChannelBanner {
			return
		}
		if !client.offerNotice(n) {
			s.logger.Printf("handlers: dashboard behind, dropping notice %q", n.Body)
		}
	})
	defer unsubNotices()
	unsubOrders := s.sess.Engine().Subscribe(client.offerOrders)
	defer unsubOrders()

	client.offerOrders(s.sess.Engine().Snapshot())

	for {
		var msg struct {
			Event string `json:"event"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			break
		}

		if msg.Event == "refresh" {
			if err := s.sess.Engine().Refresh(context.Background()); err != nil {
				s.logger.Printf("handlers: dashboard refresh failed: %v", err)
			}
		}
	}
}

func (s *Server) renderOrders(orders []models.Order) ([]OrderResponse, error) {
	models.SortOrders(orders)
	return s.orderResponses(orders)
}

func (s *Server) closePushClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.wsClients {
		_ = conn.Close()
	}
}
