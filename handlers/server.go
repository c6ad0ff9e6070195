// Package handlers exposes a signed-in session as a small local HTTP API with
// a websocket push channel for notices and order snapshots.
package handlers

import (
	"errors"
	"log"
	"sync"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/config"
	"food-delivery/client/metrics"
	"food-delivery/client/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg    *config.Config
	sess   *session.Session
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	wsClients map[*websocket.Conn]*pushClient
}

func New(cfg *config.Config, sess *session.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:       cfg,
		sess:      sess,
		logger:    logger,
		now:       time.Now,
		wsClients: make(map[*websocket.Conn]*pushClient),
	}
}

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(s *Server) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           s.cfg.Dashboard.ReadTimeout,
		WriteTimeout:          s.cfg.Dashboard.WriteTimeout,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: s.logger.Writer()}))
	app.Use(cors.New())
	app.Use(metrics.Middleware(statusOf))

	app.Get("/health", s.healthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	setupRoutes(app, s)

	app.Use("/ws", s.validateToken, upgradeOnly)
	app.Get("/ws", websocket.New(s.handlePushWebSocket))
	return app
}

func setupRoutes(app *fiber.App, s *Server) {
	v1 := app.Group("/api/v1", s.requireSession)

	v1.Get("/session", s.getSession)
	v1.Post("/session/ws-token", s.issueWSToken)
	v1.Post("/logout", s.logout)
	v1.Get("/views", s.getView)
	v1.Get("/menu", s.getMenu)

	orders := v1.Group("/orders")
	orders.Get("/", s.getOrders)
	orders.Post("/", s.placeOrder)
	orders.Get("/:id", s.getOrder)
	orders.Post("/:id/rate", s.rateOrder)
	orders.Post("/:id/:action", s.actOnOrder)

	cart := v1.Group("/cart")
	cart.Get("/", s.getCart)
	cart.Post("/", s.addToCart)
	cart.Put("/:id", s.setCartQty)
	cart.Delete("/:id", s.removeFromCart)

	admin := v1.Group("/admin")
	admin.Get("/stats", s.getStats)
	admin.Get("/users", s.getUsers)
	admin.Post("/menu", s.createMenuItem)
	admin.Delete("/menu/:id", s.deleteMenuItem)
}

// requireSession rejects API calls once the session has been closed.
func (s *Server) requireSession(c *fiber.Ctx) error {
	if err := s.sess.Err(); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "signed out: "+err.Error())
	}
	return c.Next()
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	body := fiber.Map{"error": err.Error()}
	if kind := apperr.KindOf(err); kind != apperr.KindUnknown {
		body["kind"] = kind.String()
		if msg := apperr.MessageOf(err); msg != "" {
			body["message"] = msg
		}
	}
	return c.Status(code).JSON(body)
}

// statusOf is the response code errorHandler writes for err.
func statusOf(err error) int {
	var fe *fiber.Error
	var ae *apperr.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ae):
		return statusFor(apperr.KindOf(err))
	}
	return fiber.StatusInternalServerError
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindTransient:
		return fiber.StatusServiceUnavailable
	case apperr.KindProtocol:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	status := "ok"
	if s.sess.Err() != nil {
		status = "signed_out"
	}
	return c.JSON(fiber.Map{
		"status": status,
		"time":   s.now(),
	})
}
