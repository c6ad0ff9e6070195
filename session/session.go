// Package session is the explicit login context: it is built from a
// successful login, owns the engine, the realtime connection and the cart,
// and tears all of them down on logout or when the backend revokes the token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/config"
	"food-delivery/client/engine"
	"food-delivery/client/metrics"
	"food-delivery/client/models"
	"food-delivery/client/notify"
	"food-delivery/client/realtime"
	"food-delivery/client/repository"
	"food-delivery/client/views"
)

var ErrLoggedOut = errors.New("session: logged out")

type DialFunc func(ctx context.Context, url, token, userID string, opts realtime.Options) (*realtime.Conn, error)

// API is the backend surface a session needs beyond the engine's Source.
type API interface {
	engine.Source
	Login(ctx context.Context, email, password string) (repository.AuthResult, error)
	Signup(ctx context.Context, req repository.SignupRequest) (repository.AuthResult, error)
	FetchMenu(ctx context.Context) ([]models.MenuItem, error)
	CreateMenuItem(ctx context.Context, token string, item models.MenuItem) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, token, id string) error
	AdminStats(ctx context.Context, token string) (models.AdminStats, error)
	AdminOrders(ctx context.Context, token string) ([]models.Order, error)
	AdminUsers(ctx context.Context, token string) ([]models.User, error)
}

// SnapshotClearer is a snapshot store that can forget a user. An explicit
// logout clears the user's snapshot when the store supports it.
type SnapshotClearer interface {
	Clear(ctx context.Context, userID string) error
}

type Deps struct {
	API        API
	Dispatcher *notify.Dispatcher
	Store      engine.SnapshotStore
	Dial       DialFunc
	Logger     *log.Logger
}

type Session struct {
	cfg    *config.Config
	api    API
	notes  *notify.Dispatcher
	logger *log.Logger
	dial   DialFunc
	store  engine.SnapshotStore

	user   models.User
	token  string
	claims Claims

	engine *engine.Engine
	cart   models.Cart
	cartMu sync.Mutex

	mu     sync.Mutex
	conn   *realtime.Conn
	err    error
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done      chan struct{}
	closeOnce sync.Once
}

// Login authenticates against the backend and returns an unstarted session.
func Login(ctx context.Context, cfg *config.Config, deps Deps, email, password string) (*Session, error) {
	if deps.API == nil {
		return nil, errors.New("login: no backend client")
	}
	auth, err := deps.API.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s, err := New(cfg, deps, auth)
	if err != nil {
		return nil, err
	}
	s.notes.Emit(ctx, s.notes.Login(s.user)...)
	return s, nil
}

func Signup(ctx context.Context, cfg *config.Config, deps Deps, req repository.SignupRequest) (*Session, error) {
	if deps.API == nil {
		return nil, errors.New("signup: no backend client")
	}
	auth, err := deps.API.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	s, err := New(cfg, deps, auth)
	if err != nil {
		return nil, err
	}
	s.notes.Emit(ctx, s.notes.Signup(s.user)...)
	return s, nil
}

// New builds a session from an authentication result.
func New(cfg *config.Config, deps Deps, auth repository.AuthResult) (*Session, error) {
	const op = "open session"
	if auth.Token == "" {
		return nil, apperr.Unauthorized(op, "missing credential")
	}
	if !auth.User.Role.Valid() {
		return nil, apperr.Protocolf(op, "unknown role %q", auth.User.Role)
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notify.NewDispatcher(nil, deps.Logger)
	}
	if deps.Dial == nil {
		deps.Dial = realtime.Dial
	}
	if deps.API == nil {
		return nil, fmt.Errorf("%s: no backend client", op)
	}

	user := auth.User
	user.ID = models.NormalizeID(user.ID)
	claims, _ := InspectToken(auth.Token)
	if claims.Expired(time.Now()) {
		return nil, apperr.Unauthorized(op, "token already expired")
	}

	s := &Session{
		cfg:    cfg,
		api:    deps.API,
		notes:  deps.Dispatcher,
		logger: deps.Logger,
		dial:   deps.Dial,
		store:  deps.Store,
		user:   user,
		token:  auth.Token,
		claims: claims,
		done:   make(chan struct{}),
	}

	var src engine.Source = deps.API
	if user.Role == models.RoleAdmin {
		src = adminSource{API: deps.API}
	}
	opts := []engine.Option{engine.WithUnauthorizedHandler(s.forceLogout)}
	if deps.Store != nil {
		opts = append(opts, engine.WithStore(deps.Store))
	}
	s.engine = engine.New(engine.Config{
		Token:        auth.Token,
		User:         user,
		Scope:        repository.ScopeAll,
		PollInterval: cfg.Engine.PollInterval,
		Logger:       deps.Logger,
	}, src, opts...)
	return s, nil
}

// adminSource lists every order through the admin endpoint.
type adminSource struct{ API }

func (a adminSource) FetchOrders(ctx context.Context, token string, _ repository.Scope) ([]models.Order, error) {
	return a.API.AdminOrders(ctx, token)
}

func (s *Session) User() models.User { return s.user }

func (s *Session) Token() string { return s.token }

func (s *Session) Claims() Claims { return s.claims }

func (s *Session) Engine() *engine.Engine { return s.engine }

func (s *Session) Notices() *notify.Dispatcher { return s.notes }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is nil while the session is open, ErrLoggedOut after Close, or the
// Unauthorized error that forced the logout.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start begins polling and, when a socket URL is configured, keeps a
// realtime connection open with reconnects.
func (s *Session) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.engine.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start engine: %w", err)
	}
	if s.cfg.API.SocketURL != "" {
		s.wg.Add(1)
		go s.realtimeLoop(runCtx)
	} else {
		s.logger.Printf("session: no socket URL, running on polling only")
	}
	if !s.claims.ExpiresAt.IsZero() {
		s.wg.Add(1)
		go s.expiryWatch(runCtx)
	}
	return nil
}

// View projects the current collection for this user.
func (s *Session) View(now time.Time) views.RoleView {
	return views.Project(s.engine.Snapshot(), s.user, now, s.cfg.Engine.CommissionRate)
}

// Close logs out: it stops polling, closes the socket, drops the cart and
// forgets the cached snapshot.
func (s *Session) Close() {
	s.closeWith(ErrLoggedOut)
}

func (s *Session) closeWith(reason error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = reason
		cancel := s.cancel
		conn := s.conn
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.engine.Stop()
		if conn != nil {
			_ = conn.Close()
		}
		s.wg.Wait()

		s.cartMu.Lock()
		s.cart.Clear()
		s.cartMu.Unlock()

		if errors.Is(reason, ErrLoggedOut) {
			s.clearSnapshot()
		}

		s.logger.Printf("session: %s signed out: %v", s.user.ID, reason)
		close(s.done)
	})
}

func (s *Session) clearSnapshot() {
	c, ok := s.store.(SnapshotClearer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Clear(ctx, s.user.ID); err != nil {
		s.logger.Printf("session: failed to clear cached snapshot: %v", err)
	}
}

// forceLogout runs on engine or socket goroutines, so teardown is handed off.
func (s *Session) forceLogout(err error) {
	s.logger.Printf("session: credential rejected, logging out: %v", err)
	go s.closeWith(err)
}

// guard forces a logout when a user action came back Unauthorized and
// passes the error through unchanged.
func (s *Session) guard(err error) error {
	if apperr.Is(err, apperr.KindUnauthorized) {
		s.forceLogout(err)
	}
	return err
}

// fail emits the failure banner for a user action.
func (s *Session) fail(ctx context.Context, label, orderID string, err error) error {
	s.notes.Emit(ctx, s.notes.Failure(s.user, label, orderID, err)...)
	return s.guard(err)
}

func (s *Session) expiryWatch(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTimer(time.Until(s.claims.ExpiresAt))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		s.forceLogout(apperr.Unauthorized("session", "token expired"))
	}
}

func (s *Session) realtimeLoop(ctx context.Context) {
	defer s.wg.Done()
	opts := realtime.Options{Logger: s.logger}
	delay := s.cfg.Session.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	for {
		conn, err := s.dial(ctx, s.cfg.API.SocketURL, s.token, s.user.ID, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if apperr.Is(err, apperr.KindUnauthorized) {
				s.forceLogout(err)
				return
			}
			s.logger.Printf("session: realtime connect failed, retrying in %s: %v", delay, err)
		} else {
			if s.runConn(ctx, conn) {
				return
			}
			s.logger.Printf("session: realtime disconnected (%v), polling continues, reconnecting in %s", conn.Err(), delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			metrics.RealtimeReconnects.Inc()
		}
	}
}

// runConn pumps one connection until it drops. It reports whether the loop
// should stop for good.
func (s *Session) runConn(ctx context.Context, conn *realtime.Conn) bool {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return true
	}
	s.conn = conn
	s.mu.Unlock()

	unsubscribe := conn.Subscribe(func(ev models.RealtimeEvent) {
		s.engine.HandleEvent(ev)
		s.notes.Emit(ctx, s.notes.ForEvent(ev, s.user)...)
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
		_ = conn.Close()
		return true
	case <-conn.Disconnected():
	}

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()

	if err := conn.Err(); apperr.Is(err, apperr.KindUnauthorized) {
		s.forceLogout(err)
		return true
	}
	return ctx.Err() != nil
}
