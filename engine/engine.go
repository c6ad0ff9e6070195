// Package engine owns the reconciled order collection of one dashboard
// session. REST snapshots replace the collection wholesale; realtime events
// only trigger a refetch; user actions go through the lifecycle table before
// any network call is made.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/metrics"
	"food-delivery/client/models"
	"food-delivery/client/repository"

	"github.com/go-co-op/gocron/v2"
)

const DefaultPollInterval = 5 * time.Second

// Source is the subset of the repository client the engine drives.
type Source interface {
	FetchOrders(ctx context.Context, token string, scope repository.Scope) ([]models.Order, error)
	CreateOrder(ctx context.Context, token string, draft repository.OrderDraft) (models.Order, error)
	Transition(ctx context.Context, token, orderID string, action models.Action, payload any) (*models.Order, error)
	Cancel(ctx context.Context, token, orderID, reason string) (*models.Order, error)
	Rate(ctx context.Context, token, orderID string, rating int, comment string) (*models.Order, error)
}

// SnapshotStore persists the last applied snapshot per user.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) ([]models.Order, error)
	Save(ctx context.Context, userID string, orders []models.Order) error
}

type Config struct {
	Token        string
	User         models.User
	Scope        repository.Scope
	PollInterval time.Duration
	Logger       *log.Logger
}

type Option func(*Engine)

func WithStore(s SnapshotStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithUnauthorizedHandler is called when a background fetch is rejected
// for credentials. User actions return the error instead.
func WithUnauthorizedHandler(fn func(error)) Option {
	return func(e *Engine) { e.onUnauthorized = fn }
}

type Listener func([]models.Order)

type Engine struct {
	cfg            Config
	src            Source
	store          SnapshotStore
	logger         *log.Logger
	onUnauthorized func(error)

	mu        sync.Mutex
	orders    []models.Order
	claimed   map[string]struct{}
	applied   uint64
	listeners map[int]Listener
	nextID    int

	issued   atomic.Uint64
	notifyMu sync.Mutex

	refreshCh chan struct{}
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(cfg Config, src Source, opts ...Option) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	cfg.User.ID = models.NormalizeID(cfg.User.ID)
	e := &Engine{
		cfg:       cfg,
		src:       src,
		logger:    cfg.Logger,
		claimed:   make(map[string]struct{}),
		listeners: make(map[int]Listener),
		refreshCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) User() models.User { return e.cfg.User }

// Start seeds the collection from the snapshot store, then polls every
// PollInterval until Stop. The first poll runs immediately.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		err = e.start(ctx)
	})
	return err
}

func (e *Engine) start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if e.store != nil {
		cached, err := e.store.Load(runCtx, e.cfg.User.ID)
		if err != nil {
			e.logger.Printf("engine: cached snapshot unavailable: %v", err)
		} else if len(cached) > 0 && e.seed(cached) {
			e.logger.Printf("engine: seeded %d cached orders for %s", len(cached), e.cfg.User.ID)
			e.notify()
		}
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(e.cfg.PollInterval),
		gocron.NewTask(func() { e.poll(runCtx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return err
	}
	e.scheduler = s
	s.Start()

	e.wg.Add(1)
	go e.refreshLoop(runCtx)

	e.logger.Printf("engine: polling orders for %s every %s", e.cfg.User.ID, e.cfg.PollInterval)
	return nil
}

// Stop cancels the poll job and the event-driven refresh worker. It is safe
// to call more than once and before Start.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		if e.scheduler != nil {
			if err := e.scheduler.Shutdown(); err != nil {
				e.logger.Printf("engine: scheduler shutdown: %v", err)
			}
		}
		e.wg.Wait()
		e.mu.Lock()
		e.listeners = make(map[int]Listener)
		e.mu.Unlock()
	})
}

func (e *Engine) refreshLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.refreshCh:
			e.poll(ctx)
		}
	}
}

// poll is a background fetch: failures are logged and never clear the
// collection.
func (e *Engine) poll(ctx context.Context) {
	err := e.Refresh(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	kind := apperr.KindOf(err)
	metrics.PollFailures.WithLabelValues(kind.String()).Inc()
	if kind == apperr.KindUnauthorized && e.onUnauthorized != nil {
		e.onUnauthorized(err)
		return
	}
	e.mu.Lock()
	n := len(e.orders)
	e.mu.Unlock()
	e.logger.Printf("engine: background refresh failed (%s), keeping %d orders: %v", kind, n, err)
}

// Refresh fetches a snapshot and applies it unless a later-issued request
// has already been applied.
func (e *Engine) Refresh(ctx context.Context) error {
	token := e.issued.Add(1)
	orders, err := e.src.FetchOrders(ctx, e.cfg.Token, e.cfg.Scope)
	if err != nil {
		return err
	}
	if !e.apply(token, orders) {
		return nil
	}
	e.persist(ctx)
	e.notify()
	return nil
}

// HandleEvent schedules a refetch for lifecycle and new-order events.
// Bursts of events coalesce into a single pending refresh.
func (e *Engine) HandleEvent(ev models.RealtimeEvent) bool {
	if !ev.Type.Known() {
		return false
	}
	e.kick()
	return true
}

func (e *Engine) apply(token uint64, orders []models.Order) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token < e.applied {
		metrics.SnapshotsDiscarded.Inc()
		e.logger.Printf("engine: discarding stale snapshot (request %d, applied %d)", token, e.applied)
		return false
	}
	e.applied = token
	e.orders = e.reconcile(orders)
	metrics.SnapshotsApplied.Inc()
	metrics.OrdersTracked.Set(float64(len(e.orders)))
	return true
}

func (e *Engine) seed(orders []models.Order) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied != 0 {
		return false
	}
	e.orders = e.reconcile(orders)
	return true
}

// reconcile drops orders breaking the rider invariant and hides orders this
// rider lost an accept race on until the backend stops offering them.
// Caller holds e.mu.
func (e *Engine) reconcile(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			e.logger.Printf("engine: invariant violation, dropping order: %v", err)
			continue
		}
		if !o.RiderConsistent() {
			e.logger.Printf("engine: invariant violation, order %s is %s with rider %q", o.ID, o.Status, o.RiderID())
			continue
		}
		if _, lost := e.claimed[o.ID]; lost {
			if o.Status == models.OrderStatusPending && o.Rider == nil {
				continue
			}
			delete(e.claimed, o.ID)
		}
		out = append(out, o.Clone())
	}
	return out
}

// replace swaps in a single authoritative order returned by a mutation and
// invalidates every fetch issued before it.
func (e *Engine) replace(o models.Order) {
	if err := o.Validate(); err != nil {
		e.logger.Printf("engine: ignoring invalid mutation response: %v", err)
		return
	}
	e.mu.Lock()
	e.applied = e.issued.Add(1)
	found := false
	for i := range e.orders {
		if e.orders[i].ID == o.ID {
			e.orders[i] = o.Clone()
			found = true
			break
		}
	}
	if !found {
		e.orders = append(e.orders, o.Clone())
	}
	metrics.OrdersTracked.Set(float64(len(e.orders)))
	e.mu.Unlock()
	e.notify()
}

// markClaimed removes an order the rider failed to accept.
func (e *Engine) markClaimed(id string) {
	e.mu.Lock()
	e.claimed[id] = struct{}{}
	e.applied = e.issued.Add(1)
	kept := e.orders[:0]
	for _, o := range e.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	e.orders = kept
	metrics.OrdersTracked.Set(float64(len(e.orders)))
	e.mu.Unlock()
	e.notify()
}

// Claimed reports whether id was lost to another rider.
func (e *Engine) Claimed(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.claimed[models.NormalizeID(id)]
	return ok
}

func (e *Engine) persist(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, e.cfg.User.ID, e.Snapshot()); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Printf("engine: saving snapshot: %v", err)
	}
}

// Snapshot returns a deep copy of the current collection.
func (e *Engine) Snapshot() []models.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := models.CloneOrders(e.orders)
	if out == nil {
		out = []models.Order{}
	}
	return out
}

// Order looks up one order in the current collection.
func (e *Engine) Order(id string) (models.Order, bool) {
	id = models.NormalizeID(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return models.Order{}, false
}

// Subscribe registers fn to receive a copy of the collection after every
// change.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	e.mu.Lock()
	ls := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		ls = append(ls, fn)
	}
	snapshot := models.CloneOrders(e.orders)
	e.mu.Unlock()
	for _, fn := range ls {
		fn(models.CloneOrders(snapshot))
	}
}
