// Command simulator signs in as a rider and works through orders on its own:
// it accepts whatever is offered, then picks up and delivers it, pausing
// between steps as a courier would.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/config"
	"food-delivery/client/models"
	"food-delivery/client/notify"
	"food-delivery/client/repository"
	"food-delivery/client/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	step := 10 * time.Second
	if v, err := time.ParseDuration(os.Getenv("SIM_STEP")); err == nil {
		step = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "[courier] ", log.LstdFlags)
	deps := session.Deps{
		API:        repository.New(cfg.API),
		Dispatcher: notify.NewDispatcher(nil, logger),
		Logger:     logger,
	}
	sess, err := session.Login(ctx, cfg, deps, cfg.Session.Email, cfg.Session.Password)
	if err != nil {
		log.Fatal("Failed to sign in:", err)
	}
	defer sess.Close()

	rider, err := sess.Rider()
	if err != nil {
		log.Fatal(err)
	}
	if err := sess.Start(ctx); err != nil {
		log.Fatal("Failed to start session:", err)
	}

	wake := make(chan struct{}, 1)
	unsubscribe := sess.Engine().Subscribe(func([]models.Order) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			logger.Printf("Session ended: %v", sess.Err())
			return
		case <-wake:
		case <-ticker.C:
		}
		work(ctx, sess, rider, step, logger)
	}
}

// work advances at most one order by one step.
func work(ctx context.Context, sess *session.Session, rider *session.RiderDashboard, step time.Duration, logger *log.Logger) {
	v := sess.View(time.Now())
	if len(v.Active) > 0 {
		o := v.Active[0]
		if !sleep(ctx, step) {
			return
		}
		var err error
		switch o.Status {
		case models.OrderStatusAccepted:
			_, err = rider.Pickup(ctx, o.ID)
		case models.OrderStatusPickedUp:
			_, err = rider.Deliver(ctx, o.ID)
			if err == nil {
				v = sess.View(time.Now())
				logger.Printf("Delivered %s. Today: $%s, total: $%s, rating: %s",
					o.ShortRef(), v.TodayEarnings.StringFixed(2), v.TotalEarnings.StringFixed(2), v.Rating)
			}
		}
		if err != nil {
			logger.Printf("Step on %s failed: %v", o.ShortRef(), err)
		}
		return
	}

	for _, o := range v.Available {
		_, err := rider.Accept(ctx, o.ID)
		if err == nil {
			logger.Printf("Heading to %s for %s", o.Pickup.Address, o.ShortRef())
			return
		}
		if !apperr.Is(err, apperr.KindConflict) {
			logger.Printf("Accept %s failed: %v", o.ShortRef(), err)
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
