package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-delivery/client/cache"
	"food-delivery/client/config"
	_ "food-delivery/client/docs"
	"food-delivery/client/handlers"
	"food-delivery/client/notify"
	"food-delivery/client/repository"
	"food-delivery/client/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, closers := initSinks(cfg, logger)
	defer func() { closeAll(closers, logger) }()

	deps := session.Deps{
		API:        repository.New(cfg.API),
		Dispatcher: notify.NewDispatcher(sinks, logger),
		Logger:     logger,
	}
	if cfg.Redis.Addr != "" {
		snapshots := cache.New(cfg.Redis)
		if err := snapshots.Ping(ctx); err != nil {
			logger.Printf("Redis unavailable, starting without snapshot cache: %v", err)
			_ = snapshots.Close()
		} else {
			deps.Store = snapshots
			closers = append(closers, snapshots)
		}
	}

	sess, err := session.Login(ctx, cfg, deps, cfg.Session.Email, cfg.Session.Password)
	if err != nil {
		log.Fatal("Failed to sign in:", err)
	}
	defer sess.Close()
	user := sess.User()
	logger.Printf("Signed in as %s (%s)", user.Name, user.Role)
	if snapshots, ok := deps.Store.(*cache.SnapshotCache); ok {
		if meta, err := snapshots.Meta(ctx, user.ID); err == nil && meta.Count > 0 {
			logger.Printf("Showing %d cached orders from %s until the first poll", meta.Count, meta.SavedAt.Format(time.RFC3339))
		}
	}
	if err := sess.Start(ctx); err != nil {
		log.Fatal("Failed to start session:", err)
	}

	app := handlers.NewApp(handlers.New(cfg, sess, logger))

	// Graceful shutdown
	go func() {
		select {
		case <-ctx.Done():
			logger.Println("Gracefully shutting down...")
		case <-sess.Done():
			logger.Printf("Session ended (%v), shutting down", sess.Err())
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	logger.Printf("Dashboard starting on port %s", cfg.Dashboard.Port)
	if err := app.Listen(":" + cfg.Dashboard.Port); err != nil {
		logger.Printf("Dashboard stopped: %v", err)
	}
}

// initSinks always logs notices and adds Kafka, RabbitMQ and SMTP delivery
// for whichever of them is configured.
func initSinks(cfg *config.Config, logger *log.Logger) (notify.MultiSink, []io.Closer) {
	sinks := notify.MultiSink{notify.LogSink{Logger: logger}}
	var closers []io.Closer

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := notify.NewKafkaSink(cfg.Kafka)
		if err != nil {
			logger.Printf("Kafka disabled: %v", err)
		} else {
			sinks = append(sinks, kafka)
			closers = append(closers, kafka)
		}
	}

	if cfg.RabbitMQ.URL != "" {
		queue, err := connectAMQP(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Printf("RabbitMQ disabled: %v", err)
		} else {
			sinks = append(sinks, queue)
			closers = append(closers, queue)
		}
	}

	if cfg.SMTP.Host != "" {
		sinks = append(sinks, notify.NewEmailSink(cfg.SMTP))
	}
	return sinks, closers
}

func connectAMQP(cfg config.RabbitMQConfig, logger *log.Logger) (*notify.AMQPSink, error) {
	var (
		sink *notify.AMQPSink
		err  error
	)
	for i := 0; i < 5; i++ {
		logger.Printf("Attempting to connect to RabbitMQ (attempt %d/5)...", i+1)
		sink, err = notify.NewAMQPSink(cfg)
		if err == nil {
			return sink, nil
		}
		if i < 4 {
			logger.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(5 * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after 5 attempts: %w", err)
}

func closeAll(closers []io.Closer, logger *log.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Printf("close: %v", err)
		}
	}
}
