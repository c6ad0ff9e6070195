package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_client_snapshots_applied_total",
		Help: "Order snapshots that replaced the local collection",
	})

	SnapshotsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_client_snapshots_discarded_total",
		Help: "Order snapshots dropped because a newer request was already applied",
	})

	PollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_delivery_client_poll_failures_total",
		Help: "Background order fetches that failed, by error kind",
	}, []string{"kind"})

	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_delivery_client_actions_total",
		Help: "User-initiated order actions, by action and outcome",
	}, []string{"action", "result"})

	OrdersTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "food_delivery_client_orders_tracked",
		Help: "Orders currently held in the reconciled collection",
	})

	RealtimeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_client_realtime_reconnects_total",
		Help: "Realtime socket reconnect attempts",
	})

	NoticesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_delivery_client_notices_total",
		Help: "Notices handed to sinks, by channel",
	}, []string{"channel"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "food_delivery_client_http_request_duration_seconds",
		Help:    "Time spent serving the local dashboard API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// ObserveAction records the outcome of a user action.
func ObserveAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Actions.WithLabelValues(action, result).Inc()
}

// Middleware times each request. statusOf maps a handler error to the code
// the app's error handler will answer with, since that handler runs only
// after the whole chain returns.
func Middleware(statusOf func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		requestDuration.WithLabelValues(c.Method(), strconv.Itoa(status)).Observe(duration)

		return err
	}
}
