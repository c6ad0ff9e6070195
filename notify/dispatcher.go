package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"food-delivery/client/metrics"
)

// Sink delivers notices somewhere outside the process.
type Sink interface {
	Send(ctx context.Context, n Notice) error
}

// Dispatcher builds notices from Templates and emits them to a sink. Sink
// errors are logged and never reach the caller.
type Dispatcher struct {
	Templates
	sink   Sink
	logger *log.Logger

	mu          sync.Mutex
	subscribers map[int]func(Notice)
	nextID      int
}

func NewDispatcher(sink Sink, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	return &Dispatcher{sink: sink, logger: logger, subscribers: make(map[int]func(Notice))}
}

// Subscribe registers fn for every emitted notice, e.g. a websocket push.
func (d *Dispatcher) Subscribe(fn func(Notice)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.subscribers[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.subscribers, id)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) Emit(ctx context.Context, notices ...Notice) {
	for _, n := range notices {
		metrics.NoticesEmitted.WithLabelValues(string(n.Channel)).Inc()
		if err := d.sink.Send(ctx, n); err != nil {
			d.logger.Printf("notify: %s notice for %s not delivered: %v", n.Channel, n.UserID, err)
		}
		d.mu.Lock()
		subs := make([]func(Notice), 0, len(d.subscribers))
		for _, fn := range d.subscribers {
			subs = append(subs, fn)
		}
		d.mu.Unlock()
		for _, fn := range subs {
			fn(n)
		}
	}
}

// EventLogger is a sink that also records client events, e.g. KafkaSink.
type EventLogger interface {
	LogEvent(event string, fields map[string]interface{}) error
}

// LogEvent records a client event when the sink keeps an event log.
func (d *Dispatcher) LogEvent(event string, fields map[string]interface{}) {
	l, ok := d.sink.(EventLogger)
	if !ok {
		return
	}
	if err := l.LogEvent(event, fields); err != nil {
		d.logger.Printf("notify: %s event not recorded: %v", event, err)
	}
}

// LogSink prints notices the way the simulated SMS/email modals showed them.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Send(_ context.Context, n Notice) error {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	switch n.Channel {
	case ChannelEmail:
		l.Printf("[email] to=%s subject=%q %s", n.To, n.Subject, n.Body)
	case ChannelSMS:
		l.Printf("[sms] to=%s %s", n.To, n.Body)
	default:
		l.Printf("[%s] %s", n.Level, n.Body)
	}
	return nil
}

// MultiSink sends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, n Notice) error {
	var errs []string
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d sinks failed: %s", len(errs), len(m), strings.Join(errs, "; "))
	}
	return nil
}

// LogEvent hands the event to every member that keeps an event log.
func (m MultiSink) LogEvent(event string, fields map[string]interface{}) error {
	var errs []string
	for _, s := range m {
		l, ok := s.(EventLogger)
		if !ok {
			continue
		}
		own := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			own[k] = v
		}
		if err := l.LogEvent(event, own); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("event %s: %s", event, strings.Join(errs, "; "))
	}
	return nil
}
