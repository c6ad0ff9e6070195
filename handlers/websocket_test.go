package handlers

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"food-delivery/client/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledWriter blocks every write until release is closed.
type stalledWriter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	frames []pushFrame
}

func newStalledWriter() *stalledWriter {
	return &stalledWriter{started: make(chan struct{}), release: make(chan struct{})}
}

func (w *stalledWriter) SetWriteDeadline(time.Time) error { return nil }

func (w *stalledWriter) WriteJSON(v interface{}) error {
	w.once.Do(func() { close(w.started) })
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, v.(pushFrame))
	return nil
}

func (w *stalledWriter) written() []pushFrame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]pushFrame(nil), w.frames...)
}

func renderIDs(orders []models.Order) ([]OrderResponse, error) {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderResponse{ID: o.ID}
	}
	return out, nil
}

func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("call still blocked after %s", d)
	}
}

func TestPushClient_StalledPageDoesNotBlockEngine(t *testing.T) {
	api := &fakeAPI{orders: offered()}
	_, sess := newTestApp(t, api, models.RoleRider)

	w := newStalledWriter()
	client := newPushClient(w)
	go client.run(renderIDs, log.New(io.Discard, "", 0))
	defer client.stop()
	defer close(w.release)

	unsubscribe := sess.Engine().Subscribe(client.offerOrders)
	defer unsubscribe()

	client.offerOrders(sess.Engine().Snapshot())
	<-w.started

	within(t, time.Second, func() {
		assert.NoError(t, sess.Engine().Refresh(context.Background()))
		assert.NoError(t, sess.Engine().Refresh(context.Background()))
	})
}

func TestPushClient_CoalescesToLatestSnapshot(t *testing.T) {
	w := newStalledWriter()
	client := newPushClient(w)
	go client.run(renderIDs, log.New(io.Discard, "", 0))
	defer client.stop()

	client.offerOrders([]models.Order{{ID: "first"}})
	<-w.started
	within(t, time.Second, func() {
		client.offerOrders([]models.Order{{ID: "second"}})
		client.offerOrders([]models.Order{{ID: "third"}})
	})
	close(w.release)

	require.Eventually(t, func() bool { return len(w.written()) == 2 }, time.Second, 10*time.Millisecond)
	frames := w.written()
	assert.Equal(t, "first", frames[0].Orders[0].ID)
	assert.Equal(t, "third", frames[1].Orders[0].ID)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, w.written(), 2, "superseded snapshots are never written")
}
