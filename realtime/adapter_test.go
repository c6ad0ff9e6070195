package realtime

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"food-delivery/client/apperr"
	"food-delivery/client/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// fakeSocket runs script against every accepted connection after reading the
// auth frame into auth.
func fakeSocket(t *testing.T, script func(ws *websocket.Conn, auth map[string]string)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("deny") != "" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		var auth map[string]string
		if err := ws.ReadJSON(&auth); err != nil {
			return
		}
		script(ws, auth)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func quietOptions() Options {
	return Options{HandshakeTimeout: 2 * time.Second, Logger: log.New(io.Discard, "", 0)}
}

type recorder struct {
	mu     sync.Mutex
	events []models.RealtimeEvent
}

func (r *recorder) listen(ev models.RealtimeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func TestDial_SendsAuthFirstAndBuffersUntilAck(t *testing.T) {
	authSeen := make(chan map[string]string, 1)
	release := make(chan struct{})
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		authSeen <- auth
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"order-accepted","orderId":"o1","riderName":"Ray"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"order-picked-up","orderId":"o1"}`))
		<-release
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-ok"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"order-delivered","orderId":"o1"}`))
		time.Sleep(200 * time.Millisecond)
	})

	c, err := Dial(context.Background(), url, "tok", " u-1 ", quietOptions())
	require.NoError(t, err)
	defer c.Close()

	rec := &recorder{}
	c.Subscribe(rec.listen)

	auth := <-authSeen
	assert.Equal(t, map[string]string{"type": "auth", "token": "tok", "userId": "u-1"}, auth)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.types(), "events before ack must be held back")

	close(release)
	assert.Eventually(t, func() bool { return len(rec.types()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.EventType{
		models.EventOrderAccepted,
		models.EventOrderPickedUp,
		models.EventOrderDelivered,
	}, rec.types())
}

func TestDial_ReleasesBufferWithoutAck(t *testing.T) {
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"new-order-available","order":{"_id":"o9","status":"pending","pickup":{"address":"Dock 4"}}}`))
		time.Sleep(500 * time.Millisecond)
	})
	opts := quietOptions()
	opts.HandshakeTimeout = 100 * time.Millisecond
	c, err := Dial(context.Background(), url, "tok", "u-1", opts)
	require.NoError(t, err)
	defer c.Close()

	rec := &recorder{}
	c.Subscribe(rec.listen)

	require.Eventually(t, func() bool { return len(rec.types()) == 1 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	ev := rec.events[0]
	rec.mu.Unlock()
	assert.Equal(t, "o9", ev.OrderID)
	assert.Equal(t, "Dock 4", ev.Pickup)
}

func TestDial_IgnoresUnknownAndMalformedFrames(t *testing.T) {
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		time.Sleep(50 * time.Millisecond)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-ok"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"rider-location","lat":1}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"order-cancelled","orderId":"o2"}`))
		time.Sleep(200 * time.Millisecond)
	})
	c, err := Dial(context.Background(), url, "tok", "u-1", quietOptions())
	require.NoError(t, err)
	defer c.Close()

	rec := &recorder{}
	c.Subscribe(rec.listen)

	require.Eventually(t, func() bool { return len(rec.types()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.EventType{models.EventOrderCancelled}, rec.types())
}

func TestSubscribe_MultipleListenersAndUnsubscribe(t *testing.T) {
	send := make(chan string, 4)
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-ok"}`))
		for frame := range send {
			_ = ws.WriteMessage(websocket.TextMessage, []byte(frame))
		}
	})
	c, err := Dial(context.Background(), url, "tok", "u-1", quietOptions())
	require.NoError(t, err)
	defer func() {
		close(send)
		c.Close()
	}()

	a, b := &recorder{}, &recorder{}
	c.Subscribe(a.listen)
	unsubB := c.Subscribe(b.listen)

	send <- `{"type":"order-accepted","orderId":"o1"}`
	require.Eventually(t, func() bool { return len(a.types()) == 1 && len(b.types()) == 1 }, time.Second, 10*time.Millisecond)

	unsubB()
	send <- `{"type":"order-delivered","orderId":"o1"}`
	require.Eventually(t, func() bool { return len(a.types()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Len(t, b.types(), 1)
}

func TestDisconnected_SignalledOnceOnRemoteClose(t *testing.T) {
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-ok"}`))
	})
	c, err := Dial(context.Background(), url, "tok", "u-1", quietOptions())
	require.NoError(t, err)

	select {
	case <-c.Disconnected():
	case <-time.After(time.Second):
		t.Fatal("expected disconnect signal")
	}
	assert.True(t, apperr.Is(c.Err(), apperr.KindTransient))

	assert.NotPanics(t, func() {
		_ = c.Close()
		_ = c.Close()
	})
	assert.True(t, apperr.Is(c.Err(), apperr.KindTransient), "first reason is kept")
}

func TestClose_IdempotentAndReleasesListeners(t *testing.T) {
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-ok"}`))
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	c, err := Dial(context.Background(), url, "tok", "u-1", quietOptions())
	require.NoError(t, err)

	rec := &recorder{}
	c.Subscribe(rec.listen)

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { _ = c.Close() })

	<-c.Disconnected()
	assert.ErrorIs(t, c.Err(), ErrClosed)

	c.mu.Lock()
	assert.Empty(t, c.listeners)
	c.mu.Unlock()

	unsub := c.Subscribe(rec.listen)
	assert.NotPanics(t, unsub)
}

func TestDial_Errors(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", "", "u-1", quietOptions())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {})
	_, err = Dial(context.Background(), url+"?deny=1", "tok", "u-1", quietOptions())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = Dial(context.Background(), "ws://127.0.0.1:1/ws", "tok", "u-1", quietOptions())
	assert.True(t, apperr.Is(err, apperr.KindTransient))
}

func TestAuthRejectionClosesConnection(t *testing.T) {
	url := fakeSocket(t, func(ws *websocket.Conn, auth map[string]string) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth-error","message":"bad token"}`))
		time.Sleep(200 * time.Millisecond)
	})
	c, err := Dial(context.Background(), url, "tok", "u-1", quietOptions())
	require.NoError(t, err)

	select {
	case <-c.Disconnected():
	case <-time.After(time.Second):
		t.Fatal("expected disconnect signal")
	}
	assert.True(t, apperr.Is(c.Err(), apperr.KindUnauthorized))
}
