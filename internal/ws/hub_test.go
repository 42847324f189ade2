package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newTestClient(hub *Hub, class string, buffer int) *Client {
	return &Client{
		hub:   hub,
		class: class,
		send:  make(chan []byte, buffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.classes)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "CS101", 1)

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, hub.ConnectedClients("CS101"))

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ConnectedClients("CS101"))

	_, open := <-client.send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHub_BroadcastToClass(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "CS101", 10)

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastToClass("CS101", EventAttendanceMarked, map[string]string{"reg_no": "21A"})

	select {
	case msg := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, EventAttendanceMarked, event.Type)
		assert.Equal(t, "CS101", event.Class)
		assert.Equal(t, map[string]any{"reg_no": "21A"}, event.Data)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_ClassIsolation(t *testing.T) {
	hub := runHub(t)
	cs := newTestClient(hub, "CS101", 10)
	math := newTestClient(hub, "MATH201", 10)

	hub.register <- cs
	hub.register <- math
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastToClass("CS101", EventAttendanceUpdated, map[string]string{"status": "Late"})

	select {
	case <-cs.send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("CS101 watcher should receive the event")
	}

	select {
	case <-math.send:
		t.Fatal("MATH201 watcher should not receive CS101 events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "CS101", 1)

	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastToClass("CS101", EventAttendanceMarked, nil)
	hub.BroadcastToClass("CS101", EventAttendanceMarked, nil)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ConnectedClients("CS101"))
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newTestClient(hub, "CS101", 1)
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, open := <-client.send
	assert.False(t, open)
}
