package websocket

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestMessageToJSON(t *testing.T) {
	msg := Message{
		Type: "alert",
		Data: map[string]interface{}{"alert_type": "scan_failure"},
	}

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.ToJSON(), &decoded))
	assert.Equal(t, "alert", decoded.Type)
	assert.Equal(t, "scan_failure", decoded.Data["alert_type"])
}

func TestBroadcastAlertEnvelope(t *testing.T) {
	hub := NewHub(testLogger())

	hub.BroadcastAlert(&models.Event{
		ID:         "event_1",
		Timestamp:  time.Now(),
		RelativeMs: 1500,
		Type:       "performance_alert",
		Payload:    models.JSONMap{"type": "slow_scan"},
	})

	select {
	case raw := <-hub.broadcast:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "alert", msg.Type)
		assert.Equal(t, "performance_alert", msg.Data["alert_type"])
		assert.Equal(t, "event_1", msg.Data["event_id"])
		assert.Equal(t, float64(1500), msg.Data["relative_ms"])
	default:
		t.Fatal("Expected alert on broadcast channel")
	}
}

func TestBroadcastDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub(testLogger())

	// Fill the buffered channel, then one more must not block.
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.BroadcastToAll(Message{Type: "alert"})
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastToAll(Message{Type: "alert"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastToAll blocked on a full channel")
	}
}

func TestBroadcastDropsUnreachableClientInline(t *testing.T) {
	hub := NewHub(testLogger())

	// No reader and no buffer: delivery can never succeed.
	client := &Client{ID: "stuck", send: make(chan []byte), hub: hub, logger: hub.logger}
	hub.clients[client] = true

	hub.broadcastMessage([]byte(`{"type":"alert"}`))

	assert.Equal(t, 0, hub.GetClientCount())
	_, open := <-client.send
	assert.False(t, open, "expected dropped client's send channel to be closed")
}

func TestSlowClientDoesNotWedgeHub(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	waitFor := func(cond func() bool, msg string) {
		deadline := time.Now().Add(2 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatal(msg)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	// The welcome message fills this client's one-slot buffer, so the next
	// broadcast cannot be delivered to it.
	slow := &Client{ID: "slow", send: make(chan []byte, 1), hub: hub, logger: hub.logger}
	hub.register <- slow
	waitFor(func() bool { return hub.GetClientCount() == 1 }, "slow client never registered")

	hub.BroadcastToAll(Message{Type: "alert"})
	waitFor(func() bool { return hub.GetClientCount() == 0 }, "slow client was never dropped")

	// The hub must keep servicing registrations afterwards.
	fresh := &Client{ID: "fresh", send: make(chan []byte, 8), hub: hub, logger: hub.logger}
	select {
	case hub.register <- fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped accepting registrations after broadcasting to a slow client")
	}
	waitFor(func() bool { return hub.GetClientCount() == 1 }, "fresh client never registered")
}

func TestHubStats(t *testing.T) {
	hub := NewHub(testLogger())

	stats := hub.GetStats()
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.ConnectedClients)
	assert.Equal(t, int64(0), stats.TotalConnections)
	assert.Equal(t, 0, hub.GetClientCount())
}
