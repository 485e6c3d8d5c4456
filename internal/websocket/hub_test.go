package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muniflow/internal/config"
)

func wsConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      5 * time.Second,
		PongWait:        10 * time.Second,
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(ServeWS(hub, wsConfig(), slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := newTestHub(t)
	conn := dial(t, hub)

	// Registration races the broadcast; give the hub a beat.
	time.Sleep(50 * time.Millisecond)
	hub.BroadcastUpdate("operation:snapshot", map[string]string{"status": "running"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "operation:snapshot", envelope.Event)
	assert.False(t, envelope.Timestamp.IsZero())

	payload, ok := envelope.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "running", payload["status"])
}

func TestBroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := newTestHub(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.BroadcastUpdate("operation:snapshot", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no clients connected")
	}
}

func TestStopClosesClients(t *testing.T) {
	hub := newTestHub(t)
	conn := dial(t, hub)

	time.Sleep(50 * time.Millisecond)
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
