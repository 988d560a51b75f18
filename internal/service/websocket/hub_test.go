package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helmetweb/internal/config"
	"helmetweb/internal/dto"
	"helmetweb/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()

	hub := NewHubService(logger.NewLogger(&config.Config{LogDirectory: t.TempDir()}))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, r.URL.Query().Get("token"))
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub, server := setupTestHub(t)
	first := dial(t, server, "page-1")
	second := dial(t, server, "page-1")

	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(dto.ProgressEvent{Token: "page-1", ID: "abc", Stage: dto.StageDetecting})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		require.NoError(t, err)

		var event dto.ProgressEvent
		require.NoError(t, json.Unmarshal(message, &event))
		assert.Equal(t, "abc", event.ID)
		assert.Equal(t, dto.StageDetecting, event.Stage)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.ProgressEvent {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event dto.ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHub_ScopesEventsByToken(t *testing.T) {
	hub, server := setupTestHub(t)
	mine := dial(t, server, "page-1")
	other := dial(t, server, "page-2")

	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(dto.ProgressEvent{Token: "page-1", ID: "abc", Stage: dto.StageUploaded, Filename: "site.jpg"})
	hub.Publish(dto.ProgressEvent{ID: "untokened", Stage: dto.StageDone})
	hub.Publish(dto.ProgressEvent{Token: "page-2", ID: "def", Stage: dto.StageDetecting})

	event := readEvent(t, mine)
	assert.Equal(t, "abc", event.ID)
	assert.Equal(t, "site.jpg", event.Filename)

	// the first event page-2 sees is its own; page-1's never reached it
	event = readEvent(t, other)
	assert.Equal(t, "def", event.ID)
	assert.Empty(t, event.Filename)
}

func TestHub_TokenNotSentToViewers(t *testing.T) {
	hub, server := setupTestHub(t)
	conn := dial(t, server, "secret-token")

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(dto.ProgressEvent{Token: "secret-token", ID: "abc", Stage: dto.StageDone})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.NotContains(t, string(message), "secret-token")
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, server := setupTestHub(t)
	conn := dial(t, server, "page-1")

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutLoopDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewLogger(&config.Config{LogDirectory: t.TempDir()}))

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Publish(dto.ProgressEvent{Token: "page-1", ID: "x", Stage: dto.StageDone})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}
