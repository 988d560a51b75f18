package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helmetweb/internal/dto"
	progress "helmetweb/internal/service/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressWebsocketHandler(t *testing.T) {
	_, log := setupTestConfig(t)
	hub := progress.NewHubService(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(ProgressWebsocketHandler(hub, log))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"?token=page-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(dto.ProgressEvent{Token: "page-1", ID: "abc", Stage: dto.StageTranscoding, Filename: "abc_clip.avi"})

	var event dto.ProgressEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, dto.StageTranscoding, event.Stage)
	assert.Equal(t, "abc_clip.avi", event.Filename)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestProgressWebsocketHandler_MissingToken(t *testing.T) {
	_, log := setupTestConfig(t)
	hub := progress.NewHubService(log)

	rec := httptest.NewRecorder()
	ProgressWebsocketHandler(hub, log)(rec, httptest.NewRequest(http.MethodGet, "/ws/progress", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hub.GetClientCount())
}
