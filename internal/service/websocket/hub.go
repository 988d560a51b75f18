package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"helmetweb/internal/dto"
	"helmetweb/internal/logger"

	"github.com/gorilla/websocket"
)

// broadcastBuffer bounds how many events may wait for the hub loop.
const broadcastBuffer = 64

type subscription struct {
	client *websocket.Conn
	token  string
}

type delivery struct {
	token   string
	message []byte
}

// HubService delivers pipeline progress events to the page that submitted
// the upload. Each connection subscribes with the token its page sends along
// with the form.
type HubService struct {
	clients    map[*websocket.Conn]string
	broadcast  chan delivery
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan delivery, broadcastBuffer),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register/unregister/broadcast until ctx is cancelled.
func (h *HubService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.client] = sub.token
			h.mutex.Unlock()
			h.logger.Info("Progress viewer connected. Total: %d", h.GetClientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			h.logger.Info("Progress viewer disconnected. Total: %d", h.GetClientCount())

		case d := <-h.broadcast:
			h.mutex.Lock()
			for client, token := range h.clients {
				if token != d.token {
					continue
				}
				if err := client.WriteMessage(websocket.TextMessage, d.message); err != nil {
					h.logger.Error("Error sending progress message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register subscribes a viewer to the events carrying token; once the hub has
// stopped the connection is closed.
func (h *HubService) Register(client *websocket.Conn, token string) {
	select {
	case h.register <- subscription{client: client, token: token}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for the viewers subscribed to its token. Events
// without a token have no audience and are dropped. It never blocks the
// caller: when the queue is full the event is dropped.
func (h *HubService) Publish(event dto.ProgressEvent) {
	if event.Token == "" {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding progress event: %v", err)
		return
	}

	select {
	case h.broadcast <- delivery{token: event.Token, message: message}:
	default:
		h.logger.Warning("Progress queue full - dropping %s event for %s", event.Stage, event.ID)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
