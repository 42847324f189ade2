package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Hub fans attendance events out to the websocket clients watching a class.
type Hub struct {
	clients    map[*Client]bool
	classes    map[string]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	now        func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		classes:    make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		now:        time.Now,
	}
}

// Run serves registrations and broadcasts until ctx is done, then drops
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToClass(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.classes[client.class] == nil {
		h.classes[client.class] = make(map[*Client]bool)
	}
	h.classes[client.class][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.classes[client.class], client)
	if len(h.classes[client.class]) == 0 {
		delete(h.classes, client.class)
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.dropLocked(client)
	}
}

func (h *Hub) broadcastToClass(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.classes[event.Class]
	if len(clients) == 0 {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			// slow consumer
			h.dropLocked(client)
		}
	}
}

// BroadcastToClass queues an event for the watchers of class. It never
// blocks: when the queue is full the event is dropped.
func (h *Hub) BroadcastToClass(class string, eventType EventType, data any) {
	event := Event{
		Class:     class,
		Type:      eventType,
		Data:      data,
		Timestamp: h.now().UTC(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) ConnectedClients(class string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.classes[class])
}
