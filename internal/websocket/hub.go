package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"support-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "chat_cluster_events"

	// OperatorsKey is the hub key operator dashboards listen on. It can never
	// collide with a session id.
	OperatorsKey = "@operators"
)

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Key     string          `json:"key"`
	Message json.RawMessage `json:"message"`
}

// Hub fans frames out to the websockets listening on a key. A key is a chat
// session id or OperatorsKey.
type Hub struct {
	// key -> clients (one session may be open in several tabs)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance delivery; nil runs standalone
	rdb      *redis.Client
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Key] = append(h.clients[client.Key], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"key": client.Key})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.Key]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.Key] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.Key]) == 0 {
		delete(h.clients, client.Key)
		h.logger.Info("Hub", "Key has no listeners left", map[string]interface{}{"key": client.Key})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, key)
	}
}

// Send delivers a frame to every listener of key, here and on the other
// instances.
func (h *Hub) Send(key string, data []byte) {
	h.deliver(key, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instance, Key: key, Message: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

// SendLocal delivers a frame to this instance's listeners only.
func (h *Hub) SendLocal(key string, data []byte) {
	h.deliver(key, data)
}

// Listeners reports how many local clients listen on key.
func (h *Hub) Listeners(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

func (h *Hub) deliver(key string, data []byte) {
	h.mu.RLock()
	var slow []*Client
	for _, client := range h.clients[key] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, disconnecting", map[string]interface{}{"key": key})
		go h.leave(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instance {
				continue
			}
			h.deliver(payload.Key, payload.Message)
		}
	}
}
