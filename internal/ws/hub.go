package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds the websocket connection knobs.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

type broadcastItem struct {
	message Message
	exclude *Client
}

// Hub owns the connection table and the broadcast fan-out. Delivery is
// best-effort per connection: there is no outbound queue beyond each
// connection's send buffer, and a consumer too slow to drain it is dropped.
type Hub struct {
	dispatcher *Dispatcher
	config     Config
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool

	broadcastCh chan broadcastItem
}

func NewHub(dispatcher *Dispatcher, config Config) *Hub {
	return &Hub{
		dispatcher: dispatcher,
		config:     config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		clients:     make(map[*Client]bool),
		broadcastCh: make(chan broadcastItem, 1000),
	}
}

// Start drains the broadcast channel until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("websocket hub shutting down")
			return
		case item := <-h.broadcastCh:
			h.fanOut(item)
		}
	}
}

// ServeWS upgrades an HTTP request and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return err
	}

	client := &Client{
		state:       ClientState{ID: uuid.New().String()},
		conn:        conn,
		send:        make(chan []byte, h.config.SendBuffer),
		done:        make(chan struct{}),
		hub:         h,
		connectedAt: time.Now(),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	log.Info().Str("client_id", client.state.ID).Str("remote", conn.RemoteAddr().String()).Msg("client connected")
	return nil
}

// Broadcast queues a message for every connection.
func (h *Hub) Broadcast(message Message) {
	h.enqueueBroadcast(broadcastItem{message: message})
}

// BroadcastExcept queues a message for every connection but one; used for
// presence events the originator already knows about.
func (h *Hub) BroadcastExcept(exclude *Client, message Message) {
	h.enqueueBroadcast(broadcastItem{message: message, exclude: exclude})
}

func (h *Hub) enqueueBroadcast(item broadcastItem) {
	select {
	case h.broadcastCh <- item:
	default:
		log.Warn().Str("event", item.message.Event).Msg("broadcast channel full, dropping message")
	}
}

func (h *Hub) fanOut(item broadcastItem) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client == item.exclude {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	frame, err := item.message.envelope()
	if err != nil {
		log.Error().Err(err).Str("event", item.message.Event).Msg("failed to marshal broadcast")
		return
	}

	for _, client := range targets {
		client.enqueue(frame)
	}

	log.Debug().Str("event", item.message.Event).Int("connections", len(targets)).Msg("event broadcast")
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("client_id", client.state.ID).Int("total_connections", total).Msg("connection registered")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, exists := h.clients[client]
	if exists {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	// send is never closed, so a fan-out that snapshotted this client before
	// removal enqueues into a dead buffer instead of panicking.
	client.shutdown()
	if !exists {
		return
	}

	// A disconnecting connection simply stops receiving; the remaining room
	// is told who left.
	if client.state.Registered {
		h.BroadcastExcept(client, Message{Event: EventClientDisconnected, Data: ClientPresenceData{
			ClientType: string(client.state.Role),
			SessionID:  client.state.SessionID,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}})
	}

	log.Info().Str("client_id", client.state.ID).Msg("client disconnected")
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
