package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/monitoring"
)

// Client wraps a single websocket connection. The read pump feeds inbound
// frames to the dispatcher; the write pump serializes all writes through the
// send channel so the connection is only ever written from one goroutine.
// send is never closed; teardown is signalled through done so the hub can keep
// enqueueing concurrently with a disconnect.
type Client struct {
	state       ClientState
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	hub         *Hub
	closeOnce   sync.Once
	connectedAt time.Time
}

// enqueue hands a pre-marshalled frame to the write pump. A full buffer means
// the consumer has stopped draining; the connection is dropped so the room
// never carries a consumer with a gap-ridden event stream.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		log.Warn().Str("client_id", c.state.ID).Msg("send buffer full, dropping connection")
		c.hub.unregister(c)
	}
}

func (c *Client) sendMessage(message Message) {
	frame, err := message.envelope()
	if err != nil {
		log.Error().Err(err).Str("event", message.Event).Msg("failed to marshal reply")
		return
	}
	c.enqueue(frame)
}

// shutdown closes the connection and releases its resources exactly once,
// regardless of which pump or hub path initiated the teardown.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
		if c.state.Registered {
			monitoring.ConnectedClients.WithLabelValues(string(c.state.Role)).Dec()
		}
	})
}

func (c *Client) readPump() {
	cfg := c.hub.config
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", c.state.ID).Msg("unexpected close")
			}
			return
		}

		wasRegistered := c.state.Registered
		result := c.hub.dispatcher.Dispatch(context.Background(), &c.state, raw)
		if !wasRegistered && c.state.Registered {
			monitoring.ConnectedClients.WithLabelValues(string(c.state.Role)).Inc()
		}

		for _, reply := range result.Replies {
			c.sendMessage(reply)
		}
		for _, message := range result.Broadcasts {
			c.hub.Broadcast(message)
		}
	}
}

func (c *Client) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Str("client_id", c.state.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
