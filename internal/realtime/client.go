package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// Client is a websocket Connection.  Writes go through a bounded send
// queue drained by a single writer goroutine, because gorilla/websocket
// allows only one concurrent writer and broadcast fan-out must never block
// on a slow socket.
type Client struct {
	conn         *websocket.Conn
	restaurantID string
	logger       zerolog.Logger

	send     chan []byte
	done     chan struct{}
	once     sync.Once
	lastSeen atomic.Int64

	// idleWindow bounds how long the read side waits for any client
	// traffic before the socket is considered dead.
	idleWindow time.Duration
}

// NewClient wraps an upgraded websocket connection for the restaurant.
// queueSize bounds the send queue; idleWindow is the silence threshold
// after which reads fail and the connection unwinds.
func NewClient(conn *websocket.Conn, restaurantID string, queueSize int, idleWindow time.Duration, logger zerolog.Logger) *Client {
	c := &Client{
		conn:         conn,
		restaurantID: restaurantID,
		logger:       logger,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
		idleWindow:   idleWindow,
	}
	c.touch()
	return c
}

// RestaurantID returns the tenant the connection is scoped to.
func (c *Client) RestaurantID() string { return c.restaurantID }

// Send enqueues payload for the writer goroutine.  It never blocks:
// a full queue or a closed connection reports false.
func (c *Client) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// LastSeen returns the time of the last message received from the client.
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// Close tears the connection down.  Idempotent.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// SendEvent marshals ev onto the send queue.
func (c *Client) SendEvent(ev Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("type", ev.Type).Msg("event marshal failed")
		return false
	}
	return c.Send(payload)
}

type controlMessage struct {
	Type string `json:"type"`
}

// Run drives the read and write pumps until the connection dies, then
// invokes onClose exactly once.  It blocks, so handlers call it last.
func (c *Client) Run(onClose func()) {
	go c.writePump()
	c.readPump()
	c.Close()
	onClose()
}

// readPump consumes client messages.  Anything readable counts as a
// liveness signal; a "ping" additionally gets a "pong" reply.  The read
// deadline mirrors the heartbeat monitor's eviction window, so a silent
// peer unwinds here even if the monitor never sweeps it.
func (c *Client) readPump() {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.idleWindow))
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Str("restaurant_id", c.restaurantID).Msg("websocket read failed")
			}
			return
		}
		c.touch()
		var msg controlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == TypePing {
			c.SendEvent(Event{Type: TypePong, Timestamp: wireTime(time.Now())})
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

var _ Connection = (*Client)(nil)
