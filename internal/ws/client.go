package ws

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/potureddigowtham/Collab-rooms/internal/protocol"
	"github.com/potureddigowtham/Collab-rooms/internal/ratelimit"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1024 * 1024
	messagesPerSecond = 100
	messageBurst      = 200
	sendQueueSize     = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errSendQueueFull = errors.New("send queue full")

// Store is the durable room state the websocket path reads and writes.
// *db.Database satisfies it.
type Store interface {
	ContentStore
	RoomExists(name string) (bool, error)
	CreateRoom(name string) error
	GetRoomContent(name string) (string, error)
}

// Gateway upgrades incoming requests and drives each connection's
// lifecycle on its own goroutine.
type Gateway struct {
	registry *Registry
	router   *Router
	store    Store
	log      zerolog.Logger
}

func NewGateway(registry *Registry, router *Router, store Store, log zerolog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		router:   router,
		store:    store,
		log:      log.With().Str("component", "ws").Logger(),
	}
}

// connState is one connection's position in its lifecycle.
type connState int

const (
	// transport handshake in progress
	stateConnecting connState = iota

	// handshake done, room row not yet resolved
	stateJoinedPending

	// registered and relaying messages
	stateActive

	// deregistered, transport released
	stateClosed
)

// Client drives one websocket connection from accept to cleanup. It is
// the Handle registered for this connection.
type Client struct {
	gw   *Gateway
	conn *websocket.Conn
	log  zerolog.Logger

	room     string
	clientID string // assigned at Join, empty until then

	send    chan []byte
	done    chan struct{}
	limiter *ratelimit.Limiter

	closeOnce sync.Once
}

// ServeWs handles a connection request for /ws/{room_name}.
func (g *Gateway) ServeWs(w http.ResponseWriter, r *http.Request) {
	room := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
	if room == "" {
		http.Error(w, "room name required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	c := &Client{
		gw:      g,
		conn:    conn,
		log:     g.log.With().Str("room", room).Logger(),
		room:    room,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		limiter: ratelimit.NewLimiter(messagesPerSecond, messageBurst),
	}
	c.run()
}

// run walks the connection through its states until Closed, then performs
// the single cleanup path shared by graceful and abnormal disconnects.
func (c *Client) run() {
	st := stateConnecting
	for st != stateClosed {
		switch st {
		case stateConnecting:
			// the upgrader already completed the handshake
			st = stateJoinedPending
		case stateJoinedPending:
			st = c.resolveRoom()
		case stateActive:
			st = c.relay()
		}
	}
	c.shutdown()
}

// resolveRoom gets-or-creates the room row. Any failure here, including
// a racing creator winning the insert, is fatal for this connection: the
// transport is closed with nothing sent, and the client reconnects onto
// the now-existing row.
func (c *Client) resolveRoom() connState {
	exists, err := c.gw.store.RoomExists(c.room)
	if err == nil && !exists {
		err = c.gw.store.CreateRoom(c.room)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("room setup failed, closing connection")
		return stateClosed
	}
	return stateActive
}

// relay queues the room's persisted content, registers the connection,
// announces the new member count, then pumps inbound frames through the
// router until the transport reports closure.
func (c *Client) relay() connState {
	// The first frame a joiner sees is always the room's persisted
	// content. It goes onto the send queue before Join so a broadcast
	// from a concurrent joiner cannot slot in ahead of it.
	content, err := c.gw.store.GetRoomContent(c.room)
	if err != nil {
		c.log.Error().Err(err).Msg("initial content read failed")
		content = ""
	}
	if err := c.Enqueue(protocol.ContentNotice(content)); err != nil {
		c.log.Warn().Err(err).Msg("initial content frame dropped")
	}

	c.clientID = c.gw.registry.Join(c.room, c)
	c.log = c.log.With().Str("client_id", c.clientID).Logger()

	go c.writePump()

	c.gw.router.UserCountNotice(c.room)

	c.readPump()
	return stateClosed
}

// shutdown is the Closed state: deregister, tell the remaining members the
// new count, release the transport. Safe on every path, including a
// failed join where the connection never registered.
func (c *Client) shutdown() {
	if c.clientID != "" {
		c.gw.registry.Leave(c.room, c)
		c.gw.router.UserCountNotice(c.room)
	}
	c.closeOnce.Do(func() { close(c.done) })
	c.conn.Close()
}

// Enqueue implements Handle. Non-blocking: a full queue means this client
// is too slow to keep up and the frame is dropped for it alone.
func (c *Client) Enqueue(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

// Kick implements Handle: force-close the transport. The read pump then
// unblocks with an error and the normal cleanup path runs.
func (c *Client) Kick() {
	c.closeOnce.Do(func() { close(c.done) })
	c.conn.Close()
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn().Msg("rate limit exceeded, frame dropped")
			continue
		}

		c.gw.router.Route(c.room, c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
