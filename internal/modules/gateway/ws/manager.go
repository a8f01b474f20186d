package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

type CloseReason string

const (
	ReasonWriteError     CloseReason = "write_error"
	ReasonPingError      CloseReason = "ping_error"
	ReasonReadError      CloseReason = "read_error"
	ReasonSendChanClosed CloseReason = "send_channel_closed"
	ReasonReplaced       CloseReason = "replaced_by_new_connection"
	ReasonShutdown       CloseReason = "server_shutdown"
	ReasonBufferFull     CloseReason = "buffer_full"
	ReasonTimeout        CloseReason = "timeout"
)

// Options tunes connection keepalive and buffering
type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	SendTimeout    time.Duration
}

func (o *Options) setDefaults() {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 5 * time.Second
	}
}

// Connection represents a WebSocket connection
type Connection struct {
	UserID    int64
	Conn      *websocket.Conn
	Send      chan []byte
	manager   *Manager
	closeOnce sync.Once
	done      chan struct{}
}

// Manager manages all WebSocket connections, one per user
type Manager struct {
	opts       Options
	clients    map[int64]*Connection
	register   chan *Connection
	unregister chan *Connection
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewManager creates a new connection manager
func NewManager(opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:       opts,
		clients:    make(map[int64]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		stop:       make(chan struct{}),
	}
}

// Register registers a new connection
func (m *Manager) Register(conn *websocket.Conn, userID int64) *Connection {
	c := &Connection{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, m.opts.SendBuffer),
		manager: m,
		done:    make(chan struct{}),
	}
	select {
	case m.register <- c:
	case <-m.stop:
		c.CloseWithReason(ReasonShutdown, nil)
	}
	return c
}

// Run starts the manager loop until ctx is done or Shutdown is called
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return
		case <-m.stop:
			return

		case client := <-m.register:
			m.mu.Lock()
			// If user already connected, close old connection
			if old, ok := m.clients[client.UserID]; ok {
				old.CloseWithReason(ReasonReplaced, nil)
			}
			m.clients[client.UserID] = client
			m.mu.Unlock()

		case client := <-m.unregister:
			m.mu.Lock()
			if cur, ok := m.clients[client.UserID]; ok && cur == client {
				delete(m.clients, client.UserID)
			}
			m.mu.Unlock()
		}
	}
}

// Count returns the number of connected users
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast sends a message to all connected local clients
func (m *Manager) Broadcast(message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		select {
		case client.Send <- message:
		default:
			// Buffer full, drop client; ReadPump unregisters it
			client.CloseWithReason(ReasonBufferFull, nil)
		}
	}
}

// SendToUser sends a message to a specific user
func (m *Manager) SendToUser(userID int64, message []byte) {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
		return
	default:
	}

	timer := time.NewTimer(m.opts.SendTimeout)
	defer timer.Stop()
	select {
	case client.Send <- message:
	case <-client.done:
	case <-timer.C:
		// Client is too slow. Close connection to avoid blocking server.
		client.CloseWithReason(ReasonTimeout, nil)
	}
}

// Shutdown closes all connections
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		client.CloseWithReason(ReasonShutdown, nil)
		delete(m.clients, id)
	}
}

// CloseWithReason closes the connection with a reason
func (c *Connection) CloseWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		ev := logger.Info(context.Background())
		if err != nil {
			ev = logger.Warn(context.Background()).Err(err)
		}
		ev.Int64("user_id", c.UserID).
			Str("reason", string(r)).
			Msg("ws connection closed")
		close(c.done)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Connection) WritePump() {
	opts := c.manager.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseWithReason(ReasonPingError, err)
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Connection) ReadPump(handleMessage func(int64, []byte)) {
	opts := c.manager.opts
	var readErr error
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.stop:
		}
		c.CloseWithReason(ReasonReadError, readErr)
	}()

	c.Conn.SetReadLimit(opts.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				readErr = err
			}
			break
		}

		handleMessage(c.UserID, message)
	}
}
