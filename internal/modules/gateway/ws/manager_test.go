package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer upgrades every request and registers it under the user_id query param.
// Incoming messages are echoed back to the sender.
func newServer(t *testing.T, m *Manager) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := m.Register(conn, uid)
		go c.WritePump()
		go c.ReadPump(func(userID int64, msg []byte) {
			m.SendToUser(userID, append([]byte("echo:"), msg...))
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func startManager(t *testing.T) *Manager {
	m := NewManager(Options{SendTimeout: 100 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(cancel)
	return m
}

func TestManagerRoutesMessages(t *testing.T) {
	m := startManager(t)
	srv := newServer(t, m)

	a := dial(t, srv, 1)
	b := dial(t, srv, 2)
	require.Eventually(t, func() bool { return m.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	m.SendToUser(2, []byte("hello two"))
	assert.Equal(t, "hello two", read(t, b))

	m.Broadcast([]byte("all"))
	assert.Equal(t, "all", read(t, a))
	assert.Equal(t, "all", read(t, b))

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, "echo:ping", read(t, a))

	// Unknown users are ignored.
	m.SendToUser(99, []byte("nobody"))
}

func TestManagerReplacesConnection(t *testing.T) {
	m := startManager(t)
	srv := newServer(t, m)

	first := dial(t, srv, 7)
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	second := dial(t, srv, 7)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)

	m.SendToUser(7, []byte("latest"))
	assert.Equal(t, "latest", read(t, second))
	assert.Equal(t, 1, m.Count())
}

func TestManagerShutdownClosesClients(t *testing.T) {
	m := startManager(t)
	srv := newServer(t, m)

	conn := dial(t, srv, 3)
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.Shutdown()
	assert.Equal(t, 0, m.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	m.Shutdown()
}

func TestOptionDefaults(t *testing.T) {
	o := Options{PongWait: 10 * time.Second, PingInterval: 20 * time.Second}
	o.setDefaults()
	assert.Equal(t, 9*time.Second, o.PingInterval)
	assert.Equal(t, int64(4096), o.MaxMessageSize)
	assert.Equal(t, 256, o.SendBuffer)
}
