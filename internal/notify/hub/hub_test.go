package hub

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen-backend/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestJoinRoomReceivesGroupEvents(t *testing.T) {
	h := New(logger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(frame{Action: "joinRoom", Email: "alice@example.com"}))
	waitFor(t, func() bool { return h.RoomSize("alice@example.com") == 1 })

	require.NoError(t, h.EmitToGroup("alice@example.com", "orderUpdated", map[string]string{"orderId": "ORD-123456"}))

	env := readEnvelope(t, conn)
	assert.Equal(t, "orderUpdated", env.Event)
	data := env.Data.(map[string]any)
	assert.Equal(t, "ORD-123456", data["orderId"])
}

func TestEmitToGroupWithoutSubscribers(t *testing.T) {
	h := New(logger.Nop())
	err := h.EmitToGroup("nobody@example.com", "orderUpdated", nil)
	assert.Error(t, err)
}

func TestLeaveRoomStopsGroupDelivery(t *testing.T) {
	h := New(logger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(frame{Action: "joinRoom", Email: "bob@example.com"}))
	waitFor(t, func() bool { return h.RoomSize("bob@example.com") == 1 })

	require.NoError(t, conn.WriteJSON(frame{Action: "leaveRoom", Email: "bob@example.com"}))
	waitFor(t, func() bool { return h.RoomSize("bob@example.com") == 0 })

	err := h.EmitToGroup("bob@example.com", "orderUpdated", nil)
	assert.Error(t, err)
}

func TestEmitToAllReachesEveryClient(t *testing.T) {
	h := New(logger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	first := dial(t, srv)
	second := dial(t, srv)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	require.NoError(t, h.EmitToAll("ordersUpdated", map[string]string{"adminStatus": "Accepted"}))

	for _, conn := range []*websocket.Conn{first, second} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "ordersUpdated", env.Event)
	}
}

func TestEmitRacesClientDisconnect(t *testing.T) {
	h := New(logger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				continue
			}
			conn.Close()
		}
	}()

	// A disconnect between the registry read and the channel send must not
	// take the emitter down.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, h.EmitToAll("ordersUpdated", map[string]string{"adminStatus": "Accepted"}))
	}
	close(stop)
	wg.Wait()
}

func TestDisconnectCleansUpRooms(t *testing.T) {
	h := New(logger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(frame{Action: "joinRoom", Email: "gone@example.com"}))
	waitFor(t, func() bool { return h.RoomSize("gone@example.com") == 1 })

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 && h.RoomSize("gone@example.com") == 0 })
}
