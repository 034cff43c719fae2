package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pizzeria-backoffice-api-server/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := hub.Register(userID, conn)
		defer func() {
			hub.Unregister(id)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsQuotationUpdates(t *testing.T) {
	hub := NewHub(nil)
	a := dialHub(t, hub, "chef")
	b := dialHub(t, hub, "manager")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	total := 91.0
	hub.QuotationUpdated(&models.Quotation{QuotationID: "QUO-1", Status: models.StatusQuoted, QuotedTotal: &total})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var got struct {
			Type string         `json:"type"`
			Data QuotationEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, "quotation_updated", got.Type)
		assert.Equal(t, "QUO-1", got.Data.QuotationID)
		assert.Equal(t, models.StatusQuoted, got.Data.Status)
	}
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub(nil)
	conn := dialHub(t, hub, "chef")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Send("nobody", []byte("x")))
	require.NoError(t, hub.Send("chef", []byte(`{"type":"ping"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping"}`, string(msg))
}

func TestHub_BroadcastDoesNotWaitForStalledClient(t *testing.T) {
	hub := NewHub(nil)
	_ = dialHub(t, hub, "stalled")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	payload := strings.Repeat("x", 1<<20)
	start := time.Now()
	for i := 0; i < 64; i++ {
		hub.Broadcast(Event{Type: "bulk", Data: payload})
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	// Peer không đọc: hàng đợi đầy, kết nối bị ngắt và tự hủy đăng ký.
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 3*time.Second, 20*time.Millisecond)
}
