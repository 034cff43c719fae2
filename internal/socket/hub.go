// server/internal/socket/hub.go
package socket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"pizzeria-backoffice-api-server/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

var (
	ErrSlowClient = errors.New("websocket client too slow, connection dropped")
	ErrClientGone = errors.New("websocket client closed")
)

// Event là tin nhắn đẩy xuống client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// QuotationEvent là tóm tắt báo giá gửi kèm sự kiện quotation_updated.
type QuotationEvent struct {
	QuotationID       string                 `json:"quotationID"`
	Status            models.QuotationStatus `json:"status"`
	SupplierName      string                 `json:"supplierName"`
	QuotedTotal       *float64               `json:"quotedTotal"`
	NeedsManualReview bool                   `json:"needsManualReview"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

type client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// writePump là writer duy nhất của kết nối (gorilla chỉ cho phép một writer).
func (c *client) writePump(logger *zap.Logger) {
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("socket.write_failed", zap.String("userID", c.userID), zap.Error(err))
				c.stop()
				return
			}
		}
	}
}

// enqueue không bao giờ chặn; client chậm bị ngắt kết nối.
func (c *client) enqueue(message []byte) error {
	select {
	case <-c.done:
		return ErrClientGone
	default:
	}
	select {
	case c.send <- message:
		return nil
	default:
		c.stop()
		return ErrSlowClient
	}
}

// stop đóng kết nối; vòng đọc của handler sẽ lỗi và gọi Unregister.
func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub quản lý tất cả các client WebSocket. Một user có thể mở nhiều tab.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub tạo một Hub mới.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register thêm kết nối và trả về id của kết nối đó.
func (h *Hub) Register(userID string, conn *websocket.Conn) string {
	c := &client{
		id:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump(h.logger)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	h.logger.Info("socket.registered", zap.String("userID", userID), zap.String("connID", c.id))
	return c.id
}

// Unregister xóa một kết nối khỏi Hub.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	delete(h.clients, connID)
	h.mu.Unlock()
	if ok {
		c.stop()
		h.logger.Info("socket.unregistered", zap.String("userID", c.userID), zap.String("connID", connID))
	}
}

// Count trả về số kết nối đang mở.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot(match func(*client) bool) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if match == nil || match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Send xếp tin nhắn cho mọi kết nối của một user. User offline không phải lỗi.
func (h *Hub) Send(userID string, message []byte) error {
	var lastErr error
	for _, c := range h.snapshot(func(c *client) bool { return c.userID == userID }) {
		if err := c.enqueue(message); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Broadcast xếp sự kiện cho mọi kết nối, không chờ ghi xong.
func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("socket.marshal_failed", zap.String("type", event.Type), zap.Error(err))
		return
	}
	for _, c := range h.snapshot(nil) {
		if err := c.enqueue(message); err != nil {
			h.logger.Warn("socket.enqueue_failed", zap.String("userID", c.userID), zap.String("connID", c.id), zap.Error(err))
		}
	}
}

// QuotationUpdated đẩy sự kiện quotation_updated cho mọi client.
func (h *Hub) QuotationUpdated(q *models.Quotation) {
	h.Broadcast(Event{Type: "quotation_updated", Data: QuotationEvent{
		QuotationID:       q.QuotationID,
		Status:            q.Status,
		SupplierName:      q.Supplier.Name,
		QuotedTotal:       q.QuotedTotal,
		NeedsManualReview: q.NeedsManualReview,
		UpdatedAt:         q.UpdatedAt,
	}})
}
