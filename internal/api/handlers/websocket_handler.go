// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"pizzeria-backoffice-api-server/internal/auth"
	"pizzeria-backoffice-api-server/internal/logger"
	"pizzeria-backoffice-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Thời gian chờ tối đa cho một tin nhắn từ client.
const pongWait = 30 * time.Second

type WebSocketHandler struct {
	Hub            *socket.Hub
	Issuer         *auth.TokenIssuer
	AllowedOrigins []string
}

func (h *WebSocketHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range h.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWs xử lý các yêu cầu kết nối WebSocket. Token truyền qua ?token=.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims, err := h.Issuer.Parse(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L().Warn("socket.upgrade_failed", zap.Error(err))
		return
	}

	connID := h.Hub.Register(claims.UserID, conn)
	defer func() {
		h.Hub.Unregister(connID)
		conn.Close()
	}()

	// Client gửi PING định kỳ; mỗi lần nhận thì gia hạn deadline.
	// gorilla/websocket tự trả lời PONG.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Warn("socket.unexpected_close", zap.String("userID", claims.UserID), zap.Error(err))
			}
			break
		}
	}
}
