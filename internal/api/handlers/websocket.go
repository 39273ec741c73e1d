package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"letmeask/internal/logging"
	"letmeask/internal/realtime"
	"letmeask/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 房間內容本來就公開可讀，終端機客戶端不會送出 Origin
	},
}

// WebSocketHandler 將房間快照以 WebSocket 推送給客戶端
type WebSocketHandler struct {
	roomService *service.RoomService
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(roomService *service.RoomService) *WebSocketHandler {
	return &WebSocketHandler{roomService: roomService}
}

// HandleWebSocket 訂閱 rooms/{id}，先送出目前快照，之後每次變更送出完整快照
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Param("id")

	// 在升級之前訂閱，房間不存在時仍可回傳一般的 HTTP 錯誤
	sub, err := h.roomService.Subscribe(c.Request.Context(), roomID)
	if err != nil {
		respondServiceError(c, err, "訂閱房間失敗")
		return
	}
	defer sub.Cancel()

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := logging.FromContext(c.Request.Context()).With("room_id", roomID)
	logger.Info("snapshot stream opened")

	done := make(chan struct{})
	go readPump(conn, done, logger.Warn)
	writePump(conn, sub, done)

	logger.Info("snapshot stream closed")
}

// readPump 只負責處理 pong 與偵測連線關閉，客戶端的寫入一律走 REST
func readPump(conn *websocket.Conn, done chan<- struct{}, warn func(msg string, args ...any)) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				warn("websocket unexpected close error", "error", err)
			}
			return
		}
	}
}

// writePump 將快照寫給客戶端，並定期送出心跳
func writePump(conn *websocket.Conn, sub *realtime.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub.Snapshots():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}

		case <-ticker.C:
			// 發送心跳包
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
