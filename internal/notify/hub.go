package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yourusername/octonet/internal/pvr"
	"go.uber.org/zap"
)

const sendBufferSize = 32

// Hub는 알림을 로그에 남기고 WebSocket 클라이언트에게 브로드캐스트합니다
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clients map[*Client]bool
	mutex   sync.RWMutex
}

// Client는 WebSocket 클라이언트를 나타냅니다
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger *zap.Logger
}

// Message는 클라이언트로 보내는 메시지
type Message struct {
	Type    string          `json:"type"` // "notification"
	Payload json.RawMessage `json:"payload"`
}

// Notification은 알림 페이로드
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// HubConfig는 허브 설정
type HubConfig struct {
	Logger *zap.Logger
}

// NewHub는 새로운 알림 허브를 생성합니다
func NewHub(config HubConfig) *Hub {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Hub{
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 같은 LAN의 UI에서 접속
			},
		},
		clients: make(map[*Client]bool),
	}
}

// QueueNotification은 pvr.Notifier 구현입니다
func (h *Hub) QueueNotification(level pvr.Level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)

	switch level {
	case pvr.QueueError:
		h.logger.Error(text, zap.String("source", "notification"))
	case pvr.QueueWarning:
		h.logger.Warn(text, zap.String("source", "notification"))
	default:
		h.logger.Info(text, zap.String("source", "notification"))
	}

	payload, err := json.Marshal(Notification{
		Level:   level.String(),
		Message: text,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	data, err := json.Marshal(Message{Type: "notification", Payload: payload})
	if err != nil {
		h.logger.Error("Failed to marshal notification message", zap.Error(err))
		return
	}

	h.broadcast(data)
}

// broadcast는 모든 클라이언트에게 메시지를 보냅니다. 버퍼가 가득 찬 클라이언트는 건너뜁니다.
func (h *Hub) broadcast(data []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			client.logger.Warn("Send channel full, dropping notification")
		}
	}
}

// HandleWebSocket은 WebSocket 연결을 처리합니다
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection",
			zap.Error(err),
		)
		return
	}

	clientID := uuid.NewString()
	client := &Client{
		id:     clientID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    h,
		logger: h.logger.With(zap.String("client_id", clientID)),
	}

	h.registerClient(client)

	// 읽기/쓰기 고루틴 시작
	go client.writePump()
	go client.readPump()

	client.logger.Info("WebSocket client connected",
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// registerClient는 클라이언트를 등록합니다
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[client] = true

	h.logger.Debug("Client registered",
		zap.String("client_id", client.id),
		zap.Int("total_clients", len(h.clients)),
	)
}

// unregisterClient는 클라이언트를 등록 해제합니다
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.clients[client]; exists {
		delete(h.clients, client)
		close(client.send)

		h.logger.Debug("Client unregistered",
			zap.String("client_id", client.id),
			zap.Int("total_clients", len(h.clients)),
		)
	}
}

// readPump은 연결 종료를 감지하기 위해 메시지를 읽고 버립니다
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

// writePump은 WebSocket으로 메시지를 씁니다
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.logger.Error("Failed to write message", zap.Error(err))
			return
		}
	}
}

// ID는 클라이언트 ID를 반환합니다
func (c *Client) ID() string {
	return c.id
}

// ClientCount는 연결된 클라이언트 수를 반환합니다
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Close는 모든 클라이언트 연결을 종료합니다
func (h *Hub) Close() {
	h.logger.Info("Closing notification hub")

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		client.conn.Close()
	}
}
