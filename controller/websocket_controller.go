package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"printshop-backend/auth"
	websocketModels "printshop-backend/data-models/websocket"
	"printshop-backend/middleware"
	"printshop-backend/model"
	"printshop-backend/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errRoleNotAllowed = errors.New("role not allowed")

// WebSocketController 訂單列表的即時推送。
// 每個連線有自己的狀態與搜尋條件，訂單目錄每次變動都會重新推送過濾後的列表。
type WebSocketController struct {
	logger           zerolog.Logger
	users            middleware.UserGetter
	websocketService *service.WebSocketService
	jwtSecretKey     string
	config           *websocketModels.ConnectionConfig
	upgrader         websocket.Upgrader
	connections      map[string]*websocketModels.Connection
	connectionsMu    sync.RWMutex
}

func NewWebSocketController(logger zerolog.Logger, users middleware.UserGetter, websocketService *service.WebSocketService, jwtSecretKey string) *WebSocketController {
	cfg := websocketModels.DefaultConnectionConfig()
	return &WebSocketController{
		logger:           logger.With().Str("module", "websocket_controller").Logger(),
		users:            users,
		websocketService: websocketService,
		jwtSecretKey:     jwtSecretKey,
		config:           cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允許跨域
			},
		},
		connections: make(map[string]*websocketModels.Connection),
	}
}

// Start 啟動連線健康檢查，ctx 結束時關閉所有連線
func (wsc *WebSocketController) Start(ctx context.Context) {
	go wsc.healthCheck(ctx)
}

func (wsc *WebSocketController) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "缺少token參數", http.StatusUnauthorized)
		return
	}

	user, err := wsc.validateToken(r.Context(), token)
	if err != nil {
		wsc.logger.Warn().Err(err).Msg("token驗證失敗")
		status := http.StatusUnauthorized
		if errors.Is(err, errRoleNotAllowed) {
			status = http.StatusForbidden
		}
		http.Error(w, "token驗證失敗", status)
		return
	}

	conn, err := wsc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsc.logger.Error().Err(err).Msg("WebSocket升級失敗")
		return
	}

	connection := &websocketModels.Connection{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Conn:         conn,
		LastPing:     time.Now(),
		SendChannel:  make(chan []byte, 64),
		CloseChannel: make(chan struct{}),
		Status:       websocketModels.ConnectionStatusConnected,
	}

	wsc.registerConnection(connection)

	go wsc.handleSender(connection)
	go wsc.handleReader(connection)

	// 連線後先推送預設條件的列表
	wsc.send(connection, wsc.websocketService.BuildOrdersSnapshot(nil, connection.Subscription()))

	<-connection.CloseChannel
	wsc.unregisterConnection(connection)
}

func (wsc *WebSocketController) validateToken(ctx context.Context, token string) (*model.User, error) {
	userID, _, err := auth.ValidateUserToken(token, wsc.jwtSecretKey)
	if err != nil {
		return nil, err
	}
	user, err := wsc.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Role.CanManageOrders() {
		return nil, errRoleNotAllowed
	}
	return user, nil
}

func (wsc *WebSocketController) registerConnection(conn *websocketModels.Connection) {
	wsc.connectionsMu.Lock()
	defer wsc.connectionsMu.Unlock()
	wsc.connections[conn.ID] = conn

	wsc.logger.Debug().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Int("total", len(wsc.connections)).
		Msg("WebSocket 連線建立")
}

func (wsc *WebSocketController) unregisterConnection(conn *websocketModels.Connection) {
	wsc.connectionsMu.Lock()
	defer wsc.connectionsMu.Unlock()
	if current, ok := wsc.connections[conn.ID]; ok && current == conn {
		delete(wsc.connections, conn.ID)
	}
}

func (wsc *WebSocketController) handleReader(conn *websocketModels.Connection) {
	defer func() {
		if r := recover(); r != nil {
			wsc.logger.Error().Interface("panic", r).Msg("RECOVERED in handleReader from panic")
		}
		conn.Close()
	}()

	conn.Conn.SetReadLimit(wsc.config.ReadLimit)
	conn.Conn.SetReadDeadline(time.Now().Add(wsc.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(wsc.config.ReadTimeout))
		wsc.touch(conn)
		return nil
	})

	for {
		_, messageBytes, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				wsc.logger.Error().Err(err).Str("connection_id", conn.ID).Msg("Websocket read error")
			}
			return
		}

		msg, err := wsc.websocketService.DeserializeMessage(messageBytes)
		if err != nil {
			wsc.sendError(conn, websocketModels.ErrorTypeInvalidMessage, err.Error())
			continue
		}
		wsc.handleMessage(conn, msg)
	}
}

func (wsc *WebSocketController) handleSender(conn *websocketModels.Connection) {
	pingTicker := time.NewTicker(wsc.config.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case message := <-conn.SendChannel:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsc.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				wsc.logger.Error().Err(err).Str("connection_id", conn.ID).Msg("發送訊息失敗")
				conn.Close()
				return
			}
		case <-pingTicker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsc.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-conn.CloseChannel:
			return
		}
	}
}

func (wsc *WebSocketController) handleMessage(conn *websocketModels.Connection, msg *websocketModels.IncomingMessage) {
	switch msg.Type {
	case websocketModels.MessageTypePing:
		wsc.touch(conn)
		wsc.send(conn, websocketModels.WSMessage{
			Type: websocketModels.MessageTypePong,
			Data: wsc.websocketService.CreatePongResponse(),
		})

	case websocketModels.MessageTypeSubscribeOrders:
		req, err := wsc.websocketService.ParseSubscription(msg.Data)
		if err != nil {
			wsc.sendError(conn, websocketModels.ErrorTypeInvalidFilter, err.Error())
			return
		}
		conn.SetSubscription(req)
		wsc.send(conn, wsc.websocketService.BuildOrdersSnapshot(nil, req))

	default:
		wsc.logger.Warn().
			Str("connection_id", conn.ID).
			Str("message_type", msg.Type).
			Msg("未知的 WebSocket 消息類型")
		wsc.sendError(conn, websocketModels.ErrorTypeInvalidMessage, "unknown message type")
	}
}

// OrdersChanged 訂單目錄更新時推送給每個連線
func (wsc *WebSocketController) OrdersChanged(orders []model.Order) {
	wsc.connectionsMu.RLock()
	conns := make([]*websocketModels.Connection, 0, len(wsc.connections))
	for _, c := range wsc.connections {
		conns = append(conns, c)
	}
	wsc.connectionsMu.RUnlock()

	for _, c := range conns {
		wsc.send(c, wsc.websocketService.BuildOrdersSnapshot(orders, c.Subscription()))
	}
}

func (wsc *WebSocketController) sendError(conn *websocketModels.Connection, errType websocketModels.ErrorType, message string) {
	wsc.send(conn, websocketModels.WSMessage{
		Type: websocketModels.MessageTypeError,
		Data: websocketModels.ErrorMessage{Type: errType, Message: message},
	})
}

func (wsc *WebSocketController) send(conn *websocketModels.Connection, message websocketModels.WSMessage) {
	data, err := wsc.websocketService.SerializeMessage(message)
	if err != nil {
		wsc.logger.Error().Err(err).Msg("序列化回應消息失敗")
		return
	}

	select {
	case conn.SendChannel <- data:
	case <-conn.CloseChannel:
	default:
		wsc.logger.Warn().Str("connection_id", conn.ID).Msg("發送頻道已滿，略過本次推送")
	}
}

func (wsc *WebSocketController) touch(conn *websocketModels.Connection) {
	wsc.connectionsMu.Lock()
	conn.LastPing = time.Now()
	wsc.connectionsMu.Unlock()
}

func (wsc *WebSocketController) healthCheck(ctx context.Context) {
	ticker := time.NewTicker(wsc.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wsc.connectionsMu.Lock()
			for id, conn := range wsc.connections {
				conn.Close()
				delete(wsc.connections, id)
			}
			wsc.connectionsMu.Unlock()
			return
		case <-ticker.C:
			wsc.connectionsMu.Lock()
			for id, conn := range wsc.connections {
				if time.Since(conn.LastPing) > wsc.config.ReadTimeout {
					wsc.logger.Info().Str("connection_id", id).Msg("連線超時，關閉連線")
					conn.Close()
					delete(wsc.connections, id)
				}
			}
			wsc.connectionsMu.Unlock()
		}
	}
}

func (wsc *WebSocketController) GetWebSocketHandler() http.HandlerFunc {
	return wsc.handleWebSocket
}

func (wsc *WebSocketController) GetStats() *websocketModels.ConnectionStats {
	wsc.connectionsMu.RLock()
	defer wsc.connectionsMu.RUnlock()

	stats := &websocketModels.ConnectionStats{
		TotalConnections:  len(wsc.connections),
		ConnectionsByUser: make(map[string]int),
		LastPingTimes:     make(map[string]time.Time),
	}
	for id, conn := range wsc.connections {
		stats.ConnectionsByUser[conn.UserID]++
		stats.LastPingTimes[id] = conn.LastPing
	}
	return stats
}
