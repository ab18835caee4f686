package service

import (
	"encoding/json"
	"fmt"
	"time"

	websocketModels "printshop-backend/data-models/websocket"
	"printshop-backend/model"

	"github.com/rs/zerolog"
)

// WebSocketService 處理訂單列表推送的序列化與過濾
type WebSocketService struct {
	logger zerolog.Logger
	orders OrderListSource
}

// NewWebSocketService 建立WebSocket服務
func NewWebSocketService(logger zerolog.Logger, orders OrderListSource) *WebSocketService {
	return &WebSocketService{
		logger: logger.With().Str("module", "websocket_service").Logger(),
		orders: orders,
	}
}

// SerializeMessage 序列化推送訊息
func (ws *WebSocketService) SerializeMessage(message websocketModels.WSMessage) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("序列化訊息失敗: %w", err)
	}
	return data, nil
}

// DeserializeMessage 解析客戶端訊息
func (ws *WebSocketService) DeserializeMessage(data []byte) (*websocketModels.IncomingMessage, error) {
	var msg websocketModels.IncomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析訊息失敗: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("缺少訊息類型")
	}
	return &msg, nil
}

func (ws *WebSocketService) CreatePongResponse() *websocketModels.PongResponse {
	return &websocketModels.PongResponse{Timestamp: time.Now().UnixMilli()}
}

// ParseSubscription 解析訂閱條件，未知狀態回傳 ErrInvalidStatus
func (ws *WebSocketService) ParseSubscription(raw json.RawMessage) (websocketModels.SubscribeOrdersRequest, error) {
	var req websocketModels.SubscribeOrdersRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("解析訂閱條件失敗: %w", err)
		}
	}
	if _, err := ParseStatusFilters(req.Statuses); err != nil {
		return req, err
	}
	return req, nil
}

// BuildOrdersSnapshot 以訂閱條件過濾 orders；orders 為 nil 時取目前的目錄
func (ws *WebSocketService) BuildOrdersSnapshot(orders []model.Order, req websocketModels.SubscribeOrdersRequest) websocketModels.WSMessage {
	if orders == nil && ws.orders != nil {
		orders = ws.orders.Orders()
	}
	filters, err := ParseStatusFilters(req.Statuses)
	if err != nil {
		filters = DefaultStatusFilters()
	}
	visible := ToOrderViews(FilterOrders(orders, filters, req.Search))

	checked := filters.Checked()
	statuses := make([]string, 0, len(checked))
	for _, s := range checked {
		statuses = append(statuses, string(s))
	}

	return websocketModels.WSMessage{
		Type: websocketModels.MessageTypeOrdersSnapshot,
		Data: websocketModels.OrdersSnapshotMessage{
			Statuses: statuses,
			Search:   req.Search,
			Count:    len(visible),
			Orders:   visible,
		},
	}
}
