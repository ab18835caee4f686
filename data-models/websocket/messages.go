package websocket

import "encoding/json"

// WSMessage WebSocket 訊息；收到時 Data 保留原始 JSON
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// IncomingMessage 客戶端送來的訊息
type IncomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PongResponse 心跳回應
type PongResponse struct {
	Timestamp int64 `json:"timestamp"`
}

// SubscribeOrdersRequest 訂單列表訂閱條件；statuses 空白表示預設勾選
type SubscribeOrdersRequest struct {
	Statuses []string `json:"statuses" example:"[\"Pre-press\",\"Press\"]"`
	Search   string   `json:"search" example:"asha"`
}

// OrdersSnapshotMessage 依訂閱條件過濾後的訂單列表
type OrdersSnapshotMessage struct {
	Statuses []string    `json:"statuses"`
	Search   string      `json:"search"`
	Count    int         `json:"count"`
	Orders   interface{} `json:"orders"`
}

// ErrorMessage 錯誤回應
type ErrorMessage struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}
