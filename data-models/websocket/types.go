package websocket

// WebSocket 消息類型常量
const (
	// 請求類型
	MessageTypePing            = "ping"
	MessageTypeSubscribeOrders = "subscribe_orders"

	// 回應類型
	MessageTypePong  = "pong"
	MessageTypeError = "error"

	// 推送類型
	MessageTypeOrdersSnapshot = "orders_snapshot"
)

// WebSocket 連線狀態
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// WebSocket 錯誤類型
type ErrorType string

const (
	ErrorTypeInvalidToken   ErrorType = "invalid_token"
	ErrorTypeInvalidMessage ErrorType = "invalid_message"
	ErrorTypeInvalidFilter  ErrorType = "invalid_filter"
)
