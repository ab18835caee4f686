package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection 訂單列表 WebSocket 連接
type Connection struct {
	ID           string           `json:"id"`      // 連線ID
	UserID       string           `json:"user_id"` // 用戶ID
	Conn         *websocket.Conn  `json:"-"`
	LastPing     time.Time        `json:"last_ping"`
	SendChannel  chan []byte      `json:"-"`
	CloseChannel chan struct{}    `json:"-"`
	CloseOnce    sync.Once        `json:"-"`
	Status       ConnectionStatus `json:"status"`

	mu           sync.RWMutex
	subscription SubscribeOrdersRequest
}

// Subscription 目前的訂閱條件
func (c *Connection) Subscription() SubscribeOrdersRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscription
}

func (c *Connection) SetSubscription(req SubscribeOrdersRequest) {
	c.mu.Lock()
	c.subscription = req
	c.mu.Unlock()
}

// Close 只會關閉一次
func (c *Connection) Close() {
	c.CloseOnce.Do(func() {
		close(c.CloseChannel)
	})
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// ConnectionStats 連線統計資訊
type ConnectionStats struct {
	TotalConnections  int                  `json:"total_connections"`
	ConnectionsByUser map[string]int       `json:"connections_by_user"`
	LastPingTimes     map[string]time.Time `json:"last_ping_times,omitempty"`
}

// ConnectionConfig WebSocket 連線設定
type ConnectionConfig struct {
	ReadBufferSize      int
	WriteBufferSize     int
	ReadLimit           int64
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	PingInterval        time.Duration
	HealthCheckInterval time.Duration
}

// DefaultConnectionConfig 預設連線設定
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		ReadLimit:           4096,
		ReadTimeout:         60 * time.Second,
		WriteTimeout:        10 * time.Second,
		PingInterval:        10 * time.Second,
		HealthCheckInterval: 10 * time.Second,
	}
}
