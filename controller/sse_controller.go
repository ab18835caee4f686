package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SSEController 管理所有 SSE 連接和事件推送
type SSEController struct {
	logger    zerolog.Logger
	clients   map[string]*SSEClient
	clientsMu sync.RWMutex
}

// SSEClient 代表一個SSE連接
type SSEClient struct {
	ID        string
	Writer    http.ResponseWriter
	Flusher   http.Flusher
	Events    chan SSEEvent
	Done      chan struct{}
	closeOnce sync.Once
}

// SSEEvent SSE事件結構
type SSEEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// PageUpdateEvent 頁面更新事件
type PageUpdateEvent struct {
	EventName string      `json:"event_name"`
	Pages     []string    `json:"pages"`
	Data      interface{} `json:"data,omitempty"`
}

// NewSSEController 建立新的 SSE 控制器
func NewSSEController(logger zerolog.Logger) *SSEController {
	return &SSEController{
		logger:  logger.With().Str("module", "sse_controller").Logger(),
		clients: make(map[string]*SSEClient),
	}
}

// handleSSE 處理 SSE 連接
func (sse *SSEController) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		sse.logger.Error().Msg("Streaming unsupported")
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	client := &SSEClient{
		ID:      "client_" + uuid.NewString(),
		Writer:  w,
		Flusher: flusher,
		Events:  make(chan SSEEvent, 100),
		Done:    make(chan struct{}),
	}

	sse.registerClient(client)
	defer sse.unregisterClient(client)

	sse.sendEvent(client, SSEEvent{
		Event: "connected",
		Data: map[string]interface{}{
			"client_id": client.ID,
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   "SSE 連接建立成功",
		},
	})

	sse.logger.Debug().Str("client_id", client.ID).Msg("SSE 客戶端已連接/SSE client connected")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case event := <-client.Events:
			if !sse.sendEvent(client, event) {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (sse *SSEController) registerClient(client *SSEClient) {
	sse.clientsMu.Lock()
	defer sse.clientsMu.Unlock()
	sse.clients[client.ID] = client
}

// unregisterClient 只關閉 Done，Events 交由 GC 回收，避免廣播時寫入已關閉的 channel
func (sse *SSEController) unregisterClient(client *SSEClient) {
	sse.clientsMu.Lock()
	defer sse.clientsMu.Unlock()

	if _, exists := sse.clients[client.ID]; exists {
		delete(sse.clients, client.ID)
		client.closeOnce.Do(func() { close(client.Done) })
		sse.logger.Debug().Str("client_id", client.ID).Msg("SSE 客戶端已斷開連接/SSE client disconnected")
	}
}

func (sse *SSEController) sendEvent(client *SSEClient, event SSEEvent) bool {
	data, err := json.Marshal(event.Data)
	if err != nil {
		sse.logger.Error().Err(err).Msg("序列化事件資料失敗/Failed to serialize event data")
		return false
	}

	if _, err := fmt.Fprintf(client.Writer, "event: %s\ndata: %s\n\n", event.Event, data); err != nil {
		sse.logger.Error().Err(err).Str("client_id", client.ID).Msg("發送 SSE 事件失敗/Failed to send SSE event")
		return false
	}

	client.Flusher.Flush()
	return true
}

func (sse *SSEController) broadcast(event SSEEvent) int {
	sse.clientsMu.RLock()
	defer sse.clientsMu.RUnlock()

	for _, client := range sse.clients {
		select {
		case client.Events <- event:
		default:
			sse.logger.Warn().Str("client_id", client.ID).Msg("跳過客戶端，事件隊列已滿/Skipping client, event queue is full")
		}
	}
	return len(sse.clients)
}

// BroadcastPageUpdate 廣播頁面更新事件給所有連接的客戶端
func (sse *SSEController) BroadcastPageUpdate(eventName string, pages []string, data interface{}) {
	sse.broadcast(SSEEvent{
		Event: "page_update",
		Data:  PageUpdateEvent{EventName: eventName, Pages: pages, Data: data},
	})
}

// BroadcastCustomEvent 廣播自定義事件
func (sse *SSEController) BroadcastCustomEvent(eventType string, data interface{}) {
	n := sse.broadcast(SSEEvent{Event: eventType, Data: data})
	sse.logger.Debug().Str("event_type", eventType).Int("client_count", n).Msg("廣播自定義事件/Broadcasting custom event")
}

// GetStats 獲取SSE連接統計資訊
func (sse *SSEController) GetStats() map[string]interface{} {
	sse.clientsMu.RLock()
	defer sse.clientsMu.RUnlock()
	return map[string]interface{}{"connected_clients": len(sse.clients)}
}

// GetSSEHandler 返回 SSE 處理函數，用於在 Chi 路由器上註冊
func (sse *SSEController) GetSSEHandler() http.HandlerFunc {
	return sse.handleSSE
}
