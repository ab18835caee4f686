package service

import (
	"context"
	"time"

	"printshop-backend/model"

	"github.com/rs/zerolog"
)

// SSEPageType 定義 SSE 頁面類型
type SSEPageType string

const (
	PageOrders   SSEPageType = "orders"
	PageAddOrder SSEPageType = "orders_add"
)

// SSE 事件名稱
const (
	EventOrdersUpdated    = "orders_updated"
	EventCustomersUpdated = "customers_updated"
	EventOrderCreated     = "order_created"
)

// SSEBroadcaster 定義 SSE 廣播接口，避免循環依賴
type SSEBroadcaster interface {
	BroadcastPageUpdate(eventName string, pages []string, data interface{})
	BroadcastCustomEvent(eventType string, data interface{})
	GetStats() map[string]interface{}
}

// SSEService 把鏡像變更轉為 SSE 事件
type SSEService struct {
	logger      zerolog.Logger
	broadcaster SSEBroadcaster
}

func NewSSEService(logger zerolog.Logger, broadcaster SSEBroadcaster) *SSEService {
	return &SSEService{
		logger:      logger.With().Str("module", "sse_service").Logger(),
		broadcaster: broadcaster,
	}
}

func pageStrings(pages ...SSEPageType) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = string(p)
	}
	return out
}

// OrdersChanged 訂單鏡像重建後呼叫
func (s *SSEService) OrdersChanged(orders []model.Order) {
	s.push(EventOrdersUpdated, pageStrings(PageOrders), map[string]interface{}{
		"count":     len(orders),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// CustomersChanged 客戶鏡像重建後呼叫
func (s *SSEService) CustomersChanged(customers []model.Customer) {
	s.push(EventCustomersUpdated, pageStrings(PageAddOrder), map[string]interface{}{
		"count":     len(customers),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// NotifyOrderCreated 實作 OrderCreatedNotifier
func (s *SSEService) NotifyOrderCreated(_ context.Context, order model.Order, customerCreated bool) {
	s.push(EventOrderCreated, pageStrings(PageOrders), map[string]interface{}{
		"order_id":         order.ID,
		"customer_name":    order.CustomerName,
		"customer_created": customerCreated,
		"status_color":     order.Status.Color(),
	})
}

// BroadcastCustomEvent 實作 EventBroadcaster
func (s *SSEService) BroadcastCustomEvent(eventType string, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastCustomEvent(eventType, data)
}

func (s *SSEService) push(eventName string, pages []string, data interface{}) {
	if s.broadcaster == nil {
		s.logger.Warn().Msg("SSE廣播器未初始化，跳過推送 (SSE broadcaster not initialized, skipping push)")
		return
	}
	s.broadcaster.BroadcastPageUpdate(eventName, pages, data)
}

// GetSSEStats 獲取 SSE 連接統計資訊
func (s *SSEService) GetSSEStats() map[string]interface{} {
	if s.broadcaster == nil {
		return map[string]interface{}{"connected_clients": 0, "status": "未初始化"}
	}
	stats := s.broadcaster.GetStats()
	stats["status"] = "運行中"
	return stats
}
