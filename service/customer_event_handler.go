package service

import (
	"context"
	"fmt"
	"time"

	"printshop-backend/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CustomerEventSource 客戶寫入事件的訂閱與去重鎖
type CustomerEventSource interface {
	SubscribeCustomerWriteEvents(ctx context.Context) *redis.PubSub
	AcquireLock(ctx context.Context, key string, owner string, ttl time.Duration) (bool, func(), error)
}

// RecoveryAnnouncer 客戶補寫成功的通知
type RecoveryAnnouncer interface {
	AnnounceCustomerRecovered(ctx context.Context, event *infra.CustomerWriteEvent)
}

const customerEventLockTTL = 10 * time.Minute

// CustomerEventHandler 監聽 Redis 的客戶寫入事件，補寫成功時通知 Discord。
// 多個實例同時收到事件時只有取得鎖的一方發送。
type CustomerEventHandler struct {
	logger    zerolog.Logger
	events    CustomerEventSource
	announcer RecoveryAnnouncer
	owner     string
	ctx       context.Context
	cancel    context.CancelFunc
	pubsub    *redis.PubSub
}

func NewCustomerEventHandler(logger zerolog.Logger, events CustomerEventSource, announcer RecoveryAnnouncer, owner string) *CustomerEventHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CustomerEventHandler{
		logger:    logger.With().Str("module", "customer_event_handler").Logger(),
		events:    events,
		announcer: announcer,
		owner:     owner,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 啟動事件處理器
func (h *CustomerEventHandler) Start() {
	h.logger.Info().Msg("啟動客戶寫入事件處理器")
	h.pubsub = h.events.SubscribeCustomerWriteEvents(h.ctx)
	go h.processEvents()
}

// Stop 停止事件處理器
func (h *CustomerEventHandler) Stop() {
	if h.pubsub != nil {
		h.pubsub.Close()
	}
	h.cancel()
}

func (h *CustomerEventHandler) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("recover", r).Msg("客戶事件處理器發生 panic，正在重啟")
			go func() {
				time.Sleep(5 * time.Second)
				h.processEvents()
			}()
		}
	}()

	channel := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info().Msg("客戶寫入事件處理器已停止")
			return

		case msg, ok := <-channel:
			if !ok {
				h.logger.Warn().Msg("客戶事件頻道已關閉，正在重新訂閱")
				time.Sleep(1 * time.Second)
				h.pubsub = h.events.SubscribeCustomerWriteEvents(h.ctx)
				channel = h.pubsub.Channel()
				continue
			}
			h.HandlePayload(h.ctx, msg.Payload)
		}
	}
}

// HandlePayload 處理單一事件；回傳是否已發送通知
func (h *CustomerEventHandler) HandlePayload(ctx context.Context, payload string) bool {
	event, err := infra.ParseCustomerWriteEvent(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("payload", payload).Msg("解析客戶寫入事件失敗")
		return false
	}
	if event.EventType != infra.CustomerWriteRecoveredEvent {
		return false
	}

	key := fmt.Sprintf("customer_recovered:%s:%d", event.OrderID, event.Attempt)
	ok, _, err := h.events.AcquireLock(ctx, key, h.owner, customerEventLockTTL)
	if err != nil || !ok {
		// 鎖不主動釋放，TTL 內重複的事件都會被略過
		return false
	}

	h.announcer.AnnounceCustomerRecovered(ctx, event)
	h.logger.Info().
		Str("order_id", event.OrderID).
		Str("customer_id", event.CustomerID).
		Int("attempt", event.Attempt).
		Msg("客戶補寫成功通知已發送")
	return true
}
