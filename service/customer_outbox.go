package service

import (
	"context"
	"encoding/json"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// SSE 事件名稱
const (
	EventCustomerWriteFailed    = infra.CustomerWriteFailedEvent
	EventCustomerWriteRecovered = infra.CustomerWriteRecoveredEvent
)

// CustomerRetryMessage 客戶寫入重試隊列的訊息
type CustomerRetryMessage struct {
	OrderID   string         `json:"order_id"`
	Customer  model.Customer `json:"customer"`
	Attempt   int            `json:"attempt"`
	LastError string         `json:"last_error"`
	FailedAt  time.Time      `json:"failed_at"`
}

// CustomerEventPublisher 發布客戶寫入事件（Redis pub/sub）
type CustomerEventPublisher interface {
	PublishCustomerWriteFailed(ctx context.Context, event *infra.CustomerWriteEvent) error
	PublishCustomerWriteRecovered(ctx context.Context, event *infra.CustomerWriteEvent) error
}

// MessagePublisher 發送隊列訊息（RabbitMQ）
type MessagePublisher interface {
	PublishMessage(queueName string, body []byte, headers amqp.Table) error
}

// EventBroadcaster 推送 SSE 事件
type EventBroadcaster interface {
	BroadcastCustomEvent(eventType string, data interface{})
}

// CustomerFailureAlerter 人工介入通知（Discord）
type CustomerFailureAlerter interface {
	AlertCustomerWriteFailed(ctx context.Context, orderID string, customer model.Customer, cause error, final bool)
}

// CustomerOutbox 客戶寫入失敗時發出可觀測事件，並將客戶排入重試隊列。
// 各相依皆可為 nil。
type CustomerOutbox struct {
	logger      zerolog.Logger
	events      CustomerEventPublisher
	queue       MessagePublisher
	broadcaster EventBroadcaster
	alerter     CustomerFailureAlerter
}

func NewCustomerOutbox(logger zerolog.Logger, events CustomerEventPublisher, queue MessagePublisher, broadcaster EventBroadcaster, alerter CustomerFailureAlerter) *CustomerOutbox {
	return &CustomerOutbox{
		logger:      logger.With().Str("module", "customer_outbox").Logger(),
		events:      events,
		queue:       queue,
		broadcaster: broadcaster,
		alerter:     alerter,
	}
}

// HandleCustomerWriteFailure 實作 CustomerWriteFailureHandler
func (o *CustomerOutbox) HandleCustomerWriteFailure(ctx context.Context, order model.Order, customer model.Customer, cause error) {
	event := customerWriteEvent(order.ID, customer, 1, cause)

	if o.events != nil {
		if err := o.events.PublishCustomerWriteFailed(ctx, event); err != nil {
			o.logger.Warn().Err(err).Str("order_id", order.ID).Msg("客戶寫入失敗事件發布失敗")
		}
	}
	if o.broadcaster != nil {
		o.broadcaster.BroadcastCustomEvent(EventCustomerWriteFailed, event)
	}
	if o.alerter != nil {
		o.alerter.AlertCustomerWriteFailed(ctx, order.ID, customer, cause, false)
	}

	msg := CustomerRetryMessage{
		OrderID:   order.ID,
		Customer:  customer,
		Attempt:   1,
		LastError: cause.Error(),
		FailedAt:  time.Now(),
	}
	if err := o.Enqueue(msg); err != nil {
		o.logger.Error().Err(err).
			Str("order_id", order.ID).
			Str("customer_id", customer.ID).
			Msg("客戶重試訊息排入失敗，需人工處理 (Failed to enqueue customer retry)")
	}
}

// Enqueue 將客戶寫入排入重試隊列
func (o *CustomerOutbox) Enqueue(msg CustomerRetryMessage) error {
	if o.queue == nil {
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return o.queue.PublishMessage(infra.QueueNameCustomersRetry.String(), body, amqp.Table{"attempt": int32(msg.Attempt)})
}

func customerWriteEvent(orderID string, c model.Customer, attempt int, cause error) *infra.CustomerWriteEvent {
	event := &infra.CustomerWriteEvent{
		EventType:   EventCustomerWriteFailed,
		OrderID:     orderID,
		CustomerID:  c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		CountryCode: c.CountryCode,
		Attempt:     attempt,
		Timestamp:   time.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	return event
}
