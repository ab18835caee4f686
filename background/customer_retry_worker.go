package background

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"printshop-backend/infra"
	"printshop-backend/metrics"
	"printshop-backend/service"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// RetryOutcome 單則重試訊息的處理結果
type RetryOutcome string

const (
	OutcomeRecovered RetryOutcome = "recovered"
	OutcomeRequeued  RetryOutcome = "requeued"
	OutcomeDead      RetryOutcome = "dead"
	OutcomeDropped   RetryOutcome = "dropped"
)

// RetryQueue 重試隊列的消費與發送
type RetryQueue interface {
	Consume(queueName, consumer string) (<-chan amqp.Delivery, error)
	PublishMessage(queueName string, body []byte, headers amqp.Table) error
}

// CustomerRetryWorker 消費 customers_retry_queue，重新寫入建單時失敗的客戶
type CustomerRetryWorker struct {
	logger      zerolog.Logger
	store       infra.DocumentStore
	queue       RetryQueue
	events      service.CustomerEventPublisher
	broadcaster service.EventBroadcaster
	alerter     service.CustomerFailureAlerter
	maxAttempts int
	delay       time.Duration
}

func NewCustomerRetryWorker(
	logger zerolog.Logger,
	store infra.DocumentStore,
	queue RetryQueue,
	events service.CustomerEventPublisher,
	broadcaster service.EventBroadcaster,
	alerter service.CustomerFailureAlerter,
	maxAttempts int,
	delay time.Duration,
) *CustomerRetryWorker {
	return &CustomerRetryWorker{
		logger:      logger.With().Str("module", "customer_retry_worker").Logger(),
		store:       store,
		queue:       queue,
		events:      events,
		broadcaster: broadcaster,
		alerter:     alerter,
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

// Start 阻塞直到 ctx 結束或隊列關閉
func (w *CustomerRetryWorker) Start(ctx context.Context) error {
	msgs, err := w.queue.Consume(infra.QueueNameCustomersRetry.String(), "customer_retry_worker")
	if err != nil {
		return err
	}
	w.logger.Info().Msg("客戶重試工作者已啟動 (Customer retry worker started)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("重試隊列已關閉 (Retry queue closed)")
				return nil
			}
			outcome := w.Handle(ctx, msg.Body)
			if ctx.Err() != nil && outcome == OutcomeDropped {
				// 關閉中，交還給隊列
				_ = msg.Nack(false, true)
				return nil
			}
			if err := msg.Ack(false); err != nil {
				w.logger.Error().Err(err).Msg("確認訊息失敗 (Failed to ack message)")
			}
		}
	}
}

// Handle 處理一則訊息；回傳結果後由呼叫端 ack
func (w *CustomerRetryWorker) Handle(ctx context.Context, body []byte) RetryOutcome {
	var msg service.CustomerRetryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.Error().Err(err).Msg("重試訊息解析失敗，丟棄 (Malformed retry message dropped)")
		return OutcomeDropped
	}

	logger := w.logger.With().
		Str("order_id", msg.OrderID).
		Str("customer_id", msg.Customer.ID).
		Int("attempt", msg.Attempt).
		Logger()

	if err := w.waitUntilDue(ctx, msg); err != nil {
		return OutcomeDropped
	}

	start := time.Now()
	inserted, err := service.UpsertCustomer(ctx, w.store, msg.Customer)
	if err == nil {
		logger.Info().Bool("inserted", inserted).Msg("客戶重試寫入成功 (Customer write recovered)")
		metrics.RecordServiceOperation(metrics.ServiceTypeCustomer, metrics.OperationRetry, metrics.StatusSuccess, metrics.SourceRetry, time.Since(start))
		event := &infra.CustomerWriteEvent{
			EventType:   service.EventCustomerWriteRecovered,
			OrderID:     msg.OrderID,
			CustomerID:  msg.Customer.ID,
			Name:        msg.Customer.Name,
			Phone:       msg.Customer.Phone,
			CountryCode: msg.Customer.CountryCode,
			Attempt:     msg.Attempt,
			Timestamp:   time.Now(),
		}
		if w.events != nil {
			_ = w.events.PublishCustomerWriteRecovered(ctx, event)
		}
		if w.broadcaster != nil {
			w.broadcaster.BroadcastCustomEvent(service.EventCustomerWriteRecovered, event)
		}
		return OutcomeRecovered
	}

	if errors.Is(err, context.Canceled) {
		return OutcomeDropped
	}

	metrics.RecordCustomerWriteFailure("retry")
	metrics.RecordServiceOperation(metrics.ServiceTypeCustomer, metrics.OperationRetry, metrics.StatusError, metrics.SourceRetry, time.Since(start))
	msg.LastError = err.Error()
	msg.FailedAt = time.Now()

	if msg.Attempt >= w.maxAttempts {
		logger.Error().Err(err).Msg("客戶寫入重試次數用盡，移入 dead queue (Customer write retries exhausted)")
		w.publish(infra.QueueNameCustomersDead, msg, logger)
		if w.alerter != nil {
			w.alerter.AlertCustomerWriteFailed(ctx, msg.OrderID, msg.Customer, err, true)
		}
		return OutcomeDead
	}

	msg.Attempt++
	logger.Warn().Err(err).Msg("客戶寫入重試失敗，重新排入隊列 (Customer write retry failed, requeueing)")
	w.publish(infra.QueueNameCustomersRetry, msg, logger)
	return OutcomeRequeued
}

func (w *CustomerRetryWorker) publish(queue infra.QueueName, msg service.CustomerRetryMessage, logger zerolog.Logger) {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error().Err(err).Msg("重試訊息編碼失敗")
		return
	}
	if err := w.queue.PublishMessage(queue.String(), body, amqp.Table{"attempt": int32(msg.Attempt)}); err != nil {
		logger.Error().Err(err).Str("queue", queue.String()).Msg("重試訊息發送失敗 (Failed to publish retry message)")
	}
}

// waitUntilDue 依嘗試次數線性退避
func (w *CustomerRetryWorker) waitUntilDue(ctx context.Context, msg service.CustomerRetryMessage) error {
	due := msg.FailedAt.Add(time.Duration(msg.Attempt) * w.delay)
	wait := time.Until(due)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
