package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	collectionChangedPrefix     = "collection_changed:"
	customerWriteEventsChannel  = "customer_write_events"
	CustomerWriteFailedEvent    = "customer_write_failed"
	CustomerWriteRecoveredEvent = "customer_write_recovered"
)

// CollectionChangedEvent 集合內容變更通知（無變更內容，僅提示重新載入）
type CollectionChangedEvent struct {
	Collection string    `json:"collection"`
	RecordID   string    `json:"record_id,omitempty"`
	Operation  string    `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToJSON 轉換為 JSON 字串
func (e *CollectionChangedEvent) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// CustomerWriteEvent 建單時客戶寫入結果事件
type CustomerWriteEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	CountryCode string    `json:"country_code"`
	Attempt     int       `json:"attempt"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON 轉換為 JSON 字串
func (e *CustomerWriteEvent) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// ParseCustomerWriteEvent 解析客戶寫入事件
func ParseCustomerWriteEvent(payload string) (*CustomerWriteEvent, error) {
	var event CustomerWriteEvent
	err := json.Unmarshal([]byte(payload), &event)
	return &event, err
}

// RedisEventManager Redis 事件管理器
type RedisEventManager struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisEventManager 建立 Redis 事件管理器
func NewRedisEventManager(client *redis.Client, logger zerolog.Logger) *RedisEventManager {
	return &RedisEventManager{
		client: client,
		logger: logger.With().Str("module", "redis_events").Logger(),
	}
}

// CollectionChannel 集合變更通知的頻道名稱
func CollectionChannel(collection string) string {
	return collectionChangedPrefix + collection
}

// PublishCollectionChanged 寫入成功後通知其他實例重新載入集合
func (rem *RedisEventManager) PublishCollectionChanged(ctx context.Context, event *CollectionChangedEvent) error {
	channel := CollectionChannel(event.Collection)
	if err := rem.client.Publish(ctx, channel, event.ToJSON()).Err(); err != nil {
		rem.logger.Error().Err(err).
			Str("channel", channel).
			Str("record_id", event.RecordID).
			Msg("發布集合變更事件失敗 (Failed to publish collection change)")
		return err
	}
	return nil
}

// SubscribeCollectionChanges 訂閱集合變更通知
func (rem *RedisEventManager) SubscribeCollectionChanges(ctx context.Context, collection string) *redis.PubSub {
	return rem.client.Subscribe(ctx, CollectionChannel(collection))
}

// PublishCustomerWriteFailed 發布客戶寫入失敗事件供監控使用
func (rem *RedisEventManager) PublishCustomerWriteFailed(ctx context.Context, event *CustomerWriteEvent) error {
	return rem.publishCustomerEvent(ctx, event)
}

// PublishCustomerWriteRecovered 重試成功後發布恢復事件
func (rem *RedisEventManager) PublishCustomerWriteRecovered(ctx context.Context, event *CustomerWriteEvent) error {
	event.EventType = CustomerWriteRecoveredEvent
	return rem.publishCustomerEvent(ctx, event)
}

func (rem *RedisEventManager) publishCustomerEvent(ctx context.Context, event *CustomerWriteEvent) error {
	if event.EventType == "" {
		event.EventType = CustomerWriteFailedEvent
	}
	if err := rem.client.Publish(ctx, customerWriteEventsChannel, event.ToJSON()).Err(); err != nil {
		rem.logger.Error().Err(err).
			Str("order_id", event.OrderID).
			Str("event_type", event.EventType).
			Msg("發布客戶寫入事件失敗 (Failed to publish customer write event)")
		return err
	}
	rem.logger.Info().
		Str("order_id", event.OrderID).
		Str("customer_id", event.CustomerID).
		Str("event_type", event.EventType).
		Msg("客戶寫入事件已發布 (Customer write event published)")
	return nil
}

// SubscribeCustomerWriteEvents 訂閱客戶寫入事件
func (rem *RedisEventManager) SubscribeCustomerWriteEvents(ctx context.Context) *redis.PubSub {
	return rem.client.Subscribe(ctx, customerWriteEventsChannel)
}

// AcquireLock 取得分散式鎖，回傳釋放函數
func (rem *RedisEventManager) AcquireLock(ctx context.Context, key string, owner string, ttl time.Duration) (bool, func(), error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := fmt.Sprintf("%s:%d", owner, time.Now().UnixNano())

	success, err := rem.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		rem.logger.Error().Err(err).Str("lock_key", lockKey).Msg("獲取鎖失敗 (Failed to acquire lock)")
		return false, nil, err
	}
	if !success {
		rem.logger.Debug().Str("lock_key", lockKey).Msg("鎖已被其他流程持有")
		return false, nil, nil
	}

	release := func() {
		// 只有鎖持有者才能釋放
		script := `
			if redis.call("GET", KEYS[1]) == ARGV[1] then
				return redis.call("DEL", KEYS[1])
			else
				return 0
			end
		`
		if err := rem.client.Eval(context.Background(), script, []string{lockKey}, lockValue).Err(); err != nil {
			rem.logger.Error().Err(err).Str("lock_key", lockKey).Msg("釋放鎖失敗 (Failed to release lock)")
		}
	}
	return true, release, nil
}
