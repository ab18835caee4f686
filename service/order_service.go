package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printshop-backend/infra"
	"printshop-backend/metrics"
	"printshop-backend/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrTransitionBlocked = errors.New("status transition not allowed")
)

// OrderView 列表顯示用，附狀態顏色
type OrderView struct {
	model.Order
	StatusColor string `json:"status_color" example:"#ff4d4d" doc:"狀態顏色"`
}

// ToOrderViews 加上狀態顏色
func ToOrderViews(orders []model.Order) []OrderView {
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = OrderView{Order: o, StatusColor: o.Status.Color()}
	}
	return views
}

// OrderListSource 訂單鏡像
type OrderListSource interface {
	Orders() []model.Order
	Get(id string) (model.Order, bool)
	Reload(ctx context.Context) error
}

// OrderService 訂單列表、刪除與狀態更新
type OrderService struct {
	logger      zerolog.Logger
	store       infra.DocumentStore
	directory   OrderListSource
	broadcaster EventBroadcaster
}

func NewOrderService(logger zerolog.Logger, store infra.DocumentStore, directory OrderListSource, broadcaster EventBroadcaster) *OrderService {
	return &OrderService{
		logger:      logger.With().Str("module", "order_service").Logger(),
		store:       store,
		directory:   directory,
		broadcaster: broadcaster,
	}
}

// ListOrders 鏡像排序後套用狀態與搜尋條件
func (s *OrderService) ListOrders(filters StatusFilters, search string) []model.Order {
	return FilterOrders(s.directory.Orders(), filters, search)
}

// GetOrder 依 ID 取得訂單
func (s *OrderService) GetOrder(id string) (model.Order, error) {
	o, ok := s.directory.Get(id)
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return o, nil
}

// DeleteOrder 刪除後重新載入整個鏡像；失敗時鏡像不變
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	start := time.Now()
	if err := s.store.Delete(ctx, infra.CollectionOrders, id); err != nil {
		metrics.RecordOrderOperation(metrics.OperationDelete, metrics.StatusError, metrics.SourceWeb, time.Since(start))
		if errors.Is(err, infra.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		s.logger.Error().Err(err).Str("order_id", id).Msg("刪除訂單失敗 (Failed to delete order)")
		return fmt.Errorf("刪除訂單失敗: %w", err)
	}

	if err := s.directory.Reload(ctx); err != nil {
		// 訂閱仍會送來新的 Snapshot
		s.logger.Warn().Err(err).Str("order_id", id).Msg("刪除後重新載入失敗 (Reload after delete failed)")
	}

	metrics.RecordOrderOperation(metrics.OperationDelete, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))
	s.logger.Info().Str("order_id", id).Msg("訂單已刪除 (Order deleted)")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastCustomEvent("order_deleted", map[string]interface{}{"order_id": id})
	}
	return nil
}

// UpdateStatus 寫入新狀態；只檢查是否為六種狀態之一與轉換表
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error) {
	start := time.Now()
	if !status.IsValid() {
		return model.Order{}, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	current, ok := s.directory.Get(id)
	if ok && !model.CanTransition(current.Status, status) {
		return model.Order{}, fmt.Errorf("%s -> %s: %w", current.Status, status, ErrTransitionBlocked)
	}

	if err := s.store.Patch(ctx, infra.CollectionOrders, id, bson.M{"progress": status}); err != nil {
		metrics.RecordOrderOperation(metrics.OperationUpdateStatus, metrics.StatusError, metrics.SourceWeb, time.Since(start))
		if errors.Is(err, infra.ErrRecordNotFound) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("更新訂單狀態失敗: %w", err)
	}

	metrics.RecordOrderOperation(metrics.OperationUpdateStatus, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))
	s.logger.Info().
		Str("order_id", id).
		Str("old_status", string(current.Status)).
		Str("new_status", string(status)).
		Msg("訂單狀態已更新 (Order status updated)")

	current.ID = id
	current.Status = status
	return current, nil
}
