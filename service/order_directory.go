package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"
	"printshop-backend/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

// OrderDirectory orders 集合的即時鏡像，依建立時間由新到舊排列
type OrderDirectory struct {
	store  infra.DocumentStore
	logger zerolog.Logger
	mirror *snapshotMirror[model.Order]
}

func NewOrderDirectory(logger zerolog.Logger, store infra.DocumentStore, loc *time.Location) *OrderDirectory {
	logger = logger.With().Str("module", "order_directory").Logger()
	return &OrderDirectory{
		store:  store,
		logger: logger,
		mirror: newSnapshotMirror(logger, infra.CollectionOrders, decodeOrder, func(orders []model.Order) []model.Order {
			SortOrdersNewestFirst(orders, loc)
			return orders
		}),
	}
}

func decodeOrder(rec infra.Record) (model.Order, error) {
	var o model.Order
	err := bson.Unmarshal(rec.Data, &o)
	o.ID = rec.ID
	if o.PhoneNumber == "" {
		o.PhoneNumber = o.LegacyPhone
	}
	o.LegacyPhone = ""
	if o.Images == nil {
		o.Images = []string{}
	}
	if o.Pieces.Details == nil {
		o.Pieces.Details = []model.PieceLine{}
	}
	return o, err
}

// CreationInstant 訂單建立時間（Unix 毫秒）；優先使用 created_at，舊資料解析日期與時間字串
func CreationInstant(o model.Order, loc *time.Location) (int64, bool) {
	if o.CreatedAt > 0 {
		return o.CreatedAt, true
	}
	if o.CreatedDate == "" {
		return 0, false
	}
	t, err := utils.ParseLegacyDateTime(o.CreatedDate, o.CreatedTime, loc)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// SortOrdersNewestFirst 穩定排序，無法解析時間的訂單排在最後
func SortOrdersNewestFirst(orders []model.Order, loc *time.Location) {
	keys := make(map[string]int64, len(orders))
	for _, o := range orders {
		k, ok := CreationInstant(o, loc)
		if !ok {
			k = math.MinInt64
		}
		keys[o.ID] = k
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return keys[orders[i].ID] > keys[orders[j].ID]
	})
}

// Start 訂閱 orders 集合，回傳前已載入第一個 Snapshot
func (d *OrderDirectory) Start(ctx context.Context) error {
	return d.store.Subscribe(ctx, infra.CollectionOrders, d.ApplySnapshot)
}

// ApplySnapshot 以完整 Snapshot 取代目前內容並重新排序
func (d *OrderDirectory) ApplySnapshot(snapshot infra.Snapshot) {
	d.mirror.apply(snapshot)
}

// Reload 重新讀取完整集合（刪除後使用，不做增量移除）
func (d *OrderDirectory) Reload(ctx context.Context) error {
	snapshot, err := d.store.Fetch(ctx, infra.CollectionOrders)
	if err != nil {
		return fmt.Errorf("重新載入訂單失敗: %w", err)
	}
	d.ApplySnapshot(snapshot)
	return nil
}

// Orders 已排序的訂單複本
func (d *OrderDirectory) Orders() []model.Order {
	return d.mirror.snapshot()
}

// Get 依 ID 取得訂單
func (d *OrderDirectory) Get(id string) (model.Order, bool) {
	if !d.mirror.contains(id) {
		return model.Order{}, false
	}
	for _, o := range d.mirror.snapshot() {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (d *OrderDirectory) Contains(id string) bool {
	return d.mirror.contains(id)
}

func (d *OrderDirectory) Len() int {
	return d.mirror.len()
}

// OnChange 每次重建後同步呼叫 fn
func (d *OrderDirectory) OnChange(fn func([]model.Order)) {
	d.mirror.onChange(fn)
}
