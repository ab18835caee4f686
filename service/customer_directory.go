package service

import (
	"context"

	"printshop-backend/infra"
	"printshop-backend/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

// CustomerSource 提供客戶鏡像的唯讀視圖
type CustomerSource interface {
	Customers() []model.Customer
}

// CustomerDirectory customers 集合的即時鏡像，依 key 順序排列
type CustomerDirectory struct {
	store  infra.DocumentStore
	mirror *snapshotMirror[model.Customer]
}

func NewCustomerDirectory(logger zerolog.Logger, store infra.DocumentStore) *CustomerDirectory {
	logger = logger.With().Str("module", "customer_directory").Logger()
	return &CustomerDirectory{
		store:  store,
		mirror: newSnapshotMirror(logger, infra.CollectionCustomers, decodeCustomer, nil),
	}
}

func decodeCustomer(rec infra.Record) (model.Customer, error) {
	var c model.Customer
	err := bson.Unmarshal(rec.Data, &c)
	c.ID = rec.ID
	c.Normalize()
	if c.History == nil {
		c.History = []string{}
	}
	return c, err
}

// Start 訂閱 customers 集合，回傳前已載入第一個 Snapshot
func (d *CustomerDirectory) Start(ctx context.Context) error {
	return d.store.Subscribe(ctx, infra.CollectionCustomers, d.ApplySnapshot)
}

// ApplySnapshot 以完整 Snapshot 取代目前內容
func (d *CustomerDirectory) ApplySnapshot(snapshot infra.Snapshot) {
	d.mirror.apply(snapshot)
}

// Customers 目前鏡像的複本
func (d *CustomerDirectory) Customers() []model.Customer {
	return d.mirror.snapshot()
}

func (d *CustomerDirectory) Contains(id string) bool {
	return d.mirror.contains(id)
}

func (d *CustomerDirectory) Len() int {
	return d.mirror.len()
}

// OnChange 每次重建後同步呼叫 fn
func (d *CustomerDirectory) OnChange(fn func([]model.Customer)) {
	d.mirror.onChange(fn)
}
