package infra

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrRecordNotFound 指定 id 的記錄不存在
var ErrRecordNotFound = errors.New("record not found")

// Record 集合中的一筆記錄，ID 即遠端 key
type Record struct {
	ID   string
	Data bson.Raw
}

// Snapshot 集合的完整時間點內容，依 key 排序；空集合為空 Snapshot
type Snapshot []Record

// SnapshotHandler 每次集合變更時收到完整 Snapshot
type SnapshotHandler func(Snapshot)

// DocumentStore 遠端文件集合的持久化介面
type DocumentStore interface {
	// Subscribe 先同步送出目前內容，之後每次變更由單一 goroutine 依序送出新 Snapshot，直到 ctx 結束
	Subscribe(ctx context.Context, collection string, handler SnapshotHandler) error
	// Fetch 一次性讀取完整集合
	Fetch(ctx context.Context, collection string) (Snapshot, error)
	// Write 以指定 id upsert 記錄
	Write(ctx context.Context, collection, id string, record any) error
	// InsertIfAbsent 僅當沒有記錄符合 match 時以 id 寫入，回傳是否新增
	InsertIfAbsent(ctx context.Context, collection string, match bson.D, id string, record any) (bool, error)
	// Patch 只更新指定欄位，不存在時回傳 ErrRecordNotFound
	Patch(ctx context.Context, collection, id string, fields bson.M) error
	// Delete 刪除指定 id，不存在時回傳 ErrRecordNotFound
	Delete(ctx context.Context, collection, id string) error
}
