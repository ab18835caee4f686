package service

import (
	"sync"

	"printshop-backend/infra"
	"printshop-backend/metrics"

	"github.com/rs/zerolog"
)

// snapshotMirror 集合的記憶體鏡像：每個 Snapshot 整批重建後替換，再同步通知觀察者
type snapshotMirror[T any] struct {
	logger     zerolog.Logger
	collection string
	decode     func(infra.Record) (T, error)
	arrange    func([]T) []T

	mu    sync.RWMutex
	items []T
	ids   map[string]struct{}

	observersMu sync.Mutex
	observers   []func([]T)
}

func newSnapshotMirror[T any](logger zerolog.Logger, collection string, decode func(infra.Record) (T, error), arrange func([]T) []T) *snapshotMirror[T] {
	return &snapshotMirror[T]{
		logger:     logger,
		collection: collection,
		decode:     decode,
		arrange:    arrange,
		items:      []T{},
		ids:        map[string]struct{}{},
	}
}

// apply 以 Snapshot 重建鏡像；格式錯誤的記錄以可解出的欄位保留
func (m *snapshotMirror[T]) apply(snapshot infra.Snapshot) {
	items := make([]T, 0, len(snapshot))
	ids := make(map[string]struct{}, len(snapshot))
	for _, rec := range snapshot {
		item, err := m.decode(rec)
		if err != nil {
			m.logger.Warn().Err(err).
				Str("collection", m.collection).
				Str("record_id", rec.ID).
				Msg("記錄格式不完整，使用預設值 (Malformed record, using defaults)")
		}
		items = append(items, item)
		ids[rec.ID] = struct{}{}
	}
	if m.arrange != nil {
		items = m.arrange(items)
	}

	m.mu.Lock()
	m.items = items
	m.ids = ids
	m.mu.Unlock()

	metrics.RecordSnapshotApplied(m.collection, len(items))
	m.logger.Debug().Str("collection", m.collection).Int("count", len(items)).Msg("鏡像已更新 (Mirror rebuilt)")

	m.observersMu.Lock()
	observers := append([]func([]T){}, m.observers...)
	m.observersMu.Unlock()
	for _, fn := range observers {
		fn(m.snapshot())
	}
}

func (m *snapshotMirror[T]) snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

func (m *snapshotMirror[T]) contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[id]
	return ok
}

func (m *snapshotMirror[T]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *snapshotMirror[T]) onChange(fn func([]T)) {
	m.observersMu.Lock()
	defer m.observersMu.Unlock()
	m.observers = append(m.observers, fn)
}
