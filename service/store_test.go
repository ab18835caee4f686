package service

import (
	"context"
	"sort"
	"sync"

	"printshop-backend/infra"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

var testLogger = zerolog.Nop()

// memStore 測試用的記憶體 DocumentStore，每次寫入後同步推送新 Snapshot
type memStore struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.Raw
	handlers    map[string][]infra.SnapshotHandler

	writeErr  map[string]error
	insertErr error
	patchErr  error
	deleteErr error
	fetchErr  error

	writes  int
	inserts int
}

func newMemStore() *memStore {
	return &memStore{
		collections: map[string]map[string]bson.Raw{},
		handlers:    map[string][]infra.SnapshotHandler{},
		writeErr:    map[string]error{},
	}
}

// seed 直接放入原始文件，不觸發推送
func (s *memStore) seed(collection, id string, doc any) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]bson.Raw{}
	}
	s.collections[collection][id] = raw
}

func (s *memStore) count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *memStore) snapshotLocked(collection string) infra.Snapshot {
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snapshot := infra.Snapshot{}
	for _, id := range ids {
		snapshot = append(snapshot, infra.Record{ID: id, Data: s.collections[collection][id]})
	}
	return snapshot
}

func (s *memStore) notify(collection string) {
	s.mu.Lock()
	snapshot := s.snapshotLocked(collection)
	handlers := append([]infra.SnapshotHandler{}, s.handlers[collection]...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(snapshot)
	}
}

func (s *memStore) Subscribe(ctx context.Context, collection string, handler infra.SnapshotHandler) error {
	s.mu.Lock()
	snapshot := s.snapshotLocked(collection)
	s.handlers[collection] = append(s.handlers[collection], handler)
	s.mu.Unlock()
	handler(snapshot)
	return nil
}

func (s *memStore) Fetch(ctx context.Context, collection string) (infra.Snapshot, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(collection), nil
}

func (s *memStore) Write(ctx context.Context, collection, id string, record any) error {
	if err := s.writeErr[collection]; err != nil {
		return err
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	s.seed(collection, id, record)
	s.notify(collection)
	return nil
}

func (s *memStore) InsertIfAbsent(ctx context.Context, collection string, match bson.D, id string, record any) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	s.mu.Lock()
	for _, raw := range s.collections[collection] {
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			continue
		}
		matched := true
		for _, e := range match {
			if doc[e.Key] != e.Value {
				matched = false
				break
			}
		}
		if matched {
			s.mu.Unlock()
			return false, nil
		}
	}
	s.inserts++
	s.mu.Unlock()
	s.seed(collection, id, record)
	s.notify(collection)
	return true, nil
}

func (s *memStore) Patch(ctx context.Context, collection, id string, fields bson.M) error {
	if s.patchErr != nil {
		return s.patchErr
	}
	s.mu.Lock()
	raw, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return infra.ErrRecordNotFound
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		s.mu.Unlock()
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.mu.Unlock()
	s.seed(collection, id, doc)
	s.notify(collection)
	return nil
}

func (s *memStore) Delete(ctx context.Context, collection, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return infra.ErrRecordNotFound
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()
	s.notify(collection)
	return nil
}
