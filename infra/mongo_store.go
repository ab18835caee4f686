package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultPollInterval = 5 * time.Second

// MongoStore 以 MongoDB 實作 DocumentStore。
// 變更來源依序為 change stream、Redis 集合變更通知、定期輪詢。
type MongoStore struct {
	db           *MongoDB
	events       *RedisEventManager
	logger       zerolog.Logger
	pollInterval time.Duration
}

// NewMongoStore events 可為 nil，此時寫入後不發布通知
func NewMongoStore(db *MongoDB, events *RedisEventManager, logger zerolog.Logger) *MongoStore {
	return &MongoStore{
		db:           db,
		events:       events,
		logger:       logger.With().Str("module", "mongo_store").Logger(),
		pollInterval: defaultPollInterval,
	}
}

func (s *MongoStore) Fetch(ctx context.Context, collection string) (Snapshot, error) {
	cursor, err := s.db.GetCollection(collection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("讀取集合 %s 失敗: %w", collection, err)
	}
	defer cursor.Close(ctx)

	snapshot := Snapshot{}
	for cursor.Next(ctx) {
		raw := make(bson.Raw, len(cursor.Current))
		copy(raw, cursor.Current)

		id, ok := RecordID(raw)
		if !ok {
			s.logger.Warn().Str("collection", collection).Msg("略過無法辨識 _id 的記錄 (Skipping record without string id)")
			continue
		}
		snapshot = append(snapshot, Record{ID: id, Data: raw})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("讀取集合 %s 游標失敗: %w", collection, err)
	}
	return snapshot, nil
}

// RecordID 取出字串或 ObjectID 形式的 _id
func RecordID(raw bson.Raw) (string, bool) {
	val, err := raw.LookupErr("_id")
	if err != nil {
		return "", false
	}
	if id, ok := val.StringValueOK(); ok {
		return id, true
	}
	if oid, ok := val.ObjectIDOK(); ok {
		return oid.Hex(), true
	}
	return "", false
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string, handler SnapshotHandler) error {
	snapshot, err := s.Fetch(ctx, collection)
	if err != nil {
		return err
	}
	handler(snapshot)

	go s.watch(ctx, collection, handler)
	return nil
}

func (s *MongoStore) watch(ctx context.Context, collection string, handler SnapshotHandler) {
	logger := s.logger.With().Str("collection", collection).Logger()

	stream, err := s.db.GetCollection(collection).Watch(ctx, mongo.Pipeline{})
	if err == nil {
		logger.Info().Msg("使用 change stream 監聽集合 (Watching collection via change stream)")
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			// 合併連續變更，只重新載入一次
			for stream.TryNext(ctx) {
			}
			s.reload(ctx, collection, handler)
		}
		if ctx.Err() != nil {
			return
		}
		err = stream.Err()
	}

	logger.Warn().Err(err).Msg("change stream 不可用，改用備援通知 (Change stream unavailable, falling back)")
	if s.events != nil {
		s.watchRedis(ctx, collection, handler)
		return
	}
	s.poll(ctx, collection, handler)
}

func (s *MongoStore) watchRedis(ctx context.Context, collection string, handler SnapshotHandler) {
	pubsub := s.events.SubscribeCollectionChanges(ctx, collection)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.reload(ctx, collection, handler)
		}
	}
}

func (s *MongoStore) poll(ctx context.Context, collection string, handler SnapshotHandler) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reload(ctx, collection, handler)
		}
	}
}

func (s *MongoStore) reload(ctx context.Context, collection string, handler SnapshotHandler) {
	snapshot, err := s.Fetch(ctx, collection)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Str("collection", collection).Msg("重新載入集合失敗 (Failed to reload collection)")
		}
		return
	}
	handler(snapshot)
}

func (s *MongoStore) Write(ctx context.Context, collection, id string, record any) error {
	ctx, span := StartSpan(ctx, "store_write", AttrCollection(collection), AttrString("record.id", id))
	defer span.End()

	_, err := s.db.GetCollection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, record, options.Replace().SetUpsert(true))
	if err != nil {
		RecordError(span, err, "write failed")
		return fmt.Errorf("寫入 %s/%s 失敗: %w", collection, id, err)
	}
	MarkSuccess(span)
	s.notify(ctx, collection, id, "write")
	return nil
}

func (s *MongoStore) InsertIfAbsent(ctx context.Context, collection string, match bson.D, id string, record any) (bool, error) {
	ctx, span := StartSpan(ctx, "store_insert_if_absent", AttrCollection(collection), AttrString("record.id", id))
	defer span.End()

	doc, err := withID(record, id)
	if err != nil {
		RecordError(span, err, "encode failed")
		return false, err
	}

	res, err := s.db.GetCollection(collection).UpdateOne(ctx, match,
		bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		// 唯一索引擋下的並行寫入視為已存在
		if mongo.IsDuplicateKeyError(err) {
			MarkSuccess(span, AttrBool("inserted", false))
			return false, nil
		}
		RecordError(span, err, "insert if absent failed")
		return false, fmt.Errorf("寫入 %s/%s 失敗: %w", collection, id, err)
	}

	inserted := res.UpsertedCount > 0
	MarkSuccess(span, AttrBool("inserted", inserted))
	if inserted {
		s.notify(ctx, collection, id, "insert")
	}
	return inserted, nil
}

func (s *MongoStore) Patch(ctx context.Context, collection, id string, fields bson.M) error {
	ctx, span := StartSpan(ctx, "store_patch", AttrCollection(collection), AttrString("record.id", id))
	defer span.End()

	res, err := s.db.GetCollection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		RecordError(span, err, "patch failed")
		return fmt.Errorf("更新 %s/%s 失敗: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		RecordError(span, ErrRecordNotFound, "record not found")
		return fmt.Errorf("更新 %s/%s: %w", collection, id, ErrRecordNotFound)
	}
	MarkSuccess(span)
	s.notify(ctx, collection, id, "patch")
	return nil
}

// withID 將記錄編碼為文件並加上 _id
func withID(record any, id string) (bson.D, error) {
	raw, err := bson.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("編碼記錄失敗: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("編碼記錄失敗: %w", err)
	}
	return append(bson.D{{Key: "_id", Value: id}}, doc...), nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	ctx, span := StartSpan(ctx, "store_delete", AttrCollection(collection), AttrString("record.id", id))
	defer span.End()

	res, err := s.db.GetCollection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		RecordError(span, err, "delete failed")
		return fmt.Errorf("刪除 %s/%s 失敗: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		RecordError(span, ErrRecordNotFound, "record not found")
		return fmt.Errorf("刪除 %s/%s: %w", collection, id, ErrRecordNotFound)
	}
	MarkSuccess(span)
	s.notify(ctx, collection, id, "delete")
	return nil
}

func (s *MongoStore) notify(ctx context.Context, collection, id, op string) {
	if s.events == nil {
		return
	}
	event := &CollectionChangedEvent{
		Collection: collection,
		RecordID:   id,
		Operation:  op,
		Timestamp:  time.Now(),
	}
	if err := s.events.PublishCollectionChanged(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("collection", collection).Msg("集合變更通知失敗 (Change notification failed)")
	}
}
