package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"printshop-backend/model"

	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound 草稿不存在或已過期
var ErrDraftNotFound = errors.New("draft not found")

// errDraftConflict 併發修改同一草稿
var errDraftConflict = errors.New("draft modified concurrently")

const draftUpdateRetries = 3

// DraftStore 草稿保存
type DraftStore interface {
	Create(ctx context.Context, draft *model.DraftOrder, ttl time.Duration) error
	Get(ctx context.Context, id string) (*model.DraftOrder, error)
	// Update 讀取、修改並寫回；fn 回傳錯誤時不寫入
	Update(ctx context.Context, id string, ttl time.Duration, fn func(*model.DraftOrder) error) (*model.DraftOrder, error)
	Delete(ctx context.Context, id string) error
}

// RedisDraftStore 以 JSON 存於 draft:{id}，使用 WATCH 確保讀改寫不互相覆蓋
type RedisDraftStore struct {
	client *redis.Client
}

func NewRedisDraftStore(client *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{client: client}
}

func draftKey(id string) string {
	return "draft:" + id
}

func (s *RedisDraftStore) Create(ctx context.Context, draft *model.DraftOrder, ttl time.Duration) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("草稿編碼失敗: %w", err)
	}
	ok, err := s.client.SetNX(ctx, draftKey(draft.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("儲存草稿失敗: %w", err)
	}
	if !ok {
		return fmt.Errorf("草稿 %s 已存在", draft.ID)
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, id string) (*model.DraftOrder, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("讀取草稿失敗: %w", err)
	}
	var draft model.DraftOrder
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("草稿解碼失敗: %w", err)
	}
	return &draft, nil
}

func (s *RedisDraftStore) Update(ctx context.Context, id string, ttl time.Duration, fn func(*model.DraftOrder) error) (*model.DraftOrder, error) {
	key := draftKey(id)
	var updated *model.DraftOrder

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrDraftNotFound
		}
		if err != nil {
			return err
		}
		var draft model.DraftOrder
		if err := json.Unmarshal(data, &draft); err != nil {
			return fmt.Errorf("草稿解碼失敗: %w", err)
		}
		if err := fn(&draft); err != nil {
			return err
		}
		out, err := json.Marshal(&draft)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		})
		if err == nil {
			updated = &draft
		}
		return err
	}

	for i := 0; i < draftUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, errDraftConflict
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, draftKey(id)).Result()
	if err != nil {
		return fmt.Errorf("刪除草稿失敗: %w", err)
	}
	if n == 0 {
		return ErrDraftNotFound
	}
	return nil
}
