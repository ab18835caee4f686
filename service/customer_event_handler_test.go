package service

import (
	"context"
	"testing"
	"time"

	"printshop-backend/infra"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLockSource 以 map 模擬 SETNX
type fakeLockSource struct {
	locks map[string]string
	err   error
}

func (s *fakeLockSource) SubscribeCustomerWriteEvents(context.Context) *redis.PubSub {
	return nil
}

func (s *fakeLockSource) AcquireLock(_ context.Context, key string, owner string, _ time.Duration) (bool, func(), error) {
	if s.err != nil {
		return false, nil, s.err
	}
	if _, held := s.locks[key]; held {
		return false, nil, nil
	}
	s.locks[key] = owner
	return true, func() { delete(s.locks, key) }, nil
}

type fakeAnnouncer struct {
	events []*infra.CustomerWriteEvent
}

func (a *fakeAnnouncer) AnnounceCustomerRecovered(_ context.Context, event *infra.CustomerWriteEvent) {
	a.events = append(a.events, event)
}

func TestCustomerEventHandlerHandlePayload(t *testing.T) {
	source := &fakeLockSource{locks: map[string]string{}}
	announcer := &fakeAnnouncer{}
	handler := NewCustomerEventHandler(testLogger, source, announcer, "host-a")
	defer handler.Stop()
	ctx := context.Background()

	recovered := (&infra.CustomerWriteEvent{
		EventType: infra.CustomerWriteRecoveredEvent,
		OrderID:   "aB3xY9k",
		Name:      "Asha",
		Attempt:   2,
	}).ToJSON()

	assert.True(t, handler.HandlePayload(ctx, recovered))
	require.Len(t, announcer.events, 1)
	assert.Equal(t, "Asha", announcer.events[0].Name)
	assert.Equal(t, "host-a", source.locks["customer_recovered:aB3xY9k:2"])

	// 其他實例收到同一事件時略過
	assert.False(t, handler.HandlePayload(ctx, recovered))
	assert.Len(t, announcer.events, 1)

	failed := (&infra.CustomerWriteEvent{EventType: infra.CustomerWriteFailedEvent, OrderID: "aB3xY9k"}).ToJSON()
	assert.False(t, handler.HandlePayload(ctx, failed))
	assert.False(t, handler.HandlePayload(ctx, "{broken"))

	source.err = assert.AnError
	other := (&infra.CustomerWriteEvent{EventType: infra.CustomerWriteRecoveredEvent, OrderID: "Zz9Yy8x", Attempt: 1}).ToJSON()
	assert.False(t, handler.HandlePayload(ctx, other))
	assert.Len(t, announcer.events, 1)
}
