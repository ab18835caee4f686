package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	websocketModels "printshop-backend/data-models/websocket"
	"printshop-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticOrders []model.Order

func (s staticOrders) Orders() []model.Order { return s }

func (s staticOrders) Get(id string) (model.Order, bool) {
	for _, o := range s {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (s staticOrders) Reload(_ context.Context) error { return nil }

func TestWebSocketMessages(t *testing.T) {
	ws := NewWebSocketService(testLogger, nil)

	msg, err := ws.DeserializeMessage([]byte(`{"type":"subscribe_orders","data":{"statuses":["Press"],"search":"as"}}`))
	require.NoError(t, err)
	assert.Equal(t, websocketModels.MessageTypeSubscribeOrders, msg.Type)

	req, err := ws.ParseSubscription(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Press"}, req.Statuses)
	assert.Equal(t, "as", req.Search)

	_, err = ws.DeserializeMessage([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ws.DeserializeMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = ws.ParseSubscription(json.RawMessage(`{"statuses":["Shipped"]}`))
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	req, err = ws.ParseSubscription(nil)
	require.NoError(t, err)
	assert.Empty(t, req.Statuses)

	data, err := ws.SerializeMessage(websocketModels.WSMessage{Type: websocketModels.MessageTypePong, Data: ws.CreatePongResponse()})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"pong"`)
}

func TestBuildOrdersSnapshot(t *testing.T) {
	orders := staticOrders{
		{ID: "1", CustomerName: "Asha", Status: model.OrderStatusPress},
		{ID: "2", CustomerName: "Ravi", Status: model.OrderStatusDelivered},
		{ID: "3", CustomerName: "Asha K", Status: model.OrderStatusPrePress},
	}
	ws := NewWebSocketService(testLogger, orders)

	t.Run("預設條件取目錄全部", func(t *testing.T) {
		msg := ws.BuildOrdersSnapshot(nil, websocketModels.SubscribeOrdersRequest{})
		assert.Equal(t, websocketModels.MessageTypeOrdersSnapshot, msg.Type)
		snap := msg.Data.(websocketModels.OrdersSnapshotMessage)
		assert.Equal(t, 3, snap.Count)
		assert.Len(t, snap.Statuses, 6)
	})

	t.Run("狀態與搜尋", func(t *testing.T) {
		msg := ws.BuildOrdersSnapshot(orders, websocketModels.SubscribeOrdersRequest{
			Statuses: []string{"Press", "Pre-press"},
			Search:   "asha",
		})
		snap := msg.Data.(websocketModels.OrdersSnapshotMessage)
		assert.Equal(t, 2, snap.Count)
		views := snap.Orders.([]OrderView)
		assert.Equal(t, "1", views[0].ID)
		assert.Equal(t, "#ff7518", views[0].StatusColor)
		assert.Equal(t, []string{"Pre-press", "Press"}, snap.Statuses)
	})
}
