package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusColors(t *testing.T) {
	testCases := []struct {
		status OrderStatus
		color  string
	}{
		{OrderStatusPrePress, "#ff4d4d"},
		{OrderStatusPress, "#ff7518"},
		{OrderStatusPostPress, "#ffaa00"},
		{OrderStatusDelivered, "#ffd700"},
		{OrderStatusPaymentPending, "#c0c000"},
		{OrderStatusPaymentReceived, "#31a931"},
		{"Shipped", UnknownStatusColor},
		{"", UnknownStatusColor},
	}
	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.color, tc.status.Color())
		})
	}
}

func TestAllOrderStatuses(t *testing.T) {
	all := AllOrderStatuses()
	assert.Len(t, all, 6)
	assert.Equal(t, OrderStatusPrePress, all[0])
	assert.Equal(t, InitialOrderStatus, all[0])
	for _, s := range all {
		assert.True(t, s.IsValid())
	}
	assert.False(t, OrderStatus("pre-press").IsValid())
}

func TestCanTransition(t *testing.T) {
	for _, from := range AllOrderStatuses() {
		for _, to := range AllOrderStatuses() {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	// 舊資料的未知狀態可轉為任一合法狀態
	assert.True(t, CanTransition("Legacy", OrderStatusDelivered))
	assert.False(t, CanTransition(OrderStatusPress, "Shipped"))
}

func TestPieceTypes(t *testing.T) {
	assert.Len(t, AllPieceTypes(), 4)
	assert.True(t, PieceTypeOffsetPrinting.IsValid())
	assert.False(t, PieceType("Vinyl").IsValid())
	assert.Equal(t, PieceLine{Type: PieceTypeDigitalPrinting, Quantity: 1}, DefaultPieceLine())
}

func TestPiecesTotals(t *testing.T) {
	p := NewPieces(nil)
	assert.Equal(t, 0, p.TotalQuantity)
	assert.NotNil(t, p.Details)

	d := DraftOrder{Pieces: Pieces{Details: []PieceLine{{Quantity: 2}, {Quantity: 3}}}}
	d.RecomputeTotal()
	assert.Equal(t, 5, d.Pieces.TotalQuantity)
}

func TestUserRoleCanManageOrders(t *testing.T) {
	assert.True(t, RoleManager.CanManageOrders())
	assert.True(t, RoleSudo.CanManageOrders())
	assert.False(t, RoleStaff.CanManageOrders())
}

func TestLegacyPhoneFallback(t *testing.T) {
	c := Customer{LegacyPhone: "9876543210"}
	c.Normalize()
	assert.Equal(t, "9876543210", c.Phone)
	assert.Empty(t, c.LegacyPhone)

	o := Order{LegacyPhone: "+919876543210"}
	assert.Equal(t, "+919876543210", o.Phone())
	o.PhoneNumber = "+911111111111"
	assert.Equal(t, "+911111111111", o.Phone())
}
