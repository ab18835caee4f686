package service

import (
	"testing"

	"printshop-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrdersWorkbook(t *testing.T) {
	orders := []model.Order{
		{
			ID:                "aB3xY9k",
			CustomerName:      "Asha",
			PhoneNumber:       "+919876543210",
			Status:            model.OrderStatusPress,
			Pieces:            model.NewPieces([]model.PieceLine{{Type: model.PieceTypePackaging, Quantity: 2, Remarks: "gloss"}, {Type: model.PieceTypeOther, Quantity: 1}}),
			CreatedDate:       "October 17, 2026",
			CreatedTime:       "3:04:05 PM",
			DeadlineFormatted: "October 20, 2026",
			Images:            []string{"a", "b"},
		},
		{ID: "Zz9Yy8x", CustomerName: "Ravi", Status: model.OrderStatusDelivered},
	}

	f, err := BuildOrdersWorkbook(orders)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Orders"}, f.GetSheetList())

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "aB3xY9k", rows[1][0])
	assert.Equal(t, "+919876543210", rows[1][2])
	assert.Equal(t, "Press", rows[1][3])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "Packaging x2 (gloss); Other x1", rows[1][5])
	assert.Equal(t, "2", rows[1][9])
	assert.Equal(t, "Delivered", rows[2][3])

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestBuildOrdersWorkbookEmpty(t *testing.T) {
	f, err := BuildOrdersWorkbook(nil)
	require.NoError(t, err)
	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
