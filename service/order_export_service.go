package service

import (
	"fmt"
	"strings"
	"time"

	"printshop-backend/metrics"
	"printshop-backend/model"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"訂單ID", "客戶名稱", "電話", "狀態", "總件數", "印件明細",
	"建立日期", "建立時間", "交期", "圖片數", "語音備註",
}

// OrderExportService 將篩選後的訂單匯出為 Excel
type OrderExportService struct {
	logger zerolog.Logger
	orders *OrderService
}

func NewOrderExportService(logger zerolog.Logger, orders *OrderService) *OrderExportService {
	return &OrderExportService{
		logger: logger.With().Str("module", "order_export_service").Logger(),
		orders: orders,
	}
}

// ExportOrders 與列表相同的篩選條件
func (s *OrderExportService) ExportOrders(filters StatusFilters, search string) (*excelize.File, error) {
	start := time.Now()
	orders := s.orders.ListOrders(filters, search)

	f, err := BuildOrdersWorkbook(orders)
	if err != nil {
		metrics.RecordOrderOperation(metrics.OperationExport, metrics.StatusError, metrics.SourceWeb, time.Since(start))
		return nil, err
	}
	metrics.RecordOrderOperation(metrics.OperationExport, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))
	s.logger.Info().Int("count", len(orders)).Msg("訂單匯出完成 (Orders exported)")
	return f, nil
}

// BuildOrdersWorkbook 每筆訂單一列，狀態欄以狀態顏色填色
func BuildOrdersWorkbook(orders []model.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Orders"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("建立工作表失敗: %w", err)
	}
	f.SetActiveSheet(index)
	if f.GetSheetName(0) == "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	styles := map[model.OrderStatus]int{}
	for i, o := range orders {
		row := i + 2
		values := []interface{}{
			o.ID,
			o.CustomerName,
			o.Phone(),
			string(o.Status),
			o.Pieces.TotalQuantity,
			formatPieceDetails(o.Pieces.Details),
			o.CreatedDate,
			o.CreatedTime,
			o.DeadlineFormatted,
			len(o.Images),
			o.AudioLink,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}

		styleID, ok := styles[o.Status]
		if !ok {
			styleID, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{o.Status.Color()}},
			})
			if err != nil {
				return nil, fmt.Errorf("建立樣式失敗: %w", err)
			}
			styles[o.Status] = styleID
		}
		cell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(sheetName, cell, cell, styleID)
	}
	return f, nil
}

func formatPieceDetails(details []model.PieceLine) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		p := fmt.Sprintf("%s x%d", d.Type, d.Quantity)
		if d.Remarks != "" {
			p += " (" + d.Remarks + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}
