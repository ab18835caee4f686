package controller

import (
	"context"
	"fmt"
	"time"

	"printshop-backend/data-models/common"
	"printshop-backend/data-models/order"
	"printshop-backend/infra"
	"printshop-backend/middleware"
	"printshop-backend/model"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	logger         zerolog.Logger
	orderService   *service.OrderService
	exportService  *service.OrderExportService
	authMiddleware *middleware.UserAuthMiddleware
}

func NewOrderController(logger zerolog.Logger, orderService *service.OrderService, exportService *service.OrderExportService, authMiddleware *middleware.UserAuthMiddleware) *OrderController {
	return &OrderController{
		logger:         logger.With().Str("module", "order_controller").Logger(),
		orderService:   orderService,
		exportService:  exportService,
		authMiddleware: authMiddleware,
	}
}

func (c *OrderController) RegisterRoutes(api huma.API) {
	security := []map[string][]string{{"bearerAuth": {}}}

	// 訂單狀態與印件類型
	huma.Register(api, huma.Operation{
		OperationID: "list-order-statuses",
		Method:      "GET",
		Path:        "/order-statuses",
		Summary:     "訂單狀態與顏色",
		Tags:        []string{"orders"},
	}, func(ctx context.Context, input *struct{}) (*order.OrderStatusesResponse, error) {
		resp := &order.OrderStatusesResponse{}
		for _, s := range model.AllOrderStatuses() {
			resp.Body.Statuses = append(resp.Body.Statuses, order.StatusOption{Status: s, Color: s.Color()})
		}
		resp.Body.PieceTypes = model.AllPieceTypes()
		return resp, nil
	})

	// 訂單列表
	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      "GET",
		Path:        "/orders",
		Summary:     "訂單列表",
		Description: "依建立時間新到舊排序，可依狀態與客戶名稱或電話過濾",
		Tags:        []string{"orders"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *order.OrderListInput) (*order.OrderListResponse, error) {
		filters, err := service.ParseStatusFilters(input.Statuses)
		if err != nil {
			return nil, huma.Error400BadRequest("無效的訂單狀態", err)
		}

		orders := service.ToOrderViews(c.orderService.ListOrders(filters, input.Search))
		pageNum, pageSize := input.GetPageNum(), input.GetPageSize()

		resp := &order.OrderListResponse{}
		resp.Body.Orders = common.Paginate(orders, pageNum, pageSize)
		resp.Body.Statuses = filters.Checked()
		resp.Body.Pagination = common.NewPaginationInfo(pageNum, pageSize, len(orders))
		return resp, nil
	})

	// 匯出 Excel
	huma.Register(api, huma.Operation{
		OperationID: "export-orders",
		Method:      "GET",
		Path:        "/orders/export",
		Summary:     "匯出訂單 Excel",
		Tags:        []string{"orders"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *order.OrderExportInput) (*order.OrderExportResponse, error) {
		_, span := infra.StartControllerSpan(ctx, "order", "export")
		defer span.End()

		filters, err := service.ParseStatusFilters(input.Statuses)
		if err != nil {
			return nil, huma.Error400BadRequest("無效的訂單狀態", err)
		}

		f, err := c.exportService.ExportOrders(filters, input.Search)
		if err != nil {
			infra.RecordControllerError(span, err, "export failed")
			c.logger.Error().Err(err).Msg("匯出訂單失敗")
			return nil, huma.Error500InternalServerError("匯出訂單失敗", err)
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			infra.RecordControllerError(span, err, "write workbook failed")
			return nil, huma.Error500InternalServerError("匯出訂單失敗", err)
		}

		infra.RecordControllerSuccess(span, infra.AttrInt("export.bytes", buf.Len()))
		return &order.OrderExportResponse{
			ContentType:        xlsxContentType,
			ContentDisposition: fmt.Sprintf(`attachment; filename="orders-%s.xlsx"`, time.Now().Format("20060102-150405")),
			Body:               buf.Bytes(),
		}, nil
	})

	// 單筆訂單
	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      "GET",
		Path:        "/orders/{id}",
		Summary:     "取得訂單",
		Tags:        []string{"orders"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *order.OrderIDInput) (*order.OrderResponse, error) {
		o, err := c.orderService.GetOrder(input.ID)
		if err != nil {
			return nil, toHumaError(err, "取得訂單失敗")
		}
		return &order.OrderResponse{Body: service.OrderView{Order: o, StatusColor: o.Status.Color()}}, nil
	})

	// 刪除訂單
	huma.Register(api, huma.Operation{
		OperationID: "delete-order",
		Method:      "DELETE",
		Path:        "/orders/{id}",
		Summary:     "刪除訂單",
		Description: "刪除後重新載入訂單列表",
		Tags:        []string{"orders"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *order.OrderIDInput) (*common.MessageOutput, error) {
		ctx, span := infra.StartControllerSpan(ctx, "order", "delete", infra.AttrOrderID(input.ID))
		defer span.End()

		if err := c.orderService.DeleteOrder(ctx, input.ID); err != nil {
			infra.RecordControllerError(span, err, "delete order failed")
			return nil, toHumaError(err, "刪除訂單失敗")
		}
		infra.RecordControllerSuccess(span)
		return common.NewMessageOutput("訂單已刪除"), nil
	})

	// 更新訂單狀態
	huma.Register(api, huma.Operation{
		OperationID: "update-order-status",
		Method:      "PUT",
		Path:        "/orders/{id}/status",
		Summary:     "更新訂單狀態",
		Tags:        []string{"orders"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *order.UpdateOrderStatusInput) (*order.OrderResponse, error) {
		ctx, span := infra.StartControllerSpan(ctx, "order", "update_status",
			infra.AttrOrderID(input.ID),
			infra.AttrString("order.status", string(input.Body.Status)),
		)
		defer span.End()

		o, err := c.orderService.UpdateStatus(ctx, input.ID, input.Body.Status)
		if err != nil {
			infra.RecordControllerError(span, err, "update status failed")
			return nil, toHumaError(err, "更新訂單狀態失敗")
		}
		infra.RecordControllerSuccess(span)
		return &order.OrderResponse{Body: service.OrderView{Order: o, StatusColor: o.Status.Color()}}, nil
	})
}
