package order

import (
	"printshop-backend/data-models/common"
	"printshop-backend/model"
	"printshop-backend/service"
)

// OrderListInput 訂單列表查詢；statuses 未指定時六種狀態全部勾選
type OrderListInput struct {
	common.BasePaginationInput
	Statuses []string `query:"statuses" doc:"勾選的訂單狀態" example:"Pre-press"`
	Search   string   `query:"search" doc:"客戶名稱或電話搜尋" example:"asha"`
}

type OrderListResponse struct {
	Body struct {
		Orders     []service.OrderView   `json:"orders"`
		Statuses   []model.OrderStatus   `json:"statuses" doc:"目前勾選的狀態"`
		Pagination common.PaginationInfo `json:"pagination"`
	}
}

type OrderExportInput struct {
	Statuses []string `query:"statuses" doc:"勾選的訂單狀態"`
	Search   string   `query:"search" doc:"客戶名稱或電話搜尋"`
}

// OrderExportResponse xlsx 檔案
type OrderExportResponse struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type OrderIDInput struct {
	ID string `path:"id" doc:"訂單ID" example:"A1B2C3D"`
}

type OrderResponse struct {
	Body service.OrderView
}

type UpdateOrderStatusInput struct {
	ID   string `path:"id" doc:"訂單ID" example:"A1B2C3D"`
	Body struct {
		Status model.OrderStatus `json:"status" doc:"新狀態" example:"Press"`
	}
}

// StatusOption 狀態與顏色
type StatusOption struct {
	Status model.OrderStatus `json:"status" example:"Pre-press"`
	Color  string            `json:"color" example:"#ff4d4d"`
}

type OrderStatusesResponse struct {
	Body struct {
		Statuses   []StatusOption    `json:"statuses"`
		PieceTypes []model.PieceType `json:"piece_types"`
	}
}
