package customer

import (
	"printshop-backend/data-models/common"
	"printshop-backend/model"
)

type CustomerListInput struct {
	common.BasePaginationInput
}

type CustomerListResponse struct {
	Body struct {
		Customers  []model.Customer      `json:"customers"`
		Pagination common.PaginationInfo `json:"pagination"`
	}
}

type CustomerSuggestInput struct {
	Query string `query:"q" doc:"客戶名稱關鍵字" example:"as"`
}

type CustomerSuggestResponse struct {
	Body struct {
		Customers []model.Customer `json:"customers"`
	}
}
