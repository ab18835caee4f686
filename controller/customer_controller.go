package controller

import (
	"context"

	"printshop-backend/data-models/common"
	"printshop-backend/data-models/customer"
	"printshop-backend/middleware"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type CustomerController struct {
	logger         zerolog.Logger
	directory      *service.CustomerDirectory
	matcher        *service.CustomerMatcher
	authMiddleware *middleware.UserAuthMiddleware
}

func NewCustomerController(logger zerolog.Logger, directory *service.CustomerDirectory, matcher *service.CustomerMatcher, authMiddleware *middleware.UserAuthMiddleware) *CustomerController {
	return &CustomerController{
		logger:         logger.With().Str("module", "customer_controller").Logger(),
		directory:      directory,
		matcher:        matcher,
		authMiddleware: authMiddleware,
	}
}

func (c *CustomerController) RegisterRoutes(api huma.API) {
	security := []map[string][]string{{"bearerAuth": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "list-customers",
		Method:      "GET",
		Path:        "/customers",
		Summary:     "客戶列表",
		Tags:        []string{"customers"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *customer.CustomerListInput) (*customer.CustomerListResponse, error) {
		all := c.directory.Customers()
		pageNum, pageSize := input.GetPageNum(), input.GetPageSize()

		resp := &customer.CustomerListResponse{}
		resp.Body.Customers = common.Paginate(all, pageNum, pageSize)
		resp.Body.Pagination = common.NewPaginationInfo(pageNum, pageSize, len(all))
		return resp, nil
	})

	// 輸入客戶名稱時的建議
	huma.Register(api, huma.Operation{
		OperationID: "suggest-customers",
		Method:      "GET",
		Path:        "/customers/suggest",
		Summary:     "客戶名稱建議",
		Tags:        []string{"customers"},
		Middlewares: huma.Middlewares{c.authMiddleware.Auth()},
		Security:    security,
	}, func(ctx context.Context, input *customer.CustomerSuggestInput) (*customer.CustomerSuggestResponse, error) {
		resp := &customer.CustomerSuggestResponse{}
		resp.Body.Customers = c.matcher.Suggest(input.Query)
		return resp, nil
	})
}
