package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"printshop-backend/infra"
	"printshop-backend/middleware"
	"printshop-backend/model"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const testSecret = "test-secret"

var testLogger = zerolog.Nop()

type fakeUsers map[string]*model.User

func (u fakeUsers) FindByCredentials(_ context.Context, email, password string) (*model.User, error) {
	for _, user := range u {
		if user.Email == email && user.Password == password {
			return user, nil
		}
	}
	return nil, service.ErrUserNotFound
}

func (u fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, service.ErrUserNotFound
}

// orderBook 同時作為 OrderListSource 與 DocumentStore
type orderBook struct {
	infra.DocumentStore
	orders []model.Order
}

func (b *orderBook) Orders() []model.Order { return append([]model.Order{}, b.orders...) }

func (b *orderBook) Get(id string) (model.Order, bool) {
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (b *orderBook) Reload(context.Context) error { return nil }

func (b *orderBook) Delete(_ context.Context, _, id string) error {
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return nil
		}
	}
	return infra.ErrRecordNotFound
}

func (b *orderBook) Patch(_ context.Context, _, id string, fields bson.M) error {
	for i, o := range b.orders {
		if o.ID == id {
			if s, ok := fields["progress"].(model.OrderStatus); ok {
				b.orders[i].Status = s
			}
			return nil
		}
	}
	return infra.ErrRecordNotFound
}

type apiFixture struct {
	api     humatest.TestAPI
	book    *orderBook
	manager string
	staff   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	users := fakeUsers{
		"u1": {ID: "u1", Email: "manager@shop.in", Password: "pw", Role: model.RoleManager},
		"u2": {ID: "u2", Email: "staff@shop.in", Password: "pw", Role: model.RoleStaff},
	}
	userService := service.NewUserService(testLogger, users, testSecret, 1)
	authMW := middleware.NewUserAuthMiddleware(testLogger, userService, testSecret)

	book := &orderBook{orders: []model.Order{
		{ID: "aB3xY9k", CustomerName: "Asha", PhoneNumber: "+919876543210", Status: model.OrderStatusPress},
		{ID: "Zz9Yy8x", CustomerName: "Ravi", PhoneNumber: "+915550100", Status: model.OrderStatusDelivered},
		{ID: "Qq1Ww2e", CustomerName: "Meera", PhoneNumber: "+911112223", Status: model.OrderStatusPrePress},
	}}
	orderService := service.NewOrderService(testLogger, book, book, nil)

	_, api := humatest.New(t)
	NewAuthController(testLogger, userService).RegisterRoutes(api)
	NewOrderController(testLogger, orderService, service.NewOrderExportService(testLogger, orderService), authMW).RegisterRoutes(api)

	managerToken, err := userService.IssueToken(users["u1"])
	require.NoError(t, err)
	staffToken, err := userService.IssueToken(users["u2"])
	require.NoError(t, err)

	return &apiFixture{
		api:     api,
		book:    book,
		manager: "Authorization: Bearer " + managerToken,
		staff:   "Authorization: Bearer " + staffToken,
	}
}

func decode(t *testing.T, body []byte, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, out))
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.api.Post("/auth/login", map[string]any{"email": "manager@shop.in", "password": "pw"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	decode(t, resp.Body.Bytes(), &body)
	assert.NotEmpty(t, body.Token)

	resp = f.api.Post("/auth/login", map[string]any{"email": "manager@shop.in", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.api.Post("/auth/login", map[string]any{"email": "staff@shop.in", "password": "pw"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestOrderStatusesIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.api.Get("/order-statuses")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Statuses []struct {
			Status string `json:"status"`
			Color  string `json:"color"`
		} `json:"statuses"`
		PieceTypes []string `json:"piece_types"`
	}
	decode(t, resp.Body.Bytes(), &body)
	require.Len(t, body.Statuses, 6)
	assert.Equal(t, "Pre-press", body.Statuses[0].Status)
	assert.Equal(t, "#ff4d4d", body.Statuses[0].Color)
	assert.Len(t, body.PieceTypes, 4)
}

func TestListOrders(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("需要登入", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, f.api.Get("/orders").Code)
		assert.Equal(t, http.StatusForbidden, f.api.Get("/orders", f.staff).Code)
	})

	t.Run("狀態過濾與分頁", func(t *testing.T) {
		resp := f.api.Get("/orders?statuses=Press,Pre-press&pageSize=1", f.manager)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body struct {
			Orders []struct {
				ID          string `json:"id"`
				StatusColor string `json:"status_color"`
			} `json:"orders"`
			Statuses   []string `json:"statuses"`
			Pagination struct {
				TotalItems int `json:"totalItems"`
				TotalPages int `json:"totalPages"`
			} `json:"pagination"`
		}
		decode(t, resp.Body.Bytes(), &body)
		require.Len(t, body.Orders, 1)
		assert.Equal(t, "aB3xY9k", body.Orders[0].ID)
		assert.Equal(t, "#ff7518", body.Orders[0].StatusColor)
		assert.Equal(t, []string{"Pre-press", "Press"}, body.Statuses)
		assert.Equal(t, 2, body.Pagination.TotalItems)
		assert.Equal(t, 2, body.Pagination.TotalPages)
	})

	t.Run("電話數字搜尋", func(t *testing.T) {
		resp := f.api.Get("/orders?search=555-0100", f.manager)
		require.Equal(t, http.StatusOK, resp.Code)
		var body struct {
			Orders []struct {
				ID string `json:"id"`
			} `json:"orders"`
		}
		decode(t, resp.Body.Bytes(), &body)
		require.Len(t, body.Orders, 1)
		assert.Equal(t, "Zz9Yy8x", body.Orders[0].ID)
	})

	t.Run("未知狀態", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.api.Get("/orders?statuses=Shipped", f.manager).Code)
	})
}

func TestOrderLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.api.Get("/orders/aB3xY9k", f.manager)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, http.StatusNotFound, f.api.Get("/orders/nope", f.manager).Code)

	resp = f.api.Put("/orders/aB3xY9k/status", f.manager, map[string]any{"status": "Payment Received"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var view struct {
		Progress    string `json:"progress"`
		StatusColor string `json:"status_color"`
	}
	decode(t, resp.Body.Bytes(), &view)
	assert.Equal(t, "Payment Received", view.Progress)
	assert.Equal(t, "#31a931", view.StatusColor)

	resp = f.api.Put("/orders/aB3xY9k/status", f.manager, map[string]any{"status": "Shipped"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.api.Delete("/orders/aB3xY9k", f.manager)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, f.book.orders, 2)
	assert.Equal(t, http.StatusNotFound, f.api.Delete("/orders/aB3xY9k", f.manager).Code)
}

func TestExportOrders(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.api.Get("/orders/export?statuses=Delivered", f.manager)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, xlsxContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx 為 zip 格式
	assert.Equal(t, "PK", resp.Body.String()[:2])
}
