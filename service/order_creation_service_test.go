package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"
	"printshop-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedFailure struct {
	order    model.Order
	customer model.Customer
	cause    error
}

type fakeFailureHandler struct {
	calls []recordedFailure
}

func (f *fakeFailureHandler) HandleCustomerWriteFailure(_ context.Context, order model.Order, customer model.Customer, cause error) {
	f.calls = append(f.calls, recordedFailure{order, customer, cause})
}

type fakeNotifier struct {
	orders  []model.Order
	created []bool
}

func (f *fakeNotifier) NotifyOrderCreated(_ context.Context, order model.Order, customerCreated bool) {
	f.orders = append(f.orders, order)
	f.created = append(f.created, customerCreated)
}

type creationFixture struct {
	store     *memStore
	customers *CustomerDirectory
	orders    *OrderDirectory
	failures  *fakeFailureHandler
	notifier  *fakeNotifier
	service   *OrderCreationService
	now       time.Time
}

func newCreationFixture(t *testing.T) *creationFixture {
	t.Helper()
	store := newMemStore()
	store.seed(infra.CollectionCustomers, "asha001", model.Customer{
		Name: "Asha", Phone: "9876543210", CountryCode: "+91", History: []string{},
	})

	customers := NewCustomerDirectory(testLogger, store)
	require.NoError(t, customers.Start(context.Background()))
	orders := NewOrderDirectory(testLogger, store, time.UTC)
	require.NoError(t, orders.Start(context.Background()))

	f := &creationFixture{
		store:     store,
		customers: customers,
		orders:    orders,
		failures:  &fakeFailureHandler{},
		notifier:  &fakeNotifier{},
		now:       time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC),
	}
	f.service = NewOrderCreationService(testLogger, store, customers, orders, f.failures, f.notifier, time.UTC, 5)
	f.service.now = func() time.Time { return f.now }
	return f
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName: "Asha",
		CountryCode:  "+91",
		Phone:        "9876543210",
		Images:       []string{"http://localhost/uploads/images/d/a.png"},
		Pieces: []model.PieceLine{
			{Type: model.PieceTypeDigitalPrinting, Quantity: 2, Remarks: "A4"},
			{Type: model.PieceTypePackaging, Quantity: 1},
		},
		DeadlineRaw: "2026-10-20",
		CreatedBy:   "manager@example.com",
	}
}

func TestCreateOrderComposesRecord(t *testing.T) {
	f := newCreationFixture(t)

	result, err := f.service.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	o := result.Order
	assert.True(t, utils.IsValidID(o.ID))
	assert.Equal(t, o.ID, o.UUID)
	assert.Equal(t, "+919876543210", o.PhoneNumber)
	assert.Equal(t, 3, o.Pieces.TotalQuantity)
	assert.Equal(t, model.OrderStatusPrePress, o.Status)
	assert.Equal(t, "October 17, 2026", o.CreatedDate)
	assert.Equal(t, "3:04:05 PM", o.CreatedTime)
	assert.Equal(t, f.now.UnixMilli(), o.CreatedAt)
	assert.Equal(t, "2026-10-20", o.DeadlineRaw)
	assert.Equal(t, "October 20, 2026", o.DeadlineFormatted)
	assert.Equal(t, OrdersRedirect, result.Redirect)

	// 訂閱推送後鏡像已有新訂單
	assert.True(t, f.orders.Contains(o.ID))
	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, o.ID, f.notifier.orders[0].ID)
}

func TestCreateOrderDefaultsDeadlineToToday(t *testing.T) {
	f := newCreationFixture(t)
	in := validInput()
	in.DeadlineRaw = ""

	result, err := f.service.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", result.Order.DeadlineRaw)
	assert.Equal(t, "October 17, 2026", result.Order.DeadlineFormatted)
}

func TestCreateOrderCustomerDeduplication(t *testing.T) {
	t.Run("相同三欄位不新增客戶", func(t *testing.T) {
		f := newCreationFixture(t)
		result, err := f.service.CreateOrder(context.Background(), validInput())
		require.NoError(t, err)
		assert.False(t, result.CustomerCreated)
		assert.Equal(t, 1, f.store.count(infra.CollectionCustomers))
		assert.Equal(t, []bool{false}, f.notifier.created)
	})

	t.Run("電話不同則新增客戶", func(t *testing.T) {
		f := newCreationFixture(t)
		in := validInput()
		in.Phone = "9876543211"

		result, err := f.service.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, result.CustomerCreated)
		assert.Equal(t, 2, f.store.count(infra.CollectionCustomers))
		assert.True(t, IsDuplicateCustomer(f.customers.Customers(), "Asha", "9876543211", "+91"))

		for _, c := range f.customers.Customers() {
			if c.Phone == "9876543211" {
				assert.True(t, utils.IsValidID(c.ID))
				assert.Equal(t, []string{}, c.History)
			}
		}
	})

	t.Run("連續提交相同新客戶只新增一次", func(t *testing.T) {
		f := newCreationFixture(t)
		in := validInput()
		in.CustomerName = "Ravi"

		_, err := f.service.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		second, err := f.service.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, second.CustomerCreated)
		assert.Equal(t, 2, f.store.count(infra.CollectionCustomers))
		assert.Equal(t, 2, f.store.count(infra.CollectionOrders))
	})
}

func TestCreateOrderWriteFailures(t *testing.T) {
	t.Run("訂單寫入失敗時不寫客戶", func(t *testing.T) {
		f := newCreationFixture(t)
		f.store.writeErr[infra.CollectionOrders] = errors.New("unavailable")
		in := validInput()
		in.Phone = "9000000000"

		result, err := f.service.CreateOrder(context.Background(), in)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, 0, f.store.inserts)
		assert.Equal(t, 1, f.store.count(infra.CollectionCustomers))
		assert.Empty(t, f.notifier.orders)
	})

	t.Run("客戶寫入失敗仍回傳成功並交給 outbox", func(t *testing.T) {
		f := newCreationFixture(t)
		f.store.insertErr = errors.New("timeout")
		in := validInput()
		in.Phone = "9000000000"

		result, err := f.service.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, result.CustomerCreated)
		assert.Equal(t, 1, f.store.count(infra.CollectionOrders))

		require.Len(t, f.failures.calls, 1)
		call := f.failures.calls[0]
		assert.Equal(t, result.Order.ID, call.order.ID)
		assert.Equal(t, "9000000000", call.customer.Phone)
		assert.EqualError(t, call.cause, "timeout")
	})
}

func TestCreateOrderValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"空白名稱", func(in *CreateOrderInput) { in.CustomerName = "  " }},
		{"缺少電話", func(in *CreateOrderInput) { in.Phone = "" }},
		{"缺少國碼", func(in *CreateOrderInput) { in.CountryCode = "" }},
		{"數量為零", func(in *CreateOrderInput) { in.Pieces[0].Quantity = 0 }},
		{"未知印件類型", func(in *CreateOrderInput) { in.Pieces[1].Type = "Vinyl" }},
		{"交期格式錯誤", func(in *CreateOrderInput) { in.DeadlineRaw = "20/10/2026" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCreationFixture(t)
			in := validInput()
			tc.mutate(&in)

			_, err := f.service.CreateOrder(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOrder))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.NotEmpty(t, ve.Fields)
			assert.Equal(t, 0, f.store.writes)
		})
	}
}
