package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printshop-backend/infra"
	"printshop-backend/metrics"
	"printshop-backend/model"
	"printshop-backend/utils"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

// OrdersRedirect 建單完成後前往的頁面
const OrdersRedirect = "/orders"

// ErrInvalidOrder 草稿未通過驗證
var ErrInvalidOrder = errors.New("invalid order")

// CreateOrderInput 建單所需的草稿內容
type CreateOrderInput struct {
	CustomerName string   `validate:"notblank"`
	CountryCode  string   `validate:"required"`
	Phone        string   `validate:"notblank"`
	Images       []string `validate:"dive,required"`
	AudioLink    string
	Pieces       []model.PieceLine `validate:"dive"`
	DeadlineRaw  string            `validate:"omitempty,iso_date"`
	CreatedBy    string
}

// CreateOrderResult 客戶寫入失敗不會反映在結果中
type CreateOrderResult struct {
	Order           model.Order
	CustomerCreated bool
	Redirect        string
}

// ValidationError 帶欄位資訊的驗證錯誤
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("訂單驗證失敗: %v", e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// IDChecker 查詢鏡像中是否已有此 ID
type IDChecker interface {
	Contains(id string) bool
}

// CustomerWriteFailureHandler 處理訂單已寫入但客戶寫入失敗的情況
type CustomerWriteFailureHandler interface {
	HandleCustomerWriteFailure(ctx context.Context, order model.Order, customer model.Customer, cause error)
}

// OrderCreatedNotifier 建單成功後的通知（Discord 等），失敗不影響建單
type OrderCreatedNotifier interface {
	NotifyOrderCreated(ctx context.Context, order model.Order, customerCreated bool)
}

// OrderNotifiers 依序通知多個 notifier
type OrderNotifiers []OrderCreatedNotifier

func (n OrderNotifiers) NotifyOrderCreated(ctx context.Context, order model.Order, customerCreated bool) {
	for _, notifier := range n {
		notifier.NotifyOrderCreated(ctx, order, customerCreated)
	}
}

// OrderCreationService 寫入訂單，並在客戶不存在時新增客戶
type OrderCreationService struct {
	logger        zerolog.Logger
	store         infra.DocumentStore
	customers     CustomerSource
	customerIDs   IDChecker
	orderIDs      IDChecker
	failures      CustomerWriteFailureHandler
	notifier      OrderCreatedNotifier
	validate      *validatorv10.Validate
	loc           *time.Location
	idMaxAttempts int
	now           func() time.Time
}

// CustomerDirectoryView 同時提供客戶列表與 ID 查詢
type CustomerDirectoryView interface {
	CustomerSource
	IDChecker
}

func NewOrderCreationService(
	logger zerolog.Logger,
	store infra.DocumentStore,
	customers CustomerDirectoryView,
	orders IDChecker,
	failures CustomerWriteFailureHandler,
	notifier OrderCreatedNotifier,
	loc *time.Location,
	idMaxAttempts int,
) *OrderCreationService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderCreationService{
		logger:        logger.With().Str("module", "order_creation_service").Logger(),
		store:         store,
		customers:     customers,
		customerIDs:   customers,
		orderIDs:      orders,
		failures:      failures,
		notifier:      notifier,
		validate:      utils.NewValidator(),
		loc:           loc,
		idMaxAttempts: idMaxAttempts,
		now:           time.Now,
	}
}

// ComposeOrder 依草稿組出訂單記錄（不寫入）
func (s *OrderCreationService) ComposeOrder(id string, in CreateOrderInput, now time.Time) (model.Order, error) {
	deadline := now
	if in.DeadlineRaw != "" {
		d, err := utils.ParseISODate(in.DeadlineRaw, s.loc)
		if err != nil {
			return model.Order{}, fmt.Errorf("交期格式錯誤: %w", err)
		}
		deadline = d
	}

	images := append([]string{}, in.Images...)
	details := append([]model.PieceLine{}, in.Pieces...)

	return model.Order{
		ID:                id,
		UUID:              id,
		CustomerName:      in.CustomerName,
		PhoneNumber:       in.CountryCode + in.Phone,
		Images:            images,
		Pieces:            model.NewPieces(details),
		AudioLink:         in.AudioLink,
		CreatedDate:       utils.FormatDisplayDate(now, s.loc),
		CreatedTime:       utils.FormatDisplayTime(now, s.loc),
		CreatedAt:         utils.ToUnixMilli(now),
		Status:            model.InitialOrderStatus,
		DeadlineRaw:       utils.FormatISODate(deadline, s.loc),
		DeadlineFormatted: utils.FormatDisplayDate(deadline, s.loc),
	}, nil
}

// CreateOrder 先寫入訂單；成功後才依去重結果新增客戶。
// 客戶寫入失敗交由 CustomerWriteFailureHandler 處理，呼叫端仍收到成功結果。
func (s *OrderCreationService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	start := time.Now()
	ctx, span := infra.StartSpan(ctx, "order_creation_create", infra.AttrOperation("create_order"))
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		infra.RecordError(span, err, "validation failed")
		return nil, &ValidationError{Fields: utils.ValidationErrorsToMap(err)}
	}

	// 送出當下的客戶鏡像
	customersAtSubmit := s.customers.Customers()

	orderID := utils.GenerateUniqueID(s.orderIDs.Contains, s.idMaxAttempts)
	order, err := s.ComposeOrder(orderID, in, s.now())
	if err != nil {
		infra.RecordError(span, err, "compose failed")
		return nil, &ValidationError{Fields: map[string]string{"DeadlineRaw": err.Error()}}
	}
	if err := s.validate.Struct(order); err != nil {
		infra.RecordError(span, err, "composed order invalid")
		return nil, &ValidationError{Fields: utils.ValidationErrorsToMap(err)}
	}
	span.SetAttributes(infra.AttrOrderID(orderID))

	if err := s.store.Write(ctx, infra.CollectionOrders, orderID, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("寫入訂單失敗 (Failed to write order)")
		infra.RecordError(span, err, "order write failed")
		metrics.RecordOrderOperation(metrics.OperationCreate, metrics.StatusError, metrics.SourceWeb, time.Since(start))
		return nil, fmt.Errorf("寫入訂單失敗: %w", err)
	}
	infra.AddEvent(span, "order_persisted")

	s.logger.Info().
		Str("order_id", orderID).
		Str("customer_name", order.CustomerName).
		Int("total_quantity", order.Pieces.TotalQuantity).
		Str("created_by", in.CreatedBy).
		Msg("訂單已建立 (Order created)")

	customerCreated := false
	if !IsDuplicateCustomer(customersAtSubmit, in.CustomerName, in.Phone, in.CountryCode) {
		customer := NewCustomerRecord(utils.GenerateUniqueID(s.customerIDs.Contains, s.idMaxAttempts),
			in.CustomerName, in.Phone, in.CountryCode, s.now())
		inserted, err := UpsertCustomer(ctx, s.store, customer)
		if err != nil {
			s.logger.Error().Err(err).
				Str("order_id", orderID).
				Str("customer_id", customer.ID).
				Msg("新增客戶失敗，訂單已保留 (Customer write failed, order kept)")
			infra.AddEvent(span, "customer_write_failed", infra.AttrString("error", err.Error()))
			metrics.RecordCustomerWriteFailure("create")
			if s.failures != nil {
				s.failures.HandleCustomerWriteFailure(ctx, order, customer, err)
			}
		} else {
			customerCreated = inserted
			metrics.RecordServiceOperation(metrics.ServiceTypeCustomer, metrics.OperationUpsert,
				upsertStatus(inserted), metrics.SourceWeb, time.Since(start))
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyOrderCreated(ctx, order, customerCreated)
	}

	infra.MarkSuccess(span, infra.AttrBool("customer.created", customerCreated))
	metrics.RecordOrderOperation(metrics.OperationCreate, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))

	return &CreateOrderResult{
		Order:           order,
		CustomerCreated: customerCreated,
		Redirect:        OrdersRedirect,
	}, nil
}

func upsertStatus(inserted bool) metrics.OperationStatus {
	if inserted {
		return metrics.StatusSuccess
	}
	return metrics.StatusSkipped
}

// NewCustomerRecord 新客戶記錄，歷史為空
func NewCustomerRecord(id, name, phone, countryCode string, now time.Time) model.Customer {
	return model.Customer{
		ID:          id,
		Name:        name,
		Phone:       phone,
		CountryCode: countryCode,
		History:     []string{},
		CreatedAt:   utils.ToUnixMilli(now),
	}
}

// UpsertCustomer 以三欄位為鍵寫入，已存在相同客戶時不新增
func UpsertCustomer(ctx context.Context, store infra.DocumentStore, c model.Customer) (bool, error) {
	match := bson.D{
		{Key: "name", Value: c.Name},
		{Key: "phone", Value: c.Phone},
		{Key: "countryCode", Value: c.CountryCode},
	}
	return store.InsertIfAbsent(ctx, infra.CollectionCustomers, match, c.ID, c)
}
