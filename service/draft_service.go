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

	"github.com/rs/zerolog"
)

var (
	ErrInvalidPieceIndex = errors.New("invalid piece index")
	ErrInvalidPieceLine  = errors.New("invalid piece line")
	ErrInvalidImageIndex = errors.New("invalid image index")
	ErrInvalidDeadline   = errors.New("invalid deadline")
	ErrCustomerNotFound  = errors.New("customer not found")
)

// UploadError 上傳失敗，草稿維持原狀
type UploadError struct {
	Kind string // image 或 audio
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s 上傳失敗: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// OrderCreator 提交草稿時使用
type OrderCreator interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
}

// CustomerFields 客戶欄位更新，nil 表示不變
type CustomerFields struct {
	Name        *string
	CountryCode *string
	Phone       *string
}

// PieceLineUpdate 明細更新，nil 表示不變
type PieceLineUpdate struct {
	Type     *model.PieceType
	Quantity *int
	Remarks  *string
}

// DraftService 管理建單草稿：客戶欄位、印件明細、圖片與語音
type DraftService struct {
	logger             zerolog.Logger
	store              DraftStore
	uploader           FileUploader
	customers          CustomerSource
	creator            OrderCreator
	ttl                time.Duration
	defaultCountryCode string
	loc                *time.Location
	now                func() time.Time
}

func NewDraftService(
	logger zerolog.Logger,
	store DraftStore,
	uploader FileUploader,
	customers CustomerSource,
	creator OrderCreator,
	ttl time.Duration,
	defaultCountryCode string,
	loc *time.Location,
) *DraftService {
	if loc == nil {
		loc = time.UTC
	}
	return &DraftService{
		logger:             logger.With().Str("module", "draft_service").Logger(),
		store:              store,
		uploader:           uploader,
		customers:          customers,
		creator:            creator,
		ttl:                ttl,
		defaultCountryCode: defaultCountryCode,
		loc:                loc,
		now:                time.Now,
	}
}

// CreateDraft 空白草稿，交期預設為今天
func (s *DraftService) CreateDraft(ctx context.Context, createdBy string) (*model.DraftOrder, error) {
	now := s.now()
	draft := &model.DraftOrder{
		ID:          utils.GenerateID(),
		CountryCode: s.defaultCountryCode,
		Images:      []string{},
		Pieces:      model.NewPieces(nil),
		DeadlineRaw: utils.FormatISODate(now, s.loc),
		CreatedBy:   createdBy,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, draft, s.ttl); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("draft_id", draft.ID).Str("created_by", createdBy).Msg("草稿已建立 (Draft created)")
	return draft, nil
}

func (s *DraftService) GetDraft(ctx context.Context, id string) (*model.DraftOrder, error) {
	return s.store.Get(ctx, id)
}

func (s *DraftService) update(ctx context.Context, id string, fn func(*model.DraftOrder) error) (*model.DraftOrder, error) {
	return s.store.Update(ctx, id, s.ttl, func(d *model.DraftOrder) error {
		if err := fn(d); err != nil {
			return err
		}
		d.RecomputeTotal()
		d.UpdatedAt = s.now()
		return nil
	})
}

// UpdateCustomer 更新客戶名稱、國碼、電話
func (s *DraftService) UpdateCustomer(ctx context.Context, id string, fields CustomerFields) (*model.DraftOrder, error) {
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		if fields.Name != nil {
			d.CustomerName = *fields.Name
		}
		if fields.CountryCode != nil {
			d.CountryCode = *fields.CountryCode
		}
		if fields.Phone != nil {
			d.Phone = *fields.Phone
		}
		return nil
	})
}

// SuggestCustomers 依草稿目前的客戶名稱給出建議
func (s *DraftService) SuggestCustomers(ctx context.Context, id string) ([]model.Customer, error) {
	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return SuggestCustomers(s.customers.Customers(), draft.CustomerName), nil
}

// SelectCustomer 以選取的客戶覆寫草稿的名稱、電話、國碼
func (s *DraftService) SelectCustomer(ctx context.Context, id, customerID string) (*model.DraftOrder, error) {
	var selected *model.Customer
	for _, c := range s.customers.Customers() {
		if c.ID == customerID {
			c := c
			selected = &c
			break
		}
	}
	if selected == nil {
		return nil, ErrCustomerNotFound
	}
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		ApplySuggestion(d, *selected)
		return nil
	})
}

// ApplySuggestion 覆寫草稿的客戶三欄位
func ApplySuggestion(d *model.DraftOrder, c model.Customer) {
	d.CustomerName = c.Name
	d.Phone = c.Phone
	d.CountryCode = c.CountryCode
}

// AddPieceLine 新增預設明細
func (s *DraftService) AddPieceLine(ctx context.Context, id string) (*model.DraftOrder, error) {
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		d.Pieces.Details = append(d.Pieces.Details, model.DefaultPieceLine())
		return nil
	})
}

// UpdatePieceLine 更新指定明細
func (s *DraftService) UpdatePieceLine(ctx context.Context, id string, index int, upd PieceLineUpdate) (*model.DraftOrder, error) {
	if upd.Type != nil && !upd.Type.IsValid() {
		return nil, fmt.Errorf("印件類型 %q: %w", *upd.Type, ErrInvalidPieceLine)
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return nil, fmt.Errorf("數量必須大於 0: %w", ErrInvalidPieceLine)
	}
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		if index < 0 || index >= len(d.Pieces.Details) {
			return ErrInvalidPieceIndex
		}
		line := &d.Pieces.Details[index]
		if upd.Type != nil {
			line.Type = *upd.Type
		}
		if upd.Quantity != nil {
			line.Quantity = *upd.Quantity
		}
		if upd.Remarks != nil {
			line.Remarks = *upd.Remarks
		}
		return nil
	})
}

// RemovePieceLine 移除指定明細
func (s *DraftService) RemovePieceLine(ctx context.Context, id string, index int) (*model.DraftOrder, error) {
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		if index < 0 || index >= len(d.Pieces.Details) {
			return ErrInvalidPieceIndex
		}
		d.Pieces.Details = append(d.Pieces.Details[:index:index], d.Pieces.Details[index+1:]...)
		return nil
	})
}

// UploadImages 全部上傳成功才加入草稿；任一失敗則清除本次已上傳的檔案
func (s *DraftService) UploadImages(ctx context.Context, id string, files []UploadFile) (*model.DraftOrder, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	start := time.Now()
	urls := make([]string, 0, len(files))
	for _, f := range files {
		res, err := s.uploader.UploadImage(ctx, id, f)
		if err != nil {
			s.logger.Warn().Err(err).Str("draft_id", id).Str("filename", f.Filename).Msg("圖片上傳失敗 (Image upload failed)")
			s.discardUploads(ctx, urls)
			metrics.RecordServiceOperation(metrics.ServiceTypeUpload, metrics.OperationUploadImage, metrics.StatusError, metrics.SourceWeb, time.Since(start))
			return nil, &UploadError{Kind: "image", Err: err}
		}
		urls = append(urls, res.URL)
	}
	metrics.RecordServiceOperation(metrics.ServiceTypeUpload, metrics.OperationUploadImage, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))

	draft, err := s.update(ctx, id, func(d *model.DraftOrder) error {
		d.Images = append(d.Images, urls...)
		return nil
	})
	if err != nil {
		s.discardUploads(ctx, urls)
		return nil, err
	}
	return draft, nil
}

// RemoveImage 移除指定圖片
func (s *DraftService) RemoveImage(ctx context.Context, id string, index int) (*model.DraftOrder, error) {
	var removed string
	draft, err := s.update(ctx, id, func(d *model.DraftOrder) error {
		if index < 0 || index >= len(d.Images) {
			return ErrInvalidImageIndex
		}
		removed = d.Images[index]
		d.Images = append(d.Images[:index:index], d.Images[index+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.discardUploads(ctx, []string{removed})
	return draft, nil
}

// UploadAudio 上傳語音並取代原有語音
func (s *DraftService) UploadAudio(ctx context.Context, id string, file UploadFile) (*model.DraftOrder, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.uploader.UploadAudio(ctx, id, file)
	if err != nil {
		s.logger.Warn().Err(err).Str("draft_id", id).Msg("語音上傳失敗 (Audio upload failed)")
		metrics.RecordServiceOperation(metrics.ServiceTypeUpload, metrics.OperationUploadAudio, metrics.StatusError, metrics.SourceWeb, time.Since(start))
		return nil, &UploadError{Kind: "audio", Err: err}
	}
	metrics.RecordServiceOperation(metrics.ServiceTypeUpload, metrics.OperationUploadAudio, metrics.StatusSuccess, metrics.SourceWeb, time.Since(start))

	var previous string
	draft, err := s.update(ctx, id, func(d *model.DraftOrder) error {
		previous = d.AudioLink
		d.AudioLink = res.URL
		return nil
	})
	if err != nil {
		s.discardUploads(ctx, []string{res.URL})
		return nil, err
	}
	if previous != "" {
		s.discardUploads(ctx, []string{previous})
	}
	return draft, nil
}

// ClearAudio 移除語音
func (s *DraftService) ClearAudio(ctx context.Context, id string) (*model.DraftOrder, error) {
	var previous string
	draft, err := s.update(ctx, id, func(d *model.DraftOrder) error {
		previous = d.AudioLink
		d.AudioLink = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != "" {
		s.discardUploads(ctx, []string{previous})
	}
	return draft, nil
}

// SetDeadline 設定交期（YYYY-MM-DD），空字串表示清除
func (s *DraftService) SetDeadline(ctx context.Context, id, date string) (*model.DraftOrder, error) {
	if date == "" {
		return s.update(ctx, id, func(d *model.DraftOrder) error {
			d.DeadlineRaw = ""
			return nil
		})
	}
	if _, err := utils.ParseISODate(date, s.loc); err != nil {
		return nil, fmt.Errorf("%q: %w", date, ErrInvalidDeadline)
	}
	return s.update(ctx, id, func(d *model.DraftOrder) error {
		d.DeadlineRaw = date
		return nil
	})
}

// Submit 執行建單；成功後刪除草稿，失敗時草稿保留供重送
func (s *DraftService) Submit(ctx context.Context, id string) (*CreateOrderResult, error) {
	ctx, span := infra.StartSpan(ctx, "draft_submit", infra.AttrDraftID(id))
	defer span.End()

	draft, err := s.store.Get(ctx, id)
	if err != nil {
		infra.RecordError(span, err, "draft lookup failed")
		return nil, err
	}

	result, err := s.creator.CreateOrder(ctx, DraftToInput(draft))
	if err != nil {
		infra.RecordError(span, err, "create order failed")
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrDraftNotFound) {
		s.logger.Warn().Err(err).Str("draft_id", id).Msg("刪除已提交草稿失敗 (Failed to delete submitted draft)")
	}
	infra.MarkSuccess(span, infra.AttrOrderID(result.Order.ID))
	return result, nil
}

// DraftToInput 草稿轉為建單輸入
func DraftToInput(d *model.DraftOrder) CreateOrderInput {
	return CreateOrderInput{
		CustomerName: d.CustomerName,
		CountryCode:  d.CountryCode,
		Phone:        d.Phone,
		Images:       d.Images,
		AudioLink:    d.AudioLink,
		Pieces:       d.Pieces.Details,
		DeadlineRaw:  d.DeadlineRaw,
		CreatedBy:    d.CreatedBy,
	}
}

// Discard 放棄草稿並清除已上傳的檔案
func (s *DraftService) Discard(ctx context.Context, id string) error {
	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	urls := append([]string{}, draft.Images...)
	if draft.AudioLink != "" {
		urls = append(urls, draft.AudioLink)
	}
	s.discardUploads(ctx, urls)
	return nil
}

func (s *DraftService) discardUploads(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := s.uploader.DeleteByURL(ctx, u); err != nil {
			s.logger.Warn().Err(err).Str("url", u).Msg("清除上傳檔案失敗")
		}
	}
}
