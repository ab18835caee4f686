package controller

import (
	"context"
	"mime/multipart"

	"printshop-backend/auth"
	"printshop-backend/data-models/common"
	"printshop-backend/data-models/draft"
	"printshop-backend/infra"
	"printshop-backend/middleware"
	"printshop-backend/model"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// DraftController 建單流程：草稿的建立、編輯與提交
type DraftController struct {
	logger         zerolog.Logger
	draftService   *service.DraftService
	authMiddleware *middleware.UserAuthMiddleware
}

func NewDraftController(logger zerolog.Logger, draftService *service.DraftService, authMiddleware *middleware.UserAuthMiddleware) *DraftController {
	return &DraftController{
		logger:         logger.With().Str("module", "draft_controller").Logger(),
		draftService:   draftService,
		authMiddleware: authMiddleware,
	}
}

func draftResponse(d *model.DraftOrder, err error, message string) (*draft.DraftResponse, error) {
	if err != nil {
		return nil, toHumaError(err, message)
	}
	return &draft.DraftResponse{Body: d}, nil
}

// openUploads 開啟表單檔案，回傳的 closer 需在使用後呼叫
func openUploads(headers []*multipart.FileHeader) ([]service.UploadFile, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	uploads := make([]service.UploadFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, service.UploadFile{Reader: f, Filename: h.Filename, Size: h.Size})
	}
	return uploads, closeAll, nil
}

func (c *DraftController) RegisterRoutes(api huma.API) {
	security := []map[string][]string{{"bearerAuth": {}}}
	mw := huma.Middlewares{c.authMiddleware.Auth()}

	huma.Register(api, huma.Operation{
		OperationID: "create-draft",
		Method:      "POST",
		Path:        "/drafts",
		Summary:     "開始建立訂單",
		Description: "建立空白草稿，預設國碼，交期預設為今天",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *struct{}) (*draft.DraftResponse, error) {
		d, err := c.draftService.CreateDraft(ctx, auth.UserEmailFromContext(ctx))
		return draftResponse(d, err, "建立草稿失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-draft",
		Method:      "GET",
		Path:        "/drafts/{id}",
		Summary:     "取得草稿",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.GetDraft(ctx, input.ID)
		return draftResponse(d, err, "取得草稿失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "discard-draft",
		Method:      "DELETE",
		Path:        "/drafts/{id}",
		Summary:     "放棄草稿",
		Description: "刪除草稿與已上傳的檔案",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*common.MessageOutput, error) {
		if err := c.draftService.Discard(ctx, input.ID); err != nil {
			return nil, toHumaError(err, "放棄草稿失敗")
		}
		return common.NewMessageOutput("草稿已刪除"), nil
	})

	// 客戶欄位
	huma.Register(api, huma.Operation{
		OperationID: "update-draft-customer",
		Method:      "PUT",
		Path:        "/drafts/{id}/customer",
		Summary:     "更新客戶欄位",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.UpdateCustomerInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.UpdateCustomer(ctx, input.ID, service.CustomerFields{
			Name:        input.Body.Name,
			CountryCode: input.Body.CountryCode,
			Phone:       input.Body.Phone,
		})
		return draftResponse(d, err, "更新客戶欄位失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "draft-customer-suggestions",
		Method:      "GET",
		Path:        "/drafts/{id}/suggestions",
		Summary:     "依目前客戶名稱取得建議",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*draft.SuggestionsResponse, error) {
		customers, err := c.draftService.SuggestCustomers(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err, "取得建議失敗")
		}
		resp := &draft.SuggestionsResponse{}
		resp.Body.Customers = customers
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "select-draft-customer",
		Method:      "POST",
		Path:        "/drafts/{id}/select-customer",
		Summary:     "選擇建議客戶",
		Description: "以客戶的名稱、國碼與電話覆寫草稿",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.SelectCustomerInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.SelectCustomer(ctx, input.ID, input.Body.CustomerID)
		return draftResponse(d, err, "選擇客戶失敗")
	})

	// 印件明細
	huma.Register(api, huma.Operation{
		OperationID: "add-draft-piece",
		Method:      "POST",
		Path:        "/drafts/{id}/pieces",
		Summary:     "新增印件明細",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.AddPieceLine(ctx, input.ID)
		return draftResponse(d, err, "新增明細失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-draft-piece",
		Method:      "PUT",
		Path:        "/drafts/{id}/pieces/{index}",
		Summary:     "更新印件明細",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.UpdatePieceInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.UpdatePieceLine(ctx, input.ID, input.Index, service.PieceLineUpdate{
			Type:     input.Body.Type,
			Quantity: input.Body.Quantity,
			Remarks:  input.Body.Remarks,
		})
		return draftResponse(d, err, "更新明細失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-draft-piece",
		Method:      "DELETE",
		Path:        "/drafts/{id}/pieces/{index}",
		Summary:     "移除印件明細",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.PieceIndexInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.RemovePieceLine(ctx, input.ID, input.Index)
		return draftResponse(d, err, "移除明細失敗")
	})

	// 圖片
	huma.Register(api, huma.Operation{
		OperationID: "upload-draft-images",
		Method:      "POST",
		Path:        "/drafts/{id}/images",
		Summary:     "上傳圖片",
		Description: "表單欄位 images，可多檔；任一檔失敗時草稿不變",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.UploadImagesInput) (*draft.DraftResponse, error) {
		ctx, span := infra.StartControllerSpan(ctx, "draft", "upload_images", infra.AttrDraftID(input.ID))
		defer span.End()

		headers := input.RawBody.File["images"]
		if len(headers) == 0 {
			return nil, huma.Error400BadRequest("缺少名為 'images' 的檔案")
		}

		uploads, closeAll, err := openUploads(headers)
		if err != nil {
			infra.RecordControllerError(span, err, "open upload failed")
			return nil, huma.Error500InternalServerError("伺服器錯誤，無法處理檔案", err)
		}
		defer closeAll()

		d, err := c.draftService.UploadImages(ctx, input.ID, uploads)
		if err != nil {
			infra.RecordControllerError(span, err, "upload images failed")
			c.logger.Error().Err(err).Str("draft_id", input.ID).Int("files", len(uploads)).Msg("圖片上傳失敗")
			return nil, toHumaError(err, "圖片上傳失敗")
		}
		infra.RecordControllerSuccess(span, infra.AttrInt("images.count", len(d.Images)))
		return &draft.DraftResponse{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-draft-image",
		Method:      "DELETE",
		Path:        "/drafts/{id}/images/{index}",
		Summary:     "移除圖片",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.ImageIndexInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.RemoveImage(ctx, input.ID, input.Index)
		return draftResponse(d, err, "移除圖片失敗")
	})

	// 語音
	huma.Register(api, huma.Operation{
		OperationID: "upload-draft-audio",
		Method:      "POST",
		Path:        "/drafts/{id}/audio",
		Summary:     "上傳語音備註",
		Description: "表單欄位 audio；取代既有語音",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.UploadAudioInput) (*draft.DraftResponse, error) {
		ctx, span := infra.StartControllerSpan(ctx, "draft", "upload_audio", infra.AttrDraftID(input.ID))
		defer span.End()

		headers := input.RawBody.File["audio"]
		if len(headers) == 0 {
			return nil, huma.Error400BadRequest("缺少名為 'audio' 的檔案")
		}

		uploads, closeAll, err := openUploads(headers[:1])
		if err != nil {
			infra.RecordControllerError(span, err, "open upload failed")
			return nil, huma.Error500InternalServerError("伺服器錯誤，無法處理檔案", err)
		}
		defer closeAll()

		d, err := c.draftService.UploadAudio(ctx, input.ID, uploads[0])
		if err != nil {
			infra.RecordControllerError(span, err, "upload audio failed")
			c.logger.Error().Err(err).Str("draft_id", input.ID).Msg("語音上傳失敗")
			return nil, toHumaError(err, "語音上傳失敗")
		}
		infra.RecordControllerSuccess(span)
		return &draft.DraftResponse{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-draft-audio",
		Method:      "DELETE",
		Path:        "/drafts/{id}/audio",
		Summary:     "移除語音備註",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.ClearAudio(ctx, input.ID)
		return draftResponse(d, err, "移除語音失敗")
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-draft-deadline",
		Method:      "PUT",
		Path:        "/drafts/{id}/deadline",
		Summary:     "設定交期",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.SetDeadlineInput) (*draft.DraftResponse, error) {
		d, err := c.draftService.SetDeadline(ctx, input.ID, input.Body.Deadline)
		return draftResponse(d, err, "設定交期失敗")
	})

	// 提交
	huma.Register(api, huma.Operation{
		OperationID: "submit-draft",
		Method:      "POST",
		Path:        "/drafts/{id}/submit",
		Summary:     "送出訂單",
		Description: "寫入訂單後，若客戶不存在則新增客戶；成功後導向訂單列表",
		Tags:        []string{"drafts"},
		Middlewares: mw,
		Security:    security,
	}, func(ctx context.Context, input *draft.DraftIDInput) (*draft.SubmitResponse, error) {
		ctx, span := infra.StartControllerSpan(ctx, "draft", "submit", infra.AttrDraftID(input.ID))
		defer span.End()

		result, err := c.draftService.Submit(ctx, input.ID)
		if err != nil {
			infra.RecordControllerError(span, err, "submit draft failed")
			c.logger.Warn().Err(err).Str("draft_id", input.ID).Msg("送出訂單失敗")
			return nil, toHumaError(err, "送出訂單失敗")
		}

		infra.RecordControllerSuccess(span,
			infra.AttrOrderID(result.Order.ID),
			infra.AttrBool("customer.created", result.CustomerCreated),
		)
		c.logger.Info().
			Str("order_id", result.Order.ID).
			Str("customer", result.Order.CustomerName).
			Bool("customer_created", result.CustomerCreated).
			Msg("訂單建立成功")

		resp := &draft.SubmitResponse{}
		resp.Body.Order = result.Order
		resp.Body.CustomerCreated = result.CustomerCreated
		resp.Body.Redirect = result.Redirect
		return resp, nil
	})
}
