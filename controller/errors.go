package controller

import (
	"errors"

	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
)

// toHumaError 將服務層錯誤轉為對應的 HTTP 錯誤
func toHumaError(err error, message string) error {
	var validationErr *service.ValidationError
	var uploadErr *service.UploadError

	switch {
	case errors.As(err, &validationErr):
		details := make([]error, 0, len(validationErr.Fields))
		for field, reason := range validationErr.Fields {
			details = append(details, &huma.ErrorDetail{Location: field, Message: reason})
		}
		return huma.Error422UnprocessableEntity(message, details...)
	case errors.Is(err, service.ErrUnsupportedFile):
		return huma.Error400BadRequest("不支援的檔案格式", err)
	case errors.As(err, &uploadErr):
		return huma.Error502BadGateway("檔案上傳失敗", err)
	case errors.Is(err, service.ErrDraftNotFound):
		return huma.Error404NotFound("草稿不存在或已過期", err)
	case errors.Is(err, service.ErrOrderNotFound):
		return huma.Error404NotFound("訂單不存在", err)
	case errors.Is(err, service.ErrCustomerNotFound):
		return huma.Error404NotFound("客戶不存在", err)
	case errors.Is(err, service.ErrInvalidPieceIndex),
		errors.Is(err, service.ErrInvalidImageIndex):
		return huma.Error404NotFound("索引超出範圍", err)
	case errors.Is(err, service.ErrInvalidPieceLine),
		errors.Is(err, service.ErrInvalidDeadline),
		errors.Is(err, service.ErrInvalidStatus):
		return huma.Error400BadRequest(message, err)
	case errors.Is(err, service.ErrTransitionBlocked):
		return huma.Error409Conflict("不允許的狀態變更", err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return huma.Error401Unauthorized("帳號或密碼錯誤", err)
	case errors.Is(err, service.ErrRoleNotAllowed):
		return huma.Error403Forbidden("無訂單管理權限", err)
	default:
		return huma.Error500InternalServerError(message, err)
	}
}
