package draft

import (
	"mime/multipart"

	"printshop-backend/model"
)

type DraftIDInput struct {
	ID string `path:"id" doc:"草稿ID"`
}

type DraftResponse struct {
	Body *model.DraftOrder
}

type UpdateCustomerInput struct {
	ID   string `path:"id" doc:"草稿ID"`
	Body struct {
		Name        *string `json:"name,omitempty" doc:"客戶名稱" example:"Asha"`
		CountryCode *string `json:"country_code,omitempty" doc:"國碼" example:"+91"`
		Phone       *string `json:"phone,omitempty" doc:"電話" example:"9876543210"`
	}
}

type SuggestionsResponse struct {
	Body struct {
		Customers []model.Customer `json:"customers"`
	}
}

type SelectCustomerInput struct {
	ID   string `path:"id" doc:"草稿ID"`
	Body struct {
		CustomerID string `json:"customer_id" doc:"客戶ID" minLength:"1"`
	}
}

type PieceIndexInput struct {
	ID    string `path:"id" doc:"草稿ID"`
	Index int    `path:"index" doc:"明細索引（從 0 開始）"`
}

type UpdatePieceInput struct {
	ID    string `path:"id" doc:"草稿ID"`
	Index int    `path:"index" doc:"明細索引（從 0 開始）"`
	Body  struct {
		Type     *model.PieceType `json:"type,omitempty" doc:"印件類型" example:"Offset Printing"`
		Quantity *int             `json:"quantity,omitempty" doc:"數量" example:"100"`
		Remarks  *string          `json:"remarks,omitempty" doc:"備註"`
	}
}

// UploadImagesInput 欄位名 images，可多檔
type UploadImagesInput struct {
	ID      string         `path:"id" doc:"草稿ID"`
	RawBody multipart.Form `contentType:"multipart/form-data"`
}

// UploadAudioInput 欄位名 audio
type UploadAudioInput struct {
	ID      string         `path:"id" doc:"草稿ID"`
	RawBody multipart.Form `contentType:"multipart/form-data"`
}

type ImageIndexInput struct {
	ID    string `path:"id" doc:"草稿ID"`
	Index int    `path:"index" doc:"圖片索引（從 0 開始）"`
}

type SetDeadlineInput struct {
	ID   string `path:"id" doc:"草稿ID"`
	Body struct {
		Deadline string `json:"deadline" doc:"交期（YYYY-MM-DD），空字串表示清除" example:"2024-01-20"`
	}
}

type SubmitResponse struct {
	Body struct {
		Order           model.Order `json:"order"`
		CustomerCreated bool        `json:"customer_created" doc:"是否新增客戶"`
		Redirect        string      `json:"redirect" example:"/orders"`
	}
}
