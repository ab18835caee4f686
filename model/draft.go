package model

import "time"

// DraftOrder 建單中的草稿，提交前只存在 Redis
type DraftOrder struct {
	ID           string    `json:"id" doc:"草稿ID"`
	CustomerName string    `json:"customer_name" doc:"客戶名稱"`
	CountryCode  string    `json:"country_code" doc:"國碼"`
	Phone        string    `json:"phone" doc:"電話（不含國碼）"`
	Images       []string  `json:"images" doc:"已上傳圖片"`
	AudioLink    string    `json:"audio_link" doc:"語音備註"`
	Pieces       Pieces    `json:"pieces" doc:"印件"`
	DeadlineRaw  string    `json:"deadline_raw" doc:"交期（YYYY-MM-DD）"`
	CreatedBy    string    `json:"created_by,omitempty" doc:"建立者"`
	UpdatedAt    time.Time `json:"updated_at" doc:"最後更新"`
}

// DefaultPieceLine 新增明細時的預設值
func DefaultPieceLine() PieceLine {
	return PieceLine{Type: PieceTypeDigitalPrinting, Quantity: 1, Remarks: ""}
}

// RecomputeTotal 重新計算總件數
func (d *DraftOrder) RecomputeTotal() {
	d.Pieces = NewPieces(d.Pieces.Details)
}
