package model

// PieceLine 單一印件明細
type PieceLine struct {
	Type     PieceType `json:"type" bson:"type" validate:"piece_type" example:"Digital Printing" doc:"印件類型"`
	Quantity int       `json:"quantity" bson:"quantity" validate:"gte=1" example:"1" doc:"數量"`
	Remarks  string    `json:"remarks" bson:"remarks" doc:"備註"`
}

// Pieces 印件總數與明細，TotalQuantity 恆等於明細數量總和
type Pieces struct {
	TotalQuantity int         `json:"number_of_pieces" bson:"number_of_pieces" example:"3" doc:"總件數"`
	Details       []PieceLine `json:"details" bson:"details" validate:"dive" doc:"印件明細"`
}

// NewPieces 依明細計算總數
func NewPieces(details []PieceLine) Pieces {
	if details == nil {
		details = []PieceLine{}
	}
	return Pieces{TotalQuantity: SumQuantity(details), Details: details}
}

// SumQuantity 明細數量總和
func SumQuantity(details []PieceLine) int {
	total := 0
	for _, d := range details {
		total += d.Quantity
	}
	return total
}

// Order 訂單，欄位名稱沿用既有集合的 key
type Order struct {
	ID                string      `json:"id" bson:"-" example:"aB3xY9k" doc:"訂單ID"`
	UUID              string      `json:"uuid" bson:"uuid" doc:"訂單ID（記錄內副本）"`
	CustomerName      string      `json:"customer_name" bson:"customer_name" example:"Asha" doc:"客戶名稱"`
	PhoneNumber       string      `json:"phone_number" bson:"phone_number" example:"+919876543210" doc:"國碼加電話"`
	LegacyPhone       string      `json:"-" bson:"phone,omitempty"`
	Images            []string    `json:"images" bson:"images" doc:"圖片網址"`
	Pieces            Pieces      `json:"pieces" bson:"pieces" doc:"印件"`
	AudioLink         string      `json:"audio_link" bson:"audio_link" doc:"語音備註網址"`
	CreatedDate       string      `json:"order_creation_date" bson:"orderCreationDate" example:"October 17, 2026" doc:"建立日期"`
	CreatedTime       string      `json:"order_creation_time" bson:"orderCreationTime" example:"3:04:05 PM" doc:"建立時間"`
	CreatedAt         int64       `json:"created_at,omitempty" bson:"created_at,omitempty" doc:"建立時間（Unix 毫秒）"`
	Status            OrderStatus `json:"progress" bson:"progress" validate:"order_status" example:"Pre-press" doc:"訂單狀態"`
	DeadlineRaw       string      `json:"deadline_raw" bson:"deadline_raw" example:"2026-10-20" doc:"交期（ISO 日期）"`
	DeadlineFormatted string      `json:"deadline_formatted" bson:"deadline_formatted" example:"October 20, 2026" doc:"交期（顯示用）"`
}

// Phone 訂單電話，舊資料可能只有 phone 欄位
func (o *Order) Phone() string {
	if o.PhoneNumber != "" {
		return o.PhoneNumber
	}
	return o.LegacyPhone
}
