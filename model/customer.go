package model

// Customer 客戶，去重以 (Name, Phone, CountryCode) 判斷
type Customer struct {
	ID          string   `json:"id" bson:"-" example:"Qw7Er2t" doc:"客戶ID"`
	Name        string   `json:"name" bson:"name" example:"Asha" doc:"名稱"`
	Phone       string   `json:"phone" bson:"phone" example:"9876543210" doc:"電話（不含國碼）"`
	LegacyPhone string   `json:"-" bson:"phone_number,omitempty"`
	CountryCode string   `json:"country_code" bson:"countryCode" example:"+91" doc:"國碼"`
	History     []string `json:"history" bson:"history" doc:"歷史訂單"`
	CreatedAt   int64    `json:"created_at,omitempty" bson:"created_at,omitempty" doc:"建立時間（Unix 毫秒）"`
}

// Normalize 套用舊欄位備援
func (c *Customer) Normalize() {
	if c.Phone == "" {
		c.Phone = c.LegacyPhone
	}
	c.LegacyPhone = ""
}

// SameIdentity 三個欄位完全相同（區分大小寫）
func (c *Customer) SameIdentity(name, phone, countryCode string) bool {
	return c.Name == name && c.Phone == phone && c.CountryCode == countryCode
}
