package model

// User 後台使用者，密碼沿用既有資料以明文儲存
type User struct {
	ID       string   `json:"id" bson:"-" example:"684a73ad0e3a583c37e4b30d" doc:"用戶ID"`
	Name     string   `json:"name" bson:"name" example:"Vamsi" doc:"姓名"`
	Email    string   `json:"email" bson:"email" example:"manager@shop.in" doc:"電子郵件"`
	Password string   `json:"-" bson:"password" doc:"密碼"`
	Role     UserRole `json:"role" bson:"role" example:"manager" doc:"角色"`
}
