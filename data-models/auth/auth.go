package auth

import (
	"printshop-backend/model"
)

type LoginInput struct {
	Body struct {
		Email    string `json:"email" doc:"電子郵件" example:"manager@printshop.in" format:"email"`
		Password string `json:"password" doc:"密碼" example:"123456" minLength:"1"`
	} `json:"body"`
}

type UserLoginResponse struct {
	Body struct {
		User    *model.User `json:"user"`
		Token   string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
		Message string      `json:"message" example:"登入成功"`
	} `json:"body"`
}
