package auth

import (
	"context"
	"errors"

	"printshop-backend/model"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKeyUser huma context 中存放用戶的 key
const ContextKeyUser = "user"

var (
	ErrUserNotFound = errors.New("user not found in context")
	ErrInvalidUser  = errors.New("invalid user type in context")
)

func GetUserFromContext(ctx context.Context) (*model.User, error) {
	userValue := ctx.Value(ContextKeyUser)
	if userValue == nil {
		return nil, ErrUserNotFound
	}

	user, ok := userValue.(*model.User)
	if !ok {
		return nil, ErrInvalidUser
	}

	return user, nil
}

// UserEmailFromContext 取不到用戶時回傳空字串
func UserEmailFromContext(ctx context.Context) string {
	user, err := GetUserFromContext(ctx)
	if err != nil {
		return ""
	}
	return user.Email
}

// JWT 驗證相關的通用錯誤
var (
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidTokenType        = errors.New("invalid token type")
	ErrMissingUserID           = errors.New("missing user_id in token")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
)

// ValidateUserToken 驗證簽章與 token 類型，回傳 user_id
func ValidateUserToken(tokenString string, jwtSecretKey string) (string, jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return []byte(jwtSecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, ErrInvalidToken
	}
	if t, _ := claims["type"].(string); t != string(model.TokenTypeUser) {
		return "", nil, ErrInvalidTokenType
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", nil, ErrMissingUserID
	}
	return userID, claims, nil
}
