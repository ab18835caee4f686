package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"printshop-backend/auth"
	"printshop-backend/model"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// UserGetter 依 ID 取得用戶
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type UserAuthMiddleware struct {
	logger       zerolog.Logger
	users        UserGetter
	jwtSecretKey string
}

func NewUserAuthMiddleware(logger zerolog.Logger, users UserGetter, jwtSecretKey string) *UserAuthMiddleware {
	return &UserAuthMiddleware{
		logger:       logger.With().Str("module", "user_auth").Logger(),
		users:        users,
		jwtSecretKey: jwtSecretKey,
	}
}

func writeUnauthorized(ctx huma.Context, status int, message, detail string) {
	ctx.SetStatus(status)
	ctx.SetHeader("Content-Type", "application/json")
	body, _ := json.Marshal(map[string]interface{}{"code": status, "message": message, "detail": detail})
	ctx.BodyWriter().Write(body)
}

// Auth 驗證 Bearer token 並把用戶放入 context
func (m *UserAuthMiddleware) Auth() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			writeUnauthorized(ctx, http.StatusUnauthorized, "缺少授權標頭", "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeUnauthorized(ctx, http.StatusUnauthorized, "無效的授權格式", "invalid authorization format")
			return
		}

		userID, _, err := auth.ValidateUserToken(parts[1], m.jwtSecretKey)
		if err != nil {
			writeUnauthorized(ctx, http.StatusUnauthorized, "無效的token", err.Error())
			return
		}

		user, err := m.users.GetUserByID(ctx.Context(), userID)
		if err != nil {
			writeUnauthorized(ctx, http.StatusUnauthorized, "用戶不存在", err.Error())
			return
		}
		if !user.Role.CanManageOrders() {
			writeUnauthorized(ctx, http.StatusForbidden, "無訂單管理權限", "role not allowed")
			return
		}

		m.logger.Debug().
			Str("user_id", user.ID).
			Str("role", string(user.Role)).
			Str("operation", ctx.Operation().OperationID).
			Msg("JWT 驗證成功 (Token verified)")

		next(huma.WithValue(ctx, auth.ContextKeyUser, user))
	}
}
