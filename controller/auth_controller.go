package controller

import (
	"context"

	"printshop-backend/data-models/auth"
	"printshop-backend/infra"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type AuthController struct {
	logger      zerolog.Logger
	userService *service.UserService
}

func NewAuthController(logger zerolog.Logger, userService *service.UserService) *AuthController {
	return &AuthController{
		logger:      logger.With().Str("module", "auth_controller").Logger(),
		userService: userService,
	}
}

func (c *AuthController) RegisterRoutes(api huma.API) {
	// 用戶登入
	huma.Register(api, huma.Operation{
		OperationID: "user-login",
		Method:      "POST",
		Path:        "/auth/login",
		Summary:     "用戶登入",
		Description: "僅 manager 與 sudo 角色可登入",
		Tags:        []string{"auth"},
	}, func(ctx context.Context, input *auth.LoginInput) (*auth.UserLoginResponse, error) {
		span := trace.SpanFromContext(ctx)

		authCtx, authSpan := infra.StartSpan(ctx, "user_login_controller",
			infra.AttrOperation("user_login"),
			infra.AttrString("auth.email", input.Body.Email),
		)
		defer authSpan.End()

		infra.AddEvent(authSpan, "user_login_started")

		user, token, err := c.userService.Login(authCtx, input.Body.Email, input.Body.Password)
		if err != nil {
			infra.RecordError(authSpan, err, "User login failed",
				infra.AttrString("email", input.Body.Email),
			)

			c.logger.Warn().
				Str("用戶帳號", input.Body.Email).
				Str("錯誤原因", err.Error()).
				Str("trace_id", span.SpanContext().TraceID().String()).
				Msg("用戶登入失敗")
			return nil, toHumaError(err, "登入失敗")
		}

		infra.MarkSuccess(authSpan,
			infra.AttrString("user.id", user.ID),
			infra.AttrString("user.role", string(user.Role)),
		)

		c.logger.Info().
			Str("用戶編號", user.ID).
			Str("用戶帳號", user.Email).
			Str("用戶角色", string(user.Role)).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Msg("用戶登入成功")

		resp := &auth.UserLoginResponse{}
		resp.Body.User = user
		resp.Body.Token = token
		resp.Body.Message = "登入成功"
		return resp, nil
	})
}
