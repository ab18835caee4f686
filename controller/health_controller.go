package controller

import (
	"context"
	"time"

	"printshop-backend/infra"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// ComponentHealth 單一元件的狀態
type ComponentHealth struct {
	Status    string  `json:"status" example:"healthy"`
	LatencyMs float64 `json:"latency_ms" example:"1.23"`
	Error     string  `json:"error,omitempty"`
}

type HealthResponse struct {
	Body struct {
		Status     string                     `json:"status" example:"ok"`
		Version    string                     `json:"version" example:"1.0.0"`
		Components map[string]ComponentHealth `json:"components"`
		Orders     int                        `json:"orders" doc:"訂單鏡像筆數"`
		Customers  int                        `json:"customers" doc:"客戶鏡像筆數"`
	}
}

// HealthCheck 一個元件的檢查，回傳 nil 表示正常
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	logger    zerolog.Logger
	checks    map[string]HealthCheck
	orders    interface{ Len() int }
	customers interface{ Len() int }
}

func NewHealthController(logger zerolog.Logger, checks map[string]HealthCheck, orders, customers interface{ Len() int }) *HealthController {
	return &HealthController{
		logger:    logger.With().Str("module", "health_controller").Logger(),
		checks:    checks,
		orders:    orders,
		customers: customers,
	}
}

// Check 依序檢查所有元件
func (c *HealthController) Check(ctx context.Context) map[string]ComponentHealth {
	out := make(map[string]ComponentHealth, len(c.checks))
	for name, check := range c.checks {
		start := time.Now()
		err := check(ctx)
		h := ComponentHealth{Status: "healthy", LatencyMs: float64(time.Since(start).Nanoseconds()) / 1e6}
		if err != nil {
			h.Status = "unhealthy"
			h.Error = err.Error()
		}
		out[name] = h
	}
	return out
}

func (c *HealthController) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      "GET",
		Path:        "/health",
		Summary:     "健康檢查",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		resp.Body.Version = infra.AppConfig.App.AppVersion
		resp.Body.Components = c.Check(ctx)
		for name, h := range resp.Body.Components {
			if h.Status != "healthy" {
				resp.Body.Status = "degraded"
				c.logger.Warn().Str("component", name).Str("error", h.Error).Msg("元件狀態異常")
			}
		}
		if c.orders != nil {
			resp.Body.Orders = c.orders.Len()
		}
		if c.customers != nil {
			resp.Body.Customers = c.customers.Len()
		}
		return resp, nil
	})
}
