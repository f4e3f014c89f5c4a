package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/persona-chat/utils/log"
)

type RouterConfig struct {
	// RateLimit is requests per second per client IP on /chat and /ws; 0 disables.
	RateLimit float64
	BodyLimit string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// WebSocket serves GET /ws when set.
	WebSocket echo.HandlerFunc
}

// NewRouter wires the handlers and middleware into an echo instance.
func NewRouter(h *ChatHandler, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.L().Info("http request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	var limited []echo.MiddlewareFunc
	if cfg.RateLimit > 0 {
		limited = append(limited, middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit)),
		))
	}

	e.GET("/", h.Index)
	e.GET("/healthz", h.HealthCheck)
	e.POST("/chat", h.Chat, limited...)
	if cfg.WebSocket != nil {
		e.GET("/ws", cfg.WebSocket, limited...)
	}
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	return e
}
