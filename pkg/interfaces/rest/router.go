package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/infrastructure/config"
)

// NewRouter registers every route on a fresh echo instance
func NewRouter(h *Handler, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.POST("/reconcile", h.Reconcile)

	api.POST("/wire-cutters", h.CreateWireCutter)

	api.GET("/cut-jobs", h.ListJobs)
	api.POST("/cut-jobs", h.CreateJob)
	api.GET("/cut-jobs/:id", h.GetJob)
	api.POST("/cut-jobs/:id/void", h.VoidJob)
	api.POST("/cut-jobs/:id/items", h.AddItem)

	api.DELETE("/cut-job-items/:id", h.DeleteItem)
	api.POST("/cut-job-items/:id/order-items", h.AssignOrderItem)
	api.DELETE("/cut-job-items/:id/order-items/:order_item_id", h.UnassignOrderItem)
	api.PUT("/cut-job-items/:id/quantity-cut", h.SetQuantityCut)
	return e
}

// NewServer wraps the router in an http.Server using the configured timeouts
func NewServer(cfg config.ServerConfig, e *echo.Echo) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
