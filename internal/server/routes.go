package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures routes, middleware and the error handler.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = h.errorHandler()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/pools", h.Pools)
	v1.GET("/pools/:id/metrics", h.Metrics)

	preview := v1.Group("/pools/:id/preview")
	if cfg.PreviewRate > 0 {
		burst := cfg.PreviewBurst
		if burst <= 0 {
			burst = 1
		}
		preview.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.PreviewRate),
			Burst:     burst,
			ExpiresIn: 2 * time.Minute,
		})))
	}
	preview.POST("/add", h.PreviewAdd)
	preview.POST("/mint", h.PreviewMint)
	preview.POST("/remove", h.PreviewRemove)
	preview.POST("/redeem", h.PreviewRedeem)
	preview.POST("/swap", h.PreviewSwap)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
