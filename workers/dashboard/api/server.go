// Package api is the read-only JSON surface of the dashboard.
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewServer(loader Loader, health HealthSource, now func() time.Time, logger *zap.SugaredLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		if he, ok := err.(*echo.HTTPError); ok && he.Code < 500 {
			return
		}
		logger.Errorw("request failed", "path", c.Request().URL.Path, "error", err)
	}
	e.Use(middleware.Recover())
	e.Use(LogRequests(logger))

	e.GET("/api/health", HealthHandler(health))
	e.GET("/api/files", ListFilesHandler(loader))
	e.GET("/api/files/:name", GetFileHandler(loader, now))
	e.GET("/api/files/:name/summary", GetSummaryHandler(loader))
	e.GET("/api/files/:name/stats", GetStatsHandler(loader, now))
	e.GET("/api/files/:name/charts/:kind", GetChartHandler(loader, now))
	return e
}

// LogRequests logs one line per request with its status and duration.
func LogRequests(logger *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			logger.Debugw("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration", time.Since(begin),
			)
			return err
		}
	}
}
