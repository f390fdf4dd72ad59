package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"pipeline-workers/domain"
	"pipeline-workers/workers/dashboard/services"
)

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
}

func newError(code int, reason, advice string, cause error) *echo.HTTPError {
	he := echo.NewHTTPError(code, ErrorMessage{Reason: reason, Advice: advice})
	if cause != nil {
		he = he.SetInternal(cause)
	}
	return he
}

func NotFound(advice string, cause error) *echo.HTTPError {
	return newError(http.StatusNotFound, "not found", advice, cause)
}

func BadRequest(advice string, cause error) *echo.HTTPError {
	return newError(http.StatusBadRequest, "bad request", advice, cause)
}

func InternalServerError(cause error) *echo.HTTPError {
	return newError(http.StatusInternalServerError, "unexpected error", "", cause)
}

// toHTTPError maps loader and chart errors onto status codes.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case domain.IsNotFound(err):
		return NotFound(err.Error(), err)
	case errors.Is(err, services.ErrUnknownChart), errors.Is(err, services.ErrBadRange):
		return BadRequest(err.Error(), err)
	case errors.Is(err, services.ErrNoChartData):
		return newError(http.StatusUnprocessableEntity, "chart not available", err.Error(), err)
	default:
		return InternalServerError(err)
	}
}
