package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"yieldScope/internal/actions"
	"yieldScope/internal/simerr"
)

// errResponded marks a handler that already wrote its error response.
var errResponded = errors.New("response written")

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	var (
		inputErr  *simerr.InputError
		simErr    *simerr.SimulationError
		probesErr *simerr.AllProbesFailedError
		netErr    *simerr.NetworkError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, actions.ErrNoPosition):
		return http.StatusNotFound
	case errors.Is(err, actions.ErrMatured):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.As(err, &probesErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &simErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes an engine error. Clients get the user message; dev mode adds
// the call graph the ledger rejected.
func (h *Handlers) fail(c echo.Context, op string, err error) error {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger().Error(op+" failed", zap.String("pool", c.Param("id")), zap.Error(err))
	} else {
		h.logger().Info(op+" rejected", zap.String("pool", c.Param("id")), zap.Int("status", code), zap.Error(err))
	}
	var details any
	if steps := simerr.Steps(err); len(steps) > 0 {
		details = map[string]any{"steps": steps, "error": err.Error()}
	} else {
		details = map[string]any{"error": err.Error()}
	}
	return h.err(c, code, message(code, err), details)
}

func message(code int, err error) string {
	switch code {
	case http.StatusNotFound:
		return "No position found for this market."
	case http.StatusConflict:
		return "This market has matured. Redeem instead of trading."
	}
	return simerr.UserMessage(err)
}

// errorHandler returns JSON for every error Echo itself raises.
func (h *Handlers) errorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed || errors.Is(err, errResponded) {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Code: he.Code})
			return
		}
		h.logger().Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}
