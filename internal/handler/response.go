package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/logging"
)

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindBadRequest:   http.StatusBadRequest,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindRateLimited:  http.StatusTooManyRequests,
	apperr.KindInternal:     http.StatusInternalServerError,
	apperr.KindAIAuth:       http.StatusBadGateway,
	apperr.KindAIQuota:      http.StatusTooManyRequests,
	apperr.KindAINetwork:    http.StatusServiceUnavailable,
	apperr.KindAITimeout:    http.StatusGatewayTimeout,
	apperr.KindAIGeneric:    http.StatusBadGateway,
}

func statusFor(kind apperr.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Causes of internal errors are logged, never sent.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return c.JSON(he.Code, NewErrorResponse(httpCode(he.Code), http.StatusText(he.Code)))
		}
		ae = apperr.Internal(err)
	}

	status := statusFor(ae.Kind)
	if errors.Is(err, context.Canceled) {
		logging.FromContext(c.Request().Context(), log).Info("request canceled by client", zap.Error(err))
	} else if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context(), log).Error("request failed",
			zap.String("kind", string(ae.Kind)), zap.Error(err))
	}
	resp := NewErrorResponse(string(ae.Kind), ae.Message)
	resp.Error.Details = ae.Fields
	return c.JSON(status, resp)
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusMethodNotAllowed, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return string(apperr.KindBadRequest)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusTooManyRequests:
		return string(apperr.KindRateLimited)
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	}
	return string(apperr.KindInternal)
}

// ErrorHandler is installed as echo's HTTPErrorHandler so middleware errors share the envelope.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if werr := respondError(c, log, err); werr != nil {
			log.Warn("writing error response", zap.Error(werr))
		}
	}
}
