package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// ErrorResponse represents a structured API error
type ErrorResponse struct {
	Error         string       `json:"error"`
	Message       string       `json:"message"`
	Code          int          `json:"code"`
	CorrelationID string       `json:"correlation_id"` // Unique identifier for tracking this error
	Notice        court.Notice `json:"notice"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
		Notice:        court.Notice{Level: court.NoticeError, Message: message},
	}
}

// StatusFor maps an error category to an HTTP status
func StatusFor(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation, errors.CategoryFileParsing:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryState, errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNetwork, errors.CategoryIntegration, errors.CategoryHTTP:
		return http.StatusBadGateway
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryLimit:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// HandleError writes an error response. Without a message, client errors
// show the error text and server errors the status text.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := StatusFor(err)
	if message == "" {
		if code < http.StatusInternalServerError && err != nil {
			message = upperFirst(err.Error())
		} else {
			message = http.StatusText(code)
		}
	}

	resp := NewErrorResponse(err, message, code, ctx.Response().Header().Get(echo.HeaderXRequestID))

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Error(err),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
