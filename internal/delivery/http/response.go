package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"cryptosniper/internal/delivery/http/dto"
	apperrors "cryptosniper/internal/errors"
	"cryptosniper/internal/monitoring"
)

// ErrorBody represents a standardized API error response
type ErrorBody struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	ErrorCode string                 `json:"errorCode"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse sends a 200 response with the payload as the body
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// MessageResponse sends a 200 response carrying only a message
func MessageResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

// ErrorHandler maps handler errors onto the JSON error body. Internal errors
// are logged and their cause is never sent to the client.
func ErrorHandler(log *zap.Logger, metrics *monitoring.Metrics) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body, status := toErrorBody(err)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}
		if metrics != nil {
			metrics.ObserveError(body.ErrorCode)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			log.Warn("Failed to write error response", zap.Error(writeErr))
		}
	}
}

func toErrorBody(err error) (ErrorBody, int) {
	if apiErr, ok := apperrors.As(err); ok {
		message := apiErr.Message
		if apiErr.StatusCode >= http.StatusInternalServerError {
			message = "Internal server error"
		}
		return ErrorBody{
			Status:    "error",
			Message:   message,
			ErrorCode: apiErr.ErrorCode,
			Details:   apiErr.Details,
		}, apiErr.StatusCode
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			message = m
		}
		return ErrorBody{
			Status:    "error",
			Message:   message,
			ErrorCode: httpErrorCode(he.Code),
		}, he.Code
	}

	return ErrorBody{
		Status:    "error",
		Message:   "Internal server error",
		ErrorCode: "INTERNAL_ERROR",
	}, http.StatusInternalServerError
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "AUTHENTICATION_ERROR"
	case http.StatusForbidden:
		return "AUTHORIZATION_ERROR"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "HTTP_ERROR"
	}
}
