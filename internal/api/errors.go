// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/home-designer/backend/internal/scene"
	"github.com/home-designer/backend/internal/session"
	"github.com/home-designer/backend/internal/storage"
	"github.com/home-designer/backend/internal/vision"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Kind and Path locate a scene validation failure.
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewFieldError creates a 400 error for a missing or malformed request field
func NewFieldError(field, problem string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_FIELD",
		Message: fmt.Sprintf("%s %s", field, problem),
		Path:    field,
	}
}

// NewValidationError creates a 422 error from a rejected scene document
func NewValidationError(verr *scene.ValidationError) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "VALIDATION_ERROR",
		Message: verr.Message,
		Kind:    string(verr.Kind),
		Path:    verr.Path,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code, message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// ToAPIError maps domain errors onto the API error taxonomy.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *scene.ValidationError
	if errors.As(err, &verr) {
		return NewValidationError(verr)
	}

	var remote *vision.RemoteServiceFailure
	if errors.As(err, &remote) {
		if errors.Is(err, vision.ErrNotConfigured) {
			return NewServiceUnavailableError("model service is not configured")
		}
		return &APIError{
			Status:  http.StatusBadGateway,
			Code:    "REMOTE_SERVICE_FAILURE",
			Message: fmt.Sprintf("%s failed", remote.Task),
			Details: remote.Message,
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusGatewayTimeout, Code: "TIMEOUT", Message: "request timed out"}
	case errors.Is(err, session.ErrPreviewPending):
		return NewConflictError("PREVIEW_PENDING", err.Error())
	case errors.Is(err, session.ErrSceneChanged):
		return NewConflictError("SCENE_CHANGED", err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError(err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, storage.ErrTooLarge):
		return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "TOO_LARGE", Message: err.Error()}
	case errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, storage.ErrInvalidEncoding),
		errors.Is(err, vision.ErrEmptyImage), errors.Is(err, vision.ErrEmptyCommand):
		return NewBadRequestError(err.Error(), nil)
	}
	return nil
}

// ErrorHandler is an echo.HTTPErrorHandler without logging or error details.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	NewErrorHandler(nil, false)(err, c)
}

// NewErrorHandler returns an echo.HTTPErrorHandler. Unexpected errors are logged
// and, when exposeDetails is set, echoed in the response.
func NewErrorHandler(logger *zap.Logger, exposeDetails bool) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := ToAPIError(err)
		if apiErr == nil {
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
			}
			if exposeDetails {
				apiErr.Details = err.Error()
			}
		}
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", apiErr.Status),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		_ = c.JSON(apiErr.Status, apiErr)
	}
}
