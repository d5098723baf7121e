package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
)

// retryAfterSeconds is advertised on system_busy and transient responses.
const retryAfterSeconds = 1

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable,omitempty"`
	Requested *int              `json:"requested,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if payload.Retryable {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var drawErr *drawdomain.Error
	if errors.As(err, &drawErr) {
		return mapDrawError(drawErr)
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, activitydomain.ErrInvalidID),
		errors.Is(err, userdomain.ErrInvalidID):
		return http.StatusBadRequest, errorPayload{
			Type:    string(drawdomain.KindInvalidRequest),
			Message: "invalid request",
		}
	case errors.Is(err, activitydomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(drawdomain.KindActivityNotFound),
			Message: "activity not found",
		}
	case errors.Is(err, userdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(drawdomain.KindUserNotFound),
			Message: "user not found",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "service_unavailable",
			Message:   "service unavailable",
			Retryable: true,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func mapDrawError(err *drawdomain.Error) (int, errorPayload) {
	payload := errorPayload{
		Type:      string(err.Kind),
		Message:   drawErrorMessage(err.Kind),
		Retryable: err.Retryable(),
	}

	switch err.Kind {
	case drawdomain.KindInvalidRequest:
		return http.StatusBadRequest, payload
	case drawdomain.KindActivityNotFound, drawdomain.KindUserNotFound:
		return http.StatusNotFound, payload
	case drawdomain.KindActivityNotAvailable:
		return http.StatusUnprocessableEntity, payload
	case drawdomain.KindInsufficientAllowance:
		requested, remaining := err.Requested, err.Remaining
		payload.Requested = &requested
		payload.Remaining = &remaining
		payload.Message = err.Message
		return http.StatusUnprocessableEntity, payload
	case drawdomain.KindSystemBusy, drawdomain.KindTransient:
		return http.StatusServiceUnavailable, payload
	default:
		payload.Type = string(drawdomain.KindInternal)
		if err.Kind == drawdomain.KindPrizeInconsistent {
			payload.Type = string(drawdomain.KindPrizeInconsistent)
		}
		return http.StatusInternalServerError, payload
	}
}

func drawErrorMessage(kind drawdomain.Kind) string {
	switch kind {
	case drawdomain.KindInvalidRequest:
		return "invalid request"
	case drawdomain.KindActivityNotFound:
		return "activity not found"
	case drawdomain.KindActivityNotAvailable:
		return "activity is not open for draws"
	case drawdomain.KindUserNotFound:
		return "user not found"
	case drawdomain.KindSystemBusy:
		return "another draw is in progress, retry shortly"
	case drawdomain.KindInsufficientAllowance:
		return "insufficient draw allowance"
	case drawdomain.KindTransient:
		return "temporary failure, retry shortly"
	case drawdomain.KindPrizeInconsistent:
		return "prize configuration is inconsistent"
	default:
		return "internal server error"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// classifyErrorForLog returns the error_kind label used in request logs.
func classifyErrorForLog(err error) string {
	if err == nil {
		return ""
	}
	_, payload := mapError(err)
	return payload.Type
}
