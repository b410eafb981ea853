package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// ErrInternal means that an internal server error has occurred.
	ErrInternal = "internal_error"
	// ErrBadParameter means that a provided parameter does not match what the
	// route declares.
	ErrBadParameter = "bad_parameter"
)

// APIError is an error carried across the admin API boundary.
type APIError struct {
	// Code is a machine-readable code.
	Code string `json:"code"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

func NewBadParameterError(message string, inner error) *APIError {
	return &APIError{Code: ErrBadParameter, Message: message, Inner: inner}
}

func NewInternalError(message string, inner error) *APIError {
	return &APIError{Code: ErrInternal, Message: message, Inner: inner}
}

func (e *APIError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Inner
}

// ToAPIError returns the APIError inside err, or nil when err is not one.
func ToAPIError(err error) *APIError {
	var e *APIError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

var codeToStatus = map[string]int{
	ErrBadParameter: http.StatusBadRequest,
	ErrInternal:     http.StatusInternalServerError,
}

// RegisterErrorHandler installs the admin error handler on the echo
// instance. Handler errors that are not APIErrors are wrapped as internal
// errors so consumers always see the same response shape.
func RegisterErrorHandler(e *echo.Echo, logger *slog.Logger) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := ToAPIError(err)
		if apiErr == nil {
			var echoErr *echo.HTTPError
			if errors.As(err, &echoErr) {
				_ = c.JSON(echoErr.Code, &APIError{
					Code:    ErrInternal,
					Message: fmt.Sprintf("%v", echoErr.Message),
				})
				return
			}
			apiErr = NewInternalError("an internal error has occurred", err)
		}

		status, ok := codeToStatus[apiErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}

		logger.Warn("Admin request failed",
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Any("err", err))

		if jsonErr := c.JSON(status, apiErr); jsonErr != nil {
			logger.Error("Cannot write admin error response", slog.Any("err", jsonErr))
		}
	}
}
