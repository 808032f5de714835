package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/otp"
)

// statusOf maps the engine's sentinel taxonomy onto HTTP statuses. This is
// the single place flow errors become response codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrAddressNotFound),
		errors.Is(err, identity.ErrResetTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrOAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrOTPInvalid),
		errors.Is(err, identity.ErrResetTokenInvalid),
		errors.Is(err, identity.ErrPasswordMismatch):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrAccountInactive),
		errors.Is(err, identity.ErrOTPNotVerified),
		errors.Is(err, identity.ErrUserNotAdmin),
		errors.Is(err, identity.ErrAdminActionForbidden),
		errors.Is(err, identity.ErrAddressForbidden):
		return http.StatusForbidden
	case errors.Is(err, identity.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, identity.ErrMailDelivery),
		errors.Is(err, otp.ErrDeliveryFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler is the central translation boundary: every error escaping a
// handler becomes a {message} body with the status from statusOf. Unmapped
// errors are logged and hidden behind a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			c.JSON(httpErr.Code, echo.Map{"message": msg})
			return
		}

		status := statusOf(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			log.Error("unhandled error",
				zap.String("path", c.Request().URL.Path), zap.Error(err))
			msg = "Internal server error"
		}
		c.JSON(status, echo.Map{"message": msg})
	}
}
