package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskbridge/internal/platform"
	"taskbridge/internal/settings"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps platform errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, platform.ErrNotConfigured):
		return http.StatusConflict, "not_configured"
	case errors.Is(err, platform.ErrUnknownPlatform):
		return http.StatusGone, "unknown_platform"
	case errors.Is(err, platform.ErrInvalidSettings):
		return http.StatusUnprocessableEntity, "invalid_settings"
	case errors.Is(err, settings.ErrNotStored):
		return http.StatusUnprocessableEntity, "not_stored"
	case errors.Is(err, platform.ErrAuth):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, platform.ErrTitleRequired):
		return http.StatusBadRequest, "title_required"
	case platform.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	default:
		var perr *platform.Error
		if errors.As(err, &perr) {
			return http.StatusBadGateway, "platform"
		}
		return http.StatusInternalServerError, "internal"
	}
}

// writeError renders err as JSON and logs server-side failures.
func (s *Server) writeError(c echo.Context, err error) error {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Warn("api.error")
	}
	return c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
