package server

import (
	"articlebrief/internal/domain"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to an HTTP status and a client-safe message.
// fallback is used for failures whose details must stay server-side.
func statusFor(err error, fallback string) (int, string) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, fallback
	}

	switch de.Kind {
	case domain.ErrorValidation, domain.ErrorFetch, domain.ErrorExtraction:
		return http.StatusBadRequest, de.Reason
	case domain.ErrorConfig:
		return http.StatusInternalServerError, "Server configuration error"
	default:
		return http.StatusInternalServerError, fallback
	}
}

func (s *Server) writeError(c echo.Context, err error, fallback string) error {
	status, message := statusFor(err, fallback)

	ctx := c.Request().Context()
	kind, _ := domain.KindOf(err)

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(ctx, "Failed to handle request",
			"error", err,
			"kind", kind,
			"path", c.Path(),
			"status", status)
	} else {
		s.log.WarnContext(ctx, "Request is rejected",
			"error", err,
			"kind", kind,
			"path", c.Path(),
			"status", status)
	}

	return c.JSON(status, errorResponse{Error: message})
}

// handleHTTPError keeps echo's own errors (404, 405, 413, panics) in the
// same {error} shape as handler errors.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		s.log.ErrorContext(c.Request().Context(), "Unhandled error",
			"error", err,
			"path", c.Path())
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Error: message})
	}

	if writeErr != nil {
		s.log.ErrorContext(c.Request().Context(), "Failed to write error response",
			"error", writeErr,
			"status", status)
	}
}
