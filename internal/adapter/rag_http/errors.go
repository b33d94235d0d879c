package rag_http

import (
	"errors"
	"log/slog"
	"net/http"

	"doc-qa/internal/domain"

	"github.com/labstack/echo/v4"
)

const (
	msgTooLarge       = "File too large."
	msgNotPDF         = "Please upload a PDF file."
	msgExtraction     = "Could not read text from the uploaded PDF."
	msgUpstream       = "An upstream service failed. Please try again."
	msgInternal       = "Internal server error."
	msgInvalidRequest = "invalid request"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a usecase error onto the HTTP status and the message shown
// to the client.
func statusFor(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, msgNotPDF
	case errors.Is(err, domain.ErrInvalidK), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity, msgExtraction
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, msgUpstream
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeError(c echo.Context, err error) error {
	status, msg := statusFor(err)
	log := slog.Default().With(
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request().Context(), "request_failed")
	} else {
		log.InfoContext(c.Request().Context(), "request_rejected")
	}
	return c.JSON(status, errorResponse{Error: msg})
}
