package domain

import "errors"

// Client mistakes. The HTTP layer reports these as 4xx.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrUploadTooLarge      = errors.New("upload too large")
	ErrInvalidK            = errors.New("k out of range")
	ErrExtraction          = errors.New("pdf extraction failed")
)

// System failures. The HTTP layer reports these as 5xx.
var (
	ErrUpstream           = errors.New("upstream service failure")
	ErrInvalidChunkConfig = errors.New("invalid chunker configuration")
)

// IsClientError reports whether err was caused by the caller.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrUploadTooLarge) ||
		errors.Is(err, ErrInvalidK) ||
		errors.Is(err, ErrExtraction)
}
