package rag_http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"doc-qa/internal/domain"
)

const (
	uploadField   = "file"
	readChunkSize = 1 << 20
)

// saveUpload streams the multipart "file" part into a temporary file under dir,
// reading at most readChunkSize bytes at a time. It fails with
// ErrUploadTooLarge as soon as the running total passes maxBytes. On any error
// nothing is left on disk; on success the caller owns the returned path.
func saveUpload(r *http.Request, dir string, maxBytes int64) (string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", fmt.Errorf("%w: expected multipart/form-data: %v", domain.ErrInvalidInput, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s field is required", domain.ErrInvalidInput, uploadField)
		}
		if err != nil {
			return "", fmt.Errorf("%w: malformed multipart body: %v", domain.ErrInvalidInput, err)
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}

		path, err := writePart(part, dir, maxBytes)
		_ = part.Close()
		return path, err
	}
}

func writePart(part *multipart.Part, dir string, maxBytes int64) (string, error) {
	if !strings.HasSuffix(strings.ToLower(part.FileName()), ".pdf") {
		return "", domain.ErrUnsupportedFileType
	}

	f, err := os.CreateTemp(dir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	fail := func(err error) (string, error) {
		_ = f.Close()
		removeUpload(path)
		return "", err
	}

	buf := make([]byte, readChunkSize)
	var total int64
	for {
		n, rerr := part.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return fail(fmt.Errorf("%w: more than %d bytes", domain.ErrUploadTooLarge, maxBytes))
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fail(fmt.Errorf("write temp file: %w", werr))
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fail(fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, rerr))
		}
	}

	if err := f.Close(); err != nil {
		removeUpload(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// removeUpload deletes a temporary upload. Failure is logged, never returned.
func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("upload_cleanup_failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
