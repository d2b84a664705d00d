// Package drive provides a typed HTTP client for the subset of the
// Google Drive v3 API that diary sync consumes: folder find/create,
// paginated listing, multipart create, media content update, download,
// delete, and metadata fetch.
package drive

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, drive.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("drive: bad request")
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrForbidden    = errors.New("drive: forbidden")
	ErrNotFound     = errors.New("drive: not found")
	ErrThrottled    = errors.New("drive: rate limited")
	ErrServerError  = errors.New("drive: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the
// response body returned by the Drive API.
type APIError struct {
	StatusCode int
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
