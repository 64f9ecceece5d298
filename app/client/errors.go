package client

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthorized = errors.New("unauthorized")

// TransportError is returned for any non-2xx API response.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Message)
}

// Unwrap lets callers test authentication failures with errors.Is.
func (e *TransportError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}
