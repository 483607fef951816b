package backend

import (
	"fmt"
	"net/http"

	"tasker/internal/domain"
)

// Error is a failed backend call. Status is 0 when no response was received.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: http %d: %v", e.Op, e.Status, e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend %s: http %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("backend %s: http %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == domain.ErrBackend
}

// HTTPStatus is the backend response status, 0 for transport failures.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// Unauthorized reports whether the backend rejected the caller's token.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// UserMessage is the server's own message, or a generic one when it sent none.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == 0 {
		return "backend is unreachable"
	}
	return fmt.Sprintf("backend request failed (%d)", e.Status)
}

func (e *Error) retryable() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}
