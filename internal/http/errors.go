package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from a remote API.
type Error struct {
	Code       int
	StatusText string
	Msg        string
}

// NewError returns an *Error for the given status code. Messages reported by
// the remote end are joined into Msg.
func NewError(code int, msgs ...string) *Error {
	var nonEmpty []string
	for _, m := range msgs {
		if m = strings.TrimSpace(m); m != "" {
			nonEmpty = append(nonEmpty, m)
		}
	}
	return &Error{
		Code:       code,
		StatusText: http.StatusText(code),
		Msg:        strings.Join(nonEmpty, "; "),
	}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.StatusText
	}
	return fmt.Sprintf("%s: %s", e.StatusText, e.Msg)
}

// CodeFrom returns the http status code for the given error, looking through
// wrapped errors. If no *Error is found an internal server error is
// returned.
func CodeFrom(err error) int {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	return apiErr.Code
}

// IsLocked reports whether err is a 423 response. The orchestrator answers
// with 423 when a protected configuration gained a draft or an approval
// policy after it was loaded.
func IsLocked(err error) bool {
	return err != nil && CodeFrom(err) == http.StatusLocked
}

// IsConflict reports whether err is a 409 response.
func IsConflict(err error) bool {
	return err != nil && CodeFrom(err) == http.StatusConflict
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return err != nil && CodeFrom(err) == http.StatusNotFound
}
