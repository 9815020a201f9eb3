package endpoint

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/conduit-lang/docapi/internal/store"
)

var (
	// ErrBuilt is returned when a builder is used after Build
	ErrBuilt = errors.New("endpoint: already built")
	// ErrBulkDisabled is returned by BulkPost on endpoints without bulk create
	ErrBulkDisabled = errors.New("endpoint: bulk create is not enabled")
)

// Error is a failure carrying the HTTP status it should be reported with.
// A zero Code means the failure has no status and is reported as a 500
// without a body.
type Error struct {
	Code    int
	Message string
	Err     error
}

// NewError creates an error reported with code and message
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a coded error with a formatted message
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err
func Wrap(err error, code int, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return http.StatusText(e.Code)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the status and message a failure is reported with.
// ok is false when err carries no status.
func StatusCode(err error) (code int, message string, ok bool) {
	var e *Error
	if errors.As(err, &e) && e.Code > 0 {
		message = e.Message
		if message == "" {
			message = http.StatusText(e.Code)
		}
		return e.Code, message, true
	}
	return 0, "", false
}

// classify gives store failures the status they are reported with. Errors
// that already carry a status are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, _, ok := StatusCode(err); ok {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return Wrap(err, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		return Wrap(err, http.StatusConflict, "Conflict")
	case errors.Is(err, store.ErrInvalidValue):
		return Wrap(err, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBulkDisabled):
		return Wrap(err, http.StatusNotFound, "Not found")
	}
	return err
}
