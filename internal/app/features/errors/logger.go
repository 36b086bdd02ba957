// internal/app/features/errors/logger.go
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// TransientWriteError marks a store write that failed and can be retried
// by resubmitting. Handlers re-render the form with the submitted values
// and Notice instead of showing an error page.
type TransientWriteError struct {
	Op     string
	Notice string
	Err    error
}

func (e *TransientWriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientWriteError) Unwrap() error { return e.Err }

// DefaultWriteNotice is shown when a save fails for a reason the user
// cannot fix.
const DefaultWriteNotice = "We couldn't save your changes. Please try again."

// NewTransientWriteError wraps a failed write. An empty notice uses
// DefaultWriteNotice.
func NewTransientWriteError(op string, err error, notice string) *TransientWriteError {
	if notice == "" {
		notice = DefaultWriteNotice
	}
	return &TransientWriteError{Op: op, Notice: notice, Err: err}
}

// WriteNotice returns the user-facing notice of a TransientWriteError in
// err's chain, or DefaultWriteNotice.
func WriteNotice(err error) string {
	var twe *TransientWriteError
	if errors.As(err, &twe) {
		return twe.Notice
	}
	return DefaultWriteNotice
}

// ErrorLogger logs handler failures with zap and renders the matching
// error page. Raw errors are logged, never shown.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

func (el *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	f := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if err != nil {
		f = append(f, zap.Error(err))
	}
	return f
}

// LogServerError logs at error level and renders a 500 page.
func (el *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.Log.Error(msg, el.fields(r, err)...)
	el.render(w, r, http.StatusInternalServerError, "Something went wrong", userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page.
func (el *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.Log.Warn(msg, el.fields(r, err)...)
	el.render(w, r, http.StatusBadRequest, "Invalid request", userMsg, backURL)
}

// LogForbidden logs at warn level and renders the access denied page.
func (el *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.Log.Warn(msg, el.fields(r, err)...)
	RenderForbidden(w, r, userMsg, backURL)
}

// LogNotFound logs at info level and renders the not found page.
func (el *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	el.Log.Info(msg, el.fields(r, err)...)
	RenderNotFound(w, r, userMsg, backURL)
}

// HTMXLogServerError logs and answers an HTMX request with a plain
// message the client swaps into its error target.
func (el *ErrorLogger) HTMXLogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.Log.Error(msg, el.fields(r, err)...)
	http.Error(w, userMsg, http.StatusInternalServerError)
}

// HTMXLogForbidden is the HTMX form of LogForbidden.
func (el *ErrorLogger) HTMXLogForbidden(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.Log.Warn(msg, el.fields(r, err)...)
	http.Error(w, userMsg, http.StatusForbidden)
}

func (el *ErrorLogger) render(w http.ResponseWriter, r *http.Request, status int, heading, userMsg, backURL string) {
	if r.Header.Get("HX-Request") == "true" {
		http.Error(w, userMsg, status)
		return
	}
	renderStatus(w, r, status, heading, userMsg, backURL)
}
