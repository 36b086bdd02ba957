package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestTransientWriteError(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewTransientWriteError("save faq", cause, "")

	if !stderrors.Is(err, cause) {
		t.Error("expected the cause to be unwrappable")
	}
	if err.Notice != DefaultWriteNotice {
		t.Errorf("expected default notice, got %q", err.Notice)
	}
	if got := WriteNotice(err); got != DefaultWriteNotice {
		t.Errorf("expected default notice, got %q", got)
	}

	custom := NewTransientWriteError("invite", cause, "Could not send the invite.")
	wrapped := stderrors.Join(stderrors.New("outer"), custom)
	if got := WriteNotice(wrapped); got != "Could not send the invite." {
		t.Errorf("expected custom notice through wrapping, got %q", got)
	}
	if got := WriteNotice(cause); got != DefaultWriteNotice {
		t.Errorf("expected default notice for a plain error, got %q", got)
	}
}

func TestHTMXLogServerError(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest("POST", "/faqs/manage", nil)
	rec := httptest.NewRecorder()

	el.HTMXLogServerError(rec, req, "save failed", stderrors.New("boom"), "Could not save.")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "Could not save.\n" {
		t.Errorf("expected user message only, got %q", body)
	}
}

func TestLogBadRequest_HTMX(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest("POST", "/users/new", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	el.LogBadRequest(rec, req, "parse form failed", stderrors.New("bad"), "Invalid form data.", "/users")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
