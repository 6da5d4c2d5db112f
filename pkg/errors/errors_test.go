package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "diagram %s not found", "abc")
	want := "NOT_FOUND: diagram abc not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeStorage, cause, "write document")
	want := "STORAGE_ERROR: write document: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Wrap(ErrCodeUpstream, cause, "extraction call failed")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeEmptyResult, "nothing usable")
	if !Is(err, ErrCodeEmptyResult) {
		t.Error("Is() should match the error's own code")
	}
	if Is(err, ErrCodeNotFound) {
		t.Error("Is() should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeNotFound) {
		t.Error("Is() should not match plain errors")
	}
}

func TestIs_WrappedChain(t *testing.T) {
	inner := New(ErrCodeNotFound, "missing")
	outer := fmt.Errorf("loading review page: %w", inner)
	if !Is(outer, ErrCodeNotFound) {
		t.Error("Is() should unwrap fmt-wrapped chains")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeStorage, "x")); got != ErrCodeStorage {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeStorage)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode() on plain error = %q, want empty", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeNotFound, "x"), http.StatusNotFound},
		{New(ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{New(ErrCodeUpstream, "x"), http.StatusBadGateway},
		{New(ErrCodeEmptyResult, "x"), http.StatusInternalServerError},
		{New(ErrCodeStorage, "x"), http.StatusInternalServerError},
		{New(ErrCodeInternal, "x"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeNotFound, "diagram missing")); got != "diagram missing" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(stderrors.New("plain failure")); got != "plain failure" {
		t.Errorf("UserMessage() on plain error = %q", got)
	}
}
