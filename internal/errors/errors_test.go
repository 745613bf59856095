package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message only", err: NotFound("course not found"), want: "course not found"},
		{
			name: "with cause",
			err:  Wrap(errors.New("dial tcp"), ErrCodeUnavailable, "backend unreachable"),
			want: "backend unreachable: dial tcp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeInternal, "saving %s", "token")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Message != "saving token" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("title", "Title is required")
	if !IsValidation(err) {
		t.Fatal("expected validation error")
	}
	if GetField(err) != "title" {
		t.Errorf("GetField() = %q, want title", GetField(err))
	}
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), Unauthorized("sign in"))
	if !IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should see through wrapping")
	}
	if IsForbidden(wrapped) {
		t.Error("IsForbidden should be false")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode of plain error should be empty")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{Validationf("bad %s", "x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Wrap(errors.New("x"), ErrCodeUnavailable, "x"), http.StatusBadGateway},
		{Wrap(errors.New("x"), ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
