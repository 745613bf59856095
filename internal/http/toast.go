package httpx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eduassist/portal/internal/backend"
	apperrors "github.com/eduassist/portal/internal/errors"
)

// Toast is a transient notification shown by the page script.
type Toast struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	toastSuccess = "success"
	toastError   = "error"
)

// setFlash stores a toast for the next full page render.
func setFlash(w http.ResponseWriter, r *http.Request, cookies CookieConfig, t Toast) {
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		Domain:   cookies.Domain,
		HttpOnly: true,
		Secure:   cookies.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash returns and clears the pending toast, if any.
func popFlash(w http.ResponseWriter, r *http.Request, cookies CookieConfig) *Toast {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Path:     "/",
		Domain:   cookies.Domain,
		HttpOnly: true,
		Secure:   cookies.secure(r),
		MaxAge:   -1,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var t Toast
	if json.Unmarshal(raw, &t) != nil || t.Message == "" {
		return nil
	}
	return &t
}

// toastMessage prefers the backend's detail, then messages the portal wrote
// for the user, then fallback.
func toastMessage(err error, fallback string) string {
	if d := backend.Detail(err, ""); d != "" {
		return d
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeTimeout, apperrors.ErrCodeForbidden,
		apperrors.ErrCodeConflict, apperrors.ErrCodeUnauthorized:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return appErr.Message
		}
	}
	return fallback
}
