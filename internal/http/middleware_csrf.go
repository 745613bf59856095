package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFCookieName is the CSRF cookie and form field name.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the header HTMX sends the token in.
	DefaultCSRFHeaderName = "X-Csrf-Token"
	csrfTokenBytes        = 32
)

// CSRFProtection implements the double-submit cookie pattern. State-changing
// requests must echo the cookie in the X-Csrf-Token header or csrf_token field.
func CSRFProtection(cookies CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(DefaultCSRFCookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				var err error
				if token, err = generateCSRFToken(); err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     DefaultCSRFCookieName,
					Value:    token,
					Path:     "/",
					Domain:   cookies.Domain,
					HttpOnly: false, // read by the page script for HTMX headers
					Secure:   cookies.secure(r),
					SameSite: http.SameSiteStrictMode,
					MaxAge:   3600 * 12,
				})
			}

			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))
			if requiresCSRFValidation(r.Method) && !validCSRFToken(r, token) {
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// validCSRFToken compares in constant time, header first, then form field.
func validCSRFToken(r *http.Request, cookieToken string) bool {
	if cookieToken == "" {
		return false
	}
	if h := r.Header.Get(DefaultCSRFHeaderName); h != "" {
		return subtle.ConstantTimeCompare([]byte(h), []byte(cookieToken)) == 1
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return false
	}
	v := r.FormValue(DefaultCSRFCookieName)
	return v != "" && subtle.ConstantTimeCompare([]byte(v), []byte(cookieToken)) == 1
}

// isForwardedHTTPS handles comma-separated X-Forwarded-Proto values.
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

type csrfTokenKey struct{}

// GetCSRFToken returns the request's CSRF token for templates.
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
