package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
)

// SetSessionCookie stores token in an HTTP-only, same-site strict cookie.
// secure should be false only for plain-HTTP local development.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest extracts the session token from the Authorization header
// or, failing that, the session cookie. It returns "" when neither is set.
func TokenFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if n := len(common.BearerPrefix); len(h) > n && strings.EqualFold(h[:n], common.BearerPrefix) {
		return strings.TrimSpace(h[n:])
	}
	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
