// internal/session/cookie.go
//
// Serenity – Form session cookie.
//
// Context
//   A visitor's contact form lives in memory on the server, keyed by a
//   random UUID.  The UUID travels in the “serenity_form” cookie.  It is
//   not a login and carries no identity, so it needs no signing; an
//   attacker who guesses one gains a half-typed message at best, and the
//   CSRF token is bound to it as well.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"

	"github.com/google/uuid"
)

// CookieName is the form session cookie.
const CookieName = "serenity_form"

// ID returns the form session ID from r.  ok == false when the cookie is
// missing or does not hold a UUID.
func ID(r *http.Request) (id string, ok bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	u, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// Ensure returns the existing form session ID or mints a new one and sets
// the cookie on w.  secure marks the cookie HTTPS-only.
func Ensure(w http.ResponseWriter, r *http.Request, secure bool) string {
	if id, ok := ID(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Clear expires the cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
