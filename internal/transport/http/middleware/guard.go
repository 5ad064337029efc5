package middleware

import (
	"net/http"

	"incaweb/internal/domain/auth"
)

// SessionReader is the slice of the session store the guard needs.
type SessionReader interface {
	Current() *auth.Identity
	Ready() bool
}

// RequireSession gates the protected view tree on the presence of an
// identity. Presence only, no expiry check; an expired credential is the
// server's problem on the next request.
func RequireSession(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.Ready() || sessions.Current() == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
