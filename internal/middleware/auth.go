package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/alexedwards/scs/v2"
)

const adminSessionKey = "isAdmin"

// The admin PIN lives server-side only. Clients never see it; they hold an
// scs session marked as admin after a successful login.
func adminPIN() string {
	return os.Getenv("ADMIN_PIN")
}

func CheckPIN(pin string) bool {
	want := adminPIN()
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(want)) == 1
}

func MarkAdmin(sessionManager *scs.SessionManager, r *http.Request) {
	sessionManager.Put(r.Context(), adminSessionKey, true)
}

func ClearAdmin(sessionManager *scs.SessionManager, r *http.Request) {
	sessionManager.Remove(r.Context(), adminSessionKey)
}

func IsAdmin(sessionManager *scs.SessionManager, r *http.Request) bool {
	return sessionManager.GetBool(r.Context(), adminSessionKey)
}

// RequireAdmin guards mutating routes behind the PIN session.
func RequireAdmin(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(sessionManager, r) {
				http.Error(w, "admin access required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
