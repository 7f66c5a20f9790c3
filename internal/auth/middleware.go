package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
)

// SessionStore loads sessions by token.
type SessionStore interface {
	// Get returns the session for token, or domain.ErrSessionNotFound.
	Get(ctx context.Context, token string) (*domain.Session, error)
}

type contextKey int

const sessionContextKey contextKey = iota

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session loaded by LoadSession, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionContextKey).(*domain.Session)
	return s
}

// UserFromContext returns the logged-in user, or nil.
func UserFromContext(ctx context.Context) *domain.SessionUser {
	if s := SessionFromContext(ctx); s.LoggedIn() {
		return s.User
	}
	return nil
}

// LoadSession attaches the session named by the cookie to the request context.
// Unknown or expired tokens are treated as no session; the stale cookie is cleared.
func LoadSession(store SessionStore, cookieName string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := store.Get(r.Context(), c.Value)
			switch {
			case err == nil:
				r = r.WithContext(WithSession(r.Context(), s))
			case errors.Is(err, domain.ErrSessionNotFound):
				http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
			default:
				logger.Warn().Err(err).Msg("failed to load session")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin redirects requests without a logged-in session to LoginPath.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability rejects logged-in users whose role lacks the capability
// selected by allow. It must run after RequireLogin.
func RequireCapability(allow func(domain.Capabilities) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil || !allow(u.Can()) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ManageUsers selects the capability to manage every user.
func ManageUsers(c domain.Capabilities) bool { return c.ManageUsers }
