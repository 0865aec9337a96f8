package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/api/problem"
	"github.com/gatherhub/server/internal/auth"
	"github.com/gatherhub/server/internal/domain/users"
)

type contextKeyUser string

const currentUserKey contextKeyUser = "currentUser"

// Authenticator resolves credentials on a request to a user account. Both a
// Bearer token and the session cookie are accepted; the token wins when both
// are present.
type Authenticator struct {
	users    *users.Service
	sessions *auth.SessionManager
	env      string
}

func NewAuthenticator(userService *users.Service, sessions *auth.SessionManager, env string) *Authenticator {
	return &Authenticator{users: userService, sessions: sessions, env: env}
}

// Authenticate resolves the caller without rejecting anonymous requests.
// Handlers behind it see the user in context when credentials were valid.
// An explicit Authorization header fails closed with 401 when it does not
// check out; a bad session cookie downgrades to anonymous so a browser
// holding a stale cookie can still reach /login.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		switch {
		case err == nil:
		case errors.Is(err, users.ErrInvalidToken), errors.Is(err, auth.ErrInvalidToken):
			problem.Unauthorized(w, r, err, a.env)
			return
		default:
			// Storage being down is not a credential rejection.
			problem.ServerError(w, r, err, a.env)
			return
		}
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests that did not authenticate.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), a.env)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (*users.User, error) {
	key, err := auth.TokenFromRequest(r)
	switch {
	case err == nil:
		user, err := a.users.AuthenticateToken(r.Context(), key)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("token authentication failed")
			return nil, err
		}
		return user, nil
	case errors.Is(err, auth.ErrInvalidToken):
		// A malformed Authorization header never falls back to the cookie.
		return nil, err
	}

	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return nil, nil
	}
	userID, err := a.sessions.Validate(cookie.Value)
	if err != nil {
		// Garbage or signed with a rotated secret. Anonymous, not 401:
		// the browser has to be able to log in again.
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("session cookie rejected")
		return nil, nil
	}
	user, err := a.users.AuthenticateSession(r.Context(), userID)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, users.ErrInvalidToken), errors.Is(err, users.ErrUserNotFound):
		// Logged out or deleted since the cookie was issued.
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("session cookie rejected")
		return nil, nil
	default:
		return nil, err
	}
}

func WithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous
// requests.
func UserFromContext(ctx context.Context) *users.User {
	if user, ok := ctx.Value(currentUserKey).(*users.User); ok {
		return user
	}
	return nil
}
