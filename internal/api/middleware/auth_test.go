package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gatherhub/server/internal/auth"
	"github.com/gatherhub/server/internal/domain/users"
)

type stubUserRepo struct {
	byID map[string]*users.User
}

func (s *stubUserRepo) Create(ctx context.Context, params users.CreateUserParams) (*users.User, error) {
	return nil, users.ErrEmailTaken
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, users.ErrUserNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

func (s *stubUserRepo) Update(ctx context.Context, id string, params users.UpdateUserParams) (*users.User, error) {
	return nil, users.ErrUserNotFound
}

type stubTokenRepo struct {
	byKey map[string]*users.User
	// lookupErr simulates storage being unreachable.
	lookupErr error
}

func (s *stubTokenRepo) GetOrCreate(ctx context.Context, userID, candidate string) (string, error) {
	return candidate, nil
}

func (s *stubTokenRepo) GetUserByToken(ctx context.Context, key string) (*users.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if user, ok := s.byKey[key]; ok {
		return user, nil
	}
	return nil, users.ErrInvalidToken
}

func (s *stubTokenRepo) GetByUser(ctx context.Context, userID string) (string, error) {
	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	for key, user := range s.byKey {
		if user.ID == userID {
			return key, nil
		}
	}
	return "", users.ErrInvalidToken
}

func (s *stubTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	for key, user := range s.byKey {
		if user.ID == userID {
			delete(s.byKey, key)
		}
	}
	return nil
}

type authFixture struct {
	authn    *Authenticator
	service  *users.Service
	sessions *auth.SessionManager
	tokens   *stubTokenRepo
	user     *users.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	user := &users.User{ID: "user-1", Email: "ana@example.com"}
	tokens := &stubTokenRepo{byKey: map[string]*users.User{"valid-token": user}}
	service := users.NewService(
		&stubUserRepo{byID: map[string]*users.User{user.ID: user}},
		tokens,
		zerolog.Nop(),
	)
	sessions := auth.NewSessionManager("test-secret", time.Hour, "gatherhub")
	return &authFixture{
		authn:    NewAuthenticator(service, sessions, "test"),
		service:  service,
		sessions: sessions,
		tokens:   tokens,
		user:     user,
	}
}

func currentUserHandler(t *testing.T, saw **users.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*saw = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateBearerToken(t *testing.T) {
	f := newAuthFixture(t)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, saw)
	require.Equal(t, f.user.ID, saw.ID)
}

func TestAuthenticateUnknownTokenFailsClosed(t *testing.T) {
	f := newAuthFixture(t)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Nil(t, saw)
}

func TestAuthenticateStorageFailureIsServerError(t *testing.T) {
	f := newAuthFixture(t)
	f.tokens.lookupErr = errors.New("connection refused")

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Nil(t, saw)
}

func TestAuthenticateSessionCookie(t *testing.T) {
	f := newAuthFixture(t)

	value, err := f.sessions.Issue(f.user.ID)
	require.NoError(t, err)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, saw)
	require.Equal(t, f.user.ID, saw.ID)
}

func TestAuthenticateSessionCookieAfterLogout(t *testing.T) {
	f := newAuthFixture(t)

	value, err := f.sessions.Issue(f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(context.Background(), f.user.ID))

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	// The cookie is still within its expiry window, but logout revoked the
	// account's token, so it must no longer authenticate.
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, saw)
}

func TestAuthenticateGarbageSessionCookieIsAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	// A browser holding junk must still be able to reach /login.
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "not-a-jwt"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, saw)
}

func TestAuthenticateRotatedSecretCookieIsAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	stale := auth.NewSessionManager("old-secret", time.Hour, "gatherhub")
	value, err := stale.Issue(f.user.ID)
	require.NoError(t, err)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, saw)
}

func TestAuthenticateAnonymousPassesThrough(t *testing.T) {
	f := newAuthFixture(t)

	var saw *users.User
	handler := f.authn.Authenticate(currentUserHandler(t, &saw))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, saw)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	handler := f.authn.Authenticate(f.authn.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
