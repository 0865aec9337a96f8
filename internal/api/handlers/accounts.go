package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherhub/server/internal/api/middleware"
	"github.com/gatherhub/server/internal/api/problem"
	"github.com/gatherhub/server/internal/auth"
	"github.com/gatherhub/server/internal/domain/users"
)

// AccountsHandler serves registration, login, logout, and the profile
// endpoint. Login and registration both answer with the account's opaque API
// token and additionally set the browser session cookie.
type AccountsHandler struct {
	Users    *users.Service
	Sessions *auth.SessionManager
	Env      string
}

func NewAccountsHandler(userService *users.Service, sessions *auth.SessionManager, env string) *AccountsHandler {
	return &AccountsHandler{Users: userService, Sessions: sessions, Env: env}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	user, token, err := h.Users.Register(r.Context(), users.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeAccountError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: renderUser(user)})
}

func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	user, token, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAccountError(w, r, err)
		return
	}

	h.setSessionCookie(w, r, user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: renderUser(user)})
}

func (h *AccountsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	if err := h.Users.Logout(r.Context(), caller.ID); err != nil {
		problem.ServerError(w, r, err, h.Env)
		return
	}

	h.clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out."})
}

func (h *AccountsHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(caller))
}

type profileUpdateRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (h *AccountsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), caller.ID, users.UpdateProfileParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

// writeAccountError maps account domain errors onto the problem taxonomy.
// Bad credentials on login are a validation failure of the submitted form,
// not a 401; that status is reserved for missing or invalid tokens.
func (h *AccountsHandler) writeAccountError(w http.ResponseWriter, r *http.Request, err error) {
	var verr users.ValidationError
	switch {
	case errors.As(err, &verr):
		problem.Validation(w, r, err, h.Env, problem.WithErrors(map[string]interface{}{verr.Field: verr.Message}))
	case errors.Is(err, users.ErrEmailTaken):
		problem.Validation(w, r, err, h.Env, problem.WithErrors(map[string]interface{}{"email": "a user with this email already exists"}))
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Validation(w, r, err, h.Env, problem.WithDetail("Unable to log in with provided credentials."))
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		problem.Validation(w, r, err, h.Env)
	default:
		problem.ServerError(w, r, err, h.Env)
	}
}

func (h *AccountsHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, userID string) {
	value, err := h.Sessions.Issue(userID)
	if err != nil {
		// Token auth still works; the browser session is best effort.
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.Sessions.Expiry().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AccountsHandler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
