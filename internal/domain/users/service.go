package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or missing token")
)

// User is an account record. Email is the identity key, stored and compared
// case-sensitively. PasswordHash is never serialized.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsStaff      bool
	IsSuperuser  bool
}

// UpdateUserParams applies a partial update; nil fields are left unchanged.
type UpdateUserParams struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, params UpdateUserParams) (*User, error)
}

// TokenRepository manages the opaque bearer tokens, one live token per user.
type TokenRepository interface {
	// GetOrCreate atomically returns the user's live token, inserting
	// candidate only if none exists. Concurrent logins by the same user
	// must converge on a single token.
	GetOrCreate(ctx context.Context, userID, candidate string) (string, error)
	// GetUserByToken resolves a token to its owner. A missing token fails
	// closed with ErrInvalidToken.
	GetUserByToken(ctx context.Context, key string) (*User, error)
	// GetByUser returns the user's live token, or ErrInvalidToken when the
	// user holds none.
	GetByUser(ctx context.Context, userID string) (string, error)
	// DeleteByUser revokes the user's token. Deleting an absent token is
	// not an error.
	DeleteByUser(ctx context.Context, userID string) error
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Service handles registration, credential checks, token issuance, and
// profile updates.
type Service struct {
	repo     Repository
	tokens   TokenRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, tokens TokenRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

type RegisterParams struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required"`
	FirstName string
	LastName  string
}

// Register creates a user and issues their token. Duplicate emails and policy
// failures surface as validation errors.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, string, error) {
	params.Email = strings.TrimSpace(params.Email)
	if err := s.validate.Struct(params); err != nil {
		return nil, "", ValidationError{Field: "email", Message: "a valid email and password are required"}
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, "", ValidationError{Field: "password", Message: err.Error()}
	}

	user, err := s.repo.Create(ctx, CreateUserParams{
		Email:        params.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, token, nil
}

// Authenticate checks credentials and returns the user with their live token,
// issuing one lazily on first login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// AuthenticateToken resolves a bearer token to its owner, failing closed.
func (s *Service) AuthenticateToken(ctx context.Context, key string) (*User, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidToken
	}
	return s.tokens.GetUserByToken(ctx, key)
}

// AuthenticateSession resolves a session subject to its account, but only
// while the account still holds a live token. Logout revokes the token, so
// every session issued before it stops authenticating at the same moment.
func (s *Service) AuthenticateSession(ctx context.Context, userID string) (*User, error) {
	if _, err := s.tokens.GetByUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// Logout revokes the caller's token. It tolerates the token already being
// absent.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.tokens.DeleteByUser(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateProfileParams struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// UpdateProfile applies a partial update to the caller's own record.
func (s *Service) UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*User, error) {
	update := UpdateUserParams{
		FirstName: params.FirstName,
		LastName:  params.LastName,
	}

	if params.Email != nil {
		email := strings.TrimSpace(*params.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return nil, ValidationError{Field: "email", Message: "invalid email address"}
		}
		update.Email = &email
	}

	if params.Password != nil {
		hash, err := auth.HashPassword(*params.Password)
		if err != nil {
			return nil, ValidationError{Field: "password", Message: err.Error()}
		}
		update.PasswordHash = &hash
	}

	return s.repo.Update(ctx, id, update)
}

func (s *Service) issueToken(ctx context.Context, userID string) (string, error) {
	candidate, err := auth.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	token, err := s.tokens.GetOrCreate(ctx, userID, candidate)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
