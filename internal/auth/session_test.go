package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionIssueAndValidate(t *testing.T) {
	manager := NewSessionManager("secret", time.Hour, "gatherhub")

	value, err := manager.Issue("user-123")
	require.NoError(t, err)

	userID, err := manager.Validate(value)
	require.NoError(t, err)
	require.Equal(t, "user-123", userID)
}

func TestSessionValidateRejectsWrongSecret(t *testing.T) {
	manager := NewSessionManager("secret", time.Hour, "gatherhub")
	other := NewSessionManager("different", time.Hour, "gatherhub")

	value, err := manager.Issue("user-123")
	require.NoError(t, err)

	_, err = other.Validate(value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionValidateRejectsExpired(t *testing.T) {
	manager := NewSessionManager("secret", -time.Minute, "gatherhub")

	value, err := manager.Issue("user-123")
	require.NoError(t, err)

	_, err = manager.Validate(value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionValidateRejectsEmpty(t *testing.T) {
	manager := NewSessionManager("secret", time.Hour, "gatherhub")

	_, err := manager.Validate("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = manager.Issue("")
	require.ErrorIs(t, err, ErrInvalidToken)
}
