package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTokenLengthAndUniqueness(t *testing.T) {
	first, err := GenerateToken()
	require.NoError(t, err)
	require.Len(t, first, 43)

	second, err := GenerateToken()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestTokenFromHeader(t *testing.T) {
	token, err := TokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	token, err = TokenFromHeader("bearer abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
}

func TestTokenFromHeaderMissing(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Basic abc123", "Bearer a b"} {
		_, err := TokenFromHeader(header)
		require.Error(t, err, "header=%q", header)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")

	token, err := TokenFromRequest(req)
	require.NoError(t, err)
	require.Equal(t, "tok", token)

	_, err = TokenFromRequest(nil)
	require.ErrorIs(t, err, ErrMissingToken)
}
