package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", "insight-journey", time.Hour)

	token, expiresAt, err := m.Issue("u1", false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.IsAdmin)
}

func TestVerifyAdminClaim(t *testing.T) {
	m := NewTokenManager("test-secret", "insight-journey", time.Hour)

	token, _, err := m.Issue("admin-1", true)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", "insight-journey", time.Hour)
	verifier := NewTokenManager("secret-b", "insight-journey", time.Hour)

	token, _, err := issuer.Issue("u1", false)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenManager("test-secret", "someone-else", time.Hour)
	verifier := NewTokenManager("test-secret", "insight-journey", time.Hour)

	token, _, err := issuer.Issue("u1", false)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret", "insight-journey", -time.Minute)

	token, _, err := m.Issue("u1", false)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", "insight-journey", time.Hour)

	_, err := m.Verify("not-a-token")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}
