package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret", "mollie-sync")

	token, err := tm.Issue("backend", time.Minute)
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "backend", claims.Subject)
}

func TestParseRejects(t *testing.T) {
	tm := NewTokenManager("secret", "mollie-sync")

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", "mollie-sync")
		token, _ := other.Issue("backend", time.Minute)
		_, err := tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager("secret", "someone-else")
		token, _ := other.Issue("backend", time.Minute)
		_, err := tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := tm.Issue("backend", -time.Minute)
		_, err := tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
