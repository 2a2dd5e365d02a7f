package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	issuer, err := NewSessionIssuer(time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("player-1")
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", id)
}

func TestSessionExpires(t *testing.T) {
	issuer, err := NewSessionIssuer(time.Minute)
	require.NoError(t, err)

	start := time.Now()
	issuer.now = func() time.Time { return start }
	token, err := issuer.Issue("player-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionRejectsForeignKey(t *testing.T) {
	a, err := NewSessionIssuer(0)
	require.NoError(t, err)
	b, err := NewSessionIssuer(0)
	require.NoError(t, err)

	token, err := a.Issue("player-1")
	require.NoError(t, err)
	_, err = b.Verify(token)
	assert.Error(t, err)

	_, err = a.Verify("not-a-token")
	assert.Error(t, err)
}

func TestParseTokenExpire(t *testing.T) {
	for _, v := range []string{"", "0", "never"} {
		d, err := ParseTokenExpire(v)
		require.NoError(t, err)
		assert.Zero(t, d)
	}

	d, err := ParseTokenExpire("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseTokenExpire("soon")
	assert.Error(t, err)
	_, err = ParseTokenExpire("-1h")
	assert.Error(t, err)
}
