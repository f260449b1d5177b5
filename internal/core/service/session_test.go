package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func TestNewSessionIssuer_RequiresSecret(t *testing.T) {
	_, err := NewSessionIssuer(SessionConfig{})
	assert.ErrorIs(t, err, domain.ErrSigningSecretMissing)
}

func TestSessionIssuer_PairRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("client-1", domain.RoleClient, false)
	require.NoError(t, err)
	require.NotEqual(t, pair.Token, pair.RefreshToken)

	claims, err := issuer.Parse(pair.Token, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.SubjectID)
	assert.Equal(t, domain.RoleClient, claims.Role)
	assert.False(t, claims.Remember)

	_, err = issuer.Parse(pair.RefreshToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "refresh token must not pass as access token")

	_, err = issuer.Parse(pair.Token, domain.TokenRefresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionIssuer_RememberMeLengthensExpiry(t *testing.T) {
	tests := []struct {
		name string
		cfg  SessionConfig
	}{
		{"defaults", SessionConfig{}},
		{"long plain access ttl", SessionConfig{AccessTTL: 1000 * time.Hour}},
		{"long plain refresh ttl", SessionConfig{RefreshTTL: 2000 * time.Hour}},
		{"remember shorter than plain", SessionConfig{AccessTTL: 48 * time.Hour, RememberAccessTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Secret = testSecret
			cfg.Issuer = "identity-test"
			issuer, err := NewSessionIssuer(cfg)
			require.NoError(t, err)

			short, err := issuer.IssuePair("u", domain.RoleAdmin, false)
			require.NoError(t, err)
			long, err := issuer.IssuePair("u", domain.RoleAdmin, true)
			require.NoError(t, err)

			sc, err := issuer.Parse(short.Token, domain.TokenAccess)
			require.NoError(t, err)
			lc, err := issuer.Parse(long.Token, domain.TokenAccess)
			require.NoError(t, err)
			assert.True(t, lc.ExpiresAt.After(sc.ExpiresAt), "access: remember %v, plain %v", lc.ExpiresAt, sc.ExpiresAt)
			assert.True(t, lc.Remember)

			sr, err := issuer.Parse(short.RefreshToken, domain.TokenRefresh)
			require.NoError(t, err)
			lr, err := issuer.Parse(long.RefreshToken, domain.TokenRefresh)
			require.NoError(t, err)
			assert.True(t, lr.ExpiresAt.After(sr.ExpiresAt), "refresh: remember %v, plain %v", lr.ExpiresAt, sr.ExpiresAt)
		})
	}
}

func TestSessionIssuer_RejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewSessionIssuer(SessionConfig{Secret: "someone-else", Issuer: "identity-test"})
	require.NoError(t, err)
	pair, err := other.IssuePair("u", domain.RoleClient, false)
	require.NoError(t, err)
	_, err = issuer.Parse(pair.Token, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, err := issuer.IssuePair("u", domain.RoleClient, false)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Parse(stale.Token, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer := newTestIssuer(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub":  "u",
		"role": "ADMIN",
		"typ":  "access",
		"iss":  "identity-test",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = issuer.Parse(signed, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionIssuer_RoleTokensOnlyForLinkableRoles(t *testing.T) {
	issuer := newTestIssuer(t)
	admin := &domain.Identity{ID: "admin-1", Role: domain.RoleAdmin, IsActive: true}
	trader := &domain.Identity{ID: "trader-1", Role: domain.RoleTrader, IsActive: true, IsVerified: true}
	client := &domain.Identity{ID: "client-1", Role: domain.RoleClient, IsActive: true}
	valid := []domain.ValidProfile{
		{Identity: admin, Role: domain.RoleAdmin, PasswordMatched: true},
		{Identity: trader, Role: domain.RoleTrader, PasswordMatched: true},
		{Identity: client, Role: domain.RoleClient, PasswordMatched: true},
	}

	sess, err := issuer.Issue(valid[0], valid, false)
	require.NoError(t, err)

	primary, err := issuer.Parse(sess.Token, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, primary.Role)

	assert.NotContains(t, sess.RoleTokens, domain.RoleAdmin)
	require.Len(t, sess.RoleTokens, 2)
	require.Len(t, sess.RoleRefreshTokens, 2)
	for _, vp := range valid[1:] {
		claims, err := issuer.Parse(sess.RoleTokens[vp.Role], domain.TokenAccess)
		require.NoError(t, err)
		assert.Equal(t, vp.Identity.ID, claims.SubjectID)
		assert.Equal(t, vp.Role, claims.Role)

		_, err = issuer.Parse(sess.RoleRefreshTokens[vp.Role], domain.TokenRefresh)
		require.NoError(t, err)
		assert.Equal(t, vp.Role, sess.RoleProfiles[vp.Role].UserType)
	}
}
