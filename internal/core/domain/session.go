package domain

import "time"

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenPair is one bearer token and its refresh token.
type TokenPair struct {
	Token        string
	RefreshToken string
}

// Session is the stateless result of a successful login. RoleTokens holds an
// independent pair for every linkable role that validated.
type Session struct {
	TokenPair
	RoleTokens        map[Role]string
	RoleRefreshTokens map[Role]string
	RoleProfiles      map[Role]Profile
}

// TokenClaims is what a verified bearer token asserts.
type TokenClaims struct {
	SubjectID string
	Role      Role
	Type      TokenType
	Remember  bool
	ExpiresAt time.Time
}
