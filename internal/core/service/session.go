package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// SessionConfig is validated once at startup and injected into the issuer.
type SessionConfig struct {
	Secret             string
	Issuer             string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RememberAccessTTL  time.Duration
	RememberRefreshTTL time.Duration
}

func (c *SessionConfig) applyDefaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 24 * time.Hour
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	c.RememberAccessTTL = lengthened(c.RememberAccessTTL, c.AccessTTL, 30*24*time.Hour)
	c.RememberRefreshTTL = lengthened(c.RememberRefreshTTL, c.RefreshTTL, 60*24*time.Hour)
}

// lengthened keeps a remember-me TTL strictly longer than its plain
// counterpart, falling back to the larger of def and twice base.
func lengthened(remember, base, def time.Duration) time.Duration {
	if remember > base {
		return remember
	}
	return max(def, 2*base)
}

type sessionClaims struct {
	Role     domain.Role      `json:"role"`
	Type     domain.TokenType `json:"typ"`
	Remember bool             `json:"rmb,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer mints stateless HS256 bearer/refresh pairs.
type SessionIssuer struct {
	cfg    SessionConfig
	secret []byte
	now    func() time.Time
}

// NewSessionIssuer fails with domain.ErrSigningSecretMissing when cfg carries
// no secret; callers treat that as fatal.
func NewSessionIssuer(cfg SessionConfig) (*SessionIssuer, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrSigningSecretMissing
	}
	cfg.applyDefaults()
	return &SessionIssuer{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}, nil
}

// Issue mints the primary pair plus an independent pair for every linkable
// role among valid, so the caller can switch roles without re-authenticating.
func (s *SessionIssuer) Issue(primary domain.ValidProfile, valid []domain.ValidProfile, rememberMe bool) (*domain.Session, error) {
	pair, err := s.IssuePair(primary.Identity.ID, primary.Role, rememberMe)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		TokenPair:         *pair,
		RoleTokens:        make(map[domain.Role]string),
		RoleRefreshTokens: make(map[domain.Role]string),
		RoleProfiles:      make(map[domain.Role]domain.Profile),
	}
	for _, vp := range valid {
		if !vp.Role.Linkable() {
			continue
		}
		rp, err := s.IssuePair(vp.Identity.ID, vp.Role, rememberMe)
		if err != nil {
			return nil, err
		}
		sess.RoleTokens[vp.Role] = rp.Token
		sess.RoleRefreshTokens[vp.Role] = rp.RefreshToken
		sess.RoleProfiles[vp.Role] = vp.Identity.Project()
	}
	return sess, nil
}

// IssuePair mints one access/refresh pair for (subjectID, role).
func (s *SessionIssuer) IssuePair(subjectID string, role domain.Role, rememberMe bool) (*domain.TokenPair, error) {
	accessTTL, refreshTTL := s.cfg.AccessTTL, s.cfg.RefreshTTL
	if rememberMe {
		accessTTL, refreshTTL = s.cfg.RememberAccessTTL, s.cfg.RememberRefreshTTL
	}

	access, err := s.sign(subjectID, role, domain.TokenAccess, rememberMe, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(subjectID, role, domain.TokenRefresh, rememberMe, refreshTTL)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{Token: access, RefreshToken: refresh}, nil
}

func (s *SessionIssuer) sign(subjectID string, role domain.Role, typ domain.TokenType, remember bool, ttl time.Duration) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Role:     role,
		Type:     typ,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies token and requires it to be of type want.
func (s *SessionIssuer) Parse(token string, want domain.TokenType) (*domain.TokenClaims, error) {
	claims, err := s.parse(token, want)
	if err != nil {
		return nil, err
	}
	return &domain.TokenClaims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		Type:      claims.Type,
		Remember:  claims.Remember,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *SessionIssuer) parse(token string, want domain.TokenType) (*sessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Type != want || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	if _, ok := domain.ParseRole(string(claims.Role)); !ok {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
