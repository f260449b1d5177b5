package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// LoginInput carries the credentials of one login attempt.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	// Role is the optional, case-insensitive role hint. Empty means any role.
	Role string
}

// LoginResult is everything a successful login hands back to the caller.
type LoginResult struct {
	User           domain.Profile
	Session        domain.Session
	AvailableRoles []domain.Role
	LinkedProfiles []domain.Profile
}

// RegisterInput carries a CLIENT self-registration.
type RegisterInput struct {
	Email               string
	Password            string
	Name                string
	Phone               string
	CountryCode         string
	Country             string
	City                string
	Role                string
	PreferredCategories []string
}

// RegisterResult is the created client plus its CLIENT-only session.
type RegisterResult struct {
	User           domain.Profile
	Tokens         domain.TokenPair
	LinkedProfiles []domain.Profile
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Me(ctx context.Context, claims domain.TokenClaims) (*domain.Profile, error)
	LinkedProfiles(ctx context.Context, claims domain.TokenClaims) ([]domain.Profile, error)
}
