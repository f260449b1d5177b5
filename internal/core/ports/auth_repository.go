package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// IdentityRepository is the keyed lookup over the five role stores. Every
// method is parameterised by role so callers never see storage layout.
// Absent records are reported as domain.ErrIdentityNotFound.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, role domain.Role, id string) (*domain.Identity, error)
	// FindTraderByClientID returns the trader whose client_id references clientID.
	FindTraderByClientID(ctx context.Context, clientID string) (*domain.Identity, error)
	UpdateLastLogin(ctx context.Context, role domain.Role, id string, at time.Time) error
	CreateClient(ctx context.Context, client *domain.Identity) (*domain.Identity, error)
	// LinkTraderToClient sets trader.client_id only while it is unset; an
	// already-linked trader yields domain.ErrAlreadyLinked.
	LinkTraderToClient(ctx context.Context, traderID, clientID string) error
}

// CategoryRepository answers existence checks for preferred categories.
type CategoryRepository interface {
	// FindActiveIDs returns the subset of ids that exist and are active.
	FindActiveIDs(ctx context.Context, ids []string) ([]string, error)
}

// LastLoginUpdate is one pending last-login write.
type LastLoginUpdate struct {
	Role domain.Role
	ID   string
	At   time.Time
}

// LastLoginRecorder persists last-login timestamps, possibly asynchronously.
type LastLoginRecorder interface {
	Record(ctx context.Context, updates ...LastLoginUpdate)
}

// RegistrationGuard serialises registrations for the same email.
type RegistrationGuard interface {
	// Acquire reports false when another registration holds the email. On
	// success the returned token identifies this holder.
	Acquire(ctx context.Context, email string) (token string, ok bool, err error)
	// Release frees the email only while token still owns it.
	Release(ctx context.Context, email, token string) error
}
