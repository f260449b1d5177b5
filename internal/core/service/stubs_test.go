package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	mu         sync.Mutex
	stores     map[domain.Role]map[string]*domain.Identity
	seq        int
	findErr    map[domain.Role]error
	linkErr    error
	createErr  error
	lastLogins []ports.LastLoginUpdate
	// override lets a test hand back a record from the wrong store.
	override map[domain.Role]*domain.Identity
}

func newStubIdentityRepo() *stubIdentityRepo {
	stores := make(map[domain.Role]map[string]*domain.Identity, len(domain.AllRoles))
	for _, r := range domain.AllRoles {
		stores[r] = make(map[string]*domain.Identity)
	}
	return &stubIdentityRepo{
		stores:   stores,
		findErr:  make(map[domain.Role]error),
		override: make(map[domain.Role]*domain.Identity),
	}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	if i.PreferredCategories != nil {
		clone.PreferredCategories = append([]string(nil), i.PreferredCategories...)
	}
	return &clone
}

func (r *stubIdentityRepo) seed(ident *domain.Identity) *domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident.ID == "" {
		r.seq++
		ident.ID = fmt.Sprintf("%s-%d", strings.ToLower(string(ident.Role)), r.seq)
	}
	r.stores[ident.Role][ident.ID] = cloneIdentity(ident)
	return ident
}

func (r *stubIdentityRepo) get(role domain.Role, id string) *domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneIdentity(r.stores[role][id])
}

func (r *stubIdentityRepo) count(role domain.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores[role])
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, role domain.Role, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.findErr[role]; err != nil {
		return nil, err
	}
	if o := r.override[role]; o != nil {
		return cloneIdentity(o), nil
	}
	for _, ident := range r.stores[role] {
		if strings.EqualFold(ident.Email, email) {
			return cloneIdentity(ident), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) FindByID(_ context.Context, role domain.Role, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.stores[role][id]; ok {
		return cloneIdentity(ident), nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) FindTraderByClientID(_ context.Context, clientID string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.stores[domain.RoleTrader] {
		if ident.ClientID == clientID {
			return cloneIdentity(ident), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) UpdateLastLogin(_ context.Context, role domain.Role, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.stores[role][id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	ident.LastLoginAt = &at
	r.lastLogins = append(r.lastLogins, ports.LastLoginUpdate{Role: role, ID: id, At: at})
	return nil
}

func (r *stubIdentityRepo) CreateClient(_ context.Context, client *domain.Identity) (*domain.Identity, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	for _, ident := range r.stores[domain.RoleClient] {
		if ident.Email == client.Email {
			r.mu.Unlock()
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.mu.Unlock()
	return cloneIdentity(r.seed(cloneIdentity(client))), nil
}

func (r *stubIdentityRepo) LinkTraderToClient(_ context.Context, traderID, clientID string) error {
	if r.linkErr != nil {
		return r.linkErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	trader, ok := r.stores[domain.RoleTrader][traderID]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	if trader.ClientID != "" {
		return domain.ErrAlreadyLinked
	}
	trader.ClientID = clientID
	return nil
}

type stubCategoryRepo struct {
	active map[string]bool
	err    error
}

func (c *stubCategoryRepo) FindActiveIDs(_ context.Context, ids []string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []string
	for _, id := range ids {
		if c.active[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type stubGuard struct {
	busy     bool
	err      error
	acquired []string
	released []string
	tokens   []string
}

func (g *stubGuard) Acquire(_ context.Context, email string) (string, bool, error) {
	if g.err != nil {
		return "", false, g.err
	}
	if g.busy {
		return "", false, nil
	}
	g.acquired = append(g.acquired, email)
	return "tok-" + email, true, nil
}

func (g *stubGuard) Release(_ context.Context, email, token string) error {
	g.released = append(g.released, email)
	g.tokens = append(g.tokens, token)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const (
	testSecret   = "test-secret"
	testPassword = "correct"
)

var testHasher = NewBcryptHasher(bcrypt.MinCost)

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := testHasher.Hash(plain)
	require.NoError(t, err)
	return h
}

func newTestIssuer(t *testing.T) *SessionIssuer {
	t.Helper()
	issuer, err := NewSessionIssuer(SessionConfig{Secret: testSecret, Issuer: "identity-test"})
	require.NoError(t, err)
	return issuer
}

type fixture struct {
	repo       *stubIdentityRepo
	categories *stubCategoryRepo
	guard      *stubGuard
	issuer     *SessionIssuer
	svc        *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newStubIdentityRepo(),
		categories: &stubCategoryRepo{active: map[string]bool{}},
		guard:      &stubGuard{},
		issuer:     newTestIssuer(t),
	}
	f.svc = NewAuthService(AuthDeps{
		Identities: f.repo,
		Categories: f.categories,
		Hasher:     testHasher,
		Sessions:   f.issuer,
		Guard:      f.guard,
		Log:        zerolog.Nop(),
	})
	return f
}

// identity seeds an active (and, for traders, verified) record with the test password.
func (f *fixture) identity(t *testing.T, role domain.Role, email string, mutate ...func(*domain.Identity)) *domain.Identity {
	t.Helper()
	ident := &domain.Identity{
		Role:         role,
		Email:        email,
		PasswordHash: mustHash(t, testPassword),
		Name:         strings.ToLower(string(role)) + " user",
		IsActive:     true,
		IsVerified:   role == domain.RoleTrader,
	}
	for _, m := range mutate {
		m(ident)
	}
	return f.repo.seed(ident)
}
