package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// AuthDeps bundles the collaborators of AuthService.
type AuthDeps struct {
	Identities ports.IdentityRepository
	Categories ports.CategoryRepository
	Hasher     PasswordHasher
	Sessions   *SessionIssuer
	// LastLogin defaults to a synchronous recorder over Identities.
	LastLogin ports.LastLoginRecorder
	// Guard is optional; without it concurrent registrations rely on the
	// store's unique email index alone.
	Guard ports.RegistrationGuard
	Log   zerolog.Logger
}

// AuthService implements login, registration and token refresh.
type AuthService struct {
	identities ports.IdentityRepository
	categories ports.CategoryRepository
	hasher     PasswordHasher
	resolver   *RoleResolver
	linkage    *LinkageCollector
	sessions   *SessionIssuer
	lastLogin  ports.LastLoginRecorder
	guard      ports.RegistrationGuard
	log        zerolog.Logger
	now        func() time.Time
}

func NewAuthService(deps AuthDeps) *AuthService {
	lastLogin := deps.LastLogin
	if lastLogin == nil {
		lastLogin = NewSyncLastLoginRecorder(deps.Identities, deps.Log)
	}
	return &AuthService{
		identities: deps.Identities,
		categories: deps.Categories,
		hasher:     deps.Hasher,
		resolver:   NewRoleResolver(deps.Identities, deps.Hasher, deps.Log),
		linkage:    NewLinkageCollector(deps.Identities, deps.Log),
		sessions:   deps.Sessions,
		lastLogin:  lastLogin,
		guard:      deps.Guard,
		log:        deps.Log,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login resolves the credentials, collects the client↔trader counterpart,
// issues the sessions and records the last login of the primary identity and
// its counterpart.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ValidationFailed("email and password are required")
	}

	var hint domain.Role
	if strings.TrimSpace(in.Role) != "" {
		r, ok := domain.ParseRole(in.Role)
		if !ok {
			return nil, domain.ValidationFailed("unknown role: " + in.Role)
		}
		hint = r
	}

	res, err := s.resolver.Resolve(ctx, email, in.Password, hint)
	if err != nil {
		if ae, ok := domain.AsAuthError(err); ok && ae.Kind != domain.KindInvariant {
			s.log.Info().Str("email", email).Str("hint", string(hint)).Str("code", ae.Code).Msg("login rejected")
		}
		return nil, err
	}

	link, err := s.linkage.Collect(ctx, res.Primary, res.Valid)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Issue(res.Primary, res.Valid, in.RememberMe)
	if err != nil {
		return nil, oops.Code("SESSION_ISSUE_FAILED").
			With("subject_id", res.Primary.Identity.ID).
			With("role", res.Primary.Role).
			Wrap(err)
	}

	now := s.now().UTC()
	updates := []ports.LastLoginUpdate{{Role: res.Primary.Role, ID: res.Primary.Identity.ID, At: now}}
	if link.Counterpart != nil {
		updates = append(updates, ports.LastLoginUpdate{Role: link.Counterpart.Role, ID: link.Counterpart.ID, At: now})
	}
	s.lastLogin.Record(ctx, updates...)

	user := res.Primary.Identity.Project()
	user.LastLoginAt = &now

	s.log.Info().
		Str("subject_id", user.ID).
		Str("role", string(res.Primary.Role)).
		Int("available_roles", len(res.Valid)).
		Bool("linked", link.Counterpart != nil).
		Msg("login succeeded")

	return &ports.LoginResult{
		User:           user,
		Session:        *sess,
		AvailableRoles: res.AvailableRoles(),
		LinkedProfiles: link.Profiles,
	}, nil
}

// Register creates a CLIENT identity and, when an unlinked TRADER with the
// same email exists, links it to the new client. Only a CLIENT session is
// issued: trader credentials are never verified here.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, domain.ValidationFailed("email, password and name are required")
	}
	if strings.TrimSpace(in.Role) != "" {
		if r, ok := domain.ParseRole(in.Role); !ok || r != domain.RoleClient {
			return nil, domain.ErrInvalidRole
		}
	}

	if s.guard != nil {
		token, acquired, err := s.guard.Acquire(ctx, email)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("email", email).Msg("registration guard unavailable, continuing")
		case !acquired:
			return nil, domain.ErrRegistrationBusy
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), email, token); err != nil {
					s.log.Warn().Err(err).Str("email", email).Msg("failed to release registration guard")
				}
			}()
		}
	}

	existing, err := s.lookupExisting(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing[domain.RoleAdmin] != nil || existing[domain.RoleEmployee] != nil {
		return nil, domain.ErrEmailTaken
	}
	if existing[domain.RoleClient] != nil {
		return nil, domain.ErrEmailTaken
	}

	categories, err := s.checkCategories(ctx, in.PreferredCategories)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	now := s.now().UTC()
	created, err := s.identities.CreateClient(ctx, &domain.Identity{
		Role:                domain.RoleClient,
		Email:               email,
		PasswordHash:        hash,
		Name:                name,
		Phone:               strings.TrimSpace(in.Phone),
		CountryCode:         strings.TrimSpace(in.CountryCode),
		Country:             strings.TrimSpace(in.Country),
		City:                strings.TrimSpace(in.City),
		IsActive:            true,
		PreferredCategories: categories,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, oops.Code("CLIENT_CREATE_FAILED").With("email", email).Wrap(err)
	}

	linked := []domain.Profile{}
	if trader := existing[domain.RoleTrader]; trader != nil && !trader.IsLinked() {
		if profile, ok := s.linkTrader(ctx, trader, created); ok {
			linked = append(linked, profile)
		}
	}

	pair, err := s.sessions.IssuePair(created.ID, domain.RoleClient, false)
	if err != nil {
		return nil, oops.Code("SESSION_ISSUE_FAILED").With("subject_id", created.ID).Wrap(err)
	}

	s.log.Info().
		Str("client_id", created.ID).
		Bool("linked_trader", len(linked) > 0).
		Msg("client registered")

	return &ports.RegisterResult{
		User:           created.Project(),
		Tokens:         *pair,
		LinkedProfiles: linked,
	}, nil
}

// linkTrader points trader at client. Failure leaves the client registered
// but unlinked; the registration itself still succeeds.
func (s *AuthService) linkTrader(ctx context.Context, trader, client *domain.Identity) (domain.Profile, bool) {
	err := s.identities.LinkTraderToClient(ctx, trader.ID, client.ID)
	if errors.Is(err, domain.ErrAlreadyLinked) {
		s.log.Info().Str("trader_id", trader.ID).Msg("trader was linked concurrently, skipping")
		return domain.Profile{}, false
	}
	if err != nil {
		s.log.Error().Err(err).
			Str("trader_id", trader.ID).
			Str("client_id", client.ID).
			Msg("client created but trader link failed")
		return domain.Profile{}, false
	}
	trader.ClientID = client.ID
	return trader.Project(), true
}

// lookupExisting fetches the roles that constrain registration concurrently.
func (s *AuthService) lookupExisting(ctx context.Context, email string) (map[domain.Role]*domain.Identity, error) {
	roles := []domain.Role{domain.RoleAdmin, domain.RoleEmployee, domain.RoleClient, domain.RoleTrader}
	found := make([]*domain.Identity, len(roles))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		g.Go(func() error {
			ident, err := s.identities.FindByEmail(gctx, role, email)
			if errors.Is(err, domain.ErrIdentityNotFound) {
				return nil
			}
			if err != nil {
				return oops.Code("IDENTITY_LOOKUP_FAILED").With("role", role).Wrap(err)
			}
			found[i] = ident
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.Role]*domain.Identity, len(roles))
	for i, role := range roles {
		out[role] = found[i]
	}
	return out, nil
}

// checkCategories collapses duplicates and requires every id to name an
// existing, active category.
func (s *AuthService) checkCategories(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, domain.ErrInvalidCategories
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	active, err := s.categories.FindActiveIDs(ctx, unique)
	if err != nil {
		return nil, oops.Code("CATEGORY_LOOKUP_FAILED").Wrap(err)
	}
	if len(active) != len(unique) {
		return nil, domain.ErrInvalidCategories
	}
	return unique, nil
}

// Refresh exchanges a refresh token for a new pair once the subject is
// confirmed to still pass its role gate.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, domain.ValidationFailed("refreshToken is required")
	}
	claims, err := s.sessions.Parse(refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, err
	}

	ident, err := s.subject(ctx, *claims)
	if err != nil {
		return nil, err
	}

	pair, err := s.sessions.IssuePair(ident.ID, ident.Role, claims.Remember)
	if err != nil {
		return nil, oops.Code("SESSION_ISSUE_FAILED").With("subject_id", ident.ID).Wrap(err)
	}
	return pair, nil
}

// Me returns the public projection of the token's subject.
func (s *AuthService) Me(ctx context.Context, claims domain.TokenClaims) (*domain.Profile, error) {
	ident, err := s.subject(ctx, claims)
	if err != nil {
		return nil, err
	}
	p := ident.Project()
	return &p, nil
}

// LinkedProfiles returns the client↔trader counterpart of the token's subject.
func (s *AuthService) LinkedProfiles(ctx context.Context, claims domain.TokenClaims) ([]domain.Profile, error) {
	ident, err := s.subject(ctx, claims)
	if err != nil {
		return nil, err
	}
	link, err := s.linkage.Collect(ctx, domain.ValidProfile{Identity: ident, Role: ident.Role}, nil)
	if err != nil {
		return nil, err
	}
	return link.Profiles, nil
}

// subject loads the token's identity and re-applies its role gate, so a
// token outlives neither deactivation nor a revoked trader verification.
func (s *AuthService) subject(ctx context.Context, claims domain.TokenClaims) (*domain.Identity, error) {
	ident, err := s.identities.FindByID(ctx, claims.Role, claims.SubjectID)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_LOOKUP_FAILED").
			With("role", claims.Role).
			With("subject_id", claims.SubjectID).
			Wrap(err)
	}
	if !ident.IsActive {
		return nil, domain.ErrAccountInactive
	}
	if !ident.PassesGate() {
		return nil, domain.ErrAccountPendingApproval
	}
	return ident, nil
}
