package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// Resolution is the outcome of a successful role resolution.
type Resolution struct {
	Primary domain.ValidProfile
	// Valid holds every gate-passing, password-matching profile in priority order.
	Valid []domain.ValidProfile
}

// AvailableRoles lists the roles the credentials unlocked, primary first.
func (r *Resolution) AvailableRoles() []domain.Role {
	roles := make([]domain.Role, 0, len(r.Valid))
	for _, vp := range r.Valid {
		roles = append(roles, vp.Role)
	}
	return roles
}

// RoleResolver decides which role stores a set of credentials unlocks.
// It performs no writes.
type RoleResolver struct {
	identities ports.IdentityRepository
	hasher     PasswordHasher
	log        zerolog.Logger
}

func NewRoleResolver(identities ports.IdentityRepository, hasher PasswordHasher, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{identities: identities, hasher: hasher, log: log}
}

type candidate struct {
	role     domain.Role
	identity *domain.Identity
	matched  bool
}

// Resolve looks email up in the hinted store, or in all five when hint is
// empty, verifies password against every record found and classifies the
// result. Lookups and comparisons run concurrently; slots without a record
// still burn a dummy comparison.
func (r *RoleResolver) Resolve(ctx context.Context, email, password string, hint domain.Role) (*Resolution, error) {
	roles := domain.AllRoles
	if hint != "" {
		roles = []domain.Role{hint}
	}

	candidates := make([]candidate, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		g.Go(func() error {
			ident, err := r.identities.FindByEmail(gctx, role, email)
			if errors.Is(err, domain.ErrIdentityNotFound) {
				r.hasher.CompareDummy(password)
				candidates[i] = candidate{role: role}
				return nil
			}
			if err != nil {
				return oops.Code("IDENTITY_LOOKUP_FAILED").
					With("role", role).
					Wrap(err)
			}
			candidates[i] = candidate{
				role:     role,
				identity: ident,
				matched:  r.hasher.Compare(password, ident.PasswordHash),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.classify(email, candidates, hint)
}

// classify walks the candidates once, in priority order, and returns either
// the resolution or the first applicable failure.
func (r *RoleResolver) classify(email string, candidates []candidate, hint domain.Role) (*Resolution, error) {
	var (
		found, matched int
		gated          *candidate
		valid          []domain.ValidProfile
	)

	for i := range candidates {
		c := &candidates[i]
		if c.identity == nil {
			continue
		}
		if err := r.checkConsistency(email, c); err != nil {
			return nil, err
		}
		found++
		if !c.matched {
			continue
		}
		matched++
		if hint != "" && c.role != hint {
			continue
		}
		if !c.identity.PassesGate() {
			if gated == nil || c.role.Priority() < gated.role.Priority() {
				gated = c
			}
			continue
		}
		valid = append(valid, domain.ValidProfile{Identity: c.identity, Role: c.role, PasswordMatched: true})
	}

	switch {
	case found == 0 && hint != "":
		return nil, domain.RoleNotFound(hint)
	case found == 0:
		return nil, domain.ErrInvalidCredentials
	case matched == 0:
		return nil, domain.ErrWrongPassword
	case len(valid) == 0 && gated != nil:
		if !gated.identity.IsActive {
			return nil, domain.ErrAccountInactive
		}
		return nil, domain.ErrAccountPendingApproval
	case len(valid) == 0:
		return nil, domain.RoleNotFound(hint)
	}

	slices.SortStableFunc(valid, func(a, b domain.ValidProfile) int {
		return a.Role.Priority() - b.Role.Priority()
	})
	return &Resolution{Primary: valid[0], Valid: valid}, nil
}

// checkConsistency guards against a store handing back a record that does not
// belong to the slot it was asked for.
func (r *RoleResolver) checkConsistency(email string, c *candidate) error {
	ident := c.identity
	if ident.Role == c.role && strings.EqualFold(ident.Email, email) && ident.ID != "" {
		return nil
	}
	r.log.Error().
		Str("consulted_role", string(c.role)).
		Str("record_role", string(ident.Role)).
		Str("record_id", ident.ID).
		Str("record_email", ident.Email).
		Str("requested_email", email).
		Msg("resolved profile inconsistent with its source store")
	return oops.Code(domain.ErrInvariantViolation.Code).
		With("consulted_role", c.role).
		With("record_role", ident.Role).
		With("record_id", ident.ID).
		Wrap(domain.ErrInvariantViolation)
}
