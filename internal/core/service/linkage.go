package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// Linkage is the client↔trader counterpart of a primary identity.
type Linkage struct {
	Profiles    []domain.Profile
	Counterpart *domain.Identity
}

// LinkageCollector follows the one-hop trader.client_id reference.
type LinkageCollector struct {
	identities ports.IdentityRepository
	log        zerolog.Logger
}

func NewLinkageCollector(identities ports.IdentityRepository, log zerolog.Logger) *LinkageCollector {
	return &LinkageCollector{identities: identities, log: log}
}

// Collect returns the linked counterpart of primary. Records already present
// in valid are reused; otherwise the counterpart is fetched without any
// password check, since its credentials were never submitted.
func (l *LinkageCollector) Collect(ctx context.Context, primary domain.ValidProfile, valid []domain.ValidProfile) (*Linkage, error) {
	counterpart, err := l.counterpart(ctx, primary.Identity, valid)
	if err != nil {
		return nil, err
	}

	out := &Linkage{Profiles: []domain.Profile{}}
	if counterpart != nil {
		out.Counterpart = counterpart
		out.Profiles = append(out.Profiles, counterpart.Project())
	}
	return out, nil
}

func (l *LinkageCollector) counterpart(ctx context.Context, ident *domain.Identity, valid []domain.ValidProfile) (*domain.Identity, error) {
	switch ident.Role {
	case domain.RoleClient:
		for _, vp := range valid {
			if vp.Role == domain.RoleTrader && vp.Identity.ClientID == ident.ID {
				return vp.Identity, nil
			}
		}
		trader, err := l.identities.FindTraderByClientID(ctx, ident.ID)
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, oops.Code("LINKAGE_LOOKUP_FAILED").
				With("client_id", ident.ID).
				Wrap(err)
		}
		return trader, nil

	case domain.RoleTrader:
		if !ident.IsLinked() {
			return nil, nil
		}
		for _, vp := range valid {
			if vp.Role == domain.RoleClient && vp.Identity.ID == ident.ClientID {
				return vp.Identity, nil
			}
		}
		client, err := l.identities.FindByID(ctx, domain.RoleClient, ident.ClientID)
		if errors.Is(err, domain.ErrIdentityNotFound) {
			l.log.Warn().
				Str("trader_id", ident.ID).
				Str("client_id", ident.ClientID).
				Msg("trader references a missing client")
			return nil, nil
		}
		if err != nil {
			return nil, oops.Code("LINKAGE_LOOKUP_FAILED").
				With("trader_id", ident.ID).
				Wrap(err)
		}
		return client, nil
	}
	return nil, nil
}
