package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/ports"
)

// SyncLastLoginRecorder writes last-login timestamps inline. A failed write
// is logged and never fails the login that triggered it.
type SyncLastLoginRecorder struct {
	identities ports.IdentityRepository
	log        zerolog.Logger
}

func NewSyncLastLoginRecorder(identities ports.IdentityRepository, log zerolog.Logger) *SyncLastLoginRecorder {
	return &SyncLastLoginRecorder{identities: identities, log: log}
}

func (r *SyncLastLoginRecorder) Record(ctx context.Context, updates ...ports.LastLoginUpdate) {
	for _, u := range updates {
		if err := r.identities.UpdateLastLogin(ctx, u.Role, u.ID, u.At); err != nil {
			r.log.Warn().Err(err).
				Str("role", string(u.Role)).
				Str("id", u.ID).
				Msg("failed to update last login")
		}
	}
}
