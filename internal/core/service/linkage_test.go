package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func TestLinkageCollector_ClientFindsTraderWithoutPassword(t *testing.T) {
	f := newFixture(t)
	client := f.identity(t, domain.RoleClient, "c@x.com")
	trader := f.identity(t, domain.RoleTrader, "other@x.com", func(i *domain.Identity) {
		i.ClientID = client.ID
		i.PasswordHash = mustHash(t, "never-submitted")
	})

	lc := NewLinkageCollector(f.repo, zerolog.Nop())
	primary := domain.ValidProfile{Identity: client, Role: domain.RoleClient, PasswordMatched: true}
	link, err := lc.Collect(context.Background(), primary, []domain.ValidProfile{primary})
	require.NoError(t, err)

	require.NotNil(t, link.Counterpart)
	assert.Equal(t, trader.ID, link.Counterpart.ID)
	require.Len(t, link.Profiles, 1)
	assert.Equal(t, domain.RoleTrader, link.Profiles[0].UserType)
}

func TestLinkageCollector_TraderUsesValidSetBeforeStore(t *testing.T) {
	f := newFixture(t)
	client := &domain.Identity{ID: "client-x", Role: domain.RoleClient, Email: "p@x.com", IsActive: true}
	trader := &domain.Identity{ID: "trader-x", Role: domain.RoleTrader, Email: "p@x.com", IsActive: true, IsVerified: true, ClientID: client.ID}

	lc := NewLinkageCollector(f.repo, zerolog.Nop())
	valid := []domain.ValidProfile{
		{Identity: trader, Role: domain.RoleTrader, PasswordMatched: true},
		{Identity: client, Role: domain.RoleClient, PasswordMatched: true},
	}
	link, err := lc.Collect(context.Background(), valid[0], valid)
	require.NoError(t, err)
	require.Len(t, link.Profiles, 1)
	assert.Equal(t, client.ID, link.Profiles[0].ID)
}

func TestLinkageCollector_TraderFetchesClientByID(t *testing.T) {
	f := newFixture(t)
	client := f.identity(t, domain.RoleClient, "c@x.com")
	trader := f.identity(t, domain.RoleTrader, "t@x.com", func(i *domain.Identity) { i.ClientID = client.ID })

	lc := NewLinkageCollector(f.repo, zerolog.Nop())
	primary := domain.ValidProfile{Identity: trader, Role: domain.RoleTrader, PasswordMatched: true}
	link, err := lc.Collect(context.Background(), primary, []domain.ValidProfile{primary})
	require.NoError(t, err)
	require.NotNil(t, link.Counterpart)
	assert.Equal(t, client.ID, link.Counterpart.ID)
}

func TestLinkageCollector_NoLinkForOtherRolesOrDanglingReference(t *testing.T) {
	f := newFixture(t)
	lc := NewLinkageCollector(f.repo, zerolog.Nop())

	admin := f.identity(t, domain.RoleAdmin, "a@x.com")
	link, err := lc.Collect(context.Background(), domain.ValidProfile{Identity: admin, Role: domain.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Empty(t, link.Profiles)
	assert.Nil(t, link.Counterpart)

	dangling := f.identity(t, domain.RoleTrader, "t@x.com", func(i *domain.Identity) { i.ClientID = "client-gone" })
	link, err = lc.Collect(context.Background(), domain.ValidProfile{Identity: dangling, Role: domain.RoleTrader}, nil)
	require.NoError(t, err)
	assert.Empty(t, link.Profiles)
}
