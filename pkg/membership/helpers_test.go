package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/memdb"
)

func newStore(t *testing.T) *memdb.Store {
	t.Helper()
	s, err := memdb.New()
	require.NoError(t, err)
	return s
}

func createUser(t *testing.T, s storage.Store, name string, admin bool) *storage.User {
	t.Helper()
	u := &storage.User{Name: name, Email: name + "@example.com", IsAdmin: admin, AuthProvider: "local"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createMembership(t *testing.T, s storage.Store, teamID, userID string, role storage.MembershipRole) *storage.TeamMembership {
	t.Helper()
	m := &storage.TeamMembership{TeamID: teamID, UserID: userID, Role: role, IsActive: true}
	require.NoError(t, s.CreateMembership(context.Background(), m))
	// keep created_at ordering deterministic
	time.Sleep(2 * time.Millisecond)
	return m
}

func createTeam(t *testing.T, s storage.Store, name, leadID string) *storage.Team {
	t.Helper()
	team := &storage.Team{Name: name, TeamLeadID: leadID, IsActive: true}
	require.NoError(t, s.CreateTeam(context.Background(), team))
	return team
}

var errInjected = errors.New("injected failure")

// failingStore fails selected writes inside transactions
type failingStore struct {
	storage.Store
	failUpdateTeam       bool
	failUpdateMembership bool
}

func (f *failingStore) RunInTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return f.Store.RunInTx(ctx, func(tx storage.Store) error {
		return fn(&failingStore{Store: tx, failUpdateTeam: f.failUpdateTeam, failUpdateMembership: f.failUpdateMembership})
	})
}

func (f *failingStore) UpdateTeam(ctx context.Context, team *storage.Team) error {
	if f.failUpdateTeam {
		return errInjected
	}
	return f.Store.UpdateTeam(ctx, team)
}

func (f *failingStore) UpdateMembership(ctx context.Context, m *storage.TeamMembership) error {
	if f.failUpdateMembership {
		return errInjected
	}
	return f.Store.UpdateMembership(ctx, m)
}
