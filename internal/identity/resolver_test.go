package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
	memorystore "github.com/dropDatabas3/tokenbridge/internal/store/memory"
)

func seedCustomer(t *testing.T, s core.CustomerStore, id, email string) {
	t.Helper()
	err := s.Upsert(context.Background(), &core.Customer{
		ID:        id,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestResolve_GoogleSessionWins(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)
	seedCustomer(t, store, "cust-google", "g@example.com")

	// Todos los signals presentes a la vez: debe ganar la regla 1.
	ac := identity.AuthContext{
		Kind:           identity.GoogleSession,
		CustomerID:     "cust-google",
		Email:          "g@example.com",
		LinkCustomerID: "cust-link",
		TempLinkID:     "temp-1",
	}
	id, created, err := r.Resolve(context.Background(), ac, "999")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "cust-google", id)
}

func TestResolve_BasicSessionExistingEmail(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)
	seedCustomer(t, store, "cust-basic", "b@example.com")

	ac := identity.AuthContext{
		Kind:           identity.BasicSession,
		Email:          "b@example.com",
		LinkCustomerID: "cust-other", // regla 3 presente, debe perder contra la 2
	}
	id, created, err := r.Resolve(context.Background(), ac, "")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "cust-basic", id)
}

func TestResolve_BasicSessionCreatesCustomer(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)

	ac := identity.AuthContext{Kind: identity.BasicSession, Email: "new@example.com", Name: "New User"}
	id, created, err := r.Resolve(context.Background(), ac, "")
	require.NoError(t, err)
	require.True(t, created)

	c, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", c.Email)
	require.Equal(t, "New User", c.Name)
}

func TestResolve_LinkCustomerIDBeatsTempID(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)

	ac := identity.AuthContext{
		Kind:           identity.Anonymous,
		LinkCustomerID: "cust-link",
		TempLinkID:     "temp-1",
	}
	id, created, err := r.Resolve(context.Background(), ac, "123")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "cust-link", id)
}

func TestResolve_TempIDCreatesPlaceholderCustomer(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)

	ac := identity.AuthContext{Kind: identity.Anonymous, TempLinkID: "temp-1"}
	id, created, err := r.Resolve(context.Background(), ac, "4620816365")
	require.NoError(t, err)
	require.True(t, created)

	c, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, core.PlaceholderEmail("4620816365"), c.Email)
	require.Contains(t, c.Email, "4620816365")
	require.True(t, core.IsPlaceholderEmail(c.Email))
}

func TestResolve_NoContextIsSessionLost(t *testing.T) {
	store := memorystore.New()
	r := identity.NewResolver(store)

	_, _, err := r.Resolve(context.Background(), identity.AuthContext{Kind: identity.Anonymous}, "123")
	require.ErrorIs(t, err, identity.ErrSessionLost)
}
