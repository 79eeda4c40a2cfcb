package tokens_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/google"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
	memorystore "github.com/dropDatabas3/tokenbridge/internal/store/memory"
)

type fakeGoogleOAuth struct {
	valid      bool
	refresh    *google.RefreshResult
	refreshErr error
}

func (f *fakeGoogleOAuth) ValidateToken(_ context.Context, accessToken string) google.TokenInfo {
	if !f.valid {
		return google.TokenInfo{Valid: false, Err: "invalid_token"}
	}
	return google.TokenInfo{Valid: true, ExpiresIn: 3599, Scopes: []string{"openid", "email"}}
}

func (f *fakeGoogleOAuth) Refresh(_ context.Context, refreshToken string) (*google.RefreshResult, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refresh, nil
}

func seedGoogleCustomer(t *testing.T, store core.CustomerStore) *core.Customer {
	t.Helper()
	c := &core.Customer{
		ID:        "cust-1",
		Email:     "a@x.com",
		CreatedAt: time.Now().UTC(),
	}
	c.SetTokens(core.ProviderGoogle, &core.TokenSet{
		AccessToken:  "g-access",
		RefreshToken: "g-refresh",
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       []string{"openid"},
	})
	require.NoError(t, store.Upsert(context.Background(), c))
	return c
}

func TestGoogleTokens_Validated(t *testing.T) {
	store := memorystore.New()
	seedGoogleCustomer(t, store)
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{valid: true}})

	cust, ts, info, err := svc.Tokens(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", cust.Email)
	require.Equal(t, "g-access", ts.AccessToken)
	require.Equal(t, 3599, info.ExpiresIn)
}

func TestGoogleTokens_CustomerNotFound(t *testing.T) {
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: memorystore.New(), OAuth: &fakeGoogleOAuth{valid: true}})
	_, _, _, err := svc.Tokens(context.Background(), "nope")
	require.ErrorIs(t, err, tokens.ErrCustomerNotFound)
}

func TestGoogleTokens_NotLinked(t *testing.T) {
	store := memorystore.New()
	require.NoError(t, store.Upsert(context.Background(), &core.Customer{ID: "bare", Email: "bare@x.com"}))
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{valid: true}})

	_, _, _, err := svc.Tokens(context.Background(), "bare")
	require.ErrorIs(t, err, tokens.ErrNotLinked)
}

func TestGoogleTokens_InvalidToken(t *testing.T) {
	store := memorystore.New()
	seedGoogleCustomer(t, store)
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{valid: false}})

	_, _, _, err := svc.Tokens(context.Background(), "cust-1")
	require.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestGoogleRefresh_KeepsOldRefreshToken(t *testing.T) {
	store := memorystore.New()
	seedGoogleCustomer(t, store)
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{
		refresh: &google.RefreshResult{AccessToken: "g-access-2", ExpiresIn: 3600},
	}})

	nts, rr, err := svc.Refresh(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Equal(t, "g-access-2", nts.AccessToken)
	require.Equal(t, "g-refresh", nts.RefreshToken, "old refresh token kept when provider omits a new one")
	require.Equal(t, 3600, rr.ExpiresIn)

	// Persistido
	after, err := store.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Equal(t, "g-access-2", after.TokensFor(core.ProviderGoogle).AccessToken)
	require.Equal(t, "g-refresh", after.TokensFor(core.ProviderGoogle).RefreshToken)
}

func TestGoogleRefresh_RotatedRefreshTokenReplaces(t *testing.T) {
	store := memorystore.New()
	seedGoogleCustomer(t, store)
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{
		refresh: &google.RefreshResult{AccessToken: "g-access-2", RefreshToken: "g-refresh-2", ExpiresIn: 3600},
	}})

	nts, _, err := svc.Refresh(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Equal(t, "g-refresh-2", nts.RefreshToken)
}

func TestGoogleRefresh_ProviderRejected(t *testing.T) {
	store := memorystore.New()
	seedGoogleCustomer(t, store)
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{
		refreshErr: fmt.Errorf("invalid_grant"),
	}})

	_, _, err := svc.Refresh(context.Background(), "cust-1")
	require.ErrorIs(t, err, tokens.ErrRefreshRejected)

	// El grupo almacenado no cambió
	after, _ := store.Get(context.Background(), "cust-1")
	require.Equal(t, "g-access", after.TokensFor(core.ProviderGoogle).AccessToken)
}

func TestGoogleRefresh_NoRefreshToken(t *testing.T) {
	store := memorystore.New()
	c := &core.Customer{ID: "cust-2", Email: "b@x.com"}
	c.SetTokens(core.ProviderGoogle, &core.TokenSet{AccessToken: "only-access"})
	require.NoError(t, store.Upsert(context.Background(), c))
	svc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: &fakeGoogleOAuth{}})

	_, _, err := svc.Refresh(context.Background(), "cust-2")
	require.ErrorIs(t, err, tokens.ErrNotLinked)
}
