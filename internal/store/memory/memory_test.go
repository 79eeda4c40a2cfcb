package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/store/core"
	memorystore "github.com/dropDatabas3/tokenbridge/internal/store/memory"
)

func TestUpsert_GetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	c := &core.Customer{ID: "c1", Email: "a@x.com", Name: "A"}
	c.SetTokens(core.ProviderGoogle, &core.TokenSet{AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, s.Upsert(ctx, c))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", got.Email)
	require.Equal(t, "at", got.TokensFor(core.ProviderGoogle).AccessToken)
	require.False(t, got.UpdatedAt.IsZero())

	// Los retornos son copias: mutarlas no afecta el store.
	got.TokensFor(core.ProviderGoogle).AccessToken = "mutated"
	again, _ := s.Get(ctx, "c1")
	require.Equal(t, "at", again.TokensFor(core.ProviderGoogle).AccessToken)
}

func TestUpsert_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "c1", Email: "dup@x.com"}))
	err := s.Upsert(ctx, &core.Customer{ID: "c2", Email: "dup@x.com"})
	require.ErrorIs(t, err, core.ErrDuplicateEmail)

	// Mismo id: reemplazo, no duplicado.
	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "c1", Email: "dup@x.com", Name: "Renamed"}))
}

func TestGetByEmailAndCompanyID(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	c := &core.Customer{ID: "c1", Email: "a@x.com"}
	c.SetTokens(core.ProviderQuickBooks, &core.TokenSet{AccessToken: "at", CompanyID: "realm-1"})
	require.NoError(t, s.Upsert(ctx, c))

	byEmail, err := s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "c1", byEmail.ID)

	byCompany, err := s.GetByCompanyID(ctx, "realm-1")
	require.NoError(t, err)
	require.Equal(t, "c1", byCompany.ID)

	_, err = s.GetByCompanyID(ctx, "realm-x")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetAll_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	base := time.Now().UTC()
	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "old", Email: "old@x.com", CreatedAt: base.Add(-time.Hour)}))
	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "new", Email: "new@x.com", CreatedAt: base}))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "new", all[0].ID)
	require.Equal(t, "old", all[1].ID)
}

func TestUpdateTokens_NilClearsGroup(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	c := &core.Customer{ID: "c1", Email: "a@x.com"}
	c.SetTokens(core.ProviderGoogle, &core.TokenSet{AccessToken: "at"})
	require.NoError(t, s.Upsert(ctx, c))

	require.NoError(t, s.UpdateTokens(ctx, "c1", core.ProviderGoogle, nil))
	got, _ := s.Get(ctx, "c1")
	require.Nil(t, got.TokensFor(core.ProviderGoogle))

	require.ErrorIs(t, s.UpdateTokens(ctx, "ghost", core.ProviderGoogle, nil), core.ErrNotFound)
}

func TestDelete_RemovesSheets(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()

	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "c1", Email: "a@x.com"}))
	require.NoError(t, s.SaveSheet(ctx, core.SheetLink{CustomerID: "c1", SheetID: "sh-1", Purpose: "invoices"}))

	require.NoError(t, s.Delete(ctx, "c1"))
	_, err := s.Get(ctx, "c1")
	require.ErrorIs(t, err, core.ErrNotFound)

	links, err := s.ListSheets(ctx, "c1")
	require.NoError(t, err)
	require.Empty(t, links)

	require.ErrorIs(t, s.Delete(ctx, "c1"), core.ErrNotFound)
}

func TestSaveSheet_UpsertByIDAndPurpose(t *testing.T) {
	ctx := context.Background()
	s := memorystore.New()
	require.NoError(t, s.Upsert(ctx, &core.Customer{ID: "c1", Email: "a@x.com"}))

	require.NoError(t, s.SaveSheet(ctx, core.SheetLink{CustomerID: "c1", SheetID: "sh-1", Name: "v1", Purpose: "invoices"}))
	require.NoError(t, s.SaveSheet(ctx, core.SheetLink{CustomerID: "c1", SheetID: "sh-1", Name: "v2", Purpose: "invoices"}))
	require.NoError(t, s.SaveSheet(ctx, core.SheetLink{CustomerID: "c1", SheetID: "sh-1", Name: "other", Purpose: "payroll"}))

	links, err := s.ListSheets(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, links, 2, "same sheet+purpose replaces, different purpose adds")

	require.ErrorIs(t, s.SaveSheet(ctx, core.SheetLink{CustomerID: "ghost", SheetID: "sh"}), core.ErrNotFound)
}
