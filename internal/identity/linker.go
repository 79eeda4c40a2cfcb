package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Profile is the normalized provider-supplied profile.
type Profile struct {
	Email   string
	Name    string
	Picture string
}

// Linker applies per-provider token merges to customer records. Every merge
// writes exactly one provider's token group; fields owned by other providers
// are never touched.
type Linker struct {
	store core.CustomerStore
}

func NewLinker(store core.CustomerStore) *Linker {
	return &Linker{store: store}
}

// LinkGoogle merges a Google identity by email. An existing customer with
// the same email keeps everything it already has (QuickBooks and TikTok
// token groups included) and only its Google group is replaced; otherwise a
// new customer is created with a fresh uuid. Authenticating with Google a
// second time must never erase previously linked QuickBooks tokens.
func (l *Linker) LinkGoogle(ctx context.Context, p Profile, ts *core.TokenSet) (*core.Customer, bool, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("identity.linker"), logger.Provider("google"))

	existing, err := l.store.GetByEmail(ctx, p.Email)
	if err == nil {
		if err := l.store.UpdateTokens(ctx, existing.ID, core.ProviderGoogle, ts); err != nil {
			return nil, false, err
		}
		// Perfil actualizado best-effort; los tokens ya quedaron escritos.
		if err := l.store.UpdateProfile(ctx, existing.ID, p.Name, p.Picture); err != nil {
			log.Warn("profile update failed", logger.CustomerID(existing.ID), logger.Err(err))
		}
		log.Info("google identity merged onto existing customer", logger.CustomerID(existing.ID))
		existing.SetTokens(core.ProviderGoogle, ts.Clone())
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}

	nc := &core.Customer{
		ID:        uuid.NewString(),
		Email:     p.Email,
		Name:      p.Name,
		Picture:   p.Picture,
		CreatedAt: time.Now().UTC(),
	}
	nc.SetTokens(core.ProviderGoogle, ts.Clone())
	if err := l.store.Upsert(ctx, nc); err != nil {
		return nil, false, err
	}
	log.Info("customer created from google identity", logger.CustomerID(nc.ID))
	return nc, true, nil
}

// LinkFacebook upserts the whole row keyed by the deterministic fb_<id>.
// Facebook customers are not expected to carry other providers' tokens in
// the current design; the full-row overwrite is a known limitation, kept
// deliberately rather than inferring merge rules.
func (l *Linker) LinkFacebook(ctx context.Context, providerID string, p Profile) (*core.Customer, error) {
	c := &core.Customer{
		ID:        core.FacebookID(providerID),
		Email:     p.Email,
		Name:      p.Name,
		Picture:   p.Picture,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.Upsert(ctx, c); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("facebook identity upserted",
		logger.Component("identity.linker"),
		logger.Provider("facebook"),
		logger.CustomerID(c.ID),
	)
	return c, nil
}

// LinkQuickBooks replaces only the QuickBooks group on the resolved
// customer. Returns core.ErrNotFound when the customer does not exist.
func (l *Linker) LinkQuickBooks(ctx context.Context, customerID string, ts *core.TokenSet) error {
	return l.store.UpdateTokens(ctx, customerID, core.ProviderQuickBooks, ts)
}

// LinkTikTok replaces only the TikTok group on the given customer.
func (l *Linker) LinkTikTok(ctx context.Context, customerID string, ts *core.TokenSet) error {
	return l.store.UpdateTokens(ctx, customerID, core.ProviderTikTok, ts)
}

// DisconnectGoogle nulls exactly the Google token group.
func (l *Linker) DisconnectGoogle(ctx context.Context, customerID string) error {
	return l.store.UpdateTokens(ctx, customerID, core.ProviderGoogle, nil)
}

// DisconnectQuickBooks nulls exactly the QuickBooks token group.
func (l *Linker) DisconnectQuickBooks(ctx context.Context, customerID string) error {
	return l.store.UpdateTokens(ctx, customerID, core.ProviderQuickBooks, nil)
}

// DisconnectQuickBooksByCompany handles provider-initiated disconnects: it
// locates the customer by the provider-supplied company id and clears the
// QuickBooks group. Returns the affected customer id.
func (l *Linker) DisconnectQuickBooksByCompany(ctx context.Context, companyID string) (string, error) {
	c, err := l.store.GetByCompanyID(ctx, companyID)
	if err != nil {
		return "", err
	}
	if err := l.store.UpdateTokens(ctx, c.ID, core.ProviderQuickBooks, nil); err != nil {
		return "", err
	}
	return c.ID, nil
}

// DisconnectTikTok nulls exactly the TikTok token group.
func (l *Linker) DisconnectTikTok(ctx context.Context, customerID string) error {
	return l.store.UpdateTokens(ctx, customerID, core.ProviderTikTok, nil)
}

// DisconnectFacebook deletes the whole customer row: a Facebook-only
// identity has no residual identity to preserve.
func (l *Linker) DisconnectFacebook(ctx context.Context, customerID string) error {
	return l.store.Delete(ctx, customerID)
}
