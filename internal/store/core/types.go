// Package core defines the customer aggregate and the store contract.
package core

import (
	"strings"
	"time"
)

// Provider identifies an external OAuth provider owning one token group.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderFacebook   Provider = "facebook"
	ProviderQuickBooks Provider = "quickbooks"
	ProviderTikTok     Provider = "tiktok"
)

// TokenSet is the per-provider token group. Providers only populate the
// fields they own: Scopes is Google-only, CompanyID/BaseURL are
// QuickBooks-only, UserID is TikTok-only.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	CompanyID    string    `json:"company_id,omitempty"`
	BaseURL      string    `json:"base_url,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
}

// Clone returns a deep copy of the token set.
func (t *TokenSet) Clone() *TokenSet {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Scopes = append([]string(nil), t.Scopes...)
	return &cp
}

// Customer is the unit of identity: one row correlates zero or more linked
// external-provider credentials under one logical user. Token groups are
// mutually independent; writing one provider's group never alters another's.
type Customer struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`

	Tokens map[Provider]*TokenSet `json:"tokens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokensFor returns the token group for a provider, or nil when not linked.
func (c *Customer) TokensFor(p Provider) *TokenSet {
	if c == nil || c.Tokens == nil {
		return nil
	}
	return c.Tokens[p]
}

// HasProvider reports whether the provider's group is present with a
// non-empty access token (the "linked" condition).
func (c *Customer) HasProvider(p Provider) bool {
	ts := c.TokensFor(p)
	if ts == nil || ts.AccessToken == "" {
		return false
	}
	// QuickBooks additionally requires a company id to count as linked.
	if p == ProviderQuickBooks && ts.CompanyID == "" {
		return false
	}
	return true
}

// SetTokens replaces the provider's group. A nil set clears it.
func (c *Customer) SetTokens(p Provider, ts *TokenSet) {
	if c.Tokens == nil {
		c.Tokens = map[Provider]*TokenSet{}
	}
	if ts == nil {
		delete(c.Tokens, p)
		return
	}
	c.Tokens[p] = ts
}

// FacebookID builds the deterministic customer id for a Facebook identity.
func FacebookID(providerID string) string {
	return "fb_" + providerID
}

// PlaceholderEmail builds the synthetic email for an anonymous standalone
// QuickBooks signup. It embeds the realm id so the string is unique, but it
// is not a real identity; there is no reconciliation path if the same human
// later signs up with a real email.
func PlaceholderEmail(companyID string) string {
	return "qb-" + companyID + "@pending.tokenbridge.local"
}

// IsPlaceholderEmail reports whether the email is a synthetic QuickBooks one.
func IsPlaceholderEmail(email string) bool {
	return strings.HasPrefix(email, "qb-") && strings.HasSuffix(email, "@pending.tokenbridge.local")
}

// SheetLink associates an external spreadsheet with a customer.
type SheetLink struct {
	CustomerID string    `json:"customer_id"`
	SheetID    string    `json:"sheet_id"`
	Name       string    `json:"name,omitempty"`
	Purpose    string    `json:"purpose,omitempty"`
	SelectedAt time.Time `json:"selected_at"`
}
