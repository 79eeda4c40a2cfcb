// Package auth implements the browser-facing OAuth flows: provider redirect,
// callback, identity linking and session establishment. Everything here
// redirects; the JSON API for n8n lives in controllers/api.
package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/facebook"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/google"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/quickbooks"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/state"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/tiktok"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// GoogleFlow is the slice of the Google client used by the controller.
type GoogleFlow interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*google.TokenResponse, error)
	GetUserInfo(ctx context.Context, accessToken string) (*google.UserInfo, error)
}

// FacebookFlow is the slice of the Facebook client used by the controller.
type FacebookFlow interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*facebook.TokenResponse, error)
	GetUserInfo(ctx context.Context, accessToken string) (*facebook.UserInfo, error)
}

// QuickBooksFlow is the slice of the Intuit client used by the controller.
type QuickBooksFlow interface {
	AuthorizeURI(state string) string
	CreateToken(ctx context.Context, code string) (*quickbooks.TokenResponse, error)
	APIBase() string
}

// TikTokFlow is the slice of the TikTok client used by the controller.
type TikTokFlow interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*tiktok.TokenResponse, error)
}

// BasicAuth is the static credential fallback for environments without a
// Google workspace (local dev, staging).
type BasicAuth struct {
	Enabled        bool
	Username       string
	PasswordBcrypt string
	Email          string
	Name           string
}

// Deps holds the controller dependencies, wired in main.
type Deps struct {
	Sessions *session.Manager
	Store    core.CustomerStore
	Resolver *identity.Resolver
	Linker   *identity.Linker
	State    *state.Signer

	Google     GoogleFlow
	Facebook   FacebookFlow
	QuickBooks QuickBooksFlow
	TikTok     TikTokFlow

	DashboardURL string
	ErrorURL     string
	Basic        BasicAuth
}

// Controller handles /auth/*.
type Controller struct {
	deps Deps
}

func NewController(d Deps) *Controller {
	return &Controller{deps: d}
}

// Failure reasons surfaced to the frontend via redirect query params. These
// are part of the UI contract: the error page switches copy on them.
const (
	reasonAuthFailed      = "auth_failed"
	reasonSessionLost     = "session_lost"
	reasonTokenSaveFailed = "token_save_failed"
	reasonSessionFailed   = "session_failed"
)

func (c *Controller) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, c.deps.ErrorURL+"?reason="+url.QueryEscape(reason), http.StatusFound)
}

func (c *Controller) redirectDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, c.deps.DashboardURL, http.StatusFound)
}

// redirectDashboardWith redirige al dashboard con un query param de estado
// (p.ej. qb_error=session_lost). El dashboard decide cómo mostrarlo.
func (c *Controller) redirectDashboardWith(w http.ResponseWriter, r *http.Request, key, val string) {
	http.Redirect(w, r, c.deps.DashboardURL+"?"+key+"="+url.QueryEscape(val), http.StatusFound)
}

// signState firma el JWT de state para el provider dado.
func (c *Controller) signState(provider string) (string, error) {
	nonce, err := state.NewNonce()
	if err != nil {
		return "", err
	}
	return c.deps.State.Sign(state.Claims{Provider: provider, Nonce: nonce})
}

// checkState valida el JWT de state y que pertenezca al provider esperado.
func (c *Controller) checkState(tokenString, provider string) bool {
	claims, err := c.deps.State.Parse(tokenString)
	if err != nil {
		return false
	}
	return claims.Provider == provider
}
