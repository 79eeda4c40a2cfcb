package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// StartTikTok handles GET /auth/tiktok. TikTok is link-only: it always
// attaches to an existing authenticated customer, there is no standalone
// flow and no TikTok login.
func (c *Controller) StartTikTok(w http.ResponseWriter, r *http.Request) {
	sess := c.deps.Sessions.Get(r)
	if !sess.Authenticated || sess.CustomerID == "" {
		c.redirectError(w, r, reasonSessionLost)
		return
	}
	sess.LinkCustomerID = sess.CustomerID
	if err := c.deps.Sessions.Save(w, sess); err != nil {
		logger.From(r.Context()).Error("session save failed", logger.Op("auth.tiktok.start"), logger.Err(err))
		c.redirectError(w, r, reasonSessionFailed)
		return
	}

	st, err := c.signState("tiktok")
	if err != nil {
		logger.From(r.Context()).Error("state signing failed", logger.Op("auth.tiktok.start"), logger.Err(err))
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	http.Redirect(w, r, c.deps.TikTok.AuthURL(st), http.StatusFound)
}

// TikTokCallback handles GET /auth/tiktok/callback.
func (c *Controller) TikTokCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.tiktok.callback"))
	q := r.URL.Query()

	fail := func(reason string) {
		metrics.OAuthCallback("tiktok", reason)
		c.redirectError(w, r, reason)
	}

	if e := q.Get("error"); e != "" {
		log.Warn("tiktok returned error", logger.String("provider_error", e))
		fail(reasonAuthFailed)
		return
	}
	code := q.Get("code")
	if code == "" || !c.checkState(q.Get("state"), "tiktok") {
		log.Warn("missing code or bad state")
		fail(reasonAuthFailed)
		return
	}

	sess := c.deps.Sessions.Get(r)
	customerID, _, err := c.deps.Resolver.Resolve(ctx, identity.FromSession(sess), "")
	if err != nil {
		if errors.Is(err, identity.ErrSessionLost) {
			fail(reasonSessionLost)
			return
		}
		log.Error("identity resolution failed", logger.Err(err))
		fail(reasonTokenSaveFailed)
		return
	}

	tr, err := c.deps.TikTok.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("token exchange failed", logger.Err(err))
		fail(reasonAuthFailed)
		return
	}

	ts := &core.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		UserID:       tr.OpenID,
	}
	if err := c.deps.Linker.LinkTikTok(ctx, customerID, ts); err != nil {
		log.Error("tiktok link failed", logger.CustomerID(customerID), logger.Err(err))
		fail(reasonTokenSaveFailed)
		return
	}

	metrics.OAuthCallback("tiktok", "success")
	log.Info("tiktok account linked", logger.CustomerID(customerID))
	c.redirectDashboardWith(w, r, "tiktok", "connected")
}

// DisconnectTikTok handles POST /auth/tiktok/disconnect.
func (c *Controller) DisconnectTikTok(w http.ResponseWriter, r *http.Request) {
	c.disconnectProvider(w, r, core.ProviderTikTok)
}
