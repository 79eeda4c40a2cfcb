package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// StartGoogle handles GET /auth/google: signs a state token and redirects to
// Google's consent screen.
func (c *Controller) StartGoogle(w http.ResponseWriter, r *http.Request) {
	st, err := c.signState("google")
	if err != nil {
		logger.From(r.Context()).Error("state signing failed", logger.Op("auth.google.start"), logger.Err(err))
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	http.Redirect(w, r, c.deps.Google.AuthURL(st), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. On success the Google
// identity is merged onto a customer (by email) and a session is issued.
// Every failure redirects to the error page with a machine-readable reason.
func (c *Controller) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.google.callback"))
	q := r.URL.Query()

	fail := func(reason string) {
		metrics.OAuthCallback("google", reason)
		c.redirectError(w, r, reason)
	}

	if e := q.Get("error"); e != "" {
		log.Warn("google returned error", logger.String("provider_error", e))
		fail(reasonAuthFailed)
		return
	}
	code := q.Get("code")
	if code == "" || !c.checkState(q.Get("state"), "google") {
		log.Warn("missing code or bad state")
		fail(reasonAuthFailed)
		return
	}

	tr, err := c.deps.Google.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		fail(reasonAuthFailed)
		return
	}
	ui, err := c.deps.Google.GetUserInfo(ctx, tr.AccessToken)
	if err != nil || ui.Email == "" {
		log.Warn("userinfo failed", logger.Err(err))
		fail(reasonAuthFailed)
		return
	}

	ts := &core.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scopes:       strings.Fields(tr.Scope),
	}
	cust, created, err := c.deps.Linker.LinkGoogle(ctx, identity.Profile{Email: ui.Email, Name: ui.Name, Picture: ui.Picture}, ts)
	if err != nil {
		log.Error("google link failed", logger.Email(ui.Email), logger.Err(err))
		fail(reasonTokenSaveFailed)
		return
	}

	sess := c.deps.Sessions.Get(r)
	sess.Authenticated = true
	sess.AuthType = session.AuthTypeGoogle
	sess.CustomerID = cust.ID
	sess.Email = cust.Email
	sess.Name = cust.Name
	sess.LinkCustomerID = ""
	sess.TempLinkID = ""
	if err := c.deps.Sessions.Save(w, sess); err != nil {
		log.Error("session save failed", logger.CustomerID(cust.ID), logger.Err(err))
		fail(reasonSessionFailed)
		return
	}

	metrics.OAuthCallback("google", "success")
	log.Info("google login completed", logger.CustomerID(cust.ID), logger.Bool("created", created))
	c.redirectDashboard(w, r)
}

// DisconnectGoogle handles POST /auth/google/disconnect. Requires an active
// Google session; clears only the Google token group.
func (c *Controller) DisconnectGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := c.deps.Sessions.Get(r)
	if !sess.Authenticated || sess.AuthType != session.AuthTypeGoogle || sess.CustomerID == "" {
		apperrors.WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	if err := c.deps.Linker.DisconnectGoogle(ctx, sess.CustomerID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("google disconnected",
		logger.Op("auth.google.disconnect"),
		logger.CustomerID(sess.CustomerID),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Google account disconnected",
	})
}
