package auth

import (
	"errors"
	"net/http"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// StartFacebook handles GET /auth/facebook.
func (c *Controller) StartFacebook(w http.ResponseWriter, r *http.Request) {
	st, err := c.signState("facebook")
	if err != nil {
		logger.From(r.Context()).Error("state signing failed", logger.Op("auth.facebook.start"), logger.Err(err))
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	http.Redirect(w, r, c.deps.Facebook.AuthURL(st), http.StatusFound)
}

// FacebookCallback handles GET /auth/facebook/callback. Facebook identities
// map to a deterministic fb_<id> customer; the whole row is upserted and a
// facebook session is issued. No token group is stored for Facebook.
func (c *Controller) FacebookCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.facebook.callback"))
	q := r.URL.Query()

	fail := func(reason string) {
		metrics.OAuthCallback("facebook", reason)
		c.redirectError(w, r, reason)
	}

	if e := q.Get("error"); e != "" {
		log.Warn("facebook returned error", logger.String("provider_error", e))
		fail(reasonAuthFailed)
		return
	}
	code := q.Get("code")
	if code == "" || !c.checkState(q.Get("state"), "facebook") {
		log.Warn("missing code or bad state")
		fail(reasonAuthFailed)
		return
	}

	tr, err := c.deps.Facebook.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		fail(reasonAuthFailed)
		return
	}
	ui, err := c.deps.Facebook.GetUserInfo(ctx, tr.AccessToken)
	if err != nil || ui.ID == "" {
		log.Warn("userinfo failed", logger.Err(err))
		fail(reasonAuthFailed)
		return
	}

	cust, err := c.deps.Linker.LinkFacebook(ctx, ui.ID, identity.Profile{
		Email:   ui.Email,
		Name:    ui.Name,
		Picture: ui.Picture.Data.URL,
	})
	if err != nil {
		log.Error("facebook link failed", logger.Err(err))
		fail(reasonTokenSaveFailed)
		return
	}

	sess := c.deps.Sessions.Get(r)
	sess.Authenticated = true
	sess.AuthType = session.AuthTypeFacebook
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

	metrics.OAuthCallback("facebook", "success")
	log.Info("facebook login completed", logger.CustomerID(cust.ID))
	c.redirectDashboard(w, r)
}

// DisconnectFacebook handles POST /auth/facebook/disconnect. A Facebook-only
// identity has nothing to preserve, so the customer row is deleted and the
// session destroyed.
func (c *Controller) DisconnectFacebook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := c.deps.Sessions.Get(r)
	if !sess.Authenticated || sess.AuthType != session.AuthTypeFacebook || sess.CustomerID == "" {
		apperrors.WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	if err := c.deps.Linker.DisconnectFacebook(ctx, sess.CustomerID); err != nil && !errors.Is(err, core.ErrNotFound) {
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}
	c.deps.Sessions.Destroy(w, r)

	logger.From(ctx).Info("facebook disconnected",
		logger.Op("auth.facebook.disconnect"),
		logger.CustomerID(sess.CustomerID),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Facebook account disconnected",
	})
}
