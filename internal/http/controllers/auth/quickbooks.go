package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// StartQuickBooks handles GET /auth/quickbooks: the linking flow for an
// already-authenticated user. The session records which customer initiated
// the flow so the callback can resolve it even if Intuit's redirect comes
// back on a fresh-looking request.
func (c *Controller) StartQuickBooks(w http.ResponseWriter, r *http.Request) {
	sess := c.deps.Sessions.Get(r)
	if sess.Authenticated && sess.CustomerID != "" {
		sess.LinkCustomerID = sess.CustomerID
		if err := c.deps.Sessions.Save(w, sess); err != nil {
			logger.From(r.Context()).Error("session save failed", logger.Op("auth.quickbooks.start"), logger.Err(err))
			c.redirectError(w, r, reasonSessionFailed)
			return
		}
	}

	st, err := c.signState("quickbooks")
	if err != nil {
		logger.From(r.Context()).Error("state signing failed", logger.Op("auth.quickbooks.start"), logger.Err(err))
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	http.Redirect(w, r, c.deps.QuickBooks.AuthorizeURI(st), http.StatusFound)
}

// StartQuickBooksStandalone handles GET /auth/quickbooks/standalone: the
// anonymous QuickBooks-only flow. A temporary id is parked in the session;
// the callback turns it into a real customer with a placeholder email.
func (c *Controller) StartQuickBooksStandalone(w http.ResponseWriter, r *http.Request) {
	sess := c.deps.Sessions.Get(r)
	sess.TempLinkID = uuid.NewString()
	if err := c.deps.Sessions.Save(w, sess); err != nil {
		logger.From(r.Context()).Error("session save failed", logger.Op("auth.quickbooks.standalone"), logger.Err(err))
		c.redirectError(w, r, reasonSessionFailed)
		return
	}

	st, err := c.signState("quickbooks")
	if err != nil {
		logger.From(r.Context()).Error("state signing failed", logger.Op("auth.quickbooks.standalone"), logger.Err(err))
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	http.Redirect(w, r, c.deps.QuickBooks.AuthorizeURI(st), http.StatusFound)
}

// QuickBooksCallback handles GET /auth/quickbooks/callback. Intuit sends
// code + realmId; the resolver decides which customer the company attaches
// to. A lost session is not recoverable server-side: the user restarts.
func (c *Controller) QuickBooksCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.quickbooks.callback"))
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		log.Warn("intuit returned error", logger.String("provider_error", e))
		metrics.OAuthCallback("quickbooks", reasonAuthFailed)
		c.redirectError(w, r, reasonAuthFailed)
		return
	}
	code := q.Get("code")
	realmID := q.Get("realmId")
	if code == "" || realmID == "" || !c.checkState(q.Get("state"), "quickbooks") {
		log.Warn("missing code/realmId or bad state")
		metrics.OAuthCallback("quickbooks", reasonAuthFailed)
		c.redirectError(w, r, reasonAuthFailed)
		return
	}

	// El intercambio del code va antes de resolver identidad: un exchange
	// rechazado no debe dejar un customer placeholder sin tokens.
	tr, err := c.deps.QuickBooks.CreateToken(ctx, code)
	if err != nil {
		log.Warn("token exchange failed", logger.CompanyID(realmID), logger.Err(err))
		metrics.OAuthCallback("quickbooks", reasonAuthFailed)
		c.redirectError(w, r, reasonAuthFailed)
		return
	}

	sess := c.deps.Sessions.Get(r)
	customerID, created, err := c.deps.Resolver.Resolve(ctx, identity.FromSession(sess), realmID)
	if err != nil {
		if errors.Is(err, identity.ErrSessionLost) {
			metrics.OAuthCallback("quickbooks", reasonSessionLost)
			c.redirectDashboardWith(w, r, "qb_error", reasonSessionLost)
			return
		}
		log.Error("identity resolution failed", logger.CompanyID(realmID), logger.Err(err))
		metrics.OAuthCallback("quickbooks", reasonTokenSaveFailed)
		c.redirectError(w, r, reasonTokenSaveFailed)
		return
	}
	log = log.With(logger.CustomerID(customerID), logger.CompanyID(realmID))

	ts := &core.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		CompanyID:    realmID,
		BaseURL:      c.deps.QuickBooks.APIBase(),
	}
	if err := c.deps.Linker.LinkQuickBooks(ctx, customerID, ts); err != nil {
		log.Error("quickbooks link failed", logger.Err(err))
		metrics.OAuthCallback("quickbooks", reasonTokenSaveFailed)
		c.redirectError(w, r, reasonTokenSaveFailed)
		return
	}

	// La sesión queda apuntando al customer resuelto: los hints temporales
	// ya cumplieron su función y un segundo flujo debe resolver por rule 3.
	sess.TempLinkID = ""
	sess.LinkCustomerID = customerID
	if !sess.Authenticated {
		cust, gerr := c.deps.Store.Get(ctx, customerID)
		sess.Authenticated = true
		sess.AuthType = session.AuthTypeQuickBooks
		sess.CustomerID = customerID
		if gerr == nil {
			sess.Email = cust.Email
			sess.Name = cust.Name
		}
	}
	if err := c.deps.Sessions.Save(w, sess); err != nil {
		log.Error("session save failed", logger.Err(err))
		metrics.OAuthCallback("quickbooks", reasonSessionFailed)
		c.redirectError(w, r, reasonSessionFailed)
		return
	}

	metrics.OAuthCallback("quickbooks", "success")
	log.Info("quickbooks company linked", logger.Bool("created", created))
	c.redirectDashboardWith(w, r, "quickbooks", "connected")
}

// DisconnectQuickBooks handles POST /auth/quickbooks/disconnect for the
// current session's customer. Only the QuickBooks group is cleared.
func (c *Controller) DisconnectQuickBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := c.deps.Sessions.Get(r)

	customerID := sess.CustomerID
	if customerID == "" {
		customerID = sess.LinkCustomerID
	}
	if !sess.Authenticated || customerID == "" {
		apperrors.WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	if err := c.deps.Linker.DisconnectQuickBooks(ctx, customerID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("quickbooks disconnected",
		logger.Op("auth.quickbooks.disconnect"),
		logger.CustomerID(customerID),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "QuickBooks company disconnected",
	})
}

// DisconnectQuickBooksCompany handles /auth/quickbooks/disconnect-company.
// Intuit calls this when the user disconnects from their side, so there is
// no session: the customer is located by realmId.
func (c *Controller) DisconnectQuickBooksCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	realmID := r.URL.Query().Get("realmId")
	if realmID == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithMessage("realmId is required"))
		return
	}

	customerID, err := c.deps.Linker.DisconnectQuickBooksByCompany(ctx, realmID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("quickbooks disconnected by provider",
		logger.Op("auth.quickbooks.disconnect_company"),
		logger.CustomerID(customerID),
		logger.CompanyID(realmID),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"customerId": customerID,
	})
}
