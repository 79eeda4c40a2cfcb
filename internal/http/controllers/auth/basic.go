package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login: the static-credential fallback for
// environments without a Google workspace. The customer record is created
// lazily on the first QuickBooks link, not here.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("auth.login"))

	if !c.deps.Basic.Enabled {
		apperrors.WriteError(w, apperrors.ErrUnauthorized.WithMessage("Basic auth is disabled."))
		return
	}

	var req loginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(c.deps.Basic.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(c.deps.Basic.PasswordBcrypt), []byte(req.Password))
	if !userOK || passErr != nil {
		log.Warn("basic login rejected", logger.String("username", req.Username))
		apperrors.WriteError(w, apperrors.ErrInvalidCredentials)
		return
	}

	sess := c.deps.Sessions.Get(r)
	sess.Authenticated = true
	sess.AuthType = session.AuthTypeBasic
	sess.Email = c.deps.Basic.Email
	sess.Name = c.deps.Basic.Name
	sess.CustomerID = ""
	sess.LinkCustomerID = ""
	sess.TempLinkID = ""
	if err := c.deps.Sessions.Save(w, sess); err != nil {
		log.Error("session save failed", logger.Err(err))
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	log.Info("basic login completed", logger.Email(sess.Email))
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"email":    sess.Email,
			"name":     sess.Name,
			"authType": sess.AuthType,
		},
	})
}

// Logout handles POST /auth/logout.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	c.deps.Sessions.Destroy(w, r)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me handles GET /auth/me: the dashboard polls this to render login state.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	sess := c.deps.Sessions.Get(r)
	if !sess.Authenticated {
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"email":      sess.Email,
			"name":       sess.Name,
			"authType":   sess.AuthType,
			"customerId": sess.CustomerID,
		},
	})
}

// ErrorPage handles GET /auth/error. The UI is external; this just echoes
// the machine-readable reason so the frontend (or curl) can read it.
func (c *Controller) ErrorPage(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "unknown"
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"error": reason})
}

// disconnectProvider clears a single token group for the session's customer.
func (c *Controller) disconnectProvider(w http.ResponseWriter, r *http.Request, p core.Provider) {
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

	if err := c.deps.Store.UpdateTokens(ctx, customerID, p, nil); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("provider disconnected",
		logger.Op("auth.disconnect"),
		logger.Provider(string(p)),
		logger.CustomerID(customerID),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
