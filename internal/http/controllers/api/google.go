package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
)

// Customer handles GET /api/customer/{id}: the original single-call shape
// used by the first n8n workflows. Returns the Google identity plus a
// live-validated access token.
func (c *Controller) Customer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cust, ts, info, err := c.deps.Google.Tokens(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, c.googleErr(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"id":            cust.ID,
		"email":         cust.Email,
		"name":          cust.Name,
		"accessToken":   ts.AccessToken,
		"refreshToken":  ts.RefreshToken,
		"scopes":        ts.Scopes,
		"expiresIn":     info.ExpiresIn,
		"hasGoogleAuth": true,
	})
}

// GoogleTokens handles GET /api/customer/{id}/google/tokens: same data,
// namespaced like the other per-integration endpoints.
func (c *Controller) GoogleTokens(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cust, ts, info, err := c.deps.Google.Tokens(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, c.googleErr(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"integration":   "google",
		"connected":     true,
		"id":            cust.ID,
		"email":         cust.Email,
		"name":          cust.Name,
		"accessToken":   ts.AccessToken,
		"refreshToken":  ts.RefreshToken,
		"scopes":        ts.Scopes,
		"expiresIn":     info.ExpiresIn,
		"hasGoogleAuth": true,
	})
}

// GoogleStatus handles GET /api/customer/{id}/google/status: liveness check
// without token material. Unlinked and invalid both answer 200 with
// connected:false so workflows can branch without error handling.
func (c *Controller) GoogleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, _, info, err := c.deps.Google.Tokens(r.Context(), id)
	switch {
	case err == nil:
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"integration": "google",
			"connected":   true,
			"expiresIn":   info.ExpiresIn,
			"scopes":      info.Scopes,
		})
	case errors.Is(err, tokens.ErrNotLinked):
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"integration": "google",
			"connected":   false,
			"message":     "No Google account linked",
			"authUrl":     c.deps.GoogleAuthURL,
		})
	case errors.Is(err, tokens.ErrInvalidToken):
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"integration": "google",
			"connected":   false,
			"message":     "Google token is invalid or expired",
			"authUrl":     c.deps.GoogleAuthURL,
		})
	default:
		apperrors.WriteError(w, c.googleErr(err))
	}
}

// GoogleRefresh handles POST /api/customer/{id}/google/refresh.
func (c *Controller) GoogleRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	nts, rr, err := c.deps.Google.Refresh(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, c.googleErr(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": nts.AccessToken,
		"tokenExpiry": nts.Expiry,
		"expiresIn":   rr.ExpiresIn,
	})
}
