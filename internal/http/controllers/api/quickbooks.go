package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
)

// QuickBooksStatus handles GET /api/customer/{id}/quickbooks and its alias
// /quickbooks/status. Validation is optimistic (see quickbooks.Client), so
// tokenValid:false only happens on an explicit provider rejection.
func (c *Controller) QuickBooksStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, ts, v, err := c.deps.QuickBooks.Tokens(r.Context(), id)
	switch {
	case err == nil:
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"connected":   true,
			"companyId":   ts.CompanyID,
			"baseUrl":     ts.BaseURL,
			"environment": c.deps.Environment,
			"tokenValid":  v.Valid,
			"tokenExpiry": ts.Expiry,
		})
	case errors.Is(err, tokens.ErrNotLinked):
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"connected": false,
			"authUrl":   c.deps.QuickBooksAuthURL,
		})
	case errors.Is(err, tokens.ErrInvalidToken):
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"connected":   true,
			"companyId":   ts.CompanyID,
			"baseUrl":     ts.BaseURL,
			"environment": c.deps.Environment,
			"tokenValid":  false,
			"tokenExpiry": ts.Expiry,
			"authUrl":     c.deps.QuickBooksAuthURL,
		})
	default:
		apperrors.WriteError(w, c.quickbooksErr(err))
	}
}

// QuickBooksTokens handles GET /api/customer/{id}/quickbooks/tokens: raw
// token material for direct QuickBooks API calls from workflows.
func (c *Controller) QuickBooksTokens(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, ts, _, err := c.deps.QuickBooks.Tokens(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, c.quickbooksErr(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"integration":  "quickbooks",
		"connected":    true,
		"accessToken":  ts.AccessToken,
		"refreshToken": ts.RefreshToken,
		"companyId":    ts.CompanyID,
		"baseUrl":      ts.BaseURL,
	})
}

// QuickBooksRefresh handles POST /api/customer/{id}/quickbooks/refresh.
func (c *Controller) QuickBooksRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	nts, tr, err := c.deps.QuickBooks.Refresh(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, c.quickbooksErr(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": nts.AccessToken,
		"tokenExpiry": nts.Expiry,
		"expiresIn":   tr.ExpiresIn,
	})
}
