package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Integrations handles GET /api/customer/{id}/integrations: the combined
// status of both providers, validated concurrently. Token problems never
// fail the request; they show up as connected:false in the sub-objects.
func (c *Controller) Integrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	cust, err := c.deps.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	var googleStatus, qbStatus map[string]any
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, _, info, gerr := c.deps.Google.Tokens(gctx, id)
		switch {
		case gerr == nil:
			googleStatus = map[string]any{
				"connected": true,
				"expiresIn": info.ExpiresIn,
				"scopes":    info.Scopes,
			}
		case errors.Is(gerr, tokens.ErrNotLinked), errors.Is(gerr, tokens.ErrInvalidToken):
			googleStatus = map[string]any{
				"connected": false,
				"authUrl":   c.deps.GoogleAuthURL,
			}
		default:
			return gerr
		}
		return nil
	})

	g.Go(func() error {
		_, ts, v, qerr := c.deps.QuickBooks.Tokens(gctx, id)
		switch {
		case qerr == nil:
			qbStatus = map[string]any{
				"connected":   true,
				"companyId":   ts.CompanyID,
				"baseUrl":     ts.BaseURL,
				"environment": c.deps.Environment,
				"tokenValid":  v.Valid,
				"tokenExpiry": ts.Expiry,
			}
		case errors.Is(qerr, tokens.ErrNotLinked), errors.Is(qerr, tokens.ErrInvalidToken):
			qbStatus = map[string]any{
				"connected": false,
				"authUrl":   c.deps.QuickBooksAuthURL,
			}
		default:
			return qerr
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"customer_id": cust.ID,
		"email":       cust.Email,
		"name":        cust.Name,
		"integrations": map[string]any{
			"google":     googleStatus,
			"quickbooks": qbStatus,
		},
	})
}
