// Package admin implements the operator endpoints, guarded by a static API
// key (see middlewares.RequireAdminKey).
package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Controller handles /admin/*.
type Controller struct {
	store core.CustomerStore
}

func NewController(store core.CustomerStore) *Controller {
	return &Controller{store: store}
}

// customerSummary is the admin listing shape: identity and which providers
// are linked, never token material.
type customerSummary struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	Providers []string `json:"providers"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// ListCustomers handles GET /admin/customers, newest first.
func (c *Controller) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := c.store.GetAll(r.Context())
	if err != nil {
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	out := make([]customerSummary, 0, len(customers))
	for _, cust := range customers {
		providers := make([]string, 0, len(cust.Tokens))
		for _, p := range []core.Provider{core.ProviderGoogle, core.ProviderQuickBooks, core.ProviderTikTok} {
			if cust.HasProvider(p) {
				providers = append(providers, string(p))
			}
		}
		s := customerSummary{
			ID:        cust.ID,
			Email:     cust.Email,
			Name:      cust.Name,
			Providers: providers,
			CreatedAt: cust.CreatedAt.Format(time.RFC3339),
		}
		if !cust.UpdatedAt.IsZero() {
			s.UpdatedAt = cust.UpdatedAt.Format(time.RFC3339)
		}
		out = append(out, s)
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"count":     len(out),
		"customers": out,
	})
}

// DeleteCustomer handles DELETE /admin/customer/{id}: hard delete, sheet
// links go with the row.
func (c *Controller) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	cust, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	if err := c.store.Delete(ctx, id); err != nil {
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("customer deleted",
		logger.Op("admin.customer.delete"),
		logger.CustomerID(id),
		logger.Email(cust.Email),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"customerEmail": cust.Email,
	})
}
