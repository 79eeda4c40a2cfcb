// Package api implements the machine-facing REST surface consumed by the
// automation engine (n8n). Everything is keyed by customer id and returns
// live-validated tokens; the browser flows live in controllers/auth.
package api

import (
	"errors"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Deps holds the controller dependencies, wired in main.
type Deps struct {
	Store      core.CustomerStore
	Google     *tokens.GoogleService
	QuickBooks *tokens.QuickBooksService

	// Re-auth URLs embedded in error payloads so a workflow can surface a
	// "reconnect" link without knowing the broker's routes.
	GoogleAuthURL     string
	QuickBooksAuthURL string

	// Environment is the Intuit environment (sandbox|production), echoed in
	// QuickBooks status payloads.
	Environment string
}

// Controller handles /api/*.
type Controller struct {
	deps Deps
}

func NewController(d Deps) *Controller {
	return &Controller{deps: d}
}

// googleErr maps token-service sentinels to the Google error taxonomy.
func (c *Controller) googleErr(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, tokens.ErrCustomerNotFound):
		return apperrors.ErrCustomerNotFound
	case errors.Is(err, tokens.ErrNotLinked):
		return apperrors.ErrNoGoogleToken.WithAuthURL(c.deps.GoogleAuthURL)
	case errors.Is(err, tokens.ErrInvalidToken):
		return apperrors.ErrInvalidGoogleToken.WithAuthURL(c.deps.GoogleAuthURL)
	case errors.Is(err, tokens.ErrRefreshRejected):
		return apperrors.ErrRefreshFailed.WithCause(err)
	case errors.Is(err, tokens.ErrSaveFailed):
		return apperrors.ErrTokenSaveFailed.WithCause(err)
	default:
		return apperrors.ErrInternal.WithCause(err)
	}
}

// quickbooksErr maps token-service sentinels to the QuickBooks taxonomy.
func (c *Controller) quickbooksErr(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, tokens.ErrCustomerNotFound):
		return apperrors.ErrCustomerNotFound
	case errors.Is(err, tokens.ErrNotLinked):
		return apperrors.ErrQuickBooksNotConnected.WithAuthURL(c.deps.QuickBooksAuthURL)
	case errors.Is(err, tokens.ErrInvalidToken):
		return apperrors.ErrInvalidQuickBooksToken.WithAuthURL(c.deps.QuickBooksAuthURL)
	case errors.Is(err, tokens.ErrRefreshRejected):
		return apperrors.ErrRefreshFailed.WithCause(err)
	case errors.Is(err, tokens.ErrSaveFailed):
		return apperrors.ErrTokenSaveFailed.WithCause(err)
	default:
		return apperrors.ErrInternal.WithCause(err)
	}
}
