package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// ErrSessionLost: no resolvable identity context. The user must restart the
// flow from the beginning; there is no server-side recovery.
var ErrSessionLost = errors.New("session lost")

// Resolver maps the request's authentication signals to a single target
// customer id, creating the customer when the rules call for it.
type Resolver struct {
	store core.CustomerStore
}

func NewResolver(store core.CustomerStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve decides which customer a linking operation applies to.
//
// First match wins; the order encodes "prefer linking to an existing, richer
// identity over creating an orphaned one":
//
//  1. Active Google session → that customer id.
//  2. Basic-auth session with known email → lookup by email, create if absent.
//  3. Session-stored customer id from a secondary linking flow → use directly.
//  4. Session-stored temporary id from an anonymous standalone flow → create
//     a new customer with a synthetic placeholder email embedding companyID.
//  5. Otherwise ErrSessionLost.
//
// companyID only participates in rule 4 (it seeds the placeholder email).
func (r *Resolver) Resolve(ctx context.Context, ac AuthContext, companyID string) (id string, created bool, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("identity.resolver"))

	// 1. Sesión Google activa
	if ac.Kind == GoogleSession && ac.CustomerID != "" {
		return ac.CustomerID, false, nil
	}

	// 2. Sesión basic-auth con email conocido
	if ac.Kind == BasicSession && ac.Email != "" {
		c, err := r.store.GetByEmail(ctx, ac.Email)
		if err == nil {
			return c.ID, false, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return "", false, err
		}
		nc := &core.Customer{
			ID:        uuid.NewString(),
			Email:     ac.Email,
			Name:      ac.Name,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.Upsert(ctx, nc); err != nil {
			return "", false, err
		}
		log.Info("customer created for basic session",
			logger.CustomerID(nc.ID),
			logger.Email(ac.Email),
		)
		return nc.ID, true, nil
	}

	// 3. Customer id guardado en sesión (flujo de vinculación secundaria)
	if ac.LinkCustomerID != "" {
		return ac.LinkCustomerID, false, nil
	}

	// 4. Temp id de flujo standalone anónimo
	if ac.TempLinkID != "" {
		nc := &core.Customer{
			ID:        uuid.NewString(),
			Email:     core.PlaceholderEmail(companyID),
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.Upsert(ctx, nc); err != nil {
			return "", false, err
		}
		log.Info("customer created for standalone flow",
			logger.CustomerID(nc.ID),
			logger.CompanyID(companyID),
		)
		return nc.ID, true, nil
	}

	// 5. Sin contexto: abortar
	log.Warn("identity resolution failed, no usable session context")
	return "", false, ErrSessionLost
}
