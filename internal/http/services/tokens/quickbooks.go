package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/oauth/quickbooks"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// QuickBooksOAuth es el subconjunto del cliente de Intuit que usa el service.
type QuickBooksOAuth interface {
	ValidateToken(ctx context.Context, accessToken, companyID string) quickbooks.Validation
	Refresh(ctx context.Context, refreshToken string) (*quickbooks.TokenResponse, error)
	APIBase() string
}

// QuickBooksDeps agrupa las dependencias del service.
type QuickBooksDeps struct {
	Store core.CustomerStore
	OAuth QuickBooksOAuth
}

// QuickBooksService valida y refresca tokens de QuickBooks por customer id.
type QuickBooksService struct {
	store core.CustomerStore
	oauth QuickBooksOAuth
}

func NewQuickBooksService(d QuickBooksDeps) *QuickBooksService {
	return &QuickBooksService{store: d.Store, oauth: d.OAuth}
}

// Tokens devuelve el customer y su grupo QuickBooks tras la validación
// optimista contra companyinfo (ver quickbooks.Client.ValidateToken: solo un
// 401/403 explícito marca el token como inválido).
func (s *QuickBooksService) Tokens(ctx context.Context, customerID string) (*core.Customer, *core.TokenSet, quickbooks.Validation, error) {
	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, quickbooks.Validation{}, ErrCustomerNotFound
		}
		return nil, nil, quickbooks.Validation{}, err
	}
	if !c.HasProvider(core.ProviderQuickBooks) {
		return c, nil, quickbooks.Validation{}, ErrNotLinked
	}
	ts := c.TokensFor(core.ProviderQuickBooks)

	v := s.oauth.ValidateToken(ctx, ts.AccessToken, ts.CompanyID)
	metrics.TokenValidation("quickbooks", v.Valid)
	if !v.Valid {
		logger.From(ctx).Info("quickbooks token invalid",
			logger.Layer("service"),
			logger.Component("tokens.quickbooks"),
			logger.CustomerID(customerID),
			logger.CompanyID(ts.CompanyID),
			logger.String("provider_error", v.Err),
		)
		return c, ts, v, ErrInvalidToken
	}
	return c, ts, v, nil
}

// Refresh canjea el refresh token de Intuit y persiste el par nuevo.
// Intuit rota el refresh token en cada canje; si por alguna razón viene
// vacío, se conserva el anterior.
func (s *QuickBooksService) Refresh(ctx context.Context, customerID string) (*core.TokenSet, *quickbooks.TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("tokens.quickbooks"), logger.CustomerID(customerID))

	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, ErrCustomerNotFound
		}
		return nil, nil, err
	}
	if !c.HasProvider(core.ProviderQuickBooks) {
		return nil, nil, ErrNotLinked
	}
	ts := c.TokensFor(core.ProviderQuickBooks)
	if ts.RefreshToken == "" {
		return nil, nil, ErrNotLinked
	}

	tr, err := s.oauth.Refresh(ctx, ts.RefreshToken)
	if err != nil {
		metrics.TokenRefresh("quickbooks", "provider_rejected")
		log.Warn("quickbooks refresh rejected", logger.Err(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}

	nts := ts.Clone()
	nts.AccessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		nts.RefreshToken = tr.RefreshToken
	}
	nts.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	if nts.BaseURL == "" {
		nts.BaseURL = s.oauth.APIBase()
	}

	if err := s.store.UpdateTokens(ctx, customerID, core.ProviderQuickBooks, nts); err != nil {
		metrics.TokenRefresh("quickbooks", "save_failed")
		log.Error("quickbooks refresh obtained but not persisted", logger.Err(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	metrics.TokenRefresh("quickbooks", "success")
	log.Info("quickbooks tokens refreshed", logger.CompanyID(nts.CompanyID))
	return nts, tr, nil
}
