package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/oauth/google"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// GoogleOAuth es el subconjunto del cliente OAuth de Google que este
// service necesita. Interfaz chica para poder inyectar fakes en tests.
type GoogleOAuth interface {
	ValidateToken(ctx context.Context, accessToken string) google.TokenInfo
	Refresh(ctx context.Context, refreshToken string) (*google.RefreshResult, error)
}

// GoogleDeps agrupa las dependencias del service.
type GoogleDeps struct {
	Store core.CustomerStore
	OAuth GoogleOAuth
}

// GoogleService valida y refresca tokens de Google por customer id.
type GoogleService struct {
	store core.CustomerStore
	oauth GoogleOAuth
}

func NewGoogleService(d GoogleDeps) *GoogleService {
	return &GoogleService{store: d.Store, oauth: d.OAuth}
}

// Tokens devuelve el customer y su grupo Google tras validar el access token
// contra el proveedor. Los tokens nunca se sirven sin validar primero: el
// caller (n8n) los usa inmediatamente y un token muerto rompe su workflow.
func (s *GoogleService) Tokens(ctx context.Context, customerID string) (*core.Customer, *core.TokenSet, google.TokenInfo, error) {
	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, google.TokenInfo{}, ErrCustomerNotFound
		}
		return nil, nil, google.TokenInfo{}, err
	}
	if !c.HasProvider(core.ProviderGoogle) {
		return c, nil, google.TokenInfo{}, ErrNotLinked
	}
	ts := c.TokensFor(core.ProviderGoogle)

	info := s.oauth.ValidateToken(ctx, ts.AccessToken)
	metrics.TokenValidation("google", info.Valid)
	if !info.Valid {
		logger.From(ctx).Info("google token invalid",
			logger.Layer("service"),
			logger.Component("tokens.google"),
			logger.CustomerID(customerID),
			logger.String("provider_error", info.Err),
		)
		return c, ts, info, ErrInvalidToken
	}
	return c, ts, info, nil
}

// Refresh canjea el refresh token por un access token nuevo y lo persiste.
// Si Google no devuelve refresh token nuevo se conserva el anterior (Google
// solo lo emite en el primer consent).
func (s *GoogleService) Refresh(ctx context.Context, customerID string) (*core.TokenSet, *google.RefreshResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("tokens.google"), logger.CustomerID(customerID))

	c, err := s.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, ErrCustomerNotFound
		}
		return nil, nil, err
	}
	if !c.HasProvider(core.ProviderGoogle) {
		return nil, nil, ErrNotLinked
	}
	ts := c.TokensFor(core.ProviderGoogle)
	if ts.RefreshToken == "" {
		return nil, nil, ErrNotLinked
	}

	rr, err := s.oauth.Refresh(ctx, ts.RefreshToken)
	if err != nil {
		metrics.TokenRefresh("google", "provider_rejected")
		log.Warn("google refresh rejected", logger.Err(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}

	nts := ts.Clone()
	nts.AccessToken = rr.AccessToken
	if rr.RefreshToken != "" {
		nts.RefreshToken = rr.RefreshToken
	}
	nts.Expiry = time.Now().Add(time.Duration(rr.ExpiresIn) * time.Second)
	if rr.Scope != "" {
		nts.Scopes = strings.Fields(rr.Scope)
	}

	if err := s.store.UpdateTokens(ctx, customerID, core.ProviderGoogle, nts); err != nil {
		metrics.TokenRefresh("google", "save_failed")
		log.Error("google refresh obtained but not persisted", logger.Err(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	metrics.TokenRefresh("google", "success")
	log.Info("google tokens refreshed")
	return nts, rr, nil
}
