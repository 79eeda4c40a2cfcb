package router_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	memorycache "github.com/dropDatabas3/tokenbridge/internal/cache/memory"
	admincontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/admin"
	apicontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/api"
	authcontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/auth"
	"github.com/dropDatabas3/tokenbridge/internal/http/router"
	"github.com/dropDatabas3/tokenbridge/internal/http/services/tokens"
	"github.com/dropDatabas3/tokenbridge/internal/identity"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/facebook"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/google"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/quickbooks"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/state"
	"github.com/dropDatabas3/tokenbridge/internal/oauth/tiktok"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
	memorystore "github.com/dropDatabas3/tokenbridge/internal/store/memory"
)

// ─── fakes de proveedores ───────────────────────────────────────────────────

type fakeGoogleFlow struct {
	email string
	name  string
}

func (f *fakeGoogleFlow) AuthURL(st string) string {
	return "https://accounts.google.example/o/oauth2/auth?state=" + url.QueryEscape(st)
}

func (f *fakeGoogleFlow) ExchangeCode(_ context.Context, code string) (*google.TokenResponse, error) {
	if code == "bad" {
		return nil, fmt.Errorf("invalid code")
	}
	return &google.TokenResponse{
		AccessToken:  "g-access-" + code,
		RefreshToken: "g-refresh",
		ExpiresIn:    3600,
		Scope:        "openid email",
	}, nil
}

func (f *fakeGoogleFlow) GetUserInfo(context.Context, string) (*google.UserInfo, error) {
	return &google.UserInfo{Sub: "sub-1", Email: f.email, Name: f.name}, nil
}

func (f *fakeGoogleFlow) ValidateToken(context.Context, string) google.TokenInfo {
	return google.TokenInfo{Valid: true, ExpiresIn: 3599, Scopes: []string{"openid", "email"}}
}

func (f *fakeGoogleFlow) Refresh(context.Context, string) (*google.RefreshResult, error) {
	return &google.RefreshResult{AccessToken: "g-access-refreshed", ExpiresIn: 3600}, nil
}

type fakeFacebookFlow struct{ id string }

func (f *fakeFacebookFlow) AuthURL(st string) string {
	return "https://www.facebook.example/dialog/oauth?state=" + url.QueryEscape(st)
}

func (f *fakeFacebookFlow) ExchangeCode(context.Context, string) (*facebook.TokenResponse, error) {
	return &facebook.TokenResponse{AccessToken: "fb-access", ExpiresIn: 3600}, nil
}

func (f *fakeFacebookFlow) GetUserInfo(context.Context, string) (*facebook.UserInfo, error) {
	ui := &facebook.UserInfo{ID: f.id, Name: "FB User", Email: "fb@x.com"}
	return ui, nil
}

type fakeQuickBooksFlow struct{}

func (fakeQuickBooksFlow) AuthorizeURI(st string) string {
	return "https://appcenter.intuit.example/connect/oauth2?state=" + url.QueryEscape(st)
}

func (fakeQuickBooksFlow) CreateToken(_ context.Context, code string) (*quickbooks.TokenResponse, error) {
	if code == "bad" {
		return nil, fmt.Errorf("invalid_grant")
	}
	return &quickbooks.TokenResponse{
		AccessToken:  "qb-access",
		RefreshToken: "qb-refresh",
		ExpiresIn:    3600,
	}, nil
}

func (fakeQuickBooksFlow) APIBase() string { return "https://sandbox-quickbooks.api.intuit.example" }

func (fakeQuickBooksFlow) ValidateToken(context.Context, string, string) quickbooks.Validation {
	return quickbooks.Validation{Valid: true}
}

func (fakeQuickBooksFlow) Refresh(context.Context, string) (*quickbooks.TokenResponse, error) {
	return &quickbooks.TokenResponse{AccessToken: "qb-access-2", RefreshToken: "qb-refresh-2", ExpiresIn: 3600}, nil
}

type fakeTikTokFlow struct{}

func (fakeTikTokFlow) AuthURL(st string) string {
	return "https://www.tiktok.example/auth?state=" + url.QueryEscape(st)
}

func (fakeTikTokFlow) ExchangeCode(context.Context, string) (*tiktok.TokenResponse, error) {
	return &tiktok.TokenResponse{AccessToken: "tt-access", RefreshToken: "tt-refresh", ExpiresIn: 86400, OpenID: "open-1"}, nil
}

// ─── armado del stack ───────────────────────────────────────────────────────

type testStack struct {
	store  *memorystore.Store
	server *httptest.Server
	client *http.Client
}

const adminKey = "test-admin-key"

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newStack(t *testing.T) *testStack {
	t.Helper()
	store := memorystore.New()
	sessions := session.NewManager(memorycache.New(time.Minute), session.Options{TTL: time.Hour})
	signer := state.NewSigner("test-secret", "tokenbridge", 10*time.Minute)

	gflow := &fakeGoogleFlow{email: "a@x.com", name: "A"}
	qbflow := fakeQuickBooksFlow{}

	authCtrl := authcontroller.NewController(authcontroller.Deps{
		Sessions:     sessions,
		Store:        store,
		Resolver:     identity.NewResolver(store),
		Linker:       identity.NewLinker(store),
		State:        signer,
		Google:       gflow,
		Facebook:     &fakeFacebookFlow{id: "999"},
		QuickBooks:   qbflow,
		TikTok:       fakeTikTokFlow{},
		DashboardURL: "/dashboard",
		ErrorURL:     "/auth/error",
		Basic: authcontroller.BasicAuth{
			Enabled:        true,
			Username:       "ops",
			PasswordBcrypt: bcryptHash(t, "s3cret"),
			Email:          "ops@x.com",
			Name:           "Ops",
		},
	})
	apiCtrl := apicontroller.NewController(apicontroller.Deps{
		Store:             store,
		Google:            tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: gflow}),
		QuickBooks:        tokens.NewQuickBooksService(tokens.QuickBooksDeps{Store: store, OAuth: qbflow}),
		GoogleAuthURL:     "http://broker.test/auth/google",
		QuickBooksAuthURL: "http://broker.test/auth/quickbooks/standalone",
		Environment:       "sandbox",
	})

	handler := router.New(router.Deps{
		Auth:        authCtrl,
		API:         apiCtrl,
		Admin:       admincontroller.NewController(store),
		Store:       store,
		AdminAPIKey: adminKey,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse // inspeccionamos los 302 a mano
		},
	}
	return &testStack{store: store, server: srv, client: client}
}

func (ts *testStack) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.client.Get(ts.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (ts *testStack) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.client.Post(ts.server.URL+path, "application/json", nil)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

// stateFrom extrae el state firmado del redirect al proveedor.
func stateFrom(t *testing.T, resp *http.Response) string {
	t.Helper()
	loc, err := resp.Location()
	require.NoError(t, err)
	st := loc.Query().Get("state")
	require.NotEmpty(t, st)
	return st
}

// loginGoogle corre el flujo completo start+callback y devuelve el customer.
func loginGoogle(t *testing.T, ts *testStack) *core.Customer {
	t.Helper()
	resp := ts.get(t, "/auth/google")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	st := stateFrom(t, resp)

	resp = ts.get(t, "/auth/google/callback?code=ok&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, _ := resp.Location()
	require.Equal(t, "/dashboard", loc.Path)

	c, err := ts.store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	return c
}

// ─── escenarios end-to-end ──────────────────────────────────────────────────

// Navegador nuevo, flujo standalone de QuickBooks sin sesión previa.
func TestStandaloneQuickBooksFlow(t *testing.T) {
	ts := newStack(t)

	resp := ts.get(t, "/auth/quickbooks/standalone")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	st := stateFrom(t, resp)

	resp = ts.get(t, "/auth/quickbooks/callback?code=ok&realmId=123&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, _ := resp.Location()
	require.Equal(t, "/dashboard", loc.Path)
	require.Equal(t, "connected", loc.Query().Get("quickbooks"))

	cust, err := ts.store.GetByCompanyID(context.Background(), "123")
	require.NoError(t, err)
	require.Contains(t, cust.Email, "123", "placeholder email embeds the realm id")
	require.True(t, core.IsPlaceholderEmail(cust.Email))
	require.Nil(t, cust.TokensFor(core.ProviderGoogle), "google group stays empty")

	body := decode(t, ts.get(t, "/api/customer/"+cust.ID+"/quickbooks/tokens"))
	require.Equal(t, true, body["connected"])
	require.Equal(t, "123", body["companyId"])
	require.Equal(t, "qb-access", body["accessToken"])
}

// Login de Google repetido con el mismo email reutiliza la fila y no toca QB.
func TestRepeatedGoogleLoginMergesOntoSameCustomer(t *testing.T) {
	ts := newStack(t)
	ctx := context.Background()

	c1 := loginGoogle(t, ts)

	// Vincular QuickBooks en el medio
	require.NoError(t, ts.store.UpdateTokens(ctx, c1.ID, core.ProviderQuickBooks, &core.TokenSet{
		AccessToken: "qb-access", RefreshToken: "qb-refresh", CompanyID: "realm-9",
	}))

	c2 := loginGoogle(t, ts)
	require.Equal(t, c1.ID, c2.ID, "same email reuses the row")

	all, err := ts.store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	qb := c2.TokensFor(core.ProviderQuickBooks)
	require.NotNil(t, qb)
	require.Equal(t, "qb-access", qb.AccessToken)
	require.True(t, c2.UpdatedAt.After(c1.CreatedAt) || c2.UpdatedAt.Equal(c1.CreatedAt))
}

// Callback de QuickBooks sin ningún contexto de sesión: session_lost.
func TestQuickBooksCallbackWithoutSessionIsLost(t *testing.T) {
	ts := newStack(t)

	// Pedimos el state directo a /auth/quickbooks pero con un cliente SIN
	// cookies, simulando la sesión perdida entre start y callback.
	resp := ts.get(t, "/auth/quickbooks")
	st := stateFrom(t, resp)

	bare := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	r2, err := bare.Get(ts.server.URL + "/auth/quickbooks/callback?code=ok&realmId=55&state=" + url.QueryEscape(st))
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, r2.StatusCode)
	loc, _ := r2.Location()
	require.Equal(t, "/dashboard", loc.Path)
	require.Equal(t, "session_lost", loc.Query().Get("qb_error"))

	_, err = ts.store.GetByCompanyID(context.Background(), "55")
	require.ErrorIs(t, err, core.ErrNotFound, "no customer created on session loss")
}

// Un exchange rechazado por Intuit no debe dejar filas creadas: el code se
// canjea antes de resolver identidad.
func TestStandaloneQuickBooksCallback_ExchangeFailureCreatesNoCustomer(t *testing.T) {
	ts := newStack(t)

	resp := ts.get(t, "/auth/quickbooks/standalone")
	st := stateFrom(t, resp)

	resp = ts.get(t, "/auth/quickbooks/callback?code=bad&realmId=321&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, _ := resp.Location()
	require.Equal(t, "/auth/error", loc.Path)
	require.Equal(t, "auth_failed", loc.Query().Get("reason"))

	_, err := ts.store.GetByCompanyID(context.Background(), "321")
	require.ErrorIs(t, err, core.ErrNotFound)

	all, err := ts.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all, "no placeholder customer on failed exchange")
}

// Disconnect de Facebook borra la fila entera.
func TestFacebookDisconnectDeletesRow(t *testing.T) {
	ts := newStack(t)

	resp := ts.get(t, "/auth/facebook")
	st := stateFrom(t, resp)
	resp = ts.get(t, "/auth/facebook/callback?code=ok&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, err := ts.store.Get(context.Background(), "fb_999")
	require.NoError(t, err)

	body := decode(t, ts.post(t, "/auth/facebook/disconnect"))
	require.Equal(t, true, body["success"])

	r := ts.get(t, "/api/customer/fb_999")
	require.Equal(t, http.StatusNotFound, r.StatusCode)
	require.Equal(t, "customer_not_found", decode(t, r)["error"])
}

// ─── superficie de API ──────────────────────────────────────────────────────

func TestAPICustomer_GoogleIdentityShape(t *testing.T) {
	ts := newStack(t)
	c := loginGoogle(t, ts)

	body := decode(t, ts.get(t, "/api/customer/"+c.ID))
	require.Equal(t, c.ID, body["id"])
	require.Equal(t, "a@x.com", body["email"])
	require.Equal(t, true, body["hasGoogleAuth"])
	require.NotEmpty(t, body["accessToken"])
	require.Equal(t, "g-refresh", body["refreshToken"])
}

func TestAPICustomer_NotLinkedTaxonomy(t *testing.T) {
	ts := newStack(t)
	require.NoError(t, ts.store.Upsert(context.Background(), &core.Customer{ID: "bare", Email: "bare@x.com"}))

	r := ts.get(t, "/api/customer/bare")
	require.Equal(t, http.StatusForbidden, r.StatusCode)
	body := decode(t, r)
	require.Equal(t, "no_google_token", body["error"])
	require.Equal(t, "http://broker.test/auth/google", body["authUrl"])

	r = ts.get(t, "/api/customer/bare/quickbooks/tokens")
	require.Equal(t, http.StatusForbidden, r.StatusCode)
	body = decode(t, r)
	require.Equal(t, "quickbooks_not_connected", body["error"])
	require.Equal(t, "http://broker.test/auth/quickbooks/standalone", body["authUrl"])

	r = ts.get(t, "/api/customer/ghost")
	require.Equal(t, http.StatusNotFound, r.StatusCode)
	require.Equal(t, "customer_not_found", decode(t, r)["error"])
}

func TestAPIGoogleRefresh(t *testing.T) {
	ts := newStack(t)
	c := loginGoogle(t, ts)

	body := decode(t, ts.post(t, "/api/customer/"+c.ID+"/google/refresh"))
	require.Equal(t, true, body["success"])
	require.Equal(t, "g-access-refreshed", body["accessToken"])

	after, _ := ts.store.Get(context.Background(), c.ID)
	g := after.TokensFor(core.ProviderGoogle)
	require.Equal(t, "g-access-refreshed", g.AccessToken)
	require.Equal(t, "g-refresh", g.RefreshToken, "old refresh token kept")
}

func TestAPIIntegrations_Combined(t *testing.T) {
	ts := newStack(t)
	c := loginGoogle(t, ts)

	body := decode(t, ts.get(t, "/api/customer/"+c.ID+"/integrations"))
	require.Equal(t, c.ID, body["customer_id"])
	integrations := body["integrations"].(map[string]any)
	g := integrations["google"].(map[string]any)
	qb := integrations["quickbooks"].(map[string]any)
	require.Equal(t, true, g["connected"])
	require.Equal(t, false, qb["connected"])
	require.NotEmpty(t, qb["authUrl"])
}

func TestAPISheets_RoundTrip(t *testing.T) {
	ts := newStack(t)
	c := loginGoogle(t, ts)

	req, _ := http.NewRequest("POST", ts.server.URL+"/api/customer/"+c.ID+"/sheets",
		strings.NewReader(`{"sheetId":"sh-1","name":"Invoices 2026","purpose":"invoices"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	body := decode(t, ts.get(t, "/api/customer/"+c.ID+"/sheets?purpose=invoices"))
	sheets := body["sheets"].([]any)
	require.Len(t, sheets, 1)
	require.Equal(t, "sh-1", sheets[0].(map[string]any)["sheet_id"])
}

// ─── login básico, admin y health ───────────────────────────────────────────

func TestBasicLoginAndQuickBooksLink(t *testing.T) {
	ts := newStack(t)

	req, _ := http.NewRequest("POST", ts.server.URL+"/auth/login",
		strings.NewReader(`{"username":"ops","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	require.Equal(t, true, body["success"])

	// Con sesión basic, el callback de QB crea el customer por email (regla 2)
	r := ts.get(t, "/auth/quickbooks")
	st := stateFrom(t, r)
	r = ts.get(t, "/auth/quickbooks/callback?code=ok&realmId=777&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusFound, r.StatusCode)

	cust, err := ts.store.GetByEmail(context.Background(), "ops@x.com")
	require.NoError(t, err)
	require.True(t, cust.HasProvider(core.ProviderQuickBooks))
	require.Equal(t, "777", cust.TokensFor(core.ProviderQuickBooks).CompanyID)
}

func TestBasicLogin_BadCredentials(t *testing.T) {
	ts := newStack(t)
	req, _ := http.NewRequest("POST", ts.server.URL+"/auth/login",
		strings.NewReader(`{"username":"ops","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", decode(t, resp)["error"])
}

func TestAdminEndpoints(t *testing.T) {
	ts := newStack(t)
	c := loginGoogle(t, ts)

	// Sin llave: 401
	r := ts.get(t, "/admin/customers")
	require.Equal(t, http.StatusUnauthorized, r.StatusCode)
	r.Body.Close()

	withKey := func(method, path string) *http.Response {
		req, _ := http.NewRequest(method, ts.server.URL+path, nil)
		req.Header.Set("X-Admin-API-Key", adminKey)
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		return resp
	}

	body := decode(t, withKey("GET", "/admin/customers"))
	require.EqualValues(t, 1, body["count"])

	body = decode(t, withKey("DELETE", "/admin/customer/"+c.ID))
	require.Equal(t, true, body["success"])
	require.Equal(t, "a@x.com", body["customerEmail"])

	r = withKey("DELETE", "/admin/customer/"+c.ID)
	require.Equal(t, http.StatusNotFound, r.StatusCode)
	r.Body.Close()
}

func TestHealthEndpoints(t *testing.T) {
	ts := newStack(t)
	r := ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, r.StatusCode)
	r.Body.Close()

	body := decode(t, ts.get(t, "/readyz"))
	require.Equal(t, true, body["ready"])
}
