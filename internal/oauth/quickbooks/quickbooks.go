// Package quickbooks implements the Intuit OAuth 2.0 client: authorization,
// bearer token creation/refresh and live company-info validation.
package quickbooks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authEndpoint  = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	sandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com"
	productionAPIBase = "https://quickbooks.api.intuit.com"

	// La validación en vivo corta a los 5s; pasado eso aplica el fallback
	// optimista (ver ValidateToken).
	validateTimeout = 5 * time.Second
)

// Client is the Intuit OAuth 2.0 client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Environment  string // sandbox | production

	// Endpoint overrides for tests.
	TokenURL   string
	APIBaseURL string

	http     *http.Client
	validate *http.Client
}

func New(clientID, clientSecret, redirectURL, environment string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Environment:  environment,
		http:         &http.Client{Timeout: 10 * time.Second},
		validate:     &http.Client{Timeout: validateTimeout},
	}
}

func (c *Client) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return tokenEndpoint
}

// APIBase returns the accounting API base URL for the configured environment.
func (c *Client) APIBase() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	if strings.EqualFold(c.Environment, "production") {
		return productionAPIBase
	}
	return sandboxAPIBase
}

// AuthorizeURI builds the Intuit authorization URL.
func (c *Client) AuthorizeURI(state string) string {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "com.intuit.quickbooks.accounting")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
}

// TokenResponse is the response from Intuit's bearer token endpoint.
type TokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	ExpiresIn            int    `json:"expires_in"`
	XRefreshTokenExpires int    `json:"x_refresh_token_expires_in"`
	TokenType            string `json:"token_type"`
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, _ := http.NewRequestWithContext(ctx, "POST", c.tokenURL(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.basicAuth())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("intuit token http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

// CreateToken exchanges an authorization code for bearer tokens.
func (c *Client) CreateToken(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	return c.tokenGrant(ctx, form)
}

// Refresh exchanges a refresh token for new bearer tokens. Intuit normally
// returns a rotated refresh token; when it omits one the caller keeps the
// old token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenGrant(ctx, form)
}

// Validation is the result of a QuickBooks token check.
type Validation struct {
	Valid bool   `json:"valid"`
	Err   string `json:"error,omitempty"`
}

// ValidateToken checks an access token against the live company-info
// endpoint. Missing token or company id short-circuits to invalid with no
// network I/O. Any request failure (timeout, network, non-2xx) falls back to
// OPTIMISTIC validation: with both credentials present locally the token is
// reported valid. This trusts local state over the network on purpose, to
// avoid false "disconnected" states under transient provider issues; a
// revoked token is reported valid until a real API call elsewhere fails.
func (c *Client) ValidateToken(ctx context.Context, accessToken, companyID string) Validation {
	if accessToken == "" || companyID == "" {
		return Validation{Valid: false, Err: "Missing token or company ID"}
	}

	u := fmt.Sprintf("%s/v3/company/%s/companyinfo/%s?minorversion=65",
		c.APIBase(), url.PathEscape(companyID), url.PathEscape(companyID))
	req, _ := http.NewRequestWithContext(ctx, "GET", u, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.validate.Do(req)
	if err != nil {
		// fallback optimista
		return Validation{Valid: true, Err: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return Validation{Valid: true}
	}
	return Validation{Valid: true, Err: fmt.Sprintf("companyinfo http %d", resp.StatusCode)}
}
