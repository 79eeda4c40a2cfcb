// Package tiktok implements the TikTok OAuth 2.0 client.
// Only the login/link flow is wired; video upload is not part of the broker.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authEndpoint  = "https://www.tiktok.com/v2/auth/authorize/"
	tokenEndpoint = "https://open.tiktokapis.com/v2/oauth/token/"
)

// OAuth is the TikTok OAuth 2.0 client. TikTok calls the client id a
// "client key".
type OAuth struct {
	ClientKey    string
	ClientSecret string
	RedirectURL  string

	// Endpoint override for tests.
	TokenURL string

	http *http.Client
}

func New(clientKey, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		ClientKey:    clientKey,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *OAuth) tokenURL() string {
	if t.TokenURL != "" {
		return t.TokenURL
	}
	return tokenEndpoint
}

// AuthURL builds the authorization URL.
func (t *OAuth) AuthURL(state string) string {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_key", t.ClientKey)
	q.Set("response_type", "code")
	q.Set("scope", "user.info.basic")
	q.Set("redirect_uri", t.RedirectURL)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse is the response from TikTok's token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	OpenID       string `json:"open_id"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

func (t *OAuth) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, _ := http.NewRequestWithContext(ctx, "POST", t.tokenURL(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("tiktok oauth error: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

// ExchangeCode exchanges an authorization code for tokens.
func (t *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_key", t.ClientKey)
	form.Set("client_secret", t.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", t.RedirectURL)
	return t.tokenGrant(ctx, form)
}

// Refresh exchanges a refresh token for new tokens.
func (t *OAuth) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	form := url.Values{}
	form.Set("client_key", t.ClientKey)
	form.Set("client_secret", t.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return t.tokenGrant(ctx, form)
}
