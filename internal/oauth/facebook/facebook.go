// Package facebook implements Facebook OAuth 2.0 authentication.
// Like GitHub-style OAuth, Facebook issues no ID token: the profile is
// fetched with a separate Graph API call.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	authEndpoint  = "https://www.facebook.com/v18.0/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/v18.0/oauth/access_token"
	meEndpoint    = "https://graph.facebook.com/v18.0/me"
)

// OAuth is the Facebook OAuth 2.0 client.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides for tests.
	TokenURL string
	MeURL    string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *OAuth) tokenURL() string {
	if f.TokenURL != "" {
		return f.TokenURL
	}
	return tokenEndpoint
}

func (f *OAuth) meURL() string {
	if f.MeURL != "" {
		return f.MeURL
	}
	return meEndpoint
}

// AuthURL builds the authorization URL.
func (f *OAuth) AuthURL(state string) string {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("state", state)
	q.Set("scope", "email,public_profile")
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse is the response from Facebook's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode exchanges an authorization code for an access token.
func (f *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	u, _ := url.Parse(f.tokenURL())
	q := u.Query()
	q.Set("client_id", f.ClientID)
	q.Set("client_secret", f.ClientSecret)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, _ := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("facebook token http %d: %s %s", resp.StatusCode, b.Error.Type, b.Error.Message)
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

// UserInfo contains the Graph API profile fields we request.
type UserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// GetUserInfo fetches id, name, email and picture for the token's user.
// Email can be empty: Facebook omits it when the account has none confirmed.
func (f *OAuth) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	u, _ := url.Parse(f.meURL())
	q := u.Query()
	q.Set("fields", "id,name,email,picture.type(large)")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, _ := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook graph http %d", resp.StatusCode)
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("no user id in graph response")
	}
	return &info, nil
}
