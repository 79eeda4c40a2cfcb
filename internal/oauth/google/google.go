// Package google implements the Google OAuth 2.0 client: authorization,
// code exchange, userinfo, token introspection and refresh.
package google

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
	authEndpoint      = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint     = "https://oauth2.googleapis.com/token"
	tokenInfoEndpoint = "https://oauth2.googleapis.com/tokeninfo"
	userInfoEndpoint  = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuth is the Google OAuth 2.0 client.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint overrides for tests. Empty means the real Google endpoints.
	TokenURL     string
	TokenInfoURL string
	UserInfoURL  string

	http *http.Client
}

// New creates a new Google OAuth client. Google's tokeninfo endpoint has no
// documented latency bound, so the client carries a 10s timeout to avoid an
// unbounded hang blocking the serving goroutine.
func New(clientID, clientSecret, redirectURL string, scopes []string) *OAuth {
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &OAuth{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *OAuth) tokenURL() string {
	if g.TokenURL != "" {
		return g.TokenURL
	}
	return tokenEndpoint
}

func (g *OAuth) tokenInfoURL() string {
	if g.TokenInfoURL != "" {
		return g.TokenInfoURL
	}
	return tokenInfoEndpoint
}

func (g *OAuth) userInfoURL() string {
	if g.UserInfoURL != "" {
		return g.UserInfoURL
	}
	return userInfoEndpoint
}

// AuthURL builds the authorization URL.
// access_type=offline + prompt=consent para obtener refresh_token.
func (g *OAuth) AuthURL(state string) string {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", strings.Join(g.Scopes, " "))
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("include_granted_scopes", "true")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse is the response from Google's token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// ExchangeCode exchanges an authorization code for tokens.
func (g *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", g.tokenURL(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
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
		return nil, fmt.Errorf("token http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// UserInfo contains the profile returned by the OIDC userinfo endpoint.
type UserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GetUserInfo fetches the user profile using the access token.
func (g *OAuth) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, _ := http.NewRequestWithContext(ctx, "GET", g.userInfoURL(), nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo http %d", resp.StatusCode)
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// TokenInfo is the validation result for an access token.
// Network failures and non-success statuses both come back as Valid=false;
// Err carries the detail but callers do not distinguish the two cases.
type TokenInfo struct {
	Valid     bool     `json:"valid"`
	ExpiresIn int      `json:"expires_in,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// ValidateToken checks token liveness against Google's tokeninfo endpoint.
// It never returns an error: any failure is an invalid token.
func (g *OAuth) ValidateToken(ctx context.Context, accessToken string) TokenInfo {
	if accessToken == "" {
		return TokenInfo{Valid: false, Err: "missing access token"}
	}

	u := g.tokenInfoURL() + "?access_token=" + url.QueryEscape(accessToken)
	req, _ := http.NewRequestWithContext(ctx, "GET", u, nil)
	resp, err := g.http.Do(req)
	if err != nil {
		return TokenInfo{Valid: false, Err: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return TokenInfo{Valid: false, Err: fmt.Sprintf("tokeninfo http %d", resp.StatusCode)}
	}

	var body struct {
		ExpiresIn string `json:"expires_in"`
		Scope     string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TokenInfo{Valid: false, Err: err.Error()}
	}

	info := TokenInfo{Valid: true, Scopes: strings.Fields(body.Scope)}
	// Google devuelve expires_in como string en tokeninfo.
	fmt.Sscanf(body.ExpiresIn, "%d", &info.ExpiresIn)
	return info
}

// RefreshResult is the response to a refresh_token grant. RefreshToken is
// usually empty: Google only rotates it occasionally, and callers must keep
// the old one when it is.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Refresh exchanges a refresh token for a new access token.
func (g *OAuth) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)

	req, _ := http.NewRequestWithContext(ctx, "POST", g.tokenURL(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
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
		return nil, fmt.Errorf("refresh http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var rr RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, err
	}
	if rr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in refresh response")
	}
	return &rr, nil
}
