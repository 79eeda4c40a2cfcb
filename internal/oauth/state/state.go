// Package state signs and validates the anti-replay state value carried
// through OAuth authorization redirects.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Audience is the expected audience for oauth state tokens.
const Audience = "oauth-state"

// Claims viajan dentro del state JWT.
type Claims struct {
	Provider string
	Nonce    string
}

// Errors for state operations.
var (
	ErrInvalid  = errors.New("invalid state token")
	ErrExpired  = errors.New("state token expired")
	ErrAudience = errors.New("state audience mismatch")
)

// Signer firma states con HMAC-SHA256.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewSigner(secret, issuer string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Sign emite un state JWT para el provider dado.
func (s *Signer) Sign(c Claims) (string, error) {
	now := time.Now().UTC()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":      s.issuer,
		"aud":      Audience,
		"exp":      now.Add(s.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"provider": c.Provider,
		"nonce":    c.Nonce,
	})
	return tok.SignedString(s.secret)
}

// Parse valida firma, issuer, audience y expiración.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	tk, err := jwtv5.Parse(tokenString,
		func(t *jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tk.Valid {
		return nil, ErrInvalid
	}
	mapClaims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalid
	}
	if iss, _ := mapClaims["iss"].(string); iss != s.issuer {
		return nil, ErrInvalid
	}
	if aud, _ := mapClaims["aud"].(string); aud != Audience {
		return nil, ErrAudience
	}
	// Expiración con 30s de gracia
	if expf, ok := mapClaims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, ErrExpired
		}
	}
	return &Claims{
		Provider: getString(mapClaims, "provider"),
		Nonce:    getString(mapClaims, "nonce"),
	}, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// NewNonce genera un nonce aleatorio url-safe.
func NewNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
