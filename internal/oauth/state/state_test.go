package state_test

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/oauth/state"
)

func TestSignParse_RoundTrip(t *testing.T) {
	s := state.NewSigner("test-secret", "tokenbridge", 10*time.Minute)

	nonce, err := state.NewNonce()
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	tok, err := s.Sign(state.Claims{Provider: "quickbooks", Nonce: nonce})
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "quickbooks", claims.Provider)
	require.Equal(t, nonce, claims.Nonce)
}

func TestParse_WrongSecret(t *testing.T) {
	good := state.NewSigner("secret-a", "tokenbridge", time.Minute)
	bad := state.NewSigner("secret-b", "tokenbridge", time.Minute)

	tok, err := good.Sign(state.Claims{Provider: "google", Nonce: "n"})
	require.NoError(t, err)

	_, err = bad.Parse(tok)
	require.ErrorIs(t, err, state.ErrInvalid)
}

func TestParse_WrongIssuer(t *testing.T) {
	a := state.NewSigner("secret", "issuer-a", time.Minute)
	b := state.NewSigner("secret", "issuer-b", time.Minute)

	tok, err := a.Sign(state.Claims{Provider: "google", Nonce: "n"})
	require.NoError(t, err)

	_, err = b.Parse(tok)
	require.ErrorIs(t, err, state.ErrInvalid)
}

func TestParse_Expired(t *testing.T) {
	s := state.NewSigner("secret", "tokenbridge", time.Minute)

	// Token bien firmado pero vencido hace una hora.
	past := time.Now().Add(-time.Hour)
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":      "tokenbridge",
		"aud":      state.Audience,
		"exp":      past.Unix(),
		"iat":      past.Add(-time.Minute).Unix(),
		"provider": "facebook",
		"nonce":    "n",
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Parse(signed)
	require.Error(t, err)
}

func TestParse_Garbage(t *testing.T) {
	s := state.NewSigner("secret", "tokenbridge", time.Minute)
	_, err := s.Parse("not-a-jwt")
	require.ErrorIs(t, err, state.ErrInvalid)
}

func TestNewNonce_Unique(t *testing.T) {
	a, err := state.NewNonce()
	require.NoError(t, err)
	b, err := state.NewNonce()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
