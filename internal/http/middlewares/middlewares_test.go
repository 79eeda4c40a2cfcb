package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	mw "github.com/dropDatabas3/tokenbridge/internal/http/middlewares"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAdminKey(t *testing.T) {
	h := mw.RequireAdminKey("secret-key")(okHandler())

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "secret-key", http.StatusOK},
		{"wrong", "other", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
		{"padded", "  secret-key  ", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/customers", nil)
			if tc.header != "" {
				req.Header.Set("X-Admin-API-Key", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireAdminKey_EmptyConfigLocksOut(t *testing.T) {
	h := mw.RequireAdminKey("")(okHandler())
	req := httptest.NewRequest("GET", "/admin/customers", nil)
	req.Header.Set("X-Admin-API-Key", "")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWithRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := mw.WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestWithRequestID_PropagatesIncoming(t *testing.T) {
	var seen string
	h := mw.WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "upstream-id", seen)
}

func TestWithRecover_TurnsPanicInto500(t *testing.T) {
	h := mw.WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil)) })
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "internal_error")
}

func TestWithCORS_Preflight(t *testing.T) {
	h := mw.WithCORS([]string{"https://dashboard.example"})(okHandler())

	req := httptest.NewRequest("OPTIONS", "/api/customer/c1", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://dashboard.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWithCORS_DisallowedOriginGetsNoHeader(t *testing.T) {
	h := mw.WithCORS([]string{"https://dashboard.example"})(okHandler())

	req := httptest.NewRequest("GET", "/api/customer/c1", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
