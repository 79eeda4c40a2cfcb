package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
)

// RequireAdminKey protege las rutas administrativas con una API key estática
// enviada en X-Admin-API-Key. Con key vacía en config las rutas quedan
// deshabilitadas (401 siempre): mejor cerrado que abierto por accidente.
func RequireAdminKey(key string) Middleware {
	key = strings.TrimSpace(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				apperrors.WriteError(w, apperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
