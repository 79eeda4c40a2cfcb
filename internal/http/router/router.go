// Package router ensambla las rutas HTTP del broker sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	admincontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/admin"
	apicontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/api"
	authcontroller "github.com/dropDatabas3/tokenbridge/internal/http/controllers/auth"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	mw "github.com/dropDatabas3/tokenbridge/internal/http/middlewares"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Deps contiene todo lo que el router necesita, cableado en main.
type Deps struct {
	Auth  *authcontroller.Controller
	API   *apicontroller.Controller
	Admin *admincontroller.Controller

	Store core.CustomerStore

	// MetricsHandler es el handler de /metrics (nil lo deshabilita).
	MetricsHandler http.Handler

	AdminAPIKey        string
	CORSAllowedOrigins []string
}

// New construye el router con la cadena de middlewares estándar:
// request-id -> metrics -> logging -> recover -> cors -> rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithMetrics())
	r.Use(mw.WithLogging())
	r.Use(mw.WithRecover())
	r.Use(mw.WithCORS(d.CORSAllowedOrigins))

	// Health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Store.Ping(req.Context()); err != nil {
			helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
			return
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"ready": true})
	})

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	// Flujos de navegador
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", d.Auth.StartGoogle)
		r.Get("/google/callback", d.Auth.GoogleCallback)
		r.Post("/google/disconnect", d.Auth.DisconnectGoogle)

		r.Get("/facebook", d.Auth.StartFacebook)
		r.Get("/facebook/callback", d.Auth.FacebookCallback)
		r.Post("/facebook/disconnect", d.Auth.DisconnectFacebook)

		r.Get("/quickbooks", d.Auth.StartQuickBooks)
		r.Get("/quickbooks/standalone", d.Auth.StartQuickBooksStandalone)
		r.Get("/quickbooks/callback", d.Auth.QuickBooksCallback)
		r.Post("/quickbooks/disconnect", d.Auth.DisconnectQuickBooks)
		// Intuit llama esta ruta con GET desde su portal de apps conectadas.
		r.Get("/quickbooks/disconnect-company", d.Auth.DisconnectQuickBooksCompany)
		r.Post("/quickbooks/disconnect-company", d.Auth.DisconnectQuickBooksCompany)

		r.Get("/tiktok", d.Auth.StartTikTok)
		r.Get("/tiktok/callback", d.Auth.TikTokCallback)
		r.Post("/tiktok/disconnect", d.Auth.DisconnectTikTok)

		r.Post("/login", d.Auth.Login)
		r.Post("/logout", d.Auth.Logout)
		r.Get("/me", d.Auth.Me)
		r.Get("/error", d.Auth.ErrorPage)
	})

	// API de máquina para n8n
	r.Route("/api/customer/{id}", func(r chi.Router) {
		r.Get("/", d.API.Customer)
		r.Get("/google/tokens", d.API.GoogleTokens)
		r.Get("/google/status", d.API.GoogleStatus)
		r.Post("/google/refresh", d.API.GoogleRefresh)

		r.Get("/quickbooks", d.API.QuickBooksStatus)
		r.Get("/quickbooks/status", d.API.QuickBooksStatus)
		r.Get("/quickbooks/tokens", d.API.QuickBooksTokens)
		r.Post("/quickbooks/refresh", d.API.QuickBooksRefresh)

		r.Get("/integrations", d.API.Integrations)

		r.Get("/sheets", d.API.Sheets)
		r.Post("/sheets", d.API.SaveSheet)
	})

	// Admin, protegido por API key estática
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAdminKey(d.AdminAPIKey))
		r.Get("/customers", d.Admin.ListCustomers)
		r.Delete("/customer/{id}", d.Admin.DeleteCustomer)
	})

	return r
}
