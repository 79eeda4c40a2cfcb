package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/tokenbridge/internal/cache"
	memorycache "github.com/dropDatabas3/tokenbridge/internal/cache/memory"
	rediscache "github.com/dropDatabas3/tokenbridge/internal/cache/redis"
	"github.com/dropDatabas3/tokenbridge/internal/config"
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
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/session"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
	memorystore "github.com/dropDatabas3/tokenbridge/internal/store/memory"
	pgstore "github.com/dropDatabas3/tokenbridge/internal/store/pg"
)

func main() {
	// .env es opcional; en prod todo llega por entorno real.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, continuing with system environment: %v", err)
	}

	configPath := flag.String("config", "config.yaml", "ruta del YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL")})
	defer func() { _ = logger.Sync() }()
	lg := logger.L().With(logger.Component("main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Store ────────────────────────────────────────────────────────────
	var store core.CustomerStore
	switch cfg.Storage.Driver {
	case "memory":
		store = memorystore.New()
		lg.Warn("using in-memory store, data is lost on restart")
	case "postgres":
		pg, err := pgstore.Connect(ctx, pgstore.Options{
			DSN:          cfg.Storage.DSN,
			MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		})
		if err != nil {
			lg.Fatal("postgres connect failed", logger.Err(err))
		}
		defer pg.Close()
		if cfg.Flags.Migrate {
			applied, err := pg.Migrate(ctx)
			if err != nil {
				lg.Fatal("migrations failed", logger.Err(err))
			}
			lg.Info("migrations applied", logger.Count(len(applied)))
		}
		store = pg
	default:
		lg.Fatal("unknown storage driver", logger.String("driver", cfg.Storage.Driver))
	}

	// ── Cache (sesiones) ─────────────────────────────────────────────────
	var sessionCache cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		sessionCache = rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	default:
		ttl, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
		sessionCache = memorycache.New(ttl)
	}

	sessions := session.NewManager(sessionCache, session.Options{
		CookieName: cfg.Session.CookieName,
		Domain:     cfg.Session.Domain,
		SameSite:   cfg.Session.SameSite,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.SessionTTL(),
	})

	// ── Clientes OAuth ───────────────────────────────────────────────────
	googleClient := google.New(
		cfg.Providers.Google.ClientID,
		cfg.Providers.Google.ClientSecret,
		cfg.Providers.Google.RedirectURL,
		cfg.Providers.Google.Scopes,
	)
	facebookClient := facebook.New(
		cfg.Providers.Facebook.ClientID,
		cfg.Providers.Facebook.ClientSecret,
		cfg.Providers.Facebook.RedirectURL,
	)
	qbClient := quickbooks.New(
		cfg.Providers.QuickBooks.ClientID,
		cfg.Providers.QuickBooks.ClientSecret,
		cfg.Providers.QuickBooks.RedirectURL,
		cfg.Providers.QuickBooks.Environment,
	)
	tiktokClient := tiktok.New(
		cfg.Providers.TikTok.ClientKey,
		cfg.Providers.TikTok.ClientSecret,
		cfg.Providers.TikTok.RedirectURL,
	)

	stateSigner := state.NewSigner(cfg.State.Secret, "tokenbridge", cfg.StateTTL())

	// ── Services y controllers ───────────────────────────────────────────
	resolver := identity.NewResolver(store)
	linker := identity.NewLinker(store)

	googleSvc := tokens.NewGoogleService(tokens.GoogleDeps{Store: store, OAuth: googleClient})
	qbSvc := tokens.NewQuickBooksService(tokens.QuickBooksDeps{Store: store, OAuth: qbClient})

	base := cfg.Server.BaseURL
	authCtrl := authcontroller.NewController(authcontroller.Deps{
		Sessions:     sessions,
		Store:        store,
		Resolver:     resolver,
		Linker:       linker,
		State:        stateSigner,
		Google:       googleClient,
		Facebook:     facebookClient,
		QuickBooks:   qbClient,
		TikTok:       tiktokClient,
		DashboardURL: cfg.Server.DashboardURL,
		ErrorURL:     cfg.Server.ErrorURL,
		Basic: authcontroller.BasicAuth{
			Enabled:        cfg.Auth.Basic.Enabled,
			Username:       cfg.Auth.Basic.Username,
			PasswordBcrypt: cfg.Auth.Basic.PasswordBcrypt,
			Email:          cfg.Auth.Basic.Email,
			Name:           cfg.Auth.Basic.Name,
		},
	})
	apiCtrl := apicontroller.NewController(apicontroller.Deps{
		Store:             store,
		Google:            googleSvc,
		QuickBooks:        qbSvc,
		GoogleAuthURL:     base + "/auth/google",
		QuickBooksAuthURL: base + "/auth/quickbooks/standalone",
		Environment:       cfg.Providers.QuickBooks.Environment,
	})
	adminCtrl := admincontroller.NewController(store)

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		lg.Fatal("metrics registration failed", logger.Err(err))
	}

	handler := router.New(router.Deps{
		Auth:               authCtrl,
		API:                apiCtrl,
		Admin:              adminCtrl,
		Store:              store,
		MetricsHandler:     metricsHandler,
		AdminAPIKey:        cfg.Admin.APIKey,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server failed", logger.Err(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown error", logger.Err(err))
	}
}
