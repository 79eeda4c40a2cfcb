package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		BaseURL            string   `yaml:"base_url"` // public URL, used to build authUrl and redirect URIs
		DashboardURL       string   `yaml:"dashboard_url"`
		ErrorURL           string   `yaml:"error_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	// Static basic-auth fallback (single configured user).
	Auth struct {
		Basic struct {
			Enabled        bool   `yaml:"enabled"`
			Username       string `yaml:"username"`
			PasswordBcrypt string `yaml:"password_bcrypt"`
			Email          string `yaml:"email"`
			Name           string `yaml:"name"`
		} `yaml:"basic"`
	} `yaml:"auth"`

	// State JWT para anti-replay en flujos OAuth.
	State struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"state"`

	Providers struct {
		Google struct {
			Enabled      bool     `yaml:"enabled"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURL  string   `yaml:"redirect_url"` // si vacío => <server.base_url>/auth/google/callback
			Scopes       []string `yaml:"scopes"`       // default: openid,email,profile + spreadsheets
		} `yaml:"google"`

		Facebook struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
		} `yaml:"facebook"`

		QuickBooks struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
			Environment  string `yaml:"environment"` // sandbox | production
		} `yaml:"quickbooks"`

		TikTok struct {
			Enabled      bool   `yaml:"enabled"`
			ClientKey    string `yaml:"client_key"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
		} `yaml:"tiktok"`
	} `yaml:"providers"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.DashboardURL == "" {
		c.Server.DashboardURL = "/dashboard"
	}
	if c.Server.ErrorURL == "" {
		c.Server.ErrorURL = "/auth/error"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "tb:"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "tb_session"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}
	if c.Providers.QuickBooks.Environment == "" {
		c.Providers.QuickBooks.Environment = "sandbox"
	}
	if len(c.Providers.Google.Scopes) == 0 {
		c.Providers.Google.Scopes = []string{"openid", "email", "profile", "https://www.googleapis.com/auth/spreadsheets"}
	}

	// Validar duraciones configurables
	for _, d := range []string{c.Session.TTL, c.State.TTL, c.Cache.Memory.DefaultTTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}

	c.applyEnvOverrides()

	// Redirect URLs autogeneradas a partir de base_url
	base := strings.TrimRight(c.Server.BaseURL, "/")
	if c.Providers.Google.Enabled && strings.TrimSpace(c.Providers.Google.RedirectURL) == "" {
		c.Providers.Google.RedirectURL = base + "/auth/google/callback"
	}
	if c.Providers.Facebook.Enabled && strings.TrimSpace(c.Providers.Facebook.RedirectURL) == "" {
		c.Providers.Facebook.RedirectURL = base + "/auth/facebook/callback"
	}
	if c.Providers.QuickBooks.Enabled && strings.TrimSpace(c.Providers.QuickBooks.RedirectURL) == "" {
		c.Providers.QuickBooks.RedirectURL = base + "/auth/quickbooks/callback"
	}
	if c.Providers.TikTok.Enabled && strings.TrimSpace(c.Providers.TikTok.RedirectURL) == "" {
		c.Providers.TikTok.RedirectURL = base + "/auth/tiktok/callback"
	}

	return &c, nil
}

// applyEnvOverrides permite configurar secretos por entorno sin tocar el YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STATE_SECRET"); ok {
		c.State.Secret = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_ID"); ok {
		c.Providers.Facebook.ClientID = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_SECRET"); ok {
		c.Providers.Facebook.ClientSecret = v
	}
	if v, ok := getEnvStr("QB_CLIENT_ID"); ok {
		c.Providers.QuickBooks.ClientID = v
	}
	if v, ok := getEnvStr("QB_CLIENT_SECRET"); ok {
		c.Providers.QuickBooks.ClientSecret = v
	}
	if v, ok := getEnvStr("QB_ENVIRONMENT"); ok {
		c.Providers.QuickBooks.Environment = v
	}
	if v, ok := getEnvStr("TIKTOK_CLIENT_KEY"); ok {
		c.Providers.TikTok.ClientKey = v
	}
	if v, ok := getEnvStr("TIKTOK_CLIENT_SECRET"); ok {
		c.Providers.TikTok.ClientSecret = v
	}
	if v, ok := getEnvBool("FLAG_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// SessionTTL retorna el TTL de sesión parseado (ya validado en Load).
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

// StateTTL retorna el TTL del state JWT parseado.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.State.TTL)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
