// Package session implements cookie sessions persisted server-side in the
// cache (memory or redis). The cookie only carries the opaque session id.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/cache"
)

// Auth types for the session user-info bag.
const (
	AuthTypeGoogle     = "google"
	AuthTypeBasic      = "basic"
	AuthTypeFacebook   = "facebook"
	AuthTypeQuickBooks = "quickbooks"
)

// Session is the JSON-serializable per-browser state.
type Session struct {
	ID            string `json:"id"`
	Authenticated bool   `json:"authenticated"`

	// Normalized user-info bag, set when Authenticated.
	AuthType   string `json:"auth_type,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`

	// Linking hints recorded before redirecting to a provider.
	LinkCustomerID string `json:"link_customer_id,omitempty"` // secondary linking flow
	TempLinkID     string `json:"temp_link_id,omitempty"`     // anonymous standalone flow

	CreatedAt time.Time `json:"created_at"`
}

// Options configura el manager.
type Options struct {
	CookieName string
	Domain     string
	SameSite   string // lax | strict | none
	Secure     bool
	TTL        time.Duration
}

// Manager reads and persists sessions.
type Manager struct {
	cache    cache.Cache
	opts     Options
	sameSite http.SameSite
}

func NewManager(c cache.Cache, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "tb_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	ss := http.SameSiteLaxMode
	switch strings.ToLower(opts.SameSite) {
	case "strict":
		ss = http.SameSiteStrictMode
	case "none":
		ss = http.SameSiteNoneMode
	}
	return &Manager{cache: c, opts: opts, sameSite: ss}
}

func key(id string) string { return "sess:" + id }

func newID() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Get returns the request's session, or a fresh unauthenticated one when the
// cookie is missing or the stored entry expired. A fresh session is not
// persisted until Save is called.
func (m *Manager) Get(r *http.Request) *Session {
	ck, err := r.Cookie(m.opts.CookieName)
	if err == nil && ck.Value != "" {
		if b, ok := m.cache.Get(key(ck.Value)); ok {
			var s Session
			if json.Unmarshal(b, &s) == nil && s.ID != "" {
				return &s
			}
		}
	}
	return &Session{ID: newID(), CreatedAt: time.Now().UTC()}
}

// Save persists the session and sets the cookie. Persistence MUST happen
// before the redirect that follows a callback; a failure here is surfaced as
// a distinct "session_failed" condition by callers.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	m.cache.Set(key(s.ID), b, m.opts.TTL)

	// Verificación de escritura: el backend (p.ej. redis caído) no reporta
	// errores por Set, así que releemos.
	if _, ok := m.cache.Get(key(s.ID)); !ok {
		return fmt.Errorf("session: store write not visible")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   m.opts.Domain,
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: m.sameSite,
	})
	return nil
}

// Destroy deletes the stored session and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie(m.opts.CookieName); err == nil && ck.Value != "" {
		m.cache.Delete(key(ck.Value))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: m.sameSite,
	})
}
