// Package memory implements an in-memory CustomerStore.
// Used for tests and local development without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

type Store struct {
	mu        sync.RWMutex
	customers map[string]*core.Customer
	sheets    map[string][]core.SheetLink

	// now is swappable in tests.
	now func() time.Time
}

func New() *Store {
	return &Store{
		customers: map[string]*core.Customer{},
		sheets:    map[string][]core.SheetLink{},
		now:       time.Now,
	}
}

func clone(c *core.Customer) *core.Customer {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Tokens = map[core.Provider]*core.TokenSet{}
	for p, ts := range c.Tokens {
		cp.Tokens[p] = ts.Clone()
	}
	return &cp
}

func (s *Store) Get(ctx context.Context, id string) (*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(c), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Email == email {
			return clone(c), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetByCompanyID(ctx context.Context, companyID string) (*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if ts := c.TokensFor(core.ProviderQuickBooks); ts != nil && ts.CompanyID == companyID {
			return clone(c), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetAll(ctx context.Context) ([]*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, c *core.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	cp := clone(c)
	if existing, ok := s.customers[c.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		// unique email best-effort, como el UNIQUE de pg
		for _, other := range s.customers {
			if other.Email != "" && other.Email == c.Email {
				return core.ErrDuplicateEmail
			}
		}
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
	}
	cp.UpdatedAt = now
	s.customers[c.ID] = cp
	return nil
}

func (s *Store) UpdateTokens(ctx context.Context, id string, p core.Provider, ts *core.TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return core.ErrNotFound
	}
	c.SetTokens(p, ts.Clone())
	c.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, id, name, picture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return core.ErrNotFound
	}
	if name != "" {
		c.Name = name
	}
	if picture != "" {
		c.Picture = picture
	}
	c.UpdatedAt = s.now()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.customers, id)
	delete(s.sheets, id)
	return nil
}

func (s *Store) ListSheets(ctx context.Context, customerID string) ([]core.SheetLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := append([]core.SheetLink(nil), s.sheets[customerID]...)
	sort.Slice(links, func(i, j int) bool { return links[i].SelectedAt.After(links[j].SelectedAt) })
	return links, nil
}

func (s *Store) SaveSheet(ctx context.Context, link core.SheetLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[link.CustomerID]; !ok {
		return core.ErrNotFound
	}
	if link.SelectedAt.IsZero() {
		link.SelectedAt = s.now()
	}
	links := s.sheets[link.CustomerID]
	for i, l := range links {
		if l.SheetID == link.SheetID && l.Purpose == link.Purpose {
			links[i] = link
			s.sheets[link.CustomerID] = links
			return nil
		}
	}
	s.sheets[link.CustomerID] = append(links, link)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
