package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

const customerColumns = `
	id, email, name, picture,
	google_access_token, google_refresh_token, google_scopes, google_token_expiry,
	qb_access_token, qb_refresh_token, qb_company_id, qb_token_expiry, qb_base_url,
	tiktok_access_token, tiktok_refresh_token, tiktok_token_expiry, tiktok_user_id,
	created_at, updated_at`

// rowScanner cubre pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*core.Customer, error) {
	var (
		c                             core.Customer
		email, name, picture          *string
		gAccess, gRefresh, gScopes    *string
		gExpiry                       *time.Time
		qbAccess, qbRefresh           *string
		qbCompany, qbBaseURL          *string
		qbExpiry                      *time.Time
		ttAccess, ttRefresh, ttUserID *string
		ttExpiry                      *time.Time
	)
	err := row.Scan(
		&c.ID, &email, &name, &picture,
		&gAccess, &gRefresh, &gScopes, &gExpiry,
		&qbAccess, &qbRefresh, &qbCompany, &qbExpiry, &qbBaseURL,
		&ttAccess, &ttRefresh, &ttExpiry, &ttUserID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email != nil {
		c.Email = *email
	}
	if name != nil {
		c.Name = *name
	}
	if picture != nil {
		c.Picture = *picture
	}

	c.Tokens = map[core.Provider]*core.TokenSet{}
	if gAccess != nil && *gAccess != "" {
		ts := &core.TokenSet{AccessToken: *gAccess}
		if gRefresh != nil {
			ts.RefreshToken = *gRefresh
		}
		if gScopes != nil && *gScopes != "" {
			ts.Scopes = strings.Fields(*gScopes)
		}
		if gExpiry != nil {
			ts.Expiry = *gExpiry
		}
		c.Tokens[core.ProviderGoogle] = ts
	}
	if qbAccess != nil && *qbAccess != "" {
		ts := &core.TokenSet{AccessToken: *qbAccess}
		if qbRefresh != nil {
			ts.RefreshToken = *qbRefresh
		}
		if qbCompany != nil {
			ts.CompanyID = *qbCompany
		}
		if qbBaseURL != nil {
			ts.BaseURL = *qbBaseURL
		}
		if qbExpiry != nil {
			ts.Expiry = *qbExpiry
		}
		c.Tokens[core.ProviderQuickBooks] = ts
	}
	if ttAccess != nil && *ttAccess != "" {
		ts := &core.TokenSet{AccessToken: *ttAccess}
		if ttRefresh != nil {
			ts.RefreshToken = *ttRefresh
		}
		if ttUserID != nil {
			ts.UserID = *ttUserID
		}
		if ttExpiry != nil {
			ts.Expiry = *ttExpiry
		}
		c.Tokens[core.ProviderTikTok] = ts
	}
	return &c, nil
}

func (s *Store) getWhere(ctx context.Context, where string, args ...any) (*core.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customer WHERE `+where, args...)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (*core.Customer, error) {
	return s.getWhere(ctx, `id = $1`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.Customer, error) {
	return s.getWhere(ctx, `email = $1`, email)
}

func (s *Store) GetByCompanyID(ctx context.Context, companyID string) (*core.Customer, error) {
	return s.getWhere(ctx, `qb_company_id = $1`, companyID)
}

func (s *Store) GetAll(ctx context.Context) ([]*core.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customer ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, c *core.Customer) error {
	g := c.TokensFor(core.ProviderGoogle)
	qb := c.TokensFor(core.ProviderQuickBooks)
	tt := c.TokensFor(core.ProviderTikTok)

	var gScopes *string
	if g != nil && len(g.Scopes) > 0 {
		joined := strings.Join(g.Scopes, " ")
		gScopes = &joined
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO customer (
			id, email, name, picture,
			google_access_token, google_refresh_token, google_scopes, google_token_expiry,
			qb_access_token, qb_refresh_token, qb_company_id, qb_token_expiry, qb_base_url,
			tiktok_access_token, tiktok_refresh_token, tiktok_token_expiry, tiktok_user_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			google_access_token = EXCLUDED.google_access_token,
			google_refresh_token = EXCLUDED.google_refresh_token,
			google_scopes = EXCLUDED.google_scopes,
			google_token_expiry = EXCLUDED.google_token_expiry,
			qb_access_token = EXCLUDED.qb_access_token,
			qb_refresh_token = EXCLUDED.qb_refresh_token,
			qb_company_id = EXCLUDED.qb_company_id,
			qb_token_expiry = EXCLUDED.qb_token_expiry,
			qb_base_url = EXCLUDED.qb_base_url,
			tiktok_access_token = EXCLUDED.tiktok_access_token,
			tiktok_refresh_token = EXCLUDED.tiktok_refresh_token,
			tiktok_token_expiry = EXCLUDED.tiktok_token_expiry,
			tiktok_user_id = EXCLUDED.tiktok_user_id,
			updated_at = now()`,
		c.ID, nullIfEmpty(c.Email), nullIfEmpty(c.Name), nullIfEmpty(c.Picture),
		tokenField(g, func(t *core.TokenSet) string { return t.AccessToken }),
		tokenField(g, func(t *core.TokenSet) string { return t.RefreshToken }),
		gScopes,
		tokenExpiry(g),
		tokenField(qb, func(t *core.TokenSet) string { return t.AccessToken }),
		tokenField(qb, func(t *core.TokenSet) string { return t.RefreshToken }),
		tokenField(qb, func(t *core.TokenSet) string { return t.CompanyID }),
		tokenExpiry(qb),
		tokenField(qb, func(t *core.TokenSet) string { return t.BaseURL }),
		tokenField(tt, func(t *core.TokenSet) string { return t.AccessToken }),
		tokenField(tt, func(t *core.TokenSet) string { return t.RefreshToken }),
		tokenExpiry(tt),
		tokenField(tt, func(t *core.TokenSet) string { return t.UserID }),
	)
	if isUniqueViolation(err) {
		return core.ErrDuplicateEmail
	}
	return err
}

func tokenField(ts *core.TokenSet, f func(*core.TokenSet) string) *string {
	if ts == nil {
		return nil
	}
	return nullIfEmpty(f(ts))
}

func tokenExpiry(ts *core.TokenSet) *time.Time {
	if ts == nil || ts.Expiry.IsZero() {
		return nil
	}
	t := ts.Expiry
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpdateTokens escribe exactamente el grupo de columnas del provider.
// ts == nil limpia el grupo. Cero filas afectadas => ErrNotFound: el caller
// debe verificarlo y responder "customer not found".
func (s *Store) UpdateTokens(ctx context.Context, id string, p core.Provider, ts *core.TokenSet) error {
	var tag pgconn.CommandTag
	var err error

	switch p {
	case core.ProviderGoogle:
		var scopes *string
		if ts != nil && len(ts.Scopes) > 0 {
			joined := strings.Join(ts.Scopes, " ")
			scopes = &joined
		}
		tag, err = s.pool.Exec(ctx, `
			UPDATE customer SET
				google_access_token = $2,
				google_refresh_token = $3,
				google_scopes = $4,
				google_token_expiry = $5,
				updated_at = now()
			WHERE id = $1`,
			id,
			tokenField(ts, func(t *core.TokenSet) string { return t.AccessToken }),
			tokenField(ts, func(t *core.TokenSet) string { return t.RefreshToken }),
			scopes,
			tokenExpiry(ts),
		)
	case core.ProviderQuickBooks:
		tag, err = s.pool.Exec(ctx, `
			UPDATE customer SET
				qb_access_token = $2,
				qb_refresh_token = $3,
				qb_company_id = $4,
				qb_token_expiry = $5,
				qb_base_url = $6,
				updated_at = now()
			WHERE id = $1`,
			id,
			tokenField(ts, func(t *core.TokenSet) string { return t.AccessToken }),
			tokenField(ts, func(t *core.TokenSet) string { return t.RefreshToken }),
			tokenField(ts, func(t *core.TokenSet) string { return t.CompanyID }),
			tokenExpiry(ts),
			tokenField(ts, func(t *core.TokenSet) string { return t.BaseURL }),
		)
	case core.ProviderTikTok:
		tag, err = s.pool.Exec(ctx, `
			UPDATE customer SET
				tiktok_access_token = $2,
				tiktok_refresh_token = $3,
				tiktok_token_expiry = $4,
				tiktok_user_id = $5,
				updated_at = now()
			WHERE id = $1`,
			id,
			tokenField(ts, func(t *core.TokenSet) string { return t.AccessToken }),
			tokenField(ts, func(t *core.TokenSet) string { return t.RefreshToken }),
			tokenExpiry(ts),
			tokenField(ts, func(t *core.TokenSet) string { return t.UserID }),
		)
	default:
		return fmt.Errorf("pg: provider %q has no token columns", p)
	}

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, id, name, picture string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customer SET
			name = COALESCE(NULLIF($2, ''), name),
			picture = COALESCE(NULLIF($3, ''), picture),
			updated_at = now()
		WHERE id = $1`,
		id, name, picture,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM customer WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
