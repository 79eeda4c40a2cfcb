package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

func (s *Store) ListSheets(ctx context.Context, customerID string) ([]core.SheetLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, sheet_id, name, purpose, selected_at
		FROM sheet_link WHERE customer_id = $1
		ORDER BY selected_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []core.SheetLink
	for rows.Next() {
		var l core.SheetLink
		var name *string
		if err := rows.Scan(&l.CustomerID, &l.SheetID, &name, &l.Purpose, &l.SelectedAt); err != nil {
			return nil, err
		}
		if name != nil {
			l.Name = *name
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) SaveSheet(ctx context.Context, link core.SheetLink) error {
	if link.SelectedAt.IsZero() {
		link.SelectedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sheet_link (customer_id, sheet_id, name, purpose, selected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, sheet_id, purpose) DO UPDATE SET
			name = EXCLUDED.name,
			selected_at = EXCLUDED.selected_at`,
		link.CustomerID, link.SheetID, nullIfEmpty(link.Name), link.Purpose, link.SelectedAt,
	)
	// FK violation => el customer no existe
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return core.ErrNotFound
	}
	return err
}
