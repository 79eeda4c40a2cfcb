// Package pg implementa el CustomerStore sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options configura el pool de conexiones.
type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Store implementa core.CustomerStore.
type Store struct {
	pool *pgxpool.Pool
}

// Connect abre el pool y verifica conectividad.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if opts.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(opts.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if opts.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(opts.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate aplica las migraciones embebidas pendientes.
func (s *Store) Migrate(ctx context.Context) ([]int, error) {
	return Migrate(ctx, s.pool)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close cierra el pool.
func (s *Store) Close() {
	s.pool.Close()
}

// nullIfEmpty returns nil if the string is empty, otherwise the string pointer.
// Useful for inserting optional string fields into PostgreSQL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
