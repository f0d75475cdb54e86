package checkers

import (
	"context"
	"fmt"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresChecker pings the submission database.
type PostgresChecker struct {
	db   Pinger
	name string
}

// NewPostgresChecker returns a checker named name, or "postgres" when empty.
func NewPostgresChecker(db Pinger, name string) *PostgresChecker {
	if name == "" {
		name = "postgres"
	}
	return &PostgresChecker{db: db, name: name}
}

func (p *PostgresChecker) Name() string { return p.name }

// Check pings the pool.
func (p *PostgresChecker) Check(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
