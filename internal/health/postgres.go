package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresChecker checks PostgreSQL over a dedicated small database/sql pool,
// so readiness does not compete with the repository pool for connections.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a lib/pq handle for dsn
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresChecker{db: db}, nil
}

// Name returns the service name
func (p *PostgresChecker) Name() string { return "postgres" }

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresChecker) HealthCheck(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// Close closes the database handle
func (p *PostgresChecker) Close() error {
	return p.db.Close()
}
