package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/session"
)

// DefaultTable is the session table name.
const DefaultTable = "user_sessions"

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("repository: invalid table name")

// PostgresRepository stores sessions in a table with one row per token.
type PostgresRepository struct {
	db    *sql.DB
	table string
}

var (
	_ Repository     = (*PostgresRepository)(nil)
	_ session.Lister = (*PostgresRepository)(nil)
)

// OpenPostgres connects with dsn using lib/pq.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	repo, err := NewPostgresRepository(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepository wraps an existing handle.
func NewPostgresRepository(db *sql.DB, table string) (*PostgresRepository, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &PostgresRepository{db: db, table: table}, nil
}

// EnsureSchema creates the session table when missing.
func (p *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
	session_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

// Save upserts rec.
func (p *PostgresRepository) Save(ctx context.Context, rec session.Record) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO `+p.table+` (session_id, user_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO UPDATE SET user_id = EXCLUDED.user_id, created_at = EXCLUDED.created_at`,
		rec.Token, rec.UserID, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// FindByToken selects the row for token.
func (p *PostgresRepository) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	rec := session.Record{Token: token}
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM `+p.table+` WHERE session_id = $1`, token,
	).Scan(&rec.UserID, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[session.Record](), nil
	}
	if err != nil {
		return mo.None[session.Record](), fmt.Errorf("find session: %w", err)
	}
	return mo.Some(rec), nil
}

// DeleteByToken deletes the row and reports whether one existed.
func (p *PostgresRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM `+p.table+` WHERE session_id = $1`, token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// All returns every row.
func (p *PostgresRepository) All(ctx context.Context) ([]session.Record, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT session_id, user_id, created_at FROM `+p.table)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		var rec session.Record
		if err := rows.Scan(&rec.Token, &rec.UserID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks the connection.
func (p *PostgresRepository) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database handle.
func (p *PostgresRepository) Close() error {
	return p.db.Close()
}
