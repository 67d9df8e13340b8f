package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// InitDB opens and pings the PostgreSQL database described by config
func InitDB(config *DBConfig) (*sql.DB, error) {
	if config == nil {
		return nil, fmt.Errorf("error opening database: no database configuration")
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Name, config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	slog.Info("Database connection established", "module", "database", "host", config.Host, "name", config.Name)
	return db, nil
}

// PostgresStore keeps each table as a PostgreSQL table of TEXT columns
// ordered by a serial seq column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureInitialized(ctx context.Context, t Table) error {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, "seq BIGSERIAL PRIMARY KEY")
	for _, c := range t.Columns {
		cols = append(cols, pq.QuoteIdentifier(c)+" TEXT NOT NULL DEFAULT ''")
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(t.Name), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return storageErr("init", t, err)
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, t Table) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, selectQuery(t))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "42P01" {
			return nil, storageErr("read", t, ErrTableMissing)
		}
		return nil, storageErr("read", t, err)
	}
	defer rows.Close()

	records := [][]string{}
	for rows.Next() {
		rec := make([]string, len(t.Columns))
		dest := make([]any, len(rec))
		for i := range rec {
			dest[i] = &rec[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, storageErr("read", t, fmt.Errorf("%w: %v", ErrTableCorrupt, err))
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("read", t, err)
	}
	return records, nil
}

func (s *PostgresStore) Append(ctx context.Context, t Table, record []string) error {
	if err := checkWidth(t, record); err != nil {
		return storageErr("append", t, err)
	}

	if _, err := s.db.ExecContext(ctx, insertQuery(t), toArgs(record)...); err != nil {
		return storageErr("append", t, err)
	}
	return nil
}

// Overwrite deletes and re-inserts every row inside one SQL transaction.
func (s *PostgresStore) Overwrite(ctx context.Context, t Table, records [][]string) error {
	for _, rec := range records {
		if err := checkWidth(t, rec); err != nil {
			return storageErr("overwrite", t, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("overwrite", t, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(t.Name)); err != nil {
		return storageErr("overwrite", t, err)
	}

	insert := insertQuery(t)
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, insert, toArgs(rec)...); err != nil {
			return storageErr("overwrite", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("overwrite", t, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func quotedColumns(t Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(cols, ", ")
}

func selectQuery(t Table) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", quotedColumns(t), pq.QuoteIdentifier(t.Name))
}

func insertQuery(t Table) string {
	params := make([]string, len(t.Columns))
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", pq.QuoteIdentifier(t.Name), quotedColumns(t), strings.Join(params, ", "))
}

func toArgs(record []string) []any {
	args := make([]any, len(record))
	for i, v := range record {
		args[i] = v
	}
	return args
}
