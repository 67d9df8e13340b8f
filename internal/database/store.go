package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrdaa/backend/internal/models"
	"github.com/spf13/afero"
)

var (
	ErrStorage       = errors.New("storage error")
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrTableMissing  = errors.New("table does not exist")
	ErrTableCorrupt  = errors.New("table is corrupt")
	ErrRecordWidth   = errors.New("record width does not match schema")
)

// StorageError reports a failed read or write of a table. It matches
// ErrStorage with errors.Is.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, t Table, err error) error {
	return &StorageError{Op: op, Table: t.Name, Err: err}
}

// Table is a named, fixed-schema sequence of records.
type Table struct {
	Name    string
	Columns []string
}

var (
	AccountsTable       = Table{Name: "accounts", Columns: models.AccountColumns}
	LedgerTable         = Table{Name: "ledger", Columns: models.LedgerColumns}
	ChainTable          = Table{Name: "blockchain", Columns: models.ChainColumns}
	ProjectsTable       = Table{Name: "project_dis", Columns: models.ProjectColumns}
	PendingCommitsTable = Table{Name: "pending_commits", Columns: models.PendingCommitColumns}

	AllTables = []Table{AccountsTable, LedgerTable, ChainTable, ProjectsTable, PendingCommitsTable}
)

// Store is a flat record store. It has no query capability: callers load a
// whole table and filter in memory, which is only reasonable for small
// tables.
type Store interface {
	EnsureInitialized(ctx context.Context, t Table) error
	ReadAll(ctx context.Context, t Table) ([][]string, error)
	Append(ctx context.Context, t Table, record []string) error
	Overwrite(ctx context.Context, t Table, records [][]string) error
	Close() error
}

const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Driver string
	Dir    string
}

// OpenStore creates the Store selected by cfg.Driver.
func OpenStore(cfg StorageConfig, dbCfg *DBConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverCSV:
		return NewCSVStore(afero.NewOsFs(), cfg.Dir)
	case DriverPostgres:
		db, err := InitDB(dbCfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(db), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
}

func checkWidth(t Table, record []string) error {
	if len(record) != len(t.Columns) {
		return fmt.Errorf("%w: got %d fields, want %d", ErrRecordWidth, len(record), len(t.Columns))
	}
	return nil
}
