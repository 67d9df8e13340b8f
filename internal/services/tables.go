package services

import (
	"context"

	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/models"
)

// accountTable is the accounts table loaded for one operation, indexed by
// account number and kept in storage order.
type accountTable struct {
	rows  []models.Account
	index map[string]int
}

func (t *accountTable) Len() int { return len(t.rows) }

func (t *accountTable) Get(accountNo string) (*models.Account, bool) {
	i, ok := t.index[accountNo]
	if !ok {
		return nil, false
	}
	return &t.rows[i], true
}

func (t *accountTable) Records() [][]string {
	records := make([][]string, len(t.rows))
	for i := range t.rows {
		records[i] = t.rows[i].ToRecord()
	}
	return records
}

func decodeErr(t database.Table, err error) error {
	return &database.StorageError{Op: "decode", Table: t.Name, Err: err}
}

func (s *LedgerService) loadAccounts(ctx context.Context) (*accountTable, error) {
	records, err := s.store.ReadAll(ctx, database.AccountsTable)
	if err != nil {
		return nil, err
	}

	t := &accountTable{
		rows:  make([]models.Account, 0, len(records)),
		index: make(map[string]int, len(records)),
	}
	for _, rec := range records {
		acc, err := models.AccountFromRecord(rec)
		if err != nil {
			return nil, decodeErr(database.AccountsTable, err)
		}
		if _, dup := t.index[acc.AccountNo]; !dup {
			t.index[acc.AccountNo] = len(t.rows)
		}
		t.rows = append(t.rows, acc)
	}
	return t, nil
}

func (s *LedgerService) loadProjects(ctx context.Context) ([]models.Project, error) {
	records, err := s.store.ReadAll(ctx, database.ProjectsTable)
	if err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(records))
	for _, rec := range records {
		p, err := models.ProjectFromRecord(rec)
		if err != nil {
			return nil, decodeErr(database.ProjectsTable, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (s *LedgerService) loadLedger(ctx context.Context) ([]models.LedgerEntry, error) {
	records, err := s.store.ReadAll(ctx, database.LedgerTable)
	if err != nil {
		return nil, err
	}

	ledger := make([]models.LedgerEntry, 0, len(records))
	for _, rec := range records {
		e, err := models.LedgerEntryFromRecord(rec)
		if err != nil {
			return nil, decodeErr(database.LedgerTable, err)
		}
		ledger = append(ledger, e)
	}
	return ledger, nil
}

func (s *LedgerService) loadChain(ctx context.Context) ([]models.ChainBlock, error) {
	records, err := s.store.ReadAll(ctx, database.ChainTable)
	if err != nil {
		return nil, err
	}

	chain := make([]models.ChainBlock, 0, len(records))
	for _, rec := range records {
		b, err := models.ChainBlockFromRecord(rec)
		if err != nil {
			return nil, decodeErr(database.ChainTable, err)
		}
		chain = append(chain, b)
	}
	return chain, nil
}
