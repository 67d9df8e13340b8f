package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shrdaa/backend/internal/audit"
	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/identity"
	"github.com/shrdaa/backend/internal/models"
)

// LedgerService is the single writer of the ledger. Every mutating
// operation holds mu for its full read-modify-write sequence.
type LedgerService struct {
	mu sync.RWMutex

	store           database.Store
	hasher          identity.PasswordHasher
	argon2          identity.Argon2Params
	audit           *audit.Logger
	logger          *slog.Logger
	defaultBalances map[models.Role]decimal.Decimal
	now             func() time.Time
}

type LedgerOptions struct {
	Hasher                    identity.PasswordHasher
	Argon2                    identity.Argon2Params
	DefaultBalanceGovtOfficer decimal.Decimal
	DefaultBalanceBeneficiary decimal.Decimal
	Logger                    *slog.Logger
}

func NewLedgerService(store database.Store, opts LedgerOptions) *LedgerService {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = identity.SHA256Hasher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LedgerService{
		store:  store,
		hasher: hasher,
		argon2: opts.Argon2,
		audit:  audit.NewLogger(logger),
		logger: logger.With("module", "ledger"),
		defaultBalances: map[models.Role]decimal.Decimal{
			models.RoleGovtOfficer: opts.DefaultBalanceGovtOfficer,
			models.RoleBeneficiary: opts.DefaultBalanceBeneficiary,
			models.RoleAuditor:     decimal.Zero,
		},
		now: time.Now,
	}
}

// Init creates any missing table and finishes transfers interrupted by a
// crash. Call it once before serving requests.
func (s *LedgerService) Init(ctx context.Context) error {
	for _, t := range database.AllTables {
		if err := s.store.EnsureInitialized(ctx, t); err != nil {
			return err
		}
	}
	return s.Recover(ctx)
}

// NewAccount is the input of CreateAccount. A nil Balance selects the
// role's default opening balance.
type NewAccount struct {
	Name      string
	Age       int
	Location  string
	RankTitle string
	Password  string
	Balance   *decimal.Decimal
}

func (s *LedgerService) CreateAccount(ctx context.Context, req NewAccount) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := models.ResolveRole(req.RankTitle)
	balance := s.defaultBalances[role]
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			return models.Account{}, fmt.Errorf("%w: opening balance %s", ErrInvalidAmount, req.Balance)
		}
		balance = *req.Balance
	}

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return models.Account{}, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hashing password: %w", err)
	}

	acc := models.Account{
		AccountNo:            identity.NextID(identity.AccountPrefix, identity.AccountIDWidth, accounts.Len()),
		Name:                 req.Name,
		PasswordDigest:       digest,
		Balance:              balance,
		Age:                  req.Age,
		Location:             req.Location,
		RankTitle:            req.RankTitle,
		AuthorizedProjectNos: []string{},
	}

	if err := s.store.Append(ctx, database.AccountsTable, acc.ToRecord()); err != nil {
		return models.Account{}, err
	}

	s.audit.LogOperation(acc.AccountNo, "ACCOUNT_CREATED", fmt.Sprintf("role=%s balance=%s", role, balance))
	return acc, nil
}

// CreateProject registers a project and authorizes the listed accounts for
// it. Account numbers with no matching account are skipped.
func (s *LedgerService) CreateProject(ctx context.Context, accountNos []string, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.loadProjects(ctx)
	if err != nil {
		return "", err
	}

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return "", err
	}

	projectNo := identity.NextID(identity.ProjectPrefix, identity.ProjectIDWidth, len(projects))

	var unknown []string
	for _, no := range accountNos {
		acc, ok := accounts.Get(no)
		if !ok {
			if !slices.Contains(unknown, no) {
				unknown = append(unknown, no)
			}
			continue
		}
		acc.Authorize(projectNo)
	}
	if len(unknown) > 0 {
		s.logger.Warn("Ignoring unknown accounts in project creation", "project_no", projectNo, "account_nos", unknown)
	}

	if err := s.store.Overwrite(ctx, database.AccountsTable, accounts.Records()); err != nil {
		return "", err
	}

	project := models.Project{ProjectNo: projectNo, Description: description}
	if err := s.store.Append(ctx, database.ProjectsTable, project.ToRecord()); err != nil {
		return "", err
	}

	s.audit.LogOperation("", "PROJECT_CREATED", projectNo)
	return projectNo, nil
}

// ProcessTransaction moves amount from one account to another under
// projectNo and appends the ledger entry and its chain block.
//
// The checks run in a fixed order: amount, sender authorization, account
// existence, role shape, funds. Nothing is written unless all pass.
func (s *LedgerService) ProcessTransaction(ctx context.Context, fromNo, toNo, projectNo string, amount decimal.Decimal) (models.LedgerEntry, error) {
	if !amount.IsPositive() {
		return models.LedgerEntry{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recover(ctx); err != nil {
		return models.LedgerEntry{}, err
	}

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	from, fromOK := accounts.Get(fromNo)
	to, toOK := accounts.Get(toNo)

	if !fromOK || !from.IsAuthorizedFor(projectNo) {
		return models.LedgerEntry{}, fmt.Errorf("%w: %s for project %s", ErrNotAuthorized, fromNo, projectNo)
	}

	if !toOK {
		return models.LedgerEntry{}, fmt.Errorf("%w: %s", ErrInvalidAccount, toNo)
	}

	if fromNo == toNo {
		return models.LedgerEntry{}, fmt.Errorf("%w: sender and receiver are both %s", ErrInvalidTransactionShape, fromNo)
	}

	fromRole, toRole := from.Role(), to.Role()
	if fromRole == models.RoleGovtOfficer && (toRole == models.RoleGovtOfficer || toRole == models.RoleAuditor) {
		return models.LedgerEntry{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransactionShape, fromRole, toRole)
	}

	newFromBalance := from.Balance.Sub(amount)
	if newFromBalance.IsNegative() {
		return models.LedgerEntry{}, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, fromNo, from.Balance, amount)
	}
	newToBalance := to.Balance.Add(amount)

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	chain, err := s.loadChain(ctx)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	entry := models.LedgerEntry{
		TransactionNo:      identity.NextID(identity.TransactionPrefix, identity.TransactionIDWidth, len(ledger)),
		ProjectNo:          projectNo,
		FromAccountNo:      fromNo,
		ToAccountNo:        toNo,
		Amount:             amount,
		Timestamp:          s.now().UTC().Format(time.RFC3339Nano),
		VerificationStatus: models.VerificationPending,
	}

	previousHash := models.GenesisHash
	if len(chain) > 0 {
		previousHash = chain[len(chain)-1].CurrentHash
	}

	commit := models.PendingCommit{
		Entry: entry,
		Block: models.ChainBlock{
			TransactionNo: entry.TransactionNo,
			ProjectNo:     projectNo,
			PreviousHash:  previousHash,
			CurrentHash:   identity.Digest(entry.ChainInput(previousHash)),
		},
		FromBalance: newFromBalance,
		ToBalance:   newToBalance,
	}

	if err := s.commit(ctx, accounts, commit); err != nil {
		s.audit.LogError(entry.TransactionNo, fromNo, err)
		return models.LedgerEntry{}, err
	}

	s.audit.LogTransfer(entry.TransactionNo, projectNo, fromNo, toNo, entry.AmountText(), "SUCCESS")
	return entry, nil
}

// commit journals the transfer, then writes balances, ledger row and block
// in that order, then clears the journal. The transfer is committed once the
// balances are written. A failure before that point discards the journal row
// and is returned. A failure after it is logged and finished by Recover.
func (s *LedgerService) commit(ctx context.Context, accounts *accountTable, c models.PendingCommit) error {
	if err := s.store.Append(ctx, database.PendingCommitsTable, c.ToRecord()); err != nil {
		return err
	}

	if err := s.writeBalances(ctx, accounts, c); err != nil {
		if clearErr := s.store.Overwrite(ctx, database.PendingCommitsTable, nil); clearErr != nil {
			// Recover discards the row since the balances never moved.
			s.logger.Error("Failed to discard journal of aborted transfer",
				"transaction_no", c.Entry.TransactionNo, "error", clearErr)
		}
		return err
	}

	if err := s.appendRows(ctx, c, nil, nil); err != nil {
		s.logger.Error("Transfer committed, ledger rows left for recovery",
			"transaction_no", c.Entry.TransactionNo, "error", err)
		return nil
	}

	if err := s.store.Overwrite(ctx, database.PendingCommitsTable, nil); err != nil {
		s.logger.Error("Failed to clear journal of committed transfer",
			"transaction_no", c.Entry.TransactionNo, "error", err)
	}
	return nil
}

func (s *LedgerService) writeBalances(ctx context.Context, accounts *accountTable, c models.PendingCommit) error {
	if from, ok := accounts.Get(c.Entry.FromAccountNo); ok {
		from.Balance = c.FromBalance
	}
	if to, ok := accounts.Get(c.Entry.ToAccountNo); ok {
		to.Balance = c.ToBalance
	}
	return s.store.Overwrite(ctx, database.AccountsTable, accounts.Records())
}

// appendRows appends the ledger row and block of c. ledger and chain, when
// non-nil, are the current tables and rows already present are skipped.
func (s *LedgerService) appendRows(ctx context.Context, c models.PendingCommit, ledger []models.LedgerEntry, chain []models.ChainBlock) error {
	if !slices.ContainsFunc(ledger, func(e models.LedgerEntry) bool { return e.TransactionNo == c.Entry.TransactionNo }) {
		if err := s.store.Append(ctx, database.LedgerTable, c.Entry.ToRecord()); err != nil {
			return err
		}
	}

	if !slices.ContainsFunc(chain, func(b models.ChainBlock) bool { return b.TransactionNo == c.Block.TransactionNo }) {
		if err := s.store.Append(ctx, database.ChainTable, c.Block.ToRecord()); err != nil {
			return err
		}
	}

	return nil
}

// Recover settles every journaled transfer. A transfer whose balances were
// written is rolled forward: its ledger row and block are appended when
// absent. One whose balances never moved was reported as failed and is
// dropped. Recover runs before any other balance change, so the journaled
// post-balances tell the two cases apart.
func (s *LedgerService) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recover(ctx)
}

func (s *LedgerService) recover(ctx context.Context) error {
	records, err := s.store.ReadAll(ctx, database.PendingCommitsTable)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		c, err := models.PendingCommitFromRecord(rec)
		if err != nil {
			return decodeErr(database.PendingCommitsTable, err)
		}

		accounts, err := s.loadAccounts(ctx)
		if err != nil {
			return err
		}

		if !balancesWritten(accounts, c) {
			s.logger.Warn("Dropped journal of uncommitted transfer", "transaction_no", c.Entry.TransactionNo)
			continue
		}

		ledger, err := s.loadLedger(ctx)
		if err != nil {
			return err
		}
		chain, err := s.loadChain(ctx)
		if err != nil {
			return err
		}

		if err := s.appendRows(ctx, c, ledger, chain); err != nil {
			return err
		}
		s.logger.Warn("Recovered interrupted transfer", "transaction_no", c.Entry.TransactionNo)
	}

	return s.store.Overwrite(ctx, database.PendingCommitsTable, nil)
}

func balancesWritten(accounts *accountTable, c models.PendingCommit) bool {
	from, fromOK := accounts.Get(c.Entry.FromAccountNo)
	to, toOK := accounts.Get(c.Entry.ToAccountNo)
	return fromOK && toOK && from.Balance.Equal(c.FromBalance) && to.Balance.Equal(c.ToBalance)
}

// VerifyTransaction recomputes the block hash of transactionNo against its
// stored previous_hash. A match marks the entry done; a mismatch or a
// missing block returns false and changes nothing. An entry verifies once.
func (s *LedgerService) VerifyTransaction(ctx context.Context, transactionNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recover(ctx); err != nil {
		return false, err
	}

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return false, err
	}

	chain, err := s.loadChain(ctx)
	if err != nil {
		return false, err
	}

	idx := slices.IndexFunc(ledger, func(e models.LedgerEntry) bool { return e.TransactionNo == transactionNo })
	if idx < 0 {
		return false, fmt.Errorf("%w: transaction %s", ErrNotFound, transactionNo)
	}

	entry := &ledger[idx]
	if entry.IsVerified() {
		return false, fmt.Errorf("%w: transaction %s", ErrAlreadyVerified, transactionNo)
	}

	blockIdx := slices.IndexFunc(chain, func(b models.ChainBlock) bool { return b.TransactionNo == transactionNo })
	if blockIdx < 0 {
		s.audit.LogVerification(transactionNo, false)
		return false, nil
	}
	block := chain[blockIdx]

	if identity.Digest(entry.ChainInput(block.PreviousHash)) != block.CurrentHash {
		s.audit.LogVerification(transactionNo, false)
		return false, nil
	}

	entry.VerificationStatus = models.VerificationDone
	records := make([][]string, len(ledger))
	for i := range ledger {
		records[i] = ledger[i].ToRecord()
	}
	if err := s.store.Overwrite(ctx, database.LedgerTable, records); err != nil {
		return false, err
	}

	s.audit.LogVerification(transactionNo, true)
	return true, nil
}

// ChainReport is the result of a full walk of the chain.
type ChainReport struct {
	Length int `json:"length"`
	// FirstBroken is the index of the first inconsistent block, nil when the
	// whole chain is intact.
	FirstBroken *int   `json:"first_broken,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (r ChainReport) Intact() bool { return r.FirstBroken == nil }

const (
	ReasonBrokenLink   = "previous_hash does not match the preceding block"
	ReasonMissingEntry = "no ledger entry for block"
	ReasonHashMismatch = "recomputed hash does not match current_hash"
)

// VerifyChainIntegrity walks the chain from genesis. Unlike
// VerifyTransaction it also catches a rewritten previous_hash link. It
// never changes verification status.
func (s *LedgerService) VerifyChainIntegrity(ctx context.Context) (ChainReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return ChainReport{}, err
	}

	chain, err := s.loadChain(ctx)
	if err != nil {
		return ChainReport{}, err
	}

	entries := make(map[string]*models.LedgerEntry, len(ledger))
	for i := range ledger {
		entries[ledger[i].TransactionNo] = &ledger[i]
	}

	report := ChainReport{Length: len(chain)}
	broken := func(i int, reason string) (ChainReport, error) {
		report.FirstBroken = &i
		report.Reason = reason
		s.logger.Warn("Chain integrity check failed", "index", i, "transaction_no", chain[i].TransactionNo, "reason", reason)
		return report, nil
	}

	expected := models.GenesisHash
	for i, block := range chain {
		if block.PreviousHash != expected {
			return broken(i, ReasonBrokenLink)
		}

		entry, ok := entries[block.TransactionNo]
		if !ok {
			return broken(i, ReasonMissingEntry)
		}

		if identity.Digest(entry.ChainInput(block.PreviousHash)) != block.CurrentHash {
			return broken(i, ReasonHashMismatch)
		}

		expected = block.CurrentHash
	}

	return report, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountNo string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return models.Account{}, err
	}

	acc, ok := accounts.Get(accountNo)
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", ErrInvalidAccount, accountNo)
	}
	return *acc, nil
}

// Authenticate returns the account when password matches its stored digest.
// An unknown account and a wrong password are indistinguishable.
func (s *LedgerService) Authenticate(ctx context.Context, accountNo, password string) (models.Account, error) {
	acc, err := s.GetAccount(ctx, accountNo)
	if err != nil {
		if errors.Is(err, ErrInvalidAccount) {
			return models.Account{}, ErrInvalidCredentials
		}
		return models.Account{}, err
	}

	if !identity.VerifyPassword(password, acc.PasswordDigest, s.argon2) {
		s.audit.LogError("", accountNo, ErrInvalidCredentials)
		return models.Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

// AccountProjects returns the projects accountNo may transact against, in
// the order they were granted.
func (s *LedgerService) AccountProjects(ctx context.Context, accountNo string) ([]models.Project, error) {
	acc, err := s.GetAccount(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	out := []models.Project{}
	for _, no := range acc.AuthorizedProjectNos {
		if i := slices.IndexFunc(projects, func(p models.Project) bool { return p.ProjectNo == no }); i >= 0 {
			out = append(out, projects[i])
		}
	}
	return out, nil
}

func (s *LedgerService) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadProjects(ctx)
}

// LedgerByProject returns the ledger entries of projectNo in ledger order.
func (s *LedgerService) LedgerByProject(ctx context.Context, projectNo string) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return nil, err
	}

	out := []models.LedgerEntry{}
	for _, e := range ledger {
		if e.ProjectNo == projectNo {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, transactionNo string) (models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	for _, e := range ledger {
		if e.TransactionNo == transactionNo {
			return e, nil
		}
	}
	return models.LedgerEntry{}, fmt.Errorf("%w: transaction %s", ErrNotFound, transactionNo)
}

func (s *LedgerService) GetBlock(ctx context.Context, transactionNo string) (models.ChainBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, err := s.loadChain(ctx)
	if err != nil {
		return models.ChainBlock{}, err
	}

	for _, b := range chain {
		if b.TransactionNo == transactionNo {
			return b, nil
		}
	}
	return models.ChainBlock{}, fmt.Errorf("%w: block for transaction %s", ErrNotFound, transactionNo)
}
