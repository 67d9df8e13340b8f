package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	VerificationPending = "pending"
	VerificationDone    = "done"

	// GenesisHash is the previous_hash of the first block in the chain.
	GenesisHash = "GENESIS"
)

// LedgerColumns is the persisted column order of the ledger table.
var LedgerColumns = []string{
	"transaction_no",
	"project_no",
	"from_account_no",
	"to_account_no",
	"amount",
	"timestamp",
	"verification_status",
}

// ChainColumns is the persisted column order of the blockchain table.
var ChainColumns = []string{
	"transaction_no",
	"project_no",
	"previous_hash",
	"current_hash",
}

// PendingCommitColumns is the persisted column order of the transfer journal.
var PendingCommitColumns = []string{
	"transaction_no",
	"project_no",
	"from_account_no",
	"to_account_no",
	"amount",
	"timestamp",
	"previous_hash",
	"current_hash",
	"from_balance",
	"to_balance",
}

// LedgerEntry records one successful transfer. Only VerificationStatus
// changes after the entry is written.
type LedgerEntry struct {
	TransactionNo      string          `json:"transaction_no"`
	ProjectNo          string          `json:"project_no"`
	FromAccountNo      string          `json:"from_account_no"`
	ToAccountNo        string          `json:"to_account_no"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          string          `json:"timestamp"`
	VerificationStatus string          `json:"verification_status"`

	// amountText is the amount exactly as stored; hashing uses it so rows
	// written with a different decimal rendering still verify.
	amountText string
}

// AmountText returns the amount as it is persisted and hashed.
func (e *LedgerEntry) AmountText() string {
	if e.amountText != "" {
		return e.amountText
	}
	return e.Amount.String()
}

// IsVerified reports whether the entry has been verified.
func (e *LedgerEntry) IsVerified() bool {
	return e.VerificationStatus == VerificationDone
}

// ChainInput is the ordered, pipe-joined digest input for this entry linked
// to previousHash. Changing the field order breaks every existing block.
func (e *LedgerEntry) ChainInput(previousHash string) string {
	return strings.Join([]string{
		e.TransactionNo,
		e.ProjectNo,
		e.FromAccountNo,
		e.ToAccountNo,
		e.AmountText(),
		e.Timestamp,
		previousHash,
	}, "|")
}

func (e *LedgerEntry) ToRecord() []string {
	return []string{
		e.TransactionNo,
		e.ProjectNo,
		e.FromAccountNo,
		e.ToAccountNo,
		e.AmountText(),
		e.Timestamp,
		e.VerificationStatus,
	}
}

func LedgerEntryFromRecord(rec []string) (LedgerEntry, error) {
	if len(rec) != len(LedgerColumns) {
		return LedgerEntry{}, fmt.Errorf("%w: ledger row has %d fields, want %d", ErrMalformedRecord, len(rec), len(LedgerColumns))
	}

	amount, err := decimal.NewFromString(rec[4])
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("%w: transaction %s amount %q: %v", ErrMalformedRecord, rec[0], rec[4], err)
	}

	status := rec[6]
	if status != VerificationPending && status != VerificationDone {
		return LedgerEntry{}, fmt.Errorf("%w: transaction %s status %q", ErrMalformedRecord, rec[0], status)
	}

	return LedgerEntry{
		TransactionNo:      rec[0],
		ProjectNo:          rec[1],
		FromAccountNo:      rec[2],
		ToAccountNo:        rec[3],
		Amount:             amount,
		Timestamp:          rec[5],
		VerificationStatus: status,
		amountText:         rec[4],
	}, nil
}

// ChainBlock links a ledger entry's content hash to the previous block.
// Blocks are append-only.
type ChainBlock struct {
	TransactionNo string `json:"transaction_no"`
	ProjectNo     string `json:"project_no"`
	PreviousHash  string `json:"previous_hash"`
	CurrentHash   string `json:"current_hash"`
}

func (b *ChainBlock) ToRecord() []string {
	return []string{b.TransactionNo, b.ProjectNo, b.PreviousHash, b.CurrentHash}
}

func ChainBlockFromRecord(rec []string) (ChainBlock, error) {
	if len(rec) != len(ChainColumns) {
		return ChainBlock{}, fmt.Errorf("%w: block row has %d fields, want %d", ErrMalformedRecord, len(rec), len(ChainColumns))
	}
	return ChainBlock{
		TransactionNo: rec[0],
		ProjectNo:     rec[1],
		PreviousHash:  rec[2],
		CurrentHash:   rec[3],
	}, nil
}

// PendingCommit is the write-ahead intent of a transfer whose writes have
// not all landed yet.
type PendingCommit struct {
	Entry       LedgerEntry
	Block       ChainBlock
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

func (p *PendingCommit) ToRecord() []string {
	return []string{
		p.Entry.TransactionNo,
		p.Entry.ProjectNo,
		p.Entry.FromAccountNo,
		p.Entry.ToAccountNo,
		p.Entry.AmountText(),
		p.Entry.Timestamp,
		p.Block.PreviousHash,
		p.Block.CurrentHash,
		p.FromBalance.String(),
		p.ToBalance.String(),
	}
}

func PendingCommitFromRecord(rec []string) (PendingCommit, error) {
	if len(rec) != len(PendingCommitColumns) {
		return PendingCommit{}, fmt.Errorf("%w: journal row has %d fields, want %d", ErrMalformedRecord, len(rec), len(PendingCommitColumns))
	}

	entry, err := LedgerEntryFromRecord(append(append([]string{}, rec[:6]...), VerificationPending))
	if err != nil {
		return PendingCommit{}, err
	}

	fromBalance, err := decimal.NewFromString(rec[8])
	if err != nil {
		return PendingCommit{}, fmt.Errorf("%w: journal %s from_balance %q: %v", ErrMalformedRecord, rec[0], rec[8], err)
	}

	toBalance, err := decimal.NewFromString(rec[9])
	if err != nil {
		return PendingCommit{}, fmt.Errorf("%w: journal %s to_balance %q: %v", ErrMalformedRecord, rec[0], rec[9], err)
	}

	return PendingCommit{
		Entry: entry,
		Block: ChainBlock{
			TransactionNo: rec[0],
			ProjectNo:     rec[1],
			PreviousHash:  rec[6],
			CurrentHash:   rec[7],
		},
		FromBalance: fromBalance,
		ToBalance:   toBalance,
	}, nil
}
