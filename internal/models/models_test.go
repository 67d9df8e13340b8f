package models

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		rank string
		want Role
	}{
		{"District Collector", RoleGovtOfficer},
		{"Joint Secretary", RoleGovtOfficer},
		{"  Deputy COMMISSIONER ", RoleGovtOfficer},
		{"Block Development Officer", RoleGovtOfficer},
		{"auditor", RoleAuditor},
		{" Auditor ", RoleAuditor},
		{"Senior Auditor", RoleBeneficiary},
		{"", RoleBeneficiary},
		{"Acme Constructions Pvt Ltd", RoleBeneficiary},
	}

	for _, tt := range tests {
		t.Run(tt.rank, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.rank))
		})
	}
}

func TestParseProjectList(t *testing.T) {
	assert.Empty(t, ParseProjectList(""))
	assert.Empty(t, ParseProjectList("   "))
	assert.Equal(t, []string{"P00001"}, ParseProjectList("P00001"))
	assert.Equal(t, []string{"P00001", "P00003"}, ParseProjectList("P00001, P00003,"))
}

func TestAccountRecord(t *testing.T) {
	t.Run("decode encoded row", func(t *testing.T) {
		rec := []string{"A00001", "Asha", "digest", "99999500.5", "44", "Pune", "District Collector", "P00001,P00002"}

		acc, err := AccountFromRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, "A00001", acc.AccountNo)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("99999500.5")))
		assert.Equal(t, 44, acc.Age)
		assert.Equal(t, RoleGovtOfficer, acc.Role())
		assert.True(t, acc.IsAuthorizedFor("P00002"))
		assert.Equal(t, rec, acc.ToRecord())
	})

	t.Run("authorize appends once", func(t *testing.T) {
		acc := Account{AuthorizedProjectNos: []string{}}
		acc.Authorize("P00001")
		acc.Authorize("P00002")
		acc.Authorize("P00001")
		assert.Equal(t, "P00001,P00002", acc.ToRecord()[7])
	})

	t.Run("bad balance", func(t *testing.T) {
		_, err := AccountFromRecord([]string{"A00001", "n", "d", "lots", "1", "l", "r", ""})
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})

	t.Run("wrong width", func(t *testing.T) {
		_, err := AccountFromRecord([]string{"A00001"})
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})
}

func TestLedgerEntry(t *testing.T) {
	rec := []string{"T000001", "P00001", "A00001", "A00002", "500.0", "2024-01-01T00:00:00Z", VerificationPending}

	entry, err := LedgerEntryFromRecord(rec)
	require.NoError(t, err)

	t.Run("stored amount text is kept", func(t *testing.T) {
		assert.Equal(t, "500.0", entry.AmountText())
		assert.Equal(t, rec, entry.ToRecord())
	})

	t.Run("chain input order", func(t *testing.T) {
		assert.Equal(t, "T000001|P00001|A00001|A00002|500.0|2024-01-01T00:00:00Z|GENESIS", entry.ChainInput(GenesisHash))
	})

	t.Run("unknown status", func(t *testing.T) {
		bad := append([]string{}, rec...)
		bad[6] = "maybe"
		_, err := LedgerEntryFromRecord(bad)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})
}

func TestPendingCommitRecord(t *testing.T) {
	rec := []string{"T000002", "P00001", "A00001", "A00002", "25", "2024-01-01T00:00:00Z", "prev", "curr", "75", "125"}

	p, err := PendingCommitFromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "T000002", p.Block.TransactionNo)
	assert.Equal(t, VerificationPending, p.Entry.VerificationStatus)
	assert.True(t, p.ToBalance.Equal(decimal.NewFromInt(125)))
	assert.Equal(t, rec, p.ToRecord())
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{AccountNo: "A00001", Role: RoleAuditor})
	s, ok := SessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, RoleAuditor, s.Role)
}
