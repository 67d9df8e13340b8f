package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountColumns is the persisted column order of the accounts table.
var AccountColumns = []string{
	"account_no",
	"name",
	"password_digest",
	"balance",
	"age",
	"location",
	"rank_title",
	"authorized_project_nos",
}

// Account is a row of the accounts table. Balance is denormalised from the
// ledger and must never go negative.
type Account struct {
	AccountNo            string          `json:"account_no"`
	Name                 string          `json:"name"`
	PasswordDigest       string          `json:"-"`
	Balance              decimal.Decimal `json:"balance"`
	Age                  int             `json:"age"`
	Location             string          `json:"location"`
	RankTitle            string          `json:"rank_title"`
	AuthorizedProjectNos []string        `json:"authorized_project_nos"`
}

// Role resolves the account's role from its rank title.
func (a *Account) Role() Role {
	return ResolveRole(a.RankTitle)
}

// IsAuthorizedFor reports whether projectNo is in the authorized set.
func (a *Account) IsAuthorizedFor(projectNo string) bool {
	return slices.Contains(a.AuthorizedProjectNos, projectNo)
}

// Authorize adds projectNo to the authorized set. The set never shrinks.
func (a *Account) Authorize(projectNo string) {
	if a.IsAuthorizedFor(projectNo) {
		return
	}
	a.AuthorizedProjectNos = append(a.AuthorizedProjectNos, projectNo)
}

// ToRecord encodes the account in AccountColumns order.
func (a *Account) ToRecord() []string {
	return []string{
		a.AccountNo,
		a.Name,
		a.PasswordDigest,
		a.Balance.String(),
		strconv.Itoa(a.Age),
		a.Location,
		a.RankTitle,
		strings.Join(a.AuthorizedProjectNos, ","),
	}
}

// AccountFromRecord decodes a row written by ToRecord.
func AccountFromRecord(rec []string) (Account, error) {
	if len(rec) != len(AccountColumns) {
		return Account{}, fmt.Errorf("%w: account row has %d fields, want %d", ErrMalformedRecord, len(rec), len(AccountColumns))
	}

	balance, err := decimal.NewFromString(rec[3])
	if err != nil {
		return Account{}, fmt.Errorf("%w: account %s balance %q: %v", ErrMalformedRecord, rec[0], rec[3], err)
	}

	age := 0
	if strings.TrimSpace(rec[4]) != "" {
		age, err = strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil {
			return Account{}, fmt.Errorf("%w: account %s age %q: %v", ErrMalformedRecord, rec[0], rec[4], err)
		}
	}

	return Account{
		AccountNo:            rec[0],
		Name:                 rec[1],
		PasswordDigest:       rec[2],
		Balance:              balance,
		Age:                  age,
		Location:             rec[5],
		RankTitle:            rec[6],
		AuthorizedProjectNos: ParseProjectList(rec[7]),
	}, nil
}

// ParseProjectList splits a comma-joined project list. Blank input is empty.
func ParseProjectList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
