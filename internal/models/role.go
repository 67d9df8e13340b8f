package models

import "strings"

// Role classifies an account by its free-text rank.
type Role string

const (
	RoleGovtOfficer Role = "Govt_officer"
	RoleAuditor     Role = "Auditor"
	RoleBeneficiary Role = "Beneficiary"
)

// govtKeywords is checked in order; the first contained keyword wins.
var govtKeywords = []string{
	"collector",
	"secretary",
	"joint secretary",
	"commissioner",
	"officer",
}

// ResolveRole maps a rank or title to a role. Every input maps to exactly
// one role; anything unrecognised is a beneficiary.
func ResolveRole(rank string) Role {
	r := strings.ToLower(strings.TrimSpace(rank))

	if r == "auditor" {
		return RoleAuditor
	}

	for _, kw := range govtKeywords {
		if strings.Contains(r, kw) {
			return RoleGovtOfficer
		}
	}

	return RoleBeneficiary
}
