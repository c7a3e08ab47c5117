package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Account represents a registered bank account that imported movements
// can be assigned to.
type Account struct {
	ID       uuid.UUID
	Name     string
	IBAN     string
	IsActive bool
}

// NormalizeIBAN strips spaces and uppercases an IBAN so that values from
// files and values from storage compare equal.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// NormalizedIBAN returns the account IBAN in comparable form.
func (a *Account) NormalizedIBAN() string {
	return NormalizeIBAN(a.IBAN)
}

// LastFour returns the last four characters of the account IBAN, used as
// a fallback when no exact IBAN match is found. Returns "" when the IBAN
// is too short to have a meaningful suffix.
func (a *Account) LastFour() string {
	iban := a.NormalizedIBAN()
	if len(iban) < 4 {
		return ""
	}
	return iban[len(iban)-4:]
}
