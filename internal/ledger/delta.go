// Package ledger turns expenses and payments into balance deltas and applies
// them atomically through a persistence gateway.
//
// The central type is the DeltaSet: a map from dotted field path to a signed
// numeric increment. Deltas are always additive, never absolute assignments,
// so impacts from independent operations compose safely and every impact can
// be undone by reapplying it with inverted sign.
package ledger

import (
	"github.com/tmahajan/tripledger/internal/models"
)

// DeltaSet maps a field path to a numeric increment. The gateway translates
// each path into whatever atomic-increment primitive its backend offers.
//
// Recognized paths:
//
//	totalAmtLeft                          trip-level remaining budget
//	members.<id>.amtLeft                  member's remaining budget
//	members.<id>.owes.<currency>          member's aggregated owed total
//	debts.<currency>.<debtor>#<creditor>  one pairwise debt entry
type DeltaSet map[string]float64

// Add accumulates an increment at the given path.
func (d DeltaSet) Add(path string, amount float64) {
	d[path] += amount
}

// Merge sums another delta set into this one, key by key.
func (d DeltaSet) Merge(other DeltaSet) {
	for path, amount := range other {
		d[path] += amount
	}
}

// Prune removes keys whose value is exactly zero, so merged forward and
// reversal deltas that cancel out do not turn into no-op writes.
func (d DeltaSet) Prune() {
	for path, amount := range d {
		if amount == 0 {
			delete(d, path)
		}
	}
}

// TotalAmtLeftPath is the delta path for the trip-level remaining budget.
const TotalAmtLeftPath = "totalAmtLeft"

// MemberAmtLeftPath returns the delta path for a member's remaining budget.
func MemberAmtLeftPath(memberID string) string {
	return "members." + memberID + ".amtLeft"
}

// MemberOwesPath returns the delta path for a member's aggregated owed
// total in one currency.
func MemberOwesPath(memberID, currency string) string {
	return "members." + memberID + ".owes." + currency
}

// DebtPath returns the delta path for one pairwise debt entry in one
// currency.
func DebtPath(currency string, key models.DebtKey) string {
	return "debts." + currency + "." + key.String()
}
