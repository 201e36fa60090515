package models

import (
	"fmt"
	"strings"
)

// DebtKey identifies one debt entry: an ordered (debtor, creditor) pair.
// The canonical serialization is "<debtor>#<creditor>", which is also the
// form debt maps are stored under. Keeping the pair as a value type means
// the storage representation can change without touching the algorithms.
type DebtKey struct {
	// Debtor is the member who owes.
	Debtor string

	// Creditor is the member who is owed.
	Creditor string
}

// String returns the canonical "<debtor>#<creditor>" form.
func (k DebtKey) String() string {
	return k.Debtor + "#" + k.Creditor
}

// Reversed returns the key for the opposite direction of the debt.
func (k DebtKey) Reversed() DebtKey {
	return DebtKey{Debtor: k.Creditor, Creditor: k.Debtor}
}

// InvalidDebtKeyError reports a debt map key that does not parse into a
// (debtor, creditor) pair. Presentation code logs and skips such entries
// rather than failing, since display must degrade gracefully on stale or
// corrupt data.
type InvalidDebtKeyError struct {
	Key string
}

func (e *InvalidDebtKeyError) Error() string {
	return fmt.Sprintf("invalid debt key %q: want \"<debtor>#<creditor>\"", e.Key)
}

// ParseDebtKey parses the canonical "<debtor>#<creditor>" form.
func ParseDebtKey(s string) (DebtKey, error) {
	debtor, creditor, ok := strings.Cut(s, "#")
	if !ok || debtor == "" || creditor == "" || strings.Contains(creditor, "#") {
		return DebtKey{}, &InvalidDebtKeyError{Key: s}
	}
	return DebtKey{Debtor: debtor, Creditor: creditor}, nil
}
