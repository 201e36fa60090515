package settle

import (
	"log/slog"
	"sort"

	"github.com/tmahajan/tripledger/internal/models"
)

// netBalance is one member's position after netting all debt entries:
// negative means the member still owes, positive means the member is owed.
type netBalance struct {
	memberID string
	balance  float64
}

// SimplifyDebts reduces the debt map to a minimal set of settling transfers
// and renders them in the same section shape as GroupDebts.
//
// The algorithm is the classic greedy debtor/creditor matching: compute net
// balances, sort debtors most-negative-first and creditors
// most-positive-first, then walk both lists with two pointers, each step
// transferring min(-debtor, creditor) and advancing whichever side reached
// zero. The ordering is a heuristic that clears the largest imbalances
// first; it is deterministic and emits at most
// (#debtors + #creditors - 1) transfers, but does not guarantee the
// theoretical minimum transfer count in every case (the exact problem is
// NP-hard). Conservation holds by construction: the transfers move exactly
// the positive net balances.
func SimplifyDebts(debts map[string]float64, members map[string]*models.Member) []Section {
	net := make(map[string]float64)
	for raw, amount := range debts {
		key, err := models.ParseDebtKey(raw)
		if err != nil {
			slog.Warn("skipping malformed debt entry", "key", raw, "error", err)
			continue
		}
		if amount <= models.Epsilon {
			continue
		}
		net[key.Debtor] -= amount
		net[key.Creditor] += amount
	}

	var debtors, creditors []netBalance
	for id, balance := range net {
		switch {
		case balance < -models.Epsilon:
			debtors = append(debtors, netBalance{memberID: id, balance: balance})
		case balance > models.Epsilon:
			creditors = append(creditors, netBalance{memberID: id, balance: balance})
		}
	}
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].balance != debtors[j].balance {
			return debtors[i].balance < debtors[j].balance
		}
		return debtors[i].memberID < debtors[j].memberID
	})
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].balance != creditors[j].balance {
			return creditors[i].balance > creditors[j].balance
		}
		return creditors[i].memberID < creditors[j].memberID
	})

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := -debtors[i].balance
		if creditors[j].balance < amount {
			amount = creditors[j].balance
		}
		// Floating-point residue can leave a balance hovering just above
		// zero without either pointer advancing; stop instead of looping.
		if amount <= models.Epsilon {
			break
		}

		transfers = append(transfers, Transfer{
			FromID:   debtors[i].memberID,
			ToID:     creditors[j].memberID,
			FromName: displayName(members, debtors[i].memberID),
			ToName:   displayName(members, creditors[j].memberID),
			Amount:   amount,
		})

		debtors[i].balance += amount
		creditors[j].balance -= amount
		if -debtors[i].balance <= models.Epsilon {
			i++
		}
		if creditors[j].balance <= models.Epsilon {
			j++
		}
	}

	return sectionize(transfers)
}
