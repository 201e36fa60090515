// Package rotation suggests which member should pay next. It is a pure
// ranking over already-loaded expense history: no side effects, no cached
// state, recomputed on every call. Trips are small-N, so the sort cost is
// irrelevant.
package rotation

import (
	"fmt"
	"sort"

	"github.com/tmahajan/tripledger/internal/models"
)

// Policy selects how the next payer is ranked.
type Policy string

const (
	// PolicyAmountLeft picks the member with the most remaining budget.
	PolicyAmountLeft Policy = "amount_left"

	// PolicyRecency picks the member who has least recently been the
	// primary payer of an expense. Members who never paid rank first.
	PolicyRecency Policy = "recency"

	// PolicyPaymentCount picks the member who has been the primary payer
	// the fewest times, breaking ties by least-recent payment.
	PolicyPaymentCount Policy = "payment_count"
)

// ParsePolicy maps the wire form of a policy to a Policy, defaulting to
// PolicyAmountLeft for the empty string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyAmountLeft, nil
	case PolicyAmountLeft, PolicyRecency, PolicyPaymentCount:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown rotation policy %q", s)
}

// SelectNextPayer ranks the members under the given policy and returns the
// ID of the member who should pay next. Ties always break by ascending
// member ID so the suggestion is deterministic.
func SelectNextPayer(members []*models.Member, expenses []*models.Expense, policy Policy) (string, error) {
	if len(members) == 0 {
		return "", fmt.Errorf("trip has no members")
	}

	lastPaid := make(map[string]int64, len(members))
	payCount := make(map[string]int, len(members))
	for _, exp := range expenses {
		payer := exp.PrimaryPayer()
		if payer == "" {
			continue
		}
		payCount[payer]++
		if exp.CreatedAt > lastPaid[payer] {
			lastPaid[payer] = exp.CreatedAt
		}
	}

	ranked := make([]*models.Member, len(members))
	copy(ranked, members)

	var less func(a, b *models.Member) bool
	switch policy {
	case PolicyAmountLeft:
		less = func(a, b *models.Member) bool {
			if a.AmtLeft != b.AmtLeft {
				return a.AmtLeft > b.AmtLeft
			}
			return a.ID < b.ID
		}
	case PolicyRecency:
		less = func(a, b *models.Member) bool {
			if lastPaid[a.ID] != lastPaid[b.ID] {
				return lastPaid[a.ID] < lastPaid[b.ID]
			}
			return a.ID < b.ID
		}
	case PolicyPaymentCount:
		less = func(a, b *models.Member) bool {
			if payCount[a.ID] != payCount[b.ID] {
				return payCount[a.ID] < payCount[b.ID]
			}
			if lastPaid[a.ID] != lastPaid[b.ID] {
				return lastPaid[a.ID] < lastPaid[b.ID]
			}
			return a.ID < b.ID
		}
	default:
		return "", fmt.Errorf("unknown rotation policy %q", policy)
	}

	sort.Slice(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	return ranked[0].ID, nil
}
