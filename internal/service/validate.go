package service

import (
	"fmt"
	"math"

	"github.com/tmahajan/tripledger/internal/models"
)

// validateExpense checks an expense before it reaches the ledger. The
// ledger trusts validated input, so everything that can reject an expense
// rejects it here: empty payer or share lists, non-positive amounts,
// references to non-members, and share sums that do not match paid sums
// per currency.
func validateExpense(exp *models.Expense, members map[string]*models.Member) error {
	if len(exp.PaidBy) == 0 {
		return fmt.Errorf("expense must have at least one payer")
	}
	if len(exp.SharedWith) == 0 {
		return fmt.Errorf("expense must be shared with at least one member")
	}

	for _, p := range exp.PaidBy {
		if p.Amount <= 0 {
			return fmt.Errorf("paid amount must be positive, got %v for %s", p.Amount, p.MemberID)
		}
		if p.Currency == "" {
			return fmt.Errorf("paid amount for %s has no currency", p.MemberID)
		}
		if _, ok := members[p.MemberID]; !ok {
			return fmt.Errorf("payer %q is not a member of the trip", p.MemberID)
		}
	}
	for _, sh := range exp.SharedWith {
		if sh.Amount <= 0 {
			return fmt.Errorf("share amount must be positive, got %v for %s", sh.Amount, sh.PayeeID)
		}
		if sh.Currency == "" {
			return fmt.Errorf("share for %s has no currency", sh.PayeeID)
		}
		if _, ok := members[sh.PayeeID]; !ok {
			return fmt.Errorf("payee %q is not a member of the trip", sh.PayeeID)
		}
	}

	// Shares must divide exactly what was paid, per currency.
	paid := exp.TotalPaid()
	shared := exp.TotalShared()
	for cur, total := range paid {
		if math.Abs(shared[cur]-total) > models.Epsilon {
			return fmt.Errorf("shares in %s sum to %v but %v was paid", cur, shared[cur], total)
		}
	}
	for cur := range shared {
		if _, ok := paid[cur]; !ok {
			return fmt.Errorf("shares in %s but nothing was paid in %s", cur, cur)
		}
	}

	return nil
}

// validatePayment checks a settle-up payment before it reaches the ledger.
func validatePayment(p *models.Payment, members map[string]*models.Member) error {
	if p.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive, got %v", p.Amount)
	}
	if p.Currency == "" {
		return fmt.Errorf("payment has no currency")
	}
	if p.FromID == p.ToID {
		return fmt.Errorf("payment cannot be from a member to themselves")
	}
	if _, ok := members[p.FromID]; !ok {
		return fmt.Errorf("payer %q is not a member of the trip", p.FromID)
	}
	if _, ok := members[p.ToID]; !ok {
		return fmt.Errorf("recipient %q is not a member of the trip", p.ToID)
	}
	return nil
}
