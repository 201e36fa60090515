package ledger

import (
	"fmt"

	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/models"
)

// ComputeImpact maps an expense to the additive delta set it causes on the
// ledger. With reverse=false the expense is being recorded; with
// reverse=true the same deltas are produced with inverted sign, undoing a
// previously recorded expense exactly.
//
// For every share of the expense:
//
//   - the payee's amtLeft drops by the share amount, converted into the
//     payee's own currency;
//   - for every payer other than the payee, the payee's owed total and the
//     debt entry "<payee>#<payer>" rise by the payee's portion of what that
//     payer fronted;
//   - a payer participating in their own split gets only the amtLeft delta:
//     no one owes themselves, so no self-debt entry is recorded.
//
// When an expense has several payers in a currency, each share in that
// currency is attributed to them proportionally to what they paid.
//
// Errors abort the whole computation before any delta is returned: a payer
// that does not resolve to a member yields *PayerNotFoundError, and a
// failed conversion or a share in a currency nobody paid in yields a
// wrapped error. All-or-nothing, never a partial delta.
func ComputeImpact(exp *models.Expense, members map[string]*models.Member, convert currency.ConvertFunc, reverse bool) (DeltaSet, error) {
	// Resolve payers up front so no delta exists before validation passes.
	paidByCurrency := make(map[string]float64, 1)
	for _, p := range exp.PaidBy {
		if _, ok := members[p.MemberID]; !ok {
			return nil, &PayerNotFoundError{PayerID: p.MemberID}
		}
		paidByCurrency[p.Currency] += p.Amount
	}

	sign := -1.0
	if reverse {
		sign = 1.0
	}

	deltas := make(DeltaSet)
	for _, share := range exp.SharedWith {
		if share.Amount == 0 {
			continue
		}

		// The payee's cash position moves in the payee's own currency.
		charged := share.Amount
		if payee, ok := members[share.PayeeID]; ok && payee.Currency != share.Currency {
			if convert == nil {
				return nil, fmt.Errorf("share for %s is in %s but member currency is %s and no converter is configured",
					share.PayeeID, share.Currency, payee.Currency)
			}
			converted, err := convert(share.Amount, share.Currency, payee.Currency)
			if err != nil {
				return nil, fmt.Errorf("convert share for %s: %w", share.PayeeID, err)
			}
			charged = converted
		}
		deltas.Add(MemberAmtLeftPath(share.PayeeID), sign*charged)

		total := paidByCurrency[share.Currency]
		if total == 0 {
			return nil, fmt.Errorf("expense %s: share in %s but nothing was paid in %s", exp.ID, share.Currency, share.Currency)
		}
		for _, p := range exp.PaidBy {
			if p.Currency != share.Currency {
				continue
			}
			if p.MemberID == share.PayeeID {
				// Self-share: amtLeft only, no self-debt.
				continue
			}
			portion := share.Amount * (p.Amount / total)
			deltas.Add(MemberOwesPath(share.PayeeID, share.Currency), -sign*portion)
			key := models.DebtKey{Debtor: share.PayeeID, Creditor: p.MemberID}
			deltas.Add(DebtPath(share.Currency, key), -sign*portion)
		}
	}

	return deltas, nil
}

// PaymentImpact maps a direct settle-up payment to its delta set. A payment
// from A to B reduces the debt entry "<A>#<B>" and A's owed total by the
// amount; reverse undoes it. Payments share the additive contract of
// expense impacts, so they merge and reverse the same way.
func PaymentImpact(p *models.Payment, reverse bool) DeltaSet {
	sign := -1.0
	if reverse {
		sign = 1.0
	}

	deltas := make(DeltaSet, 2)
	key := models.DebtKey{Debtor: p.FromID, Creditor: p.ToID}
	deltas.Add(DebtPath(p.Currency, key), sign*p.Amount)
	deltas.Add(MemberOwesPath(p.FromID, p.Currency), sign*p.Amount)
	return deltas
}
