package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/models"
)

// LedgerTx bundles the mutations of one ledger operation. The gateway must
// commit everything in it as a single atomic unit: the deltas and the
// record mutation succeed or fail together, so ledger state always stays
// derivable by replaying the stored records.
type LedgerTx struct {
	// Deltas are the additive increments to apply.
	Deltas DeltaSet

	// PutExpense, if set, is the expense record to write (insert or
	// overwrite by ID).
	PutExpense *models.Expense

	// DeleteExpenseID, if set, is the expense record to delete.
	DeleteExpenseID string

	// PutPayment, if set, is the payment record to write.
	PutPayment *models.Payment

	// DeletePaymentID, if set, is the payment record to delete.
	DeletePaymentID string
}

// Gateway is the persistence boundary the applier writes through. Reads of
// stored expenses and payments are the source of truth for reversal:
// revise and remove never trust client-held state.
//
// ApplyLedgerTx must be atomic. Backends either run the whole transaction
// as one read-modify-write unit or translate each delta into a native
// atomic increment inside a single batch.
type Gateway interface {
	// Trip returns the trip header.
	Trip(ctx context.Context, tripID string) (*models.Trip, error)

	// Members returns the trip's member map keyed by member ID.
	Members(ctx context.Context, tripID string) (map[string]*models.Member, error)

	// Expense returns a stored expense, or *ExpenseNotFoundError.
	Expense(ctx context.Context, tripID, expenseID string) (*models.Expense, error)

	// Payment returns a stored payment, or *PaymentNotFoundError.
	Payment(ctx context.Context, tripID, paymentID string) (*models.Payment, error)

	// ApplyLedgerTx commits one ledger transaction atomically.
	ApplyLedgerTx(ctx context.Context, tripID string, tx LedgerTx) error
}

// Applier sequences expense and payment operations as atomic
// reverse-then-apply steps against the ledger.
type Applier struct {
	gw      Gateway
	convert currency.ConvertFunc
}

// NewApplier creates an applier writing through the given gateway. The
// converter is used to express paid totals in the trip currency and member
// charges in each member's currency; pass currency.Identity for
// single-currency trips.
func NewApplier(gw Gateway, convert currency.ConvertFunc) *Applier {
	return &Applier{gw: gw, convert: convert}
}

// RecordExpense computes the expense's forward impact, charges the trip
// level total, and commits the deltas together with the expense record.
func (a *Applier) RecordExpense(ctx context.Context, tripID string, exp *models.Expense) error {
	members, err := a.gw.Members(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	deltas, err := ComputeImpact(exp, members, a.convert, false)
	if err != nil {
		return err
	}

	trip, err := a.gw.Trip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	total, err := a.tripTotal(trip, exp)
	if err != nil {
		return err
	}
	deltas.Add(TotalAmtLeftPath, -total)
	deltas.Prune()

	if err := a.gw.ApplyLedgerTx(ctx, tripID, LedgerTx{Deltas: deltas, PutExpense: exp}); err != nil {
		return fmt.Errorf("commit expense %s: %w", exp.ID, err)
	}
	slog.Debug("expense recorded", "trip_id", tripID, "expense_id", exp.ID, "deltas", len(deltas))
	return nil
}

// ReviseExpense reverses the stored expense's impact, applies the new
// expense's impact, and commits the merged deltas together with the
// overwritten record. The stored record, not the caller's copy, is what
// gets reversed. Keys whose merged delta is exactly zero are dropped.
func (a *Applier) ReviseExpense(ctx context.Context, tripID, expenseID string, next *models.Expense) error {
	prior, err := a.gw.Expense(ctx, tripID, expenseID)
	if err != nil {
		return err
	}

	members, err := a.gw.Members(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	deltas, err := ComputeImpact(prior, members, a.convert, true)
	if err != nil {
		return fmt.Errorf("reverse expense %s: %w", expenseID, err)
	}
	forward, err := ComputeImpact(next, members, a.convert, false)
	if err != nil {
		return err
	}
	deltas.Merge(forward)

	trip, err := a.gw.Trip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	priorTotal, err := a.tripTotal(trip, prior)
	if err != nil {
		return err
	}
	nextTotal, err := a.tripTotal(trip, next)
	if err != nil {
		return err
	}
	deltas.Add(TotalAmtLeftPath, priorTotal-nextTotal)
	deltas.Prune()

	next.ID = expenseID
	next.TripID = tripID
	if err := a.gw.ApplyLedgerTx(ctx, tripID, LedgerTx{Deltas: deltas, PutExpense: next}); err != nil {
		return fmt.Errorf("commit revision of expense %s: %w", expenseID, err)
	}
	slog.Debug("expense revised", "trip_id", tripID, "expense_id", expenseID, "deltas", len(deltas))
	return nil
}

// RemoveExpense reverses the stored expense's impact and commits the
// reversal together with deleting the record, restoring the ledger to its
// pre-expense state.
func (a *Applier) RemoveExpense(ctx context.Context, tripID, expenseID string) error {
	prior, err := a.gw.Expense(ctx, tripID, expenseID)
	if err != nil {
		return err
	}

	members, err := a.gw.Members(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	deltas, err := ComputeImpact(prior, members, a.convert, true)
	if err != nil {
		return fmt.Errorf("reverse expense %s: %w", expenseID, err)
	}

	trip, err := a.gw.Trip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	total, err := a.tripTotal(trip, prior)
	if err != nil {
		return err
	}
	deltas.Add(TotalAmtLeftPath, total)
	deltas.Prune()

	if err := a.gw.ApplyLedgerTx(ctx, tripID, LedgerTx{Deltas: deltas, DeleteExpenseID: expenseID}); err != nil {
		return fmt.Errorf("commit removal of expense %s: %w", expenseID, err)
	}
	slog.Debug("expense removed", "trip_id", tripID, "expense_id", expenseID)
	return nil
}

// RecordPayment commits a settle-up payment's impact together with its
// record.
func (a *Applier) RecordPayment(ctx context.Context, tripID string, p *models.Payment) error {
	deltas := PaymentImpact(p, false)
	if err := a.gw.ApplyLedgerTx(ctx, tripID, LedgerTx{Deltas: deltas, PutPayment: p}); err != nil {
		return fmt.Errorf("commit payment %s: %w", p.ID, err)
	}
	slog.Debug("payment recorded", "trip_id", tripID, "payment_id", p.ID, "amount", p.Amount)
	return nil
}

// RemovePayment reverses a stored payment's impact and deletes its record.
func (a *Applier) RemovePayment(ctx context.Context, tripID, paymentID string) error {
	prior, err := a.gw.Payment(ctx, tripID, paymentID)
	if err != nil {
		return err
	}

	deltas := PaymentImpact(prior, true)
	if err := a.gw.ApplyLedgerTx(ctx, tripID, LedgerTx{Deltas: deltas, DeletePaymentID: paymentID}); err != nil {
		return fmt.Errorf("commit removal of payment %s: %w", paymentID, err)
	}
	slog.Debug("payment removed", "trip_id", tripID, "payment_id", paymentID)
	return nil
}

// tripTotal returns the expense's total paid, converted into the trip
// currency.
func (a *Applier) tripTotal(trip *models.Trip, exp *models.Expense) (float64, error) {
	var total float64
	var err error
	for cur, amount := range exp.TotalPaid() {
		converted := amount
		if cur != trip.Currency {
			if a.convert == nil {
				return 0, fmt.Errorf("expense paid in %s but trip currency is %s and no converter is configured", cur, trip.Currency)
			}
			converted, err = a.convert(amount, cur, trip.Currency)
			if err != nil {
				return 0, fmt.Errorf("convert paid total: %w", err)
			}
		}
		total += converted
	}
	return total, nil
}
