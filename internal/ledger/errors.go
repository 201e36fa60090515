package ledger

import "fmt"

// PayerNotFoundError reports an expense naming a payer that does not
// resolve to a known trip member. It fails the whole impact computation:
// no partial delta is ever produced.
type PayerNotFoundError struct {
	PayerID string
}

func (e *PayerNotFoundError) Error() string {
	return fmt.Sprintf("payer %q is not a member of the trip", e.PayerID)
}

// ExpenseNotFoundError reports a revise or remove referencing an expense
// that is not persisted. The operation aborts before any write.
type ExpenseNotFoundError struct {
	TripID    string
	ExpenseID string
}

func (e *ExpenseNotFoundError) Error() string {
	return fmt.Sprintf("expense %q not found in trip %q", e.ExpenseID, e.TripID)
}

// PaymentNotFoundError reports a remove referencing a payment that is not
// persisted.
type PaymentNotFoundError struct {
	TripID    string
	PaymentID string
}

func (e *PaymentNotFoundError) Error() string {
	return fmt.Sprintf("payment %q not found in trip %q", e.PaymentID, e.TripID)
}
