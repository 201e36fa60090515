package models

// PaidBy records one payer's contribution to an expense.
type PaidBy struct {
	// MemberID is the member who paid.
	MemberID string

	// Amount is what this member paid.
	Amount float64

	// Currency is the currency the amount was paid in (ISO 4217 code).
	Currency string
}

// Share records one participant's portion of an expense.
type Share struct {
	// PayeeID is the member being charged this portion.
	PayeeID string

	// Amount is the portion charged to the payee.
	Amount float64

	// Currency is the currency of the portion (ISO 4217 code).
	Currency string
}

// Expense represents one recorded cost: who paid it and how it is divided.
//
// For a group expense, the sum of share amounts in a given currency must
// equal the sum paid in that currency. That invariant is validated before
// the expense reaches the ledger; the ledger trusts validated input.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip this expense belongs to.
	TripID string

	// ActivityName is the human-readable description (e.g., "Dinner").
	ActivityName string

	// PaidBy lists who paid and how much. Usually one entry; multiple
	// entries mean the cost was fronted by more than one member.
	PaidBy []PaidBy

	// SharedWith lists how the paid amount is divided among participants.
	SharedWith []Share

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// CreatedBy is the user ID that recorded the expense.
	CreatedBy string
}

// TotalPaid returns the sum paid per currency.
func (e *Expense) TotalPaid() map[string]float64 {
	totals := make(map[string]float64, 1)
	for _, p := range e.PaidBy {
		totals[p.Currency] += p.Amount
	}
	return totals
}

// TotalShared returns the sum of shares per currency.
func (e *Expense) TotalShared() map[string]float64 {
	totals := make(map[string]float64, 1)
	for _, s := range e.SharedWith {
		totals[s.Currency] += s.Amount
	}
	return totals
}

// PrimaryPayer returns the member ID of the first payer, or "" if the
// expense has no payers. Rotation policies rank members by primary payer.
func (e *Expense) PrimaryPayer() string {
	if len(e.PaidBy) == 0 {
		return ""
	}
	return e.PaidBy[0].MemberID
}
