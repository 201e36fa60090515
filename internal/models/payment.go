package models

// Payment represents a direct transfer between two members to clear debt.
// Its ledger effect is a plain additive delta against the debt entry
// "<from>#<to>", the same contract an expense impact follows.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// TripID is the trip this payment belongs to.
	TripID string

	// FromID is the member who paid (debtor settling up).
	FromID string

	// ToID is the member who received payment (creditor being paid).
	ToID string

	// Amount is the payment amount.
	Amount float64

	// Currency is the currency the payment was made in (ISO 4217 code).
	Currency string

	// Note is an optional description for the payment.
	Note string

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64

	// CreatedBy is the user ID that recorded the payment.
	CreatedBy string
}
