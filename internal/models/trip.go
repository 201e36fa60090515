package models

// Epsilon is the threshold below which a floating-point balance or debt
// amount is treated as exactly zero. Balances are accumulated additively,
// so a settled debt can land at 1e-15 instead of 0; anything within Epsilon
// of zero is noise, not money.
const Epsilon = 0.001

// Trip represents a group of members sharing expenses.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Name is the display name of the trip (e.g., "Lisbon 2026").
	Name string

	// Currency is the trip's base currency (ISO 4217 code). The trip-level
	// running total is kept in this currency.
	Currency string

	// TotalBudget is the combined budget of all members, in the trip currency.
	TotalBudget float64

	// TotalAmtLeft is the trip-wide remaining budget, in the trip currency.
	// It decreases by the (converted) total paid every time an expense is
	// recorded, and is restored when the expense is reversed.
	TotalAmtLeft float64

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64

	// CreatedBy is the user ID that created the trip.
	CreatedBy string
}

// Member represents one participant in a trip.
type Member struct {
	// ID is the member's stable identifier within the trip.
	ID string

	// DisplayName is the name shown in settle-up views.
	DisplayName string

	// Budget is the member's trip budget, in the member's own currency.
	Budget float64

	// AmtLeft is the member's remaining budget, in the member's own currency.
	// Invariant: AmtLeft = Budget - sum of shares charged to this member,
	// with each share expressed in the member's currency at time of charge.
	AmtLeft float64

	// Currency is the member's own currency (ISO 4217 code).
	Currency string

	// OwesTotal maps currency code to the signed total this member owes,
	// aggregated across all counterparties in that currency.
	OwesTotal map[string]float64
}
