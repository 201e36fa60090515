// Package currency defines the conversion boundary for the ledger.
//
// The ledger never converts currencies on its own: it consumes already
// converted values through an injected ConvertFunc, which keeps the
// settlement math currency-agnostic per invocation. Rate sourcing is out of
// scope; callers provide whatever implementation suits them.
package currency

import "fmt"

// ConvertFunc converts an amount from one ISO 4217 currency to another.
// Implementations must be pure: same inputs, same output, no side effects.
type ConvertFunc func(amount float64, from, to string) (float64, error)

// Identity is a ConvertFunc for single-currency trips. It passes amounts
// through unchanged and fails if an actual conversion is requested.
func Identity(amount float64, from, to string) (float64, error) {
	if from != to {
		return 0, fmt.Errorf("no conversion rate configured: %s -> %s", from, to)
	}
	return amount, nil
}

// FixedRates converts through a static rate table. Each rate is the value
// of one unit of that currency expressed in a common base; the base itself
// carries rate 1.
type FixedRates map[string]float64

// Convert implements ConvertFunc.
func (r FixedRates) Convert(amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := r[from]
	if !ok || fromRate == 0 {
		return 0, fmt.Errorf("unknown currency %q", from)
	}
	toRate, ok := r[to]
	if !ok || toRate == 0 {
		return 0, fmt.Errorf("unknown currency %q", to)
	}
	return amount * fromRate / toRate, nil
}
