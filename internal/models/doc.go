// Package models defines the core domain models for the trip ledger.
//
// # Current Models
//
//   - Trip: a group of members sharing expenses, with a base currency
//   - Member: one participant in a trip, with a budget and running balances
//   - Expense: a recorded cost, who paid it and how it is shared
//   - Payment: a direct settle-up transfer between two members
//   - DebtKey: an ordered (debtor, creditor) pair identifying one debt entry
//   - User: a registered account that can own and join trips
//
// # Design Principles
//
// 1. **ID strings, not pointers**: relationships reference IDs to avoid
// circular references between models.
// 2. **Additive balances**: member balances and debt entries are only ever
// mutated through ledger deltas, never assigned directly.
// 3. **Single currency per debt map**: each debt entry lives in exactly one
// currency; cross-currency views are namespaced, never mixed.
package models
