// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/tmahajan/tripledger/internal/ledger"
	"github.com/tmahajan/tripledger/internal/models"
)

// Store defines the persistence operations the trip service needs. It
// embeds ledger.Gateway, so any Store can back the ledger applier. The
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	ledger.Gateway

	// CreateTrip persists a new trip. ID and CreatedAt are populated if
	// unset.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// AddMember adds a member to a trip. tripBudget is the member's budget
	// expressed in the trip currency; it is added to the trip-level totals
	// atomically with the insert.
	AddMember(ctx context.Context, tripID string, member *models.Member, tripBudget float64) error

	// ListExpenses returns a trip's expenses, newest first.
	ListExpenses(ctx context.Context, tripID string) ([]*models.Expense, error)

	// ListPayments returns a trip's payments, newest first.
	ListPayments(ctx context.Context, tripID string) ([]*models.Payment, error)

	// Debts returns one currency's debt map for a trip, keyed by the
	// canonical "<debtor>#<creditor>" form.
	Debts(ctx context.Context, tripID, currency string) (map[string]float64, error)

	// CreateUser inserts a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) if no
	// user exists with that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) if not found.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
