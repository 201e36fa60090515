package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tmahajan/tripledger/internal/models"
)

// CreateTrip persists a new trip to the database.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trips (id, name, currency, total_budget, total_amt_left, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, trip.Currency, trip.TotalBudget, trip.TotalAmtLeft, trip.CreatedAt, trip.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// Trip retrieves a trip by ID.
func (s *SQLiteStore) Trip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, currency, total_budget, total_amt_left, created_at, created_by
		 FROM trips WHERE id = ?`,
		tripID,
	).Scan(&trip.ID, &trip.Name, &trip.Currency, &trip.TotalBudget, &trip.TotalAmtLeft, &trip.CreatedAt, &trip.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip not found: %s", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// AddMember adds a member to a trip. A member with a budget but no AmtLeft
// starts with the full budget remaining. tripBudget is the member's budget
// in the trip currency; the member insert and the trip-total bump commit
// together.
func (s *SQLiteStore) AddMember(ctx context.Context, tripID string, member *models.Member, tripBudget float64) error {
	if member.AmtLeft == 0 && member.Budget != 0 {
		member.AmtLeft = member.Budget
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (trip_id, id, display_name, budget, amt_left, currency)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tripID, member.ID, member.DisplayName, member.Budget, member.AmtLeft, member.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE trips SET total_budget = total_budget + ?, total_amt_left = total_amt_left + ? WHERE id = ?`,
		tripBudget, tripBudget, tripID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip totals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check trip update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trip not found: %s", tripID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Members returns the trip's member map keyed by member ID, including each
// member's per-currency owed totals.
func (s *SQLiteStore) Members(ctx context.Context, tripID string) (map[string]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, budget, amt_left, currency FROM members WHERE trip_id = ?`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	members := make(map[string]*models.Member)
	for rows.Next() {
		m := &models.Member{OwesTotal: make(map[string]float64)}
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Budget, &m.AmtLeft, &m.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	owesRows, err := s.db.QueryContext(ctx,
		`SELECT member_id, currency, amount FROM member_owes WHERE trip_id = ?`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get owed totals: %w", err)
	}
	defer owesRows.Close()

	for owesRows.Next() {
		var memberID, cur string
		var amount float64
		if err := owesRows.Scan(&memberID, &cur, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan owed total: %w", err)
		}
		if m, ok := members[memberID]; ok {
			m.OwesTotal[cur] = amount
		}
	}
	if err := owesRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owed totals: %w", err)
	}

	return members, nil
}

// Debts returns one currency's debt map for a trip, keyed by the canonical
// "<debtor>#<creditor>" form. Near-zero rows are returned as stored;
// filtering is the presenter's job.
func (s *SQLiteStore) Debts(ctx context.Context, tripID, currency string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT debtor, creditor, amount FROM debts WHERE trip_id = ? AND currency = ?`,
		tripID, currency,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get debts: %w", err)
	}
	defer rows.Close()

	debts := make(map[string]float64)
	for rows.Next() {
		var debtor, creditor string
		var amount float64
		if err := rows.Scan(&debtor, &creditor, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts[models.DebtKey{Debtor: debtor, Creditor: creditor}.String()] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}
