package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tmahajan/tripledger/internal/ledger"
	"github.com/tmahajan/tripledger/internal/models"
)

// Expense retrieves a stored expense with its payers and shares. A missing
// row yields *ledger.ExpenseNotFoundError: the stored record is the source
// of truth for reversals, so the applier must be able to tell "not there"
// apart from an I/O failure.
func (s *SQLiteStore) Expense(ctx context.Context, tripID, expenseID string) (*models.Expense, error) {
	exp := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, activity_name, created_at, created_by
		 FROM expenses WHERE id = ? AND trip_id = ?`,
		expenseID, tripID,
	).Scan(&exp.ID, &exp.TripID, &exp.ActivityName, &exp.CreatedAt, &exp.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, &ledger.ExpenseNotFoundError{TripID: tripID, ExpenseID: expenseID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := s.loadExpenseParts(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// ListExpenses returns a trip's expenses, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, activity_name, created_at, created_by
		 FROM expenses WHERE trip_id = ? ORDER BY created_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		exp := &models.Expense{}
		if err := rows.Scan(&exp.ID, &exp.TripID, &exp.ActivityName, &exp.CreatedAt, &exp.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, exp := range expenses {
		if err := s.loadExpenseParts(ctx, exp); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (s *SQLiteStore) loadExpenseParts(ctx context.Context, exp *models.Expense) error {
	payerRows, err := s.db.QueryContext(ctx,
		`SELECT member_id, amount, currency FROM expense_payers WHERE expense_id = ? ORDER BY rowid`,
		exp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense payers: %w", err)
	}
	defer payerRows.Close()

	for payerRows.Next() {
		var p models.PaidBy
		if err := payerRows.Scan(&p.MemberID, &p.Amount, &p.Currency); err != nil {
			return fmt.Errorf("failed to scan expense payer: %w", err)
		}
		exp.PaidBy = append(exp.PaidBy, p)
	}
	if err := payerRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense payers: %w", err)
	}

	shareRows, err := s.db.QueryContext(ctx,
		`SELECT payee_id, amount, currency FROM expense_shares WHERE expense_id = ? ORDER BY rowid`,
		exp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var sh models.Share
		if err := shareRows.Scan(&sh.PayeeID, &sh.Amount, &sh.Currency); err != nil {
			return fmt.Errorf("failed to scan expense share: %w", err)
		}
		exp.SharedWith = append(exp.SharedWith, sh)
	}
	if err := shareRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense shares: %w", err)
	}

	return nil
}

// putExpenseTx writes (inserts or overwrites) an expense record inside an
// open transaction. Child rows are replaced wholesale.
func putExpenseTx(ctx context.Context, tx *sql.Tx, exp *models.Expense) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_payers WHERE expense_id = ?`, exp.ID); err != nil {
		return fmt.Errorf("failed to clear expense payers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, exp.ID); err != nil {
		return fmt.Errorf("failed to clear expense shares: %w", err)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, activity_name, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET activity_name = excluded.activity_name`,
		exp.ID, exp.TripID, exp.ActivityName, exp.CreatedAt, exp.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}

	for _, p := range exp.PaidBy {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_payers (expense_id, member_id, amount, currency) VALUES (?, ?, ?, ?)`,
			exp.ID, p.MemberID, p.Amount, p.Currency,
		); err != nil {
			return fmt.Errorf("failed to insert expense payer: %w", err)
		}
	}
	for _, sh := range exp.SharedWith {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, payee_id, amount, currency) VALUES (?, ?, ?, ?)`,
			exp.ID, sh.PayeeID, sh.Amount, sh.Currency,
		); err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}
	return nil
}

// deleteExpenseTx removes an expense record inside an open transaction.
// Child rows go with it via ON DELETE CASCADE.
func deleteExpenseTx(ctx context.Context, tx *sql.Tx, tripID, expenseID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND trip_id = ?`, expenseID, tripID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check expense deletion: %w", err)
	}
	if n == 0 {
		return &ledger.ExpenseNotFoundError{TripID: tripID, ExpenseID: expenseID}
	}
	return nil
}
