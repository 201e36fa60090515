package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tmahajan/tripledger/internal/ledger"
	"github.com/tmahajan/tripledger/internal/models"
)

// Payment retrieves a stored payment. A missing row yields
// *ledger.PaymentNotFoundError.
func (s *SQLiteStore) Payment(ctx context.Context, tripID, paymentID string) (*models.Payment, error) {
	p := &models.Payment{}
	var note sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, from_id, to_id, amount, currency, note, created_at, created_by
		 FROM payments WHERE id = ? AND trip_id = ?`,
		paymentID, tripID,
	).Scan(&p.ID, &p.TripID, &p.FromID, &p.ToID, &p.Amount, &p.Currency, &note, &p.CreatedAt, &p.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, &ledger.PaymentNotFoundError{TripID: tripID, PaymentID: paymentID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if note.Valid {
		p.Note = note.String
	}
	return p, nil
}

// ListPayments retrieves all payments for a trip, newest first.
func (s *SQLiteStore) ListPayments(ctx context.Context, tripID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, from_id, to_id, amount, currency, note, created_at, created_by
		 FROM payments WHERE trip_id = ? ORDER BY created_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.TripID, &p.FromID, &p.ToID, &p.Amount, &p.Currency, &note, &p.CreatedAt, &p.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if note.Valid {
			p.Note = note.String
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// putPaymentTx writes a payment record inside an open transaction.
func putPaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) error {
	var note interface{}
	if p.Note != "" {
		note = p.Note
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, trip_id, from_id, to_id, amount, currency, note, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TripID, p.FromID, p.ToID, p.Amount, p.Currency, note, p.CreatedAt, p.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// deletePaymentTx removes a payment record inside an open transaction.
func deletePaymentTx(ctx context.Context, tx *sql.Tx, tripID, paymentID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ? AND trip_id = ?`, paymentID, tripID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment deletion: %w", err)
	}
	if n == 0 {
		return &ledger.PaymentNotFoundError{TripID: tripID, PaymentID: paymentID}
	}
	return nil
}
