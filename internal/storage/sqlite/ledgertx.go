package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmahajan/tripledger/internal/ledger"
	"github.com/tmahajan/tripledger/internal/models"
)

// ApplyLedgerTx commits one ledger transaction atomically: every delta and
// every record mutation runs inside a single SQL transaction, so a partial
// application can never be observed. Each delta path is translated into an
// additive UPDATE or UPSERT; the increments themselves are evaluated by
// the database, so concurrent transactions compose instead of clobbering
// each other.
func (s *SQLiteStore) ApplyLedgerTx(ctx context.Context, tripID string, ltx ledger.LedgerTx) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Deterministic application order keeps failures reproducible.
	paths := make([]string, 0, len(ltx.Deltas))
	for path := range ltx.Deltas {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := applyDelta(ctx, tx, tripID, path, ltx.Deltas[path]); err != nil {
			return err
		}
	}

	if exp := ltx.PutExpense; exp != nil {
		if exp.ID == "" {
			exp.ID = uuid.New().String()
		}
		if exp.TripID == "" {
			exp.TripID = tripID
		}
		if exp.CreatedAt == 0 {
			exp.CreatedAt = time.Now().Unix()
		}
		if err := putExpenseTx(ctx, tx, exp); err != nil {
			return err
		}
	}
	if ltx.DeleteExpenseID != "" {
		if err := deleteExpenseTx(ctx, tx, tripID, ltx.DeleteExpenseID); err != nil {
			return err
		}
	}
	if p := ltx.PutPayment; p != nil {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.TripID == "" {
			p.TripID = tripID
		}
		if p.CreatedAt == 0 {
			p.CreatedAt = time.Now().Unix()
		}
		if err := putPaymentTx(ctx, tx, p); err != nil {
			return err
		}
	}
	if ltx.DeletePaymentID != "" {
		if err := deletePaymentTx(ctx, tx, tripID, ltx.DeletePaymentID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// applyDelta translates one delta path into its additive SQL statement.
func applyDelta(ctx context.Context, tx *sql.Tx, tripID, path string, amount float64) error {
	if path == ledger.TotalAmtLeftPath {
		res, err := tx.ExecContext(ctx,
			`UPDATE trips SET total_amt_left = total_amt_left + ? WHERE id = ?`,
			amount, tripID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply trip delta: %w", err)
		}
		return requireRow(res, "trip", tripID)
	}

	parts := strings.Split(path, ".")
	switch {
	case len(parts) == 3 && parts[0] == "members" && parts[2] == "amtLeft":
		res, err := tx.ExecContext(ctx,
			`UPDATE members SET amt_left = amt_left + ? WHERE trip_id = ? AND id = ?`,
			amount, tripID, parts[1],
		)
		if err != nil {
			return fmt.Errorf("failed to apply member delta: %w", err)
		}
		return requireRow(res, "member", parts[1])

	case len(parts) == 4 && parts[0] == "members" && parts[2] == "owes":
		_, err := tx.ExecContext(ctx,
			`INSERT INTO member_owes (trip_id, member_id, currency, amount) VALUES (?, ?, ?, ?)
			 ON CONFLICT(trip_id, member_id, currency) DO UPDATE SET amount = amount + excluded.amount`,
			tripID, parts[1], parts[3], amount,
		)
		if err != nil {
			return fmt.Errorf("failed to apply owed-total delta: %w", err)
		}
		return nil

	case len(parts) == 3 && parts[0] == "debts":
		key, err := models.ParseDebtKey(parts[2])
		if err != nil {
			return fmt.Errorf("bad delta path %q: %w", path, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO debts (trip_id, currency, debtor, creditor, amount) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(trip_id, currency, debtor, creditor) DO UPDATE SET amount = amount + excluded.amount`,
			tripID, parts[1], key.Debtor, key.Creditor, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to apply debt delta: %w", err)
		}
		return nil
	}

	return fmt.Errorf("unrecognized delta path %q", path)
}

// requireRow fails when an UPDATE touched nothing, which means the delta
// referenced an entity that does not exist. Letting that pass silently
// would desync the ledger from its expense records.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s update: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found for delta application", kind, id)
	}
	return nil
}
