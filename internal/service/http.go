// Package service implements the HTTP surface of the trip ledger: auth,
// trip and member management, expense and payment recording, settle-up
// views, and next-payer suggestions.
//
// Handlers are a thin boundary. They resolve the acting user from the
// request context once, validate input, and call into the ledger with
// everything passed explicitly.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tmahajan/tripledger/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeLedgerError maps ledger errors onto HTTP statuses: missing records
// are 404, bad references and invalid input are 400, everything else is a
// 500.
func writeLedgerError(w http.ResponseWriter, err error) {
	var expNotFound *ledger.ExpenseNotFoundError
	var payNotFound *ledger.PaymentNotFoundError
	var payerNotFound *ledger.PayerNotFoundError
	switch {
	case errors.As(err, &expNotFound), errors.As(err, &payNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &payerNotFound):
		writeError(w, http.StatusBadRequest, err)
	default:
		slog.Error("ledger operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
