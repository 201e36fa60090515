package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tmahajan/tripledger/internal/auth"
	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/middleware"
	"github.com/tmahajan/tripledger/internal/models"
	"github.com/tmahajan/tripledger/internal/settle"
	"github.com/tmahajan/tripledger/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripledger-svc-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-key-for-tests", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	r := chi.NewRouter()
	NewAuthService(authenticator, jwtManager).RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtManager))
		NewTripService(store, currency.Identity).RegisterRoutes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, srv *httptest.Server, email, name string) (token, userID string) {
	t.Helper()

	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	status := doRequest(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        email,
		"display_name": name,
		"password":     "correct-horse-battery",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.UserID
}

type debtsResponse struct {
	Currency string           `json:"currency"`
	Sections []settle.Section `json:"sections"`
}

func (d debtsResponse) total() float64 {
	var sum float64
	for _, s := range d.Sections {
		for _, e := range s.Data {
			sum += e.Amount
		}
	}
	return sum
}

func TestTripServiceEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	token, aliceID := registerUser(t, srv, "alice@example.com", "Alice")

	// Create a trip; the creator joins automatically.
	var trip models.Trip
	status := doRequest(t, srv, http.MethodPost, "/trips", token, map[string]any{
		"name":     "Lisbon",
		"currency": "USD",
		"budget":   200,
	}, &trip)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, trip.ID)

	base := "/trips/" + trip.ID

	var bob, carol models.Member
	status = doRequest(t, srv, http.MethodPost, base+"/members", token, map[string]any{
		"display_name": "Bob", "budget": 150,
	}, &bob)
	require.Equal(t, http.StatusCreated, status)
	status = doRequest(t, srv, http.MethodPost, base+"/members", token, map[string]any{
		"display_name": "Carol", "budget": 100,
	}, &carol)
	require.Equal(t, http.StatusCreated, status)

	var tripView struct {
		Trip    *models.Trip              `json:"trip"`
		Members map[string]*models.Member `json:"members"`
	}
	status = doRequest(t, srv, http.MethodGet, base, token, nil, &tripView)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, tripView.Members, 3)
	require.InDelta(t, 450, tripView.Trip.TotalAmtLeft, models.Epsilon)

	// Alice pays 30 for dinner, split evenly.
	var dinner models.Expense
	status = doRequest(t, srv, http.MethodPost, base+"/expenses", token, map[string]any{
		"activity_name": "Dinner",
		"paid_by":       []map[string]any{{"member_id": aliceID, "amount": 30, "currency": "USD"}},
		"shared_with": []map[string]any{
			{"payee_id": aliceID, "amount": 10, "currency": "USD"},
			{"payee_id": bob.ID, "amount": 10, "currency": "USD"},
			{"payee_id": carol.ID, "amount": 10, "currency": "USD"},
		},
	}, &dinner)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, dinner.ID)

	// Bob pays 15 for a taxi, split evenly.
	var taxi models.Expense
	status = doRequest(t, srv, http.MethodPost, base+"/expenses", token, map[string]any{
		"activity_name": "Taxi",
		"paid_by":       []map[string]any{{"member_id": bob.ID, "amount": 15, "currency": "USD"}},
		"shared_with": []map[string]any{
			{"payee_id": aliceID, "amount": 5, "currency": "USD"},
			{"payee_id": bob.ID, "amount": 5, "currency": "USD"},
			{"payee_id": carol.ID, "amount": 5, "currency": "USD"},
		},
	}, &taxi)
	require.Equal(t, http.StatusCreated, status)

	t.Run("raw debts", func(t *testing.T) {
		var debts debtsResponse
		status := doRequest(t, srv, http.MethodGet, base+"/debts", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "USD", debts.Currency)
		// bob->alice 10, carol->alice 10, alice->bob 5, carol->bob 5.
		require.InDelta(t, 30, debts.total(), models.Epsilon)
	})

	t.Run("simplified debts", func(t *testing.T) {
		var debts debtsResponse
		status := doRequest(t, srv, http.MethodGet, base+"/debts?simplify=true", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		// Net positions: alice +15, bob 0, carol -15.
		require.InDelta(t, 15, debts.total(), models.Epsilon)
		for _, section := range debts.Sections {
			for _, entry := range section.Data {
				require.Equal(t, aliceID, entry.ToID)
				require.NotEqual(t, bob.ID, entry.FromID)
			}
		}
	})

	t.Run("next payer", func(t *testing.T) {
		var resp map[string]string
		status := doRequest(t, srv, http.MethodGet, base+"/next-payer?policy=payment_count", token, nil, &resp)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, carol.ID, resp["member_id"])

		status = doRequest(t, srv, http.MethodGet, base+"/next-payer?policy=bogus", token, nil, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("payment reduces debt", func(t *testing.T) {
		var payment models.Payment
		status := doRequest(t, srv, http.MethodPost, base+"/payments", token, map[string]any{
			"from_id": carol.ID, "to_id": aliceID, "amount": 6, "currency": "USD",
		}, &payment)
		require.Equal(t, http.StatusCreated, status)

		var debts debtsResponse
		status = doRequest(t, srv, http.MethodGet, base+"/debts", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		require.InDelta(t, 24, debts.total(), models.Epsilon)

		status = doRequest(t, srv, http.MethodDelete, base+"/payments/"+payment.ID, token, nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		status = doRequest(t, srv, http.MethodGet, base+"/debts", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		require.InDelta(t, 30, debts.total(), models.Epsilon)
	})

	t.Run("revise expense reverses prior impact", func(t *testing.T) {
		// Taxi was actually 21, still split evenly.
		status := doRequest(t, srv, http.MethodPut, base+"/expenses/"+taxi.ID, token, map[string]any{
			"activity_name": "Taxi",
			"paid_by":       []map[string]any{{"member_id": bob.ID, "amount": 21, "currency": "USD"}},
			"shared_with": []map[string]any{
				{"payee_id": aliceID, "amount": 7, "currency": "USD"},
				{"payee_id": bob.ID, "amount": 7, "currency": "USD"},
				{"payee_id": carol.ID, "amount": 7, "currency": "USD"},
			},
		}, nil)
		require.Equal(t, http.StatusOK, status)

		var debts debtsResponse
		status = doRequest(t, srv, http.MethodGet, base+"/debts", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		// bob->alice 10, carol->alice 10, alice->bob 7, carol->bob 7.
		require.InDelta(t, 34, debts.total(), models.Epsilon)
	})

	t.Run("remove expense restores balances", func(t *testing.T) {
		status := doRequest(t, srv, http.MethodDelete, base+"/expenses/"+taxi.ID, token, nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		var debts debtsResponse
		status = doRequest(t, srv, http.MethodGet, base+"/debts", token, nil, &debts)
		require.Equal(t, http.StatusOK, status)
		// Only the dinner remains.
		require.InDelta(t, 20, debts.total(), models.Epsilon)

		var listing struct {
			Expenses []*models.Expense `json:"expenses"`
		}
		status = doRequest(t, srv, http.MethodGet, base+"/expenses", token, nil, &listing)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, listing.Expenses, 1)
		require.Equal(t, dinner.ID, listing.Expenses[0].ID)
	})

	t.Run("missing expense yields 404", func(t *testing.T) {
		status := doRequest(t, srv, http.MethodDelete, base+"/expenses/nope", token, nil, nil)
		require.Equal(t, http.StatusNotFound, status)
	})
}

func TestTripServiceValidation(t *testing.T) {
	srv := newTestServer(t)
	token, aliceID := registerUser(t, srv, "val@example.com", "Val")

	var trip models.Trip
	status := doRequest(t, srv, http.MethodPost, "/trips", token, map[string]any{
		"name": "Test", "currency": "USD", "budget": 100,
	}, &trip)
	require.Equal(t, http.StatusCreated, status)
	base := "/trips/" + trip.ID

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "no payers",
			body: map[string]any{
				"activity_name": "x",
				"shared_with":   []map[string]any{{"payee_id": aliceID, "amount": 5, "currency": "USD"}},
			},
		},
		{
			name: "unknown payee",
			body: map[string]any{
				"activity_name": "x",
				"paid_by":       []map[string]any{{"member_id": aliceID, "amount": 5, "currency": "USD"}},
				"shared_with":   []map[string]any{{"payee_id": "ghost", "amount": 5, "currency": "USD"}},
			},
		},
		{
			name: "shares do not sum to paid",
			body: map[string]any{
				"activity_name": "x",
				"paid_by":       []map[string]any{{"member_id": aliceID, "amount": 10, "currency": "USD"}},
				"shared_with":   []map[string]any{{"payee_id": aliceID, "amount": 5, "currency": "USD"}},
			},
		},
		{
			name: "share in unpaid currency",
			body: map[string]any{
				"activity_name": "x",
				"paid_by":       []map[string]any{{"member_id": aliceID, "amount": 10, "currency": "USD"}},
				"shared_with":   []map[string]any{{"payee_id": aliceID, "amount": 10, "currency": "EUR"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := doRequest(t, srv, http.MethodPost, base+"/expenses", token, tt.body, nil)
			require.Equal(t, http.StatusBadRequest, status, "expected validation failure")
		})
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	status := doRequest(t, srv, http.MethodGet, "/trips/any", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status = doRequest(t, srv, http.MethodGet, "/trips/any", "not-a-token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "flow@example.com", "Flo")

	t.Run("login with correct password", func(t *testing.T) {
		var resp struct {
			Token string `json:"token"`
		}
		status := doRequest(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "flow@example.com", "password": "correct-horse-battery",
		}, &resp)
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, resp.Token)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		status := doRequest(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "flow@example.com", "password": "wrong-password",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		status := doRequest(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "flow@example.com", "display_name": "Flo", "password": "correct-horse-battery",
		}, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("weak password", func(t *testing.T) {
		status := doRequest(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "weak@example.com", "display_name": "W", "password": "short",
		}, nil)
		require.Equal(t, http.StatusBadRequest, status)
	})
}
