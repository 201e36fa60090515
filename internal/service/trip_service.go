package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/ledger"
	"github.com/tmahajan/tripledger/internal/middleware"
	"github.com/tmahajan/tripledger/internal/models"
	"github.com/tmahajan/tripledger/internal/rotation"
	"github.com/tmahajan/tripledger/internal/settle"
	"github.com/tmahajan/tripledger/internal/storage"
)

// TripService handles trips, members, expenses, payments, and the
// settle-up and next-payer views.
type TripService struct {
	store   storage.Store
	applier *ledger.Applier
	convert currency.ConvertFunc
}

// NewTripService creates a TripService writing through the given store.
func NewTripService(store storage.Store, convert currency.ConvertFunc) *TripService {
	return &TripService{
		store:   store,
		applier: ledger.NewApplier(store, convert),
		convert: convert,
	}
}

// RegisterRoutes mounts the trip endpoints. All of them require auth.
func (s *TripService) RegisterRoutes(r chi.Router) {
	r.Post("/trips", s.handleCreateTrip)
	r.Get("/trips/{tripID}", s.handleGetTrip)
	r.Post("/trips/{tripID}/members", s.handleAddMember)
	r.Post("/trips/{tripID}/expenses", s.handleRecordExpense)
	r.Get("/trips/{tripID}/expenses", s.handleListExpenses)
	r.Put("/trips/{tripID}/expenses/{expenseID}", s.handleReviseExpense)
	r.Delete("/trips/{tripID}/expenses/{expenseID}", s.handleRemoveExpense)
	r.Post("/trips/{tripID}/payments", s.handleRecordPayment)
	r.Delete("/trips/{tripID}/payments/{paymentID}", s.handleRemovePayment)
	r.Get("/trips/{tripID}/debts", s.handleDebts)
	r.Get("/trips/{tripID}/next-payer", s.handleNextPayer)
}

type createTripRequest struct {
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Budget   float64 `json:"budget"`
}

func (s *TripService) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())

	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Name == "" || req.Currency == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name and currency are required"))
		return
	}

	trip := &models.Trip{
		Name:      req.Name,
		Currency:  req.Currency,
		CreatedBy: actorID,
	}
	if err := s.store.CreateTrip(r.Context(), trip); err != nil {
		slog.Error("CreateTrip failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The creator joins their own trip.
	creator, err := s.store.GetUserByID(r.Context(), actorID)
	if err == nil && creator != nil {
		member := &models.Member{
			ID:          creator.ID,
			DisplayName: creator.DisplayName,
			Budget:      req.Budget,
			Currency:    req.Currency,
		}
		if err := s.store.AddMember(r.Context(), trip.ID, member, req.Budget); err != nil {
			slog.Error("failed to add creator as member", "trip_id", trip.ID, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	slog.Info("trip created", "trip_id", trip.ID, "created_by", actorID)
	writeJSON(w, http.StatusCreated, trip)
}

type tripResponse struct {
	Trip    *models.Trip              `json:"trip"`
	Members map[string]*models.Member `json:"members"`
}

func (s *TripService) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	trip, err := s.store.Trip(r.Context(), tripID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	members, err := s.store.Members(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to load members", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, tripResponse{Trip: trip, Members: members})
}

type addMemberRequest struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Budget      float64 `json:"budget"`
	Currency    string  `json:"currency"`
}

func (s *TripService) handleAddMember(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("display_name is required"))
		return
	}

	trip, err := s.store.Trip(r.Context(), tripID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	member := &models.Member{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Budget:      req.Budget,
		Currency:    req.Currency,
	}
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.Currency == "" {
		member.Currency = trip.Currency
	}

	// The trip-level totals are kept in the trip currency.
	tripBudget := req.Budget
	if member.Currency != trip.Currency {
		tripBudget, err = s.convert(req.Budget, member.Currency, trip.Currency)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("convert budget: %w", err))
			return
		}
	}

	if err := s.store.AddMember(r.Context(), tripID, member, tripBudget); err != nil {
		slog.Error("AddMember failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("member added", "trip_id", tripID, "member_id", member.ID)
	writeJSON(w, http.StatusCreated, member)
}

type expenseRequest struct {
	ActivityName string          `json:"activity_name"`
	PaidBy       []models.PaidBy `json:"paid_by"`
	SharedWith   []models.Share  `json:"shared_with"`
}

func (s *TripService) expenseFromRequest(r *http.Request, tripID string) (*models.Expense, map[string]*models.Member, int, error) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, nil, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
	}

	members, err := s.store.Members(r.Context(), tripID)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, fmt.Errorf("load members: %w", err)
	}

	exp := &models.Expense{
		TripID:       tripID,
		ActivityName: req.ActivityName,
		PaidBy:       req.PaidBy,
		SharedWith:   req.SharedWith,
		CreatedBy:    middleware.GetActorID(r.Context()),
	}
	if err := validateExpense(exp, members); err != nil {
		return nil, nil, http.StatusBadRequest, err
	}
	return exp, members, 0, nil
}

func (s *TripService) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	exp, _, status, err := s.expenseFromRequest(r, tripID)
	if err != nil {
		writeError(w, status, err)
		return
	}

	if err := s.applier.RecordExpense(r.Context(), tripID, exp); err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("expense recorded", "trip_id", tripID, "expense_id", exp.ID, "activity", exp.ActivityName)
	writeJSON(w, http.StatusCreated, exp)
}

func (s *TripService) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	expenses, err := s.store.ListExpenses(r.Context(), tripID)
	if err != nil {
		slog.Error("ListExpenses failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *TripService) handleReviseExpense(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	expenseID := chi.URLParam(r, "expenseID")

	exp, _, status, err := s.expenseFromRequest(r, tripID)
	if err != nil {
		writeError(w, status, err)
		return
	}

	if err := s.applier.ReviseExpense(r.Context(), tripID, expenseID, exp); err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("expense revised", "trip_id", tripID, "expense_id", expenseID)
	writeJSON(w, http.StatusOK, exp)
}

func (s *TripService) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	expenseID := chi.URLParam(r, "expenseID")

	if err := s.applier.RemoveExpense(r.Context(), tripID, expenseID); err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("expense removed", "trip_id", tripID, "expense_id", expenseID)
	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	FromID   string  `json:"from_id"`
	ToID     string  `json:"to_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Note     string  `json:"note"`
}

func (s *TripService) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	members, err := s.store.Members(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to load members", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	payment := &models.Payment{
		TripID:    tripID,
		FromID:    req.FromID,
		ToID:      req.ToID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Note:      req.Note,
		CreatedBy: middleware.GetActorID(r.Context()),
	}
	if err := validatePayment(payment, members); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.applier.RecordPayment(r.Context(), tripID, payment); err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("payment recorded", "trip_id", tripID, "payment_id", payment.ID)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *TripService) handleRemovePayment(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	paymentID := chi.URLParam(r, "paymentID")

	if err := s.applier.RemovePayment(r.Context(), tripID, paymentID); err != nil {
		writeLedgerError(w, err)
		return
	}

	slog.Info("payment removed", "trip_id", tripID, "payment_id", paymentID)
	w.WriteHeader(http.StatusNoContent)
}

// handleDebts renders the settle-up view: raw per-debtor sections by
// default, the simplified transfer plan with ?simplify=true. The currency
// defaults to the trip currency.
func (s *TripService) handleDebts(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	trip, err := s.store.Trip(r.Context(), tripID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	cur := r.URL.Query().Get("currency")
	if cur == "" {
		cur = trip.Currency
	}

	debts, err := s.store.Debts(r.Context(), tripID, cur)
	if err != nil {
		slog.Error("failed to load debts", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	members, err := s.store.Members(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to load members", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	simplify, _ := strconv.ParseBool(r.URL.Query().Get("simplify"))
	var sections []settle.Section
	if simplify {
		sections = settle.SimplifyDebts(debts, members)
	} else {
		sections = settle.GroupDebts(debts, members)
	}

	writeJSON(w, http.StatusOK, map[string]any{"currency": cur, "sections": sections})
}

// handleNextPayer suggests who should pay next under the requested
// rotation policy.
func (s *TripService) handleNextPayer(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	policy, err := rotation.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	memberMap, err := s.store.Members(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to load members", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	expenses, err := s.store.ListExpenses(r.Context(), tripID)
	if err != nil {
		slog.Error("failed to load expenses", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	members := make([]*models.Member, 0, len(memberMap))
	for _, m := range memberMap {
		members = append(members, m)
	}

	payerID, err := rotation.SelectNextPayer(members, expenses, policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"member_id": payerID, "policy": string(policy)})
}
