package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/models"
)

func tripMembers() map[string]*models.Member {
	return map[string]*models.Member{
		"alice": {ID: "alice", DisplayName: "Alice", Budget: 100, AmtLeft: 100, Currency: "USD"},
		"bob":   {ID: "bob", DisplayName: "Bob", Budget: 100, AmtLeft: 100, Currency: "USD"},
		"carol": {ID: "carol", DisplayName: "Carol", Budget: 100, AmtLeft: 100, Currency: "USD"},
	}
}

func TestComputeImpact(t *testing.T) {
	tests := []struct {
		name       string
		expense    *models.Expense
		members    map[string]*models.Member
		convert    currency.ConvertFunc
		reverse    bool
		wantErr    bool
		wantDeltas map[string]float64
	}{
		{
			name: "even three-way split, payer included",
			expense: &models.Expense{
				ID:     "e1",
				PaidBy: []models.PaidBy{{MemberID: "alice", Amount: 30, Currency: "USD"}},
				SharedWith: []models.Share{
					{PayeeID: "alice", Amount: 10, Currency: "USD"},
					{PayeeID: "bob", Amount: 10, Currency: "USD"},
					{PayeeID: "carol", Amount: 10, Currency: "USD"},
				},
			},
			members: tripMembers(),
			wantDeltas: map[string]float64{
				// Self-share: alice's cash drops but no alice#alice debt.
				"members.alice.amtLeft": -10,
				"members.bob.amtLeft":   -10,
				"members.bob.owes.USD":  10,
				"debts.USD.bob#alice":   10,
				"members.carol.amtLeft": -10,
				"members.carol.owes.USD": 10,
				"debts.USD.carol#alice":  10,
			},
		},
		{
			name: "reverse negates every delta",
			expense: &models.Expense{
				ID:     "e1",
				PaidBy: []models.PaidBy{{MemberID: "alice", Amount: 20, Currency: "USD"}},
				SharedWith: []models.Share{
					{PayeeID: "bob", Amount: 20, Currency: "USD"},
				},
			},
			members: tripMembers(),
			reverse: true,
			wantDeltas: map[string]float64{
				"members.bob.amtLeft": 20,
				"members.bob.owes.USD": -20,
				"debts.USD.bob#alice":  -20,
			},
		},
		{
			name: "two payers split debt proportionally",
			expense: &models.Expense{
				ID: "e2",
				PaidBy: []models.PaidBy{
					{MemberID: "alice", Amount: 20, Currency: "USD"},
					{MemberID: "bob", Amount: 10, Currency: "USD"},
				},
				SharedWith: []models.Share{
					{PayeeID: "carol", Amount: 30, Currency: "USD"},
				},
			},
			members: tripMembers(),
			wantDeltas: map[string]float64{
				"members.carol.amtLeft":  -30,
				"members.carol.owes.USD": 30,
				"debts.USD.carol#alice":  20,
				"debts.USD.carol#bob":    10,
			},
		},
		{
			name: "share converted into payee currency",
			expense: &models.Expense{
				ID:     "e3",
				PaidBy: []models.PaidBy{{MemberID: "alice", Amount: 10, Currency: "USD"}},
				SharedWith: []models.Share{
					{PayeeID: "bob", Amount: 10, Currency: "USD"},
				},
			},
			members: map[string]*models.Member{
				"alice": {ID: "alice", Currency: "USD"},
				"bob":   {ID: "bob", Currency: "EUR"},
			},
			convert: currency.FixedRates{"USD": 1, "EUR": 2}.Convert,
			wantDeltas: map[string]float64{
				// amtLeft moves in bob's currency; owes and debt stay in
				// the share currency.
				"members.bob.amtLeft": -5,
				"members.bob.owes.USD": 10,
				"debts.USD.bob#alice":  10,
			},
		},
		{
			name: "unknown payer aborts with no deltas",
			expense: &models.Expense{
				ID:     "e4",
				PaidBy: []models.PaidBy{{MemberID: "mallory", Amount: 10, Currency: "USD"}},
				SharedWith: []models.Share{
					{PayeeID: "bob", Amount: 10, Currency: "USD"},
				},
			},
			members: tripMembers(),
			wantErr: true,
		},
		{
			name: "share in a currency nobody paid in fails",
			expense: &models.Expense{
				ID:     "e5",
				PaidBy: []models.PaidBy{{MemberID: "alice", Amount: 10, Currency: "USD"}},
				SharedWith: []models.Share{
					{PayeeID: "bob", Amount: 10, Currency: "EUR"},
				},
			},
			members: map[string]*models.Member{
				"alice": {ID: "alice", Currency: "USD"},
				"bob":   {ID: "bob", Currency: "EUR"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convert := tt.convert
			if convert == nil {
				convert = currency.Identity
			}
			deltas, err := ComputeImpact(tt.expense, tt.members, convert, tt.reverse)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ComputeImpact() error = nil, want error")
				}
				if deltas != nil {
					t.Errorf("ComputeImpact() returned deltas alongside error: %v", deltas)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeImpact() error = %v", err)
			}

			if len(deltas) != len(tt.wantDeltas) {
				t.Errorf("ComputeImpact() produced %d deltas, want %d: %v", len(deltas), len(tt.wantDeltas), deltas)
			}
			for path, want := range tt.wantDeltas {
				if got := deltas[path]; math.Abs(got-want) > models.Epsilon {
					t.Errorf("delta[%q] = %v, want %v", path, got, want)
				}
			}
		})
	}
}

func TestComputeImpactPayerNotFoundType(t *testing.T) {
	exp := &models.Expense{
		PaidBy:     []models.PaidBy{{MemberID: "ghost", Amount: 5, Currency: "USD"}},
		SharedWith: []models.Share{{PayeeID: "alice", Amount: 5, Currency: "USD"}},
	}
	_, err := ComputeImpact(exp, tripMembers(), currency.Identity, false)

	var notFound *PayerNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("ComputeImpact() error = %v, want *PayerNotFoundError", err)
	}
	if notFound.PayerID != "ghost" {
		t.Errorf("PayerID = %q, want %q", notFound.PayerID, "ghost")
	}
}

func TestDeltaSetMergePrune(t *testing.T) {
	a := DeltaSet{"x": 10, "y": -5}
	b := DeltaSet{"x": -10, "y": 2, "z": 1}
	a.Merge(b)
	a.Prune()

	if _, ok := a["x"]; ok {
		t.Errorf("key x should be pruned after cancelling out, got %v", a["x"])
	}
	if a["y"] != -3 {
		t.Errorf("a[y] = %v, want -3", a["y"])
	}
	if a["z"] != 1 {
		t.Errorf("a[z] = %v, want 1", a["z"])
	}
}

func TestPaymentImpact(t *testing.T) {
	p := &models.Payment{FromID: "bob", ToID: "alice", Amount: 7.5, Currency: "USD"}

	forward := PaymentImpact(p, false)
	if got := forward["debts.USD.bob#alice"]; got != -7.5 {
		t.Errorf("forward debt delta = %v, want -7.5", got)
	}
	if got := forward["members.bob.owes.USD"]; got != -7.5 {
		t.Errorf("forward owes delta = %v, want -7.5", got)
	}

	reverse := PaymentImpact(p, true)
	forward.Merge(reverse)
	forward.Prune()
	if len(forward) != 0 {
		t.Errorf("forward + reverse should cancel exactly, got %v", forward)
	}
}
