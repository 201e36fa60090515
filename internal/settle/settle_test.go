package settle

import (
	"math"
	"testing"

	"github.com/tmahajan/tripledger/internal/models"
)

func testMembers() map[string]*models.Member {
	return map[string]*models.Member{
		"alice": {ID: "alice", DisplayName: "Alice"},
		"bob":   {ID: "bob", DisplayName: "Bob"},
		"carol": {ID: "carol", DisplayName: "Carol"},
	}
}

func TestGroupDebts(t *testing.T) {
	debts := map[string]float64{
		"bob#alice":   10,
		"carol#alice": 10,
		"carol#bob":   5,
		"alice#bob":   0.0004, // below epsilon: noise, not money
		"garbage":     7,      // malformed key: skipped, not fatal
		"dave#alice":  3,      // unknown member: fallback label
	}

	sections := GroupDebts(debts, testMembers())

	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3: %+v", len(sections), sections)
	}

	// Sections sort by debtor display name: Bob, Carol, Unknown (dave).
	if sections[0].Title != "Bob" || sections[1].Title != "Carol" || sections[2].Title != "Unknown (dave)" {
		t.Errorf("section titles = %q, %q, %q", sections[0].Title, sections[1].Title, sections[2].Title)
	}

	carol := sections[1]
	if len(carol.Data) != 2 {
		t.Fatalf("carol has %d entries, want 2", len(carol.Data))
	}
	// Entries sort by creditor display name: Alice before Bob.
	if carol.Data[0].ToName != "Alice" || carol.Data[1].ToName != "Bob" {
		t.Errorf("carol's creditors = %q, %q, want Alice, Bob", carol.Data[0].ToName, carol.Data[1].ToName)
	}

	for _, section := range sections {
		if len(section.Data) == 0 {
			t.Errorf("section %q is empty", section.Title)
		}
		for _, entry := range section.Data {
			if entry.Amount <= models.Epsilon {
				t.Errorf("entry %s -> %s has amount %v, at or below epsilon", entry.FromID, entry.ToID, entry.Amount)
			}
		}
	}
}

func TestGroupDebtsEmpty(t *testing.T) {
	if sections := GroupDebts(nil, testMembers()); len(sections) != 0 {
		t.Errorf("got %d sections from nil map, want 0", len(sections))
	}
	noise := map[string]float64{"bob#alice": 0.0001}
	if sections := GroupDebts(noise, testMembers()); len(sections) != 0 {
		t.Errorf("got %d sections from noise-only map, want 0", len(sections))
	}
}

func totalTransferred(sections []Section) float64 {
	var sum float64
	for _, s := range sections {
		for _, e := range s.Data {
			sum += e.Amount
		}
	}
	return sum
}

func countTransfers(sections []Section) int {
	var n int
	for _, s := range sections {
		n += len(s.Data)
	}
	return n
}

// Two expenses recorded raw: alice paid 30 split three ways, bob paid 15
// split three ways. Netting must route everything to alice with no
// transfer between bob and carol.
func TestSimplifyDebtsWorkedExample(t *testing.T) {
	debts := map[string]float64{
		"bob#alice":   10,
		"carol#alice": 10,
		"alice#bob":   5,
		"carol#bob":   5,
	}
	// Net positions: alice +15, bob 0, carol -15.
	sections := SimplifyDebts(debts, testMembers())

	if got := totalTransferred(sections); math.Abs(got-15) > models.Epsilon {
		t.Errorf("total transferred = %v, want 15", got)
	}
	for _, section := range sections {
		for _, entry := range section.Data {
			if entry.ToID != "alice" {
				t.Errorf("transfer %s -> %s: all settled transfers should go to alice", entry.FromID, entry.ToID)
			}
		}
	}
	// bob nets to zero, so he neither pays nor receives.
	for _, section := range sections {
		for _, entry := range section.Data {
			if entry.FromID == "bob" || entry.ToID == "bob" {
				t.Errorf("bob should not appear in any transfer, got %s -> %s", entry.FromID, entry.ToID)
			}
		}
	}
}

func TestSimplifyDebtsConservationAndBound(t *testing.T) {
	tests := []struct {
		name  string
		debts map[string]float64
	}{
		{
			name: "chain of debts",
			debts: map[string]float64{
				"bob#alice":   20,
				"carol#bob":   20,
				"alice#carol": 5,
			},
		},
		{
			name: "mutual debts collapse",
			debts: map[string]float64{
				"bob#alice": 12,
				"alice#bob": 7,
			},
		},
		{
			name: "uneven many-way",
			debts: map[string]float64{
				"bob#alice":   33.34,
				"carol#alice": 11.5,
				"alice#carol": 2.25,
				"bob#carol":   8,
				"dave#bob":    40,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := make(map[string]float64)
			for raw, amount := range tt.debts {
				key, err := models.ParseDebtKey(raw)
				if err != nil {
					t.Fatalf("bad test key %q", raw)
				}
				net[key.Debtor] -= amount
				net[key.Creditor] += amount
			}
			var positive float64
			var debtors, creditors int
			for _, balance := range net {
				switch {
				case balance > models.Epsilon:
					positive += balance
					creditors++
				case balance < -models.Epsilon:
					debtors++
				}
			}

			sections := SimplifyDebts(tt.debts, testMembers())

			if got := totalTransferred(sections); math.Abs(got-positive) > models.Epsilon {
				t.Errorf("total transferred = %v, want %v (sum of positive net balances)", got, positive)
			}
			if got, bound := countTransfers(sections), debtors+creditors-1; got > bound {
				t.Errorf("emitted %d transfers, bound is %d", got, bound)
			}
		})
	}
}

func TestSimplifyDebtsAlreadySettled(t *testing.T) {
	debts := map[string]float64{
		"bob#alice": 10,
		"alice#bob": 10,
	}
	if sections := SimplifyDebts(debts, testMembers()); len(sections) != 0 {
		t.Errorf("fully offset debts should produce no transfers, got %+v", sections)
	}
}

func TestSimplifyDebtsSkipsMalformedKeys(t *testing.T) {
	debts := map[string]float64{
		"bob#alice":  10,
		"not-a-pair": 99,
		"#alice":     99,
		"bob#":       99,
	}
	sections := SimplifyDebts(debts, testMembers())
	if got := totalTransferred(sections); math.Abs(got-10) > models.Epsilon {
		t.Errorf("total transferred = %v, want 10 with malformed keys ignored", got)
	}
}
