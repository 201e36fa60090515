// Package settle renders a trip's pairwise debt map into settle-up views:
// either the raw debts grouped per debtor, or a simplified minimum-transfer
// plan computed by greedy debtor/creditor netting.
//
// Both entry points are total functions over one currency's debt map. They
// never fail on bad data: malformed keys are logged and skipped, unknown
// member IDs fall back to a placeholder name. Display must keep working on
// stale or incomplete data.
package settle

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tmahajan/tripledger/internal/models"
)

// Transfer is one "debtor pays creditor" line in a settle-up view.
type Transfer struct {
	FromID   string  `json:"from_id"`
	ToID     string  `json:"to_id"`
	FromName string  `json:"from_name"`
	ToName   string  `json:"to_name"`
	Amount   float64 `json:"amount"`
}

// Section groups one debtor's transfers for display.
type Section struct {
	// Title is the debtor's display name.
	Title string `json:"title"`

	// Data lists the debtor's transfers, sorted by creditor display name.
	Data []Transfer `json:"data"`
}

// displayName resolves a member ID for display. Unknown IDs get a fallback
// label instead of an error: rendering never throws on stale data.
func displayName(members map[string]*models.Member, id string) string {
	if m, ok := members[id]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return fmt.Sprintf("Unknown (%s)", id)
}

// sectionize groups transfers by debtor into display sections. Entries
// within a section are sorted by creditor display name, sections by debtor
// display name. Empty sections are never produced because every transfer
// belongs to exactly one debtor.
func sectionize(transfers []Transfer) []Section {
	byDebtor := make(map[string][]Transfer)
	for _, t := range transfers {
		byDebtor[t.FromID] = append(byDebtor[t.FromID], t)
	}

	sections := make([]Section, 0, len(byDebtor))
	for _, entries := range byDebtor {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ToName != entries[j].ToName {
				return entries[i].ToName < entries[j].ToName
			}
			return entries[i].ToID < entries[j].ToID
		})
		sections = append(sections, Section{Title: entries[0].FromName, Data: entries})
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Title != sections[j].Title {
			return sections[i].Title < sections[j].Title
		}
		return sections[i].Data[0].FromID < sections[j].Data[0].FromID
	})
	return sections
}

// GroupDebts renders the raw debt map as per-debtor sections. Entries at or
// below epsilon are dropped as floating-point noise, and keys that do not
// parse are logged and skipped.
func GroupDebts(debts map[string]float64, members map[string]*models.Member) []Section {
	transfers := make([]Transfer, 0, len(debts))
	for raw, amount := range debts {
		key, err := models.ParseDebtKey(raw)
		if err != nil {
			slog.Warn("skipping malformed debt entry", "key", raw, "error", err)
			continue
		}
		if amount <= models.Epsilon {
			continue
		}
		transfers = append(transfers, Transfer{
			FromID:   key.Debtor,
			ToID:     key.Creditor,
			FromName: displayName(members, key.Debtor),
			ToName:   displayName(members, key.Creditor),
			Amount:   amount,
		})
	}
	return sectionize(transfers)
}
