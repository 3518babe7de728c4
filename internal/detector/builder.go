package detector

import (
	"github.com/coffeebudget/recurrent/internal/model"
)

// groupBuilder accumulates raw members during clustering and computes the
// group's derived statistics once, when the group is finalized. Keeping the
// statistics lazy avoids recomputing the dominant merchant on every insert.
type groupBuilder struct {
	id      string
	members []model.Transaction
}

func newGroupBuilder(id string, first model.Transaction) *groupBuilder {
	return &groupBuilder{
		id:      id,
		members: []model.Transaction{first},
	}
}

func (b *groupBuilder) add(txn model.Transaction) {
	b.members = append(b.members, txn)
}

func (b *groupBuilder) size() int {
	return len(b.members)
}

// recent returns up to k of the most recently added members, used to bound
// similarity comparisons against large groups.
func (b *groupBuilder) recent(k int) []model.Transaction {
	if len(b.members) <= k {
		return b.members
	}
	return b.members[len(b.members)-k:]
}

// finalize computes the derived group statistics from the raw members.
func (b *groupBuilder) finalize() model.TransactionGroup {
	group := model.TransactionGroup{
		ID:           b.id,
		Transactions: b.members,
	}

	var total float64
	merchantCounts := make(map[string]int)
	categoryCounts := make(map[int]int)
	categoryNames := make(map[int]string)

	for i := range b.members {
		txn := &b.members[i]
		total += txn.Amount

		if txn.MerchantName != "" {
			merchantCounts[txn.MerchantName]++
		}
		if txn.CategoryID != nil {
			categoryCounts[*txn.CategoryID]++
			categoryNames[*txn.CategoryID] = txn.CategoryName
		}
	}

	group.AverageAmount = total / float64(len(b.members))
	group.MerchantName = mostFrequent(merchantCounts)

	if id, ok := dominantCategory(categoryCounts); ok {
		group.CategoryID = &id
		group.CategoryName = categoryNames[id]
	}

	// The first member's description stands in for the whole group.
	group.Description = b.members[0].Description

	return group
}

// mostFrequent returns the key with the highest count, breaking ties by the
// lexicographically smaller name so results are deterministic.
func mostFrequent(counts map[string]int) string {
	var best string
	bestCount := 0
	for name, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || name < best)) {
			best = name
			bestCount = count
		}
	}
	return best
}

func dominantCategory(counts map[int]int) (int, bool) {
	bestID := 0
	bestCount := 0
	found := false
	for id, count := range counts {
		if count > bestCount || (count == bestCount && found && id < bestID) {
			bestID = id
			bestCount = count
			found = true
		}
	}
	return bestID, found
}
