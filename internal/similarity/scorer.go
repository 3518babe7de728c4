// Package similarity scores how alike two transactions are across category,
// merchant, description and amount. Scores feed the clustering step of
// pattern detection.
package similarity

import (
	"math"
	"strings"
	"unicode"

	"github.com/coffeebudget/recurrent/internal/model"
)

// Weights controls the contribution of each signal to the total score.
// They should sum to 1.0.
type Weights struct {
	Category    float64
	Merchant    float64
	Description float64
	Amount      float64
}

// DefaultWeights returns the standard signal weights. Category and merchant
// dominate because they are the most semantically stable signals; amount is
// intentionally low so variable amounts (salary plus bonus) still cluster.
func DefaultWeights() Weights {
	return Weights{
		Category:    0.35,
		Merchant:    0.30,
		Description: 0.25,
		Amount:      0.10,
	}
}

// Score holds the per-signal sub-scores and their weighted total, all in
// the range [0, 100].
type Score struct {
	CategoryMatch    float64
	MerchantMatch    float64
	DescriptionMatch float64
	AmountSimilarity float64
	Total            float64
}

// Compare scores a pair of transactions.
func Compare(t1, t2 *model.Transaction, w Weights) Score {
	s := Score{
		CategoryMatch:    categoryMatch(t1, t2),
		MerchantMatch:    textSimilarity(NormalizeMerchant(t1.MerchantName), NormalizeMerchant(t2.MerchantName)),
		DescriptionMatch: textSimilarity(NormalizeDescription(t1.Description), NormalizeDescription(t2.Description)),
		AmountSimilarity: amountSimilarity(t1.Amount, t2.Amount),
	}

	s.Total = s.CategoryMatch*w.Category +
		s.MerchantMatch*w.Merchant +
		s.DescriptionMatch*w.Description +
		s.AmountSimilarity*w.Amount

	return s
}

// GroupSimilarity averages Compare totals between a transaction and the
// given group members, rounded to 2 decimals. Returns 0 for an empty group.
// Callers bound the member list themselves when groups grow large.
func GroupSimilarity(txn *model.Transaction, members []model.Transaction, w Weights) float64 {
	if len(members) == 0 {
		return 0
	}

	var sum float64
	for i := range members {
		sum += Compare(txn, &members[i], w).Total
	}

	return math.Round(sum/float64(len(members))*100) / 100
}

// categoryMatch returns 100 only when both transactions carry a category
// and it is identical. Categories are exact semantic buckets, so there is
// no partial credit.
func categoryMatch(t1, t2 *model.Transaction) float64 {
	if t1.CategoryID == nil || t2.CategoryID == nil {
		return 0
	}
	if *t1.CategoryID == *t2.CategoryID {
		return 100
	}
	return 0
}

// amountSimilarity measures how close two amounts are, in [0, 100]. Zero
// amounts carry no signal and score 0.
func amountSimilarity(a1, a2 float64) float64 {
	if a1 == 0 || a2 == 0 {
		return 0
	}

	maxAbs := math.Max(math.Abs(a1), math.Abs(a2))
	sim := 100 - 100*math.Abs(a1-a2)/maxAbs
	if sim < 0 {
		return 0
	}
	return sim
}

// textSimilarity returns a Levenshtein-derived similarity between two
// already-normalized strings, in [0, 100].
func textSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	dist := levenshtein(a, b)
	sim := 100 * float64(maxLen-dist) / float64(maxLen)
	if sim < 0 {
		return 0
	}
	if sim > 100 {
		return 100
	}
	return sim
}

// NormalizeMerchant lowercases and strips everything non-alphanumeric.
func NormalizeMerchant(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDescription lowercases, trims and collapses runs of whitespace.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			minVal := deletion
			if insertion < minVal {
				minVal = insertion
			}
			if substitution < minVal {
				minVal = substitution
			}
			curr[j] = minVal
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
