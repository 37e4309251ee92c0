// Package eval measures retrieval quality against relevance judgments.
package eval

import (
	"github.com/joshianirudh/context-engine/internal/search"
)

// PrecisionAtK returns the fraction of the first k retrieved results whose
// document IDs appear in relevant. The denominator is always k, so a run
// that retrieves fewer than k documents is penalised rather than forgiven.
// k <= 0 returns 0. IDs are compared by exact string equality.
func PrecisionAtK(relevant map[string]struct{}, retrieved []search.Result, k int) float64 {
	if k <= 0 {
		return 0
	}
	n := k
	if len(retrieved) < n {
		n = len(retrieved)
	}
	hits := 0
	for _, r := range retrieved[:n] {
		if _, ok := relevant[r.DocID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}
