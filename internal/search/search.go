// Package search implements ranked retrieval over the inverted index: raw
// term-frequency scoring, access-level filtering, and deterministic
// ordering.
package search

import (
	"sort"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
)

// DefaultMaxResults is the result cap applied when the caller has no
// opinion.
const DefaultMaxResults = 5

// Result is a single ranked hit.
type Result struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Search runs query against idx and returns at most maxResults hits.
//
// A document's score is the sum, over the query's tokens (duplicates
// included), of the token's frequency in that document; only documents
// with a positive score appear. docs supplies the access levels: the ID
// lookup is built fresh from it on every call, and a posting whose
// document is missing from docs is skipped. Results are ordered by score
// descending, then DocID ascending.
//
// Search never fails. An empty query, an unknown-terms-only query, an
// empty index, or maxResults <= 0 all yield an empty result.
func Search(idx *index.Index, docs []corpus.Document, query string, maxResults int, access AccessContext) []Result {
	if maxResults <= 0 {
		return nil
	}
	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	byID := corpus.ByID(docs)
	scores := make(map[string]int)
	for _, term := range tokens {
		for docID, freq := range idx.Postings(term) {
			doc, ok := byID[docID]
			if !ok {
				continue
			}
			if !access.Allows(doc.AccessLevel) {
				continue
			}
			scores[docID] += freq
		}
	}

	results := make([]Result, 0, len(scores))
	for docID, score := range scores {
		results = append(results, Result{DocID: docID, Score: float64(score)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
