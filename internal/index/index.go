// Package index builds the in-memory inverted index over a document
// collection. The index maps each term to the documents containing it and
// the term's frequency within each document. An Index is immutable once
// built: collection changes are handled by building a fresh Index and
// swapping it in, never by mutating a live one, which is what makes
// concurrent reads safe without locking.
package index

import (
	"sort"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
)

// Index is an inverted index from term to per-document frequency.
type Index struct {
	postings map[string]map[string]int
	docCount int
}

// TermStat describes one term for stats and debugging endpoints.
type TermStat struct {
	Term    string `json:"term"`
	DocFreq int    `json:"doc_freq"`
}

// Build constructs an Index over docs. Title and body are tokenized as a
// single text with a space between them, so no term can straddle the
// title/body boundary. A document gets a posting for a term only when the
// term actually occurs in it; recorded frequencies are always >= 1.
//
// Document IDs are expected to be unique. If an ID appears twice, the later
// document's frequencies overwrite the earlier ones term by term; identical
// duplicates therefore produce the same index regardless of input order.
func Build(docs []corpus.Document) *Index {
	ix := &Index{
		postings: make(map[string]map[string]int),
		docCount: len(docs),
	}
	for _, doc := range docs {
		tokens := tokenizer.Tokenize(doc.Title + " " + doc.Body)
		if len(tokens) == 0 {
			continue
		}
		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for term, n := range counts {
			byDoc, ok := ix.postings[term]
			if !ok {
				byDoc = make(map[string]int)
				ix.postings[term] = byDoc
			}
			byDoc[doc.ID] = n
		}
	}
	return ix
}

// Postings returns the frequency-by-document map for term, or nil when the
// term is unknown. The returned map is shared with the index and must not
// be modified.
func (ix *Index) Postings(term string) map[string]int {
	return ix.postings[term]
}

// DocFreq returns the number of documents containing term.
func (ix *Index) DocFreq(term string) int {
	return len(ix.postings[term])
}

// DocCount returns the number of documents the index was built over,
// including documents that produced no tokens.
func (ix *Index) DocCount() int {
	return ix.docCount
}

// TermCount returns the number of distinct terms in the index.
func (ix *Index) TermCount() int {
	return len(ix.postings)
}

// TopTerms returns the n terms with the highest document frequency, ties
// broken alphabetically. n <= 0 returns all terms.
func (ix *Index) TopTerms(n int) []TermStat {
	stats := make([]TermStat, 0, len(ix.postings))
	for term, byDoc := range ix.postings {
		stats = append(stats, TermStat{Term: term, DocFreq: len(byDoc)})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].DocFreq != stats[j].DocFreq {
			return stats[i].DocFreq > stats[j].DocFreq
		}
		return stats[i].Term < stats[j].Term
	})
	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
