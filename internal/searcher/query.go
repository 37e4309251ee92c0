package searcher

import (
	"context"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
	"github.com/joshianirudh/context-engine/internal/search"
	apperrors "github.com/joshianirudh/context-engine/pkg/errors"
	"github.com/joshianirudh/context-engine/pkg/tracing"
)

// Hit is one ranked document in a search response.
type Hit struct {
	DocID string  `json:"doc_id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Response is the assembled result of one search request. TotalHits
// counts every matching document before the limit is applied; TermStats
// maps each query term to its document frequency in the index.
type Response struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []Hit          `json:"results"`
	TermStats map[string]int `json:"term_stats"`
	Version   uint64         `json:"index_version"`
}

// Search runs the query against the current snapshot under the given
// access context and assembles the response. It returns
// apperrors.ErrIndexNotReady before the first successful rebuild.
func (e *Engine) Search(ctx context.Context, query string, limit int, access search.AccessContext) (*Response, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}

	_, span := tracing.StartChildSpan(ctx, "search_execute")
	defer span.End()

	resp := &Response{
		Query:     query,
		Results:   []Hit{},
		TermStats: make(map[string]int),
		Version:   snap.Version,
	}

	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return resp, nil
	}
	for _, term := range tokens {
		if df := snap.Index.DocFreq(term); df > 0 {
			resp.TermStats[term] = df
		}
	}

	ranked := search.Search(snap.Index, snap.Docs, query, len(snap.Docs), access)
	resp.TotalHits = len(ranked)
	span.SetAttr("terms", len(tokens))
	span.SetAttr("total_hits", resp.TotalHits)

	n := limit
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	byID := corpus.ByID(snap.Docs)
	for _, r := range ranked[:n] {
		hit := Hit{DocID: r.DocID, Score: r.Score}
		if doc, ok := byID[r.DocID]; ok {
			hit.Title = doc.Title
		}
		resp.Results = append(resp.Results, hit)
	}
	return resp, nil
}
