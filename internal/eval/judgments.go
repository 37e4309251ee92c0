package eval

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/internal/search"
)

// Judgment is one labelled query: the documents a searcher should surface
// for it, and optionally the access level the search runs under.
type Judgment struct {
	Query    string   `yaml:"query"`
	Relevant []string `yaml:"relevant"`
	// AccessLevel restricts the evaluated search when set; nil evaluates
	// unrestricted.
	AccessLevel *int `yaml:"accessLevel"`
}

// RelevantSet returns the judgment's relevant IDs as a set.
func (j Judgment) RelevantSet() map[string]struct{} {
	set := make(map[string]struct{}, len(j.Relevant))
	for _, id := range j.Relevant {
		set[id] = struct{}{}
	}
	return set
}

type judgmentFile struct {
	Judgments []Judgment `yaml:"judgments"`
}

// LoadJudgments reads a YAML judgment file:
//
//	judgments:
//	  - query: vector databases
//	    relevant: [doc1, doc4]
//	    accessLevel: 2
func LoadJudgments(path string) ([]Judgment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading judgments file %s: %w", path, err)
	}
	var f judgmentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing judgments file %s: %w", path, err)
	}
	for i, j := range f.Judgments {
		if j.Query == "" {
			return nil, fmt.Errorf("judgments file %s: judgment %d has no query", path, i)
		}
	}
	return f.Judgments, nil
}

// QueryResult is the outcome of evaluating one judgment.
type QueryResult struct {
	Query     string
	Retrieved int
	Precision map[int]float64
}

// Report aggregates per-query precision into a mean per cutoff.
type Report struct {
	Cutoffs  []int
	PerQuery []QueryResult
	Mean     map[int]float64
}

// Evaluate runs every judgment's query against the index and computes
// precision at each cutoff. Queries are evaluated concurrently with at most
// parallelism in flight (values < 1 mean sequential). Retrieval depth is
// the largest cutoff.
func Evaluate(ctx context.Context, idx *index.Index, docs []corpus.Document, judgments []Judgment, cutoffs []int, parallelism int) (Report, error) {
	if len(cutoffs) == 0 {
		cutoffs = []int{1, 5, 10}
	}
	sorted := append([]int(nil), cutoffs...)
	sort.Ints(sorted)
	depth := sorted[len(sorted)-1]

	perQuery := make([]QueryResult, len(judgments))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism < 1 {
		parallelism = 1
	}
	g.SetLimit(parallelism)
	for i, j := range judgments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			access := search.Unrestricted()
			if j.AccessLevel != nil {
				access = search.AccessAt(*j.AccessLevel)
			}
			retrieved := search.Search(idx, docs, j.Query, depth, access)
			relevant := j.RelevantSet()
			precision := make(map[int]float64, len(sorted))
			for _, k := range sorted {
				precision[k] = PrecisionAtK(relevant, retrieved, k)
			}
			perQuery[i] = QueryResult{
				Query:     j.Query,
				Retrieved: len(retrieved),
				Precision: precision,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	mean := make(map[int]float64, len(sorted))
	if len(perQuery) > 0 {
		for _, k := range sorted {
			var sum float64
			for _, qr := range perQuery {
				sum += qr.Precision[k]
			}
			mean[k] = sum / float64(len(perQuery))
		}
	}
	return Report{Cutoffs: sorted, PerQuery: perQuery, Mean: mean}, nil
}
