package eval

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/internal/search"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestPrecisionAtK(t *testing.T) {
	retrieved := []search.Result{
		{DocID: "doc1", Score: 1.0},
		{DocID: "doc2", Score: 0.5},
		{DocID: "doc3", Score: 0.1},
	}
	relevant := map[string]struct{}{"doc1": {}, "doc3": {}}

	tests := []struct {
		name string
		k    int
		want float64
	}{
		{"k=1 top hit relevant", 1, 1.0},
		{"k=2 one of two relevant", 2, 0.5},
		{"k=3 two of three relevant", 3, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrecisionAtK(relevant, retrieved, tt.k); !approx(got, tt.want) {
				t.Errorf("PrecisionAtK(k=%d) = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

func TestPrecisionAtKEdgeCases(t *testing.T) {
	relevant := map[string]struct{}{"doc1": {}}
	retrieved := []search.Result{{DocID: "doc1", Score: 1.0}}

	if got := PrecisionAtK(relevant, retrieved, 0); got != 0.0 {
		t.Errorf("k=0: got %v, want 0", got)
	}
	if got := PrecisionAtK(relevant, retrieved, -2); got != 0.0 {
		t.Errorf("k=-2: got %v, want 0", got)
	}
	if got := PrecisionAtK(relevant, nil, 3); got != 0.0 {
		t.Errorf("empty retrieved: got %v, want 0", got)
	}
	// Denominator stays k even when fewer results were retrieved.
	if got := PrecisionAtK(relevant, retrieved, 5); !approx(got, 0.2) {
		t.Errorf("k beyond list: got %v, want 0.2", got)
	}
	if got := PrecisionAtK(nil, retrieved, 1); got != 0.0 {
		t.Errorf("empty gold set: got %v, want 0", got)
	}
}

func TestLoadJudgments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "judgments.yaml")
	data := `judgments:
  - query: retrieval rag
    relevant: [doc1, doc2]
  - query: customer runbook
    relevant: [doc3]
    accessLevel: 3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	judgments, err := LoadJudgments(path)
	if err != nil {
		t.Fatalf("LoadJudgments: %v", err)
	}
	if len(judgments) != 2 {
		t.Fatalf("got %d judgments, want 2", len(judgments))
	}
	if judgments[0].AccessLevel != nil {
		t.Error("first judgment should have no access level")
	}
	if judgments[1].AccessLevel == nil || *judgments[1].AccessLevel != 3 {
		t.Error("second judgment should run at access level 3")
	}
	set := judgments[0].RelevantSet()
	if _, ok := set["doc2"]; !ok {
		t.Error("relevant set missing doc2")
	}
}

func TestLoadJudgmentsRejectsMissingQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("judgments:\n  - relevant: [doc1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJudgments(path); err == nil {
		t.Fatal("expected an error for a judgment without a query")
	}
}

func TestEvaluate(t *testing.T) {
	docs := []corpus.Document{
		{ID: "doc1", Title: "Intro to Retrieval-Augmented Generation", Body: "RAG connects LLMs to external knowledge bases.", AccessLevel: 1},
		{ID: "doc2", Title: "Context engineering best practices", Body: "Chunking, retrieval, and prompting work together.", AccessLevel: 2},
		{ID: "doc3", Title: "Private customer runbook", Body: "Contains sensitive onboarding steps for enterprise customers.", AccessLevel: 3},
	}
	ix := index.Build(docs)
	level1 := 1
	judgments := []Judgment{
		{Query: "retrieval rag", Relevant: []string{"doc1"}},
		{Query: "customers", Relevant: []string{"doc3"}, AccessLevel: &level1},
	}

	report, err := Evaluate(context.Background(), ix, docs, judgments, []int{1, 2}, 4)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.PerQuery) != 2 {
		t.Fatalf("got %d per-query rows, want 2", len(report.PerQuery))
	}

	// Query 1: doc1 ranks first, so P@1 = 1.
	if got := report.PerQuery[0].Precision[1]; !approx(got, 1.0) {
		t.Errorf("query 1 P@1 = %v, want 1.0", got)
	}
	// Query 2 runs at access level 1; doc3 is filtered, so nothing relevant
	// can be retrieved.
	if got := report.PerQuery[1].Precision[1]; got != 0.0 {
		t.Errorf("query 2 P@1 = %v, want 0", got)
	}
	if got := report.Mean[1]; !approx(got, 0.5) {
		t.Errorf("mean P@1 = %v, want 0.5", got)
	}
}

func TestEvaluateNoJudgments(t *testing.T) {
	ix := index.Build(nil)
	report, err := Evaluate(context.Background(), ix, nil, nil, nil, 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.PerQuery) != 0 {
		t.Fatalf("got %d per-query rows, want 0", len(report.PerQuery))
	}
	if len(report.Mean) != 0 {
		t.Fatalf("mean map should be empty, got %v", report.Mean)
	}
}
