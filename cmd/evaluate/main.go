// Command evaluate measures retrieval quality offline.
//
// It builds an index from a corpus (JSON file or PostgreSQL), runs every
// query in a YAML relevance-judgment file against it, and reports
// precision at the requested cutoffs, per query and averaged.
//
// Usage:
//
//	evaluate -judgments testdata/judgments.yaml [-corpus corpus.json] [-k 1,5,10]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/eval"
	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/pkg/config"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "corpus JSON file (overrides the configured source)")
	judgmentsPath := flag.String("judgments", "", "YAML relevance judgments file (required)")
	cutoffsFlag := flag.String("k", "1,5,10", "comma-separated precision cutoffs")
	parallelism := flag.Int("parallelism", 4, "concurrent query evaluations")
	flag.Parse()

	if *judgmentsPath == "" {
		fmt.Fprintln(os.Stderr, "error: -judgments is required")
		flag.Usage()
		os.Exit(1)
	}

	cutoffs, err := parseCutoffs(*cutoffsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -k: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	docs, err := loadCorpus(ctx, cfg, *corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load corpus: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "corpus is empty, nothing to evaluate")
		os.Exit(1)
	}

	judgments, err := eval.LoadJudgments(*judgmentsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load judgments: %v\n", err)
		os.Exit(1)
	}
	if len(judgments) == 0 {
		fmt.Fprintln(os.Stderr, "no judgments to evaluate")
		os.Exit(1)
	}

	idx := index.Build(docs)
	fmt.Printf("Index built: %d documents, %d terms\n\n", idx.DocCount(), idx.TermCount())

	report, err := eval.Evaluate(ctx, idx, docs, judgments, cutoffs, *parallelism)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluation failed: %v\n", err)
		os.Exit(1)
	}

	printReport(report)
}

// loadCorpus resolves the document source: an explicit -corpus file wins,
// then the configured file path, then PostgreSQL.
func loadCorpus(ctx context.Context, cfg *config.Config, override string) ([]corpus.Document, error) {
	if override != "" {
		return corpus.LoadFile(override)
	}
	if cfg.Corpus.Source == "file" {
		return corpus.LoadFile(cfg.Corpus.Path)
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	store := corpus.NewStore(db)
	return store.All(ctx, cfg.Corpus.MaxDocuments)
}

func parseCutoffs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	cutoffs := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", p)
		}
		if k <= 0 {
			return nil, fmt.Errorf("cutoff %d must be positive", k)
		}
		cutoffs = append(cutoffs, k)
	}
	if len(cutoffs) == 0 {
		return nil, fmt.Errorf("no cutoffs given")
	}
	return cutoffs, nil
}

func printReport(report eval.Report) {
	fmt.Printf("%-42s  %9s", "Query", "Retrieved")
	for _, k := range report.Cutoffs {
		fmt.Printf("  %7s", fmt.Sprintf("P@%d", k))
	}
	fmt.Println()

	fmt.Print(strings.Repeat("-", 42), "  ", strings.Repeat("-", 9))
	for range report.Cutoffs {
		fmt.Print("  ", strings.Repeat("-", 7))
	}
	fmt.Println()

	for _, qr := range report.PerQuery {
		query := qr.Query
		if len(query) > 42 {
			query = query[:39] + "..."
		}
		fmt.Printf("%-42s  %9d", query, qr.Retrieved)
		for _, k := range report.Cutoffs {
			fmt.Printf("  %7.3f", qr.Precision[k])
		}
		fmt.Println()
	}

	fmt.Printf("\nMean precision over %d queries:\n", len(report.PerQuery))
	for _, k := range report.Cutoffs {
		fmt.Printf("  P@%-3d = %.3f\n", k, report.Mean[k])
	}
}
