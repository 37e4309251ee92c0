// Package searcher hosts the query side of the platform: an immutable
// corpus snapshot paired with its inverted index, wholesale rebuilds from
// the configured corpus source, and the triggers that keep the snapshot
// fresh (change events, a periodic refresh, and the reindex endpoint).
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/resilience"
	"github.com/joshianirudh/context-engine/pkg/tracing"
)

// Source yields the full document collection for a rebuild.
type Source interface {
	Load(ctx context.Context) ([]corpus.Document, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]corpus.Document, error)

func (f SourceFunc) Load(ctx context.Context) ([]corpus.Document, error) { return f(ctx) }

// Snapshot is one complete build of the corpus and its inverted index.
// A snapshot is never mutated after the swap; queries read it without
// locking while rebuilds prepare the next one.
type Snapshot struct {
	Docs    []corpus.Document
	Index   *index.Index
	Version uint64
	BuiltAt time.Time
}

// Engine owns the live snapshot and rebuilds it wholesale from the
// corpus source. Rebuilds are serialized; reads are lock-free.
type Engine struct {
	source      Source
	maxDocs     int
	retry       resilience.RetryConfig
	loadTimeout time.Duration
	metrics     *metrics.Metrics
	onSwap      func(ctx context.Context, snap *Snapshot)
	logger      *slog.Logger

	current   atomic.Pointer[Snapshot]
	version   atomic.Uint64
	rebuildMu sync.Mutex
	dirty     chan struct{}
}

// EngineConfig wires an Engine. Metrics and OnSwap may be nil.
type EngineConfig struct {
	Source       Source
	MaxDocuments int
	Retry        resilience.RetryConfig
	// LoadTimeout bounds a single corpus load attempt; 0 means no limit.
	LoadTimeout time.Duration
	Metrics     *metrics.Metrics
	// OnSwap runs after each successful rebuild, once the new snapshot is
	// visible to queries. The searcher main uses it to drop stale cache
	// entries.
	OnSwap func(ctx context.Context, snap *Snapshot)
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		source:      cfg.Source,
		maxDocs:     cfg.MaxDocuments,
		retry:       cfg.Retry,
		loadTimeout: cfg.LoadTimeout,
		metrics:     cfg.Metrics,
		onSwap:      cfg.OnSwap,
		logger:      slog.Default().With("component", "searcher-engine"),
		dirty:       make(chan struct{}, 1),
	}
}

// Snapshot returns the current snapshot, or nil before the first
// successful rebuild.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Ready reports whether at least one rebuild has completed.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Rebuild loads the full corpus and swaps in a freshly built snapshot.
// Concurrent calls are serialized; queries keep reading the previous
// snapshot until the swap. The trigger label ends up on the rebuild
// metrics ("startup", "event", "periodic", "manual").
func (e *Engine) Rebuild(ctx context.Context, trigger string) (*Snapshot, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "index_rebuild", uuid.NewString())
	span.SetAttr("trigger", trigger)

	var docs []corpus.Document
	err := resilience.Retry(ctx, "corpus_load", e.retry, func() error {
		return resilience.WithTimeout(ctx, e.loadTimeout, "corpus_load", func(ctx context.Context) error {
			loaded, loadErr := e.source.Load(ctx)
			if loadErr != nil {
				return loadErr
			}
			docs = loaded
			return nil
		})
	})
	if err != nil {
		e.observeRebuild(trigger, "failure", time.Since(start))
		span.End()
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	if e.maxDocs > 0 && len(docs) > e.maxDocs {
		e.logger.Warn("corpus exceeds document limit, truncating",
			"loaded", len(docs),
			"limit", e.maxDocs,
		)
		docs = docs[:e.maxDocs]
	}

	_, buildSpan := tracing.StartChildSpan(ctx, "index_build")
	idx := index.Build(docs)
	buildSpan.End()

	snap := &Snapshot{
		Docs:    docs,
		Index:   idx,
		Version: e.version.Add(1),
		BuiltAt: time.Now().UTC(),
	}
	e.current.Store(snap)

	elapsed := time.Since(start)
	e.observeRebuild(trigger, "success", elapsed)
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(idx.DocCount()))
		e.metrics.IndexTerms.Set(float64(idx.TermCount()))
	}
	e.logger.Info("index rebuilt",
		"version", snap.Version,
		"docs", idx.DocCount(),
		"terms", idx.TermCount(),
		"trigger", trigger,
		"duration_ms", elapsed.Milliseconds(),
	)
	span.SetAttr("version", snap.Version)
	span.SetAttr("docs", idx.DocCount())
	span.End()
	span.Log()

	if e.onSwap != nil {
		e.onSwap(ctx, snap)
	}
	return snap, nil
}

func (e *Engine) observeRebuild(trigger, status string, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RebuildsTotal.WithLabelValues(trigger, status).Inc()
	if status == "success" {
		e.metrics.RebuildDuration.Observe(elapsed.Seconds())
	}
}

// NotifyChange marks the corpus dirty. The rebuild loop coalesces bursts
// of notifications into a single rebuild after the debounce window, so
// calling this once per ingested document is fine.
func (e *Engine) NotifyChange() {
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

// StartRebuildLoop rebuilds on change notifications (debounced) and on a
// periodic refresh interval. refresh <= 0 disables the periodic rebuild.
// The loop runs until ctx is cancelled.
func (e *Engine) StartRebuildLoop(ctx context.Context, debounce, refresh time.Duration) {
	if debounce <= 0 {
		debounce = time.Second
	}
	go func() {
		var refreshC <-chan time.Time
		if refresh > 0 {
			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			refreshC = ticker.C
		}
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("rebuild loop stopping")
				return
			case <-e.dirty:
				if pending == nil {
					pending = time.After(debounce)
				}
			case <-pending:
				pending = nil
				if _, err := e.Rebuild(ctx, "event"); err != nil {
					e.logger.Error("event-triggered rebuild failed", "error", err)
				}
			case <-refreshC:
				if _, err := e.Rebuild(ctx, "periodic"); err != nil {
					e.logger.Error("periodic rebuild failed", "error", err)
				}
			}
		}
	}()
}
