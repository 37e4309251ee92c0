// Command loadtest drives sustained search traffic against a running
// gateway or searcher and reports throughput, latency percentiles, and
// retrieval quality signals (hit counts, zero-result rate), optionally
// rotating through a set of access levels to compare tiered visibility.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 \
//	    -duration 60s -access-levels 0,1,3 -api-key <key>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL      string
	APIKey       string
	AccessLevels []int // empty means omit the parameter
	Concurrency  int
	Duration     time.Duration
	Queries      []string
}

// levelStats accumulates retrieval outcomes for one access level.
type levelStats struct {
	requests atomic.Int64
	hits     atomic.Int64
	zero     atomic.Int64
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	totalHits     atomic.Int64
	zeroResults   atomic.Int64
	perLevel      map[int]*levelStats
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

// NewStats builds a Stats with a per-level slot for every access level
// that will appear in the run, so workers never mutate the map.
func NewStats(levels []int) *Stats {
	perLevel := make(map[int]*levelStats, len(levels))
	for _, lvl := range levels {
		perLevel[lvl] = &levelStats{}
	}
	return &Stats{
		perLevel:    perLevel,
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

// RecordHits folds one successful search response into the retrieval
// counters. level is -1 when the request carried no access_level.
func (s *Stats) RecordHits(level int, totalHits int) {
	s.totalHits.Add(int64(totalHits))
	if totalHits == 0 {
		s.zeroResults.Add(1)
	}
	ls, ok := s.perLevel[level]
	if !ok {
		return
	}
	ls.requests.Add(1)
	ls.hits.Add(int64(totalHits))
	if totalHits == 0 {
		ls.zero.Add(1)
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the gateway or search service")
	apiKey := flag.String("api-key", "", "API key sent as X-API-Key (optional)")
	accessLevels := flag.String("access-levels", "", "comma-separated access_level values to rotate through, empty to omit")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	levels, err := parseLevels(*accessLevels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -access-levels: %v\n", err)
		os.Exit(1)
	}

	queries := []string{
		"context retrieval",
		"inverted index",
		"ranked results",
		"access control",
		"token frequency",
		"precision evaluation",
		"document ingestion",
		"cache invalidation",
		"index rebuild",
		"relevance judgments",
		"query latency",
		"snapshot swap",
		"term postings",
		"corpus refresh",
		"api gateway",
	}

	cfg := Config{
		BaseURL:      *baseURL,
		APIKey:       *apiKey,
		AccessLevels: levels,
		Concurrency:  *concurrency,
		Duration:     *duration,
		Queries:      queries,
	}

	fmt.Println("=== Context Engine Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	if cfg.APIKey != "" {
		fmt.Println("Auth:        API key")
	}
	if len(cfg.AccessLevels) > 0 {
		fmt.Printf("Access:      levels %v\n", cfg.AccessLevels)
	}
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg)
}

func parseLevels(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	levels := make([]int, 0, len(parts))
	for _, p := range parts {
		lvl, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		if lvl < 0 {
			return nil, fmt.Errorf("access level must be non-negative, got %d", lvl)
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats(cfg.AccessLevels)
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			i := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				query := cfg.Queries[i%len(cfg.Queries)]
				level := -1
				if len(cfg.AccessLevels) > 0 {
					level = cfg.AccessLevels[i%len(cfg.AccessLevels)]
				}
				i++

				searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10",
					cfg.BaseURL, url.QueryEscape(query))
				if level >= 0 {
					searchURL += fmt.Sprintf("&access_level=%d", level)
				}

				start := time.Now()
				resp, err := client.Do(mustNewRequest(ctx, searchURL, cfg.APIKey))
				duration := time.Since(start)

				if err != nil {
					stats.RecordRequest(duration, 0, err)
					continue
				}
				body, readErr := io.ReadAll(resp.Body)
				resp.Body.Close()

				stats.RecordRequest(duration, resp.StatusCode, nil)

				if resp.StatusCode == http.StatusOK && readErr == nil {
					var sr struct {
						TotalHits int `json:"total_hits"`
					}
					if json.Unmarshal(body, &sr) == nil {
						stats.RecordHits(level, sr.TotalHits)
					}
				}
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mustNewRequest(ctx context.Context, rawURL, apiKey string) *http.Request {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return req
}

func printReport(stats *Stats, cfg Config) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / cfg.Duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	if success > 0 {
		fmt.Println()
		fmt.Println("=== Retrieval ===")
		hits := stats.totalHits.Load()
		zero := stats.zeroResults.Load()
		fmt.Printf("Total Hits:      %d\n", hits)
		fmt.Printf("Avg Hits/Query:  %.2f\n", float64(hits)/float64(success))
		fmt.Printf("Zero Results:    %d (%.2f%%)\n", zero, float64(zero)/float64(success)*100)

		if len(cfg.AccessLevels) > 1 {
			// Hit counts should grow monotonically with access level;
			// a flat column means the corpus has no tiered documents.
			fmt.Println()
			fmt.Println("Per access level:")
			levels := make([]int, len(cfg.AccessLevels))
			copy(levels, cfg.AccessLevels)
			sort.Ints(levels)
			for _, lvl := range levels {
				ls := stats.perLevel[lvl]
				reqs := ls.requests.Load()
				if reqs == 0 {
					continue
				}
				fmt.Printf("  level %d: %d requests, %.2f avg hits, %d zero-result\n",
					lvl, reqs, float64(ls.hits.Load())/float64(reqs), ls.zero.Load())
			}
		}
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
