// Package cache provides a Redis-backed query result cache with
// singleflight protection against thundering herds on popular queries.
// Cache keys incorporate the caller's access context so that results
// computed for one clearance never leak to a caller with a lower one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
	"github.com/joshianirudh/context-engine/internal/search"
	"github.com/joshianirudh/context-engine/internal/searcher"
	"github.com/joshianirudh/context-engine/pkg/config"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	pkgredis "github.com/joshianirudh/context-engine/pkg/redis"
	"github.com/joshianirudh/context-engine/pkg/resilience"
)

const keyPrefix = "search:"

// QueryCache caches assembled search responses in Redis. Both metrics
// and breaker may be nil; a nil breaker calls Redis directly.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics, breaker *resilience.CircuitBreaker) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Breaker returns the circuit breaker guarding Redis calls, or nil.
func (c *QueryCache) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int, access search.AccessContext) (*searcher.Response, bool) {
	key := c.buildKey(query, limit, access)
	var data string
	var found bool
	err := c.execute(func() error {
		val, getErr := c.client.Get(ctx, key)
		if getErr != nil {
			// A miss is a normal outcome, not a Redis failure; it must not
			// feed the circuit breaker.
			if pkgredis.IsNilError(getErr) {
				return nil
			}
			return getErr
		}
		data = val
		found = true
		return nil
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var resp searcher.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &resp, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, access search.AccessContext, resp *searcher.Response) {
	key := c.buildKey(query, limit, access)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for the query, or runs
// computeFn exactly once per key across concurrent callers and caches
// the result. The bool reports whether the response came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	access search.AccessContext,
	computeFn func() (*searcher.Response, error),
) (*searcher.Response, bool, error) {
	if resp, ok := c.Get(ctx, query, limit, access); ok {
		return resp, true, nil
	}
	key := c.buildKey(query, limit, access)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.Get(ctx, query, limit, access); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, access, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*searcher.Response), false, nil
}

// Invalidate removes every cached search response. Called after each
// index rebuild so stale snapshots never serve from cache.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	var deleted int64
	err := c.execute(func() error {
		var flushErr error
		deleted, flushErr = c.client.FlushByPattern(ctx, pattern)
		return flushErr
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) execute(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query string, limit int, access search.AccessContext) string {
	normalized := normalizeQuery(query)
	raw := fmt.Sprintf("%s|limit=%d|access=%s", normalized, limit, access.String())
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery canonicalizes a query for keying: tokenized and sorted,
// with duplicate terms preserved since repeated terms change scores.
func normalizeQuery(query string) string {
	terms := tokenizer.Tokenize(query)
	sort.Strings(terms)
	return strings.Join(terms, ",")
}
