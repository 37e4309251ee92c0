package cache

import (
	"strings"
	"testing"

	"github.com/joshianirudh/context-engine/internal/search"
	"github.com/joshianirudh/context-engine/pkg/config"
)

func keyOnlyCache() *QueryCache {
	return New(nil, config.RedisConfig{}, nil, nil)
}

func TestCacheKeyAccessIsolation(t *testing.T) {
	c := keyOnlyCache()

	contexts := []search.AccessContext{
		search.Unrestricted(),
		search.AccessAt(0),
		search.AccessAt(1),
		search.AccessAt(2),
	}
	keys := make(map[string]string)
	for _, access := range contexts {
		key := c.buildKey("retrieval pipeline", 5, access)
		if prev, dup := keys[key]; dup {
			t.Errorf("access %s and %s share cache key %s", access, prev, key)
		}
		keys[key] = access.String()
	}

	// An unrestricted result must never serve a level-0 caller: the
	// contexts differ even though both admit level-0 documents.
	unrestricted := c.buildKey("retrieval pipeline", 5, search.Unrestricted())
	levelZero := c.buildKey("retrieval pipeline", 5, search.AccessAt(0))
	if unrestricted == levelZero {
		t.Error("unrestricted and level-0 queries share a cache key")
	}
}

func TestCacheKeyQueryNormalization(t *testing.T) {
	c := keyOnlyCache()
	access := search.Unrestricted()

	base := c.buildKey("retrieval rag", 5, access)

	// Token order, case, and punctuation do not change the result set, so
	// they must not change the key.
	for _, equivalent := range []string{
		"rag retrieval",
		"RAG Retrieval",
		"rag, retrieval!",
		"  rag   retrieval  ",
	} {
		if got := c.buildKey(equivalent, 5, access); got != base {
			t.Errorf("query %q keyed differently from %q", equivalent, "retrieval rag")
		}
	}

	// Repeated terms change scores, so they must change the key.
	if got := c.buildKey("rag rag retrieval", 5, access); got == base {
		t.Error("duplicated query term did not change the cache key")
	}
	if got := c.buildKey("retrieval", 5, access); got == base {
		t.Error("dropping a term did not change the cache key")
	}
}

func TestCacheKeyLimit(t *testing.T) {
	c := keyOnlyCache()
	access := search.AccessAt(1)

	five := c.buildKey("context window", 5, access)
	ten := c.buildKey("context window", 10, access)
	if five == ten {
		t.Error("different limits share a cache key")
	}
}

func TestCacheKeyPrefix(t *testing.T) {
	c := keyOnlyCache()
	key := c.buildKey("anything", 5, search.Unrestricted())
	if !strings.HasPrefix(key, keyPrefix) {
		t.Errorf("key %q missing prefix %q needed by pattern invalidation", key, keyPrefix)
	}
}
