package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/joshianirudh/context-engine/internal/index"
	"github.com/joshianirudh/context-engine/internal/search"
)

// BenchmarkSearch measures end-to-end ranked retrieval at various corpus
// sizes.
func BenchmarkSearch(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			docs := genDocs(n)
			idx := index.Build(docs)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := search.Search(idx, docs, "context retrieval", 10, search.Unrestricted())
				_ = results
			}
		})
	}
}

// BenchmarkSearchMultiTerm measures scoring cost as the query grows.
func BenchmarkSearchMultiTerm(b *testing.B) {
	termCounts := []int{1, 3, 5, 10}
	docs := genDocs(5000)
	idx := index.Build(docs)
	for _, tc := range termCounts {
		query := strings.Join(poolTerms[:tc], " ")
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := search.Search(idx, docs, query, 10, search.Unrestricted())
				_ = results
			}
		})
	}
}

// BenchmarkSearchAccessFiltered compares unrestricted retrieval with a
// level-capped search over the same corpus.
func BenchmarkSearchAccessFiltered(b *testing.B) {
	docs := genDocs(10000)
	idx := index.Build(docs)

	cases := []struct {
		name   string
		access search.AccessContext
	}{
		{"unrestricted", search.Unrestricted()},
		{"level_0", search.AccessAt(0)},
		{"level_2", search.AccessAt(2)},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := search.Search(idx, docs, "ranked index", 10, tc.access)
				_ = results
			}
		})
	}
}

// BenchmarkSearchParallel measures concurrent query throughput against a
// shared immutable snapshot.
func BenchmarkSearchParallel(b *testing.B) {
	docs := genDocs(10000)
	idx := index.Build(docs)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			results := search.Search(idx, docs, poolTerms[i%len(poolTerms)], 10, search.Unrestricted())
			_ = results
			i++
		}
	})
}
