package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Retrieval pipelines turn raw documents into searchable terms through
        normalization and tokenization. Each document contributes its title and
        body to an inverted index that maps every term to the documents
        containing it, along with per-document frequencies. Ranked retrieval
        sums those frequencies across the query's tokens to score candidates,
        and access levels gate which documents a caller may ever see.`,
	"long": strings.Repeat(`Context assembly for language models starts with retrieval.
        A corpus of documents is tokenized, indexed, and queried with short
        natural-language strings; the highest-scoring documents become the
        context window. Precision at k measures how many of the top results a
        human judge would call relevant. Caching layers absorb repeated
        queries while circuit breakers keep a flaky cache from slowing the
        whole request path. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

// BenchmarkTokenizePunctuation measures the cost of the character filter on
// symbol-heavy input, where nearly every byte is replaced before splitting.
func BenchmarkTokenizePunctuation(b *testing.B) {
	text := strings.Repeat("ctx.Done(), err != nil; x->y && a||b #tag @user $1,000.50 ", 50)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		tokens := tokenizer.Tokenize(text)
		_ = tokens
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "context retrieval ranked index evaluation "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}
