package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "mixed punctuation and digits",
			in:   "Hello, World! 123",
			want: []string{"hello", "world", "123"},
		},
		{
			name: "punctuation runs collapse",
			in:   "RAG: Retrieval-Augmented   Generation!!!",
			want: []string{"rag", "retrieval", "augmented", "generation"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "punctuation only",
			in:   "!!! ... ???",
			want: nil,
		},
		{
			name: "whitespace variants",
			in:   "  spaced\tout\nwords  ",
			want: []string{"spaced", "out", "words"},
		},
		{
			name: "digits survive",
			in:   "top10 results for 2024",
			want: []string{"top10", "results", "for", "2024"},
		},
		{
			name: "underscores split",
			in:   "doc_id snake_case",
			want: []string{"doc", "id", "snake", "case"},
		},
		{
			name: "non-ascii runes become separators",
			in:   "café über",
			want: []string{"caf", "ber"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !sameTokens(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	in := "Chunking, retrieval, and prompting work together."
	first := Tokenize(in)
	for i := 0; i < 10; i++ {
		if got := Tokenize(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Tokenize returned %v, previously %v", i, got, first)
		}
	}
}

// Every emitted token must consist solely of ASCII lowercase letters and
// digits, regardless of input.
func TestTokenizeCharset(t *testing.T) {
	inputs := []string{
		"Hello, World! 123",
		"MIXED case WITH Überraschung and 日本語 text",
		"tabs\tand\nnewlines\r\nand  doubles",
		"trailing punctuation...",
	}
	for _, in := range inputs {
		for _, tok := range Tokenize(in) {
			if tok == "" {
				t.Fatalf("Tokenize(%q) produced an empty token", in)
			}
			for i := 0; i < len(tok); i++ {
				c := tok[i]
				if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
					t.Fatalf("Tokenize(%q) produced token %q with byte %q", in, tok, c)
				}
			}
		}
	}
}

func sameTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
