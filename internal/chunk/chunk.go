// Package chunk splits large document bodies into retrieval-sized pieces
// before ingestion. The engine itself never chunks: chunked ingestion just
// produces more, smaller documents sharing the parent's tags and access
// level.
package chunk

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Strategy selects how a document body is split.
type Strategy string

const (
	// FixedSize cuts windows of roughly Size characters with Overlap
	// characters repeated between neighbours, never splitting a word.
	FixedSize Strategy = "fixed"
	// Sentence groups whole sentences up to roughly Size characters.
	Sentence Strategy = "sentence"
	// Paragraph cuts on blank lines; oversized paragraphs fall back to
	// FixedSize internally.
	Paragraph Strategy = "paragraph"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// ParseStrategy maps a user-supplied string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case FixedSize, Sentence, Paragraph:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown chunk strategy %q", s)
	}
}

// Chunk is one piece of a split document. Start and End are byte offsets
// into the original text, half-open.
type Chunk struct {
	ID         string   `json:"id"`
	DocID      string   `json:"doc_id"`
	Seq        int      `json:"seq"`
	Text       string   `json:"text"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	TokenCount int      `json:"token_count"`
	Strategy   Strategy `json:"strategy"`
}

// Config controls a Chunker. Zero fields take defaults.
type Config struct {
	Strategy Strategy
	Size     int
	Overlap  int
}

// Chunker splits document bodies according to a fixed configuration.
type Chunker struct {
	strategy Strategy
	size     int
	overlap  int
}

// New creates a Chunker, substituting defaults for zero values. An overlap
// that is not smaller than the chunk size would stall the window, so it is
// clamped to a quarter of the size.
func New(cfg Config) *Chunker {
	c := &Chunker{
		strategy: cfg.Strategy,
		size:     cfg.Size,
		overlap:  cfg.Overlap,
	}
	if c.strategy == "" {
		c.strategy = FixedSize
	}
	if c.size <= 0 {
		c.size = DefaultSize
	}
	if c.overlap <= 0 {
		c.overlap = DefaultOverlap
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split breaks text into chunks tagged with docID. Empty or whitespace-only
// text yields no chunks.
func (c *Chunker) Split(docID, text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	switch c.strategy {
	case Sentence:
		return c.bySentence(docID, text)
	case Paragraph:
		return c.byParagraph(docID, text)
	default:
		return c.fixed(docID, text, 0, nil)
	}
}

// fixed appends fixed-size chunks of text to chunks, with offsets shifted
// by base. It is also the fallback for oversized paragraphs.
func (c *Chunker) fixed(docID, text string, base int, chunks []Chunk) []Chunk {
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else if !boundaryAt(text, end) {
			// Never split a word: retreat to the last space in the
			// window, or extend through the word when there is none.
			if sp := strings.LastIndexByte(text[start:end], ' '); sp > 0 {
				end = start + sp
			} else {
				for end < len(text) && text[end] != ' ' {
					end++
				}
			}
		}
		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			chunks = append(chunks, c.newChunk(docID, len(chunks), piece, base+start, base+end))
		}
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// bySentence groups whole sentences until the next one would push the group
// past the target size. A single oversized sentence becomes its own chunk.
func (c *Chunker) bySentence(docID, text string) []Chunk {
	sentences := splitSentences(text)
	var chunks []Chunk
	groupStart, groupEnd := -1, -1
	var group strings.Builder
	flush := func() {
		if group.Len() == 0 {
			return
		}
		chunks = append(chunks, c.newChunk(docID, len(chunks), group.String(), groupStart, groupEnd))
		group.Reset()
		groupStart, groupEnd = -1, -1
	}
	for _, s := range sentences {
		if group.Len() > 0 && group.Len()+1+len(s.text) > c.size {
			flush()
		}
		if group.Len() == 0 {
			groupStart = s.start
		} else {
			group.WriteByte(' ')
		}
		group.WriteString(s.text)
		groupEnd = s.end
	}
	flush()
	return chunks
}

// byParagraph cuts on blank lines. Paragraphs larger than the target size
// are re-split with the fixed-size strategy, keeping offsets relative to
// the original text.
func (c *Chunker) byParagraph(docID, text string) []Chunk {
	var chunks []Chunk
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			start := offset + len(para) - len(strings.TrimLeft(para, " \t\r\n"))
			if len(trimmed) > c.size {
				sub := c.fixed(docID, trimmed, start, nil)
				for i := range sub {
					sub[i].Seq = len(chunks)
					chunks = append(chunks, sub[i])
				}
			} else {
				chunks = append(chunks, c.newChunk(docID, len(chunks), trimmed, start, start+len(trimmed)))
			}
		}
		offset += len(para) + len("\n\n")
	}
	return chunks
}

func (c *Chunker) newChunk(docID string, seq int, text string, start, end int) Chunk {
	return Chunk{
		ID:         uuid.NewString(),
		DocID:      docID,
		Seq:        seq,
		Text:       text,
		Start:      start,
		End:        end,
		TokenCount: estimateTokens(text),
		Strategy:   c.strategy,
	}
}

// estimateTokens approximates the token count of text at four characters
// per token, the usual rule of thumb for English prose.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// boundaryAt reports whether cutting before index i would not split a word.
func boundaryAt(text string, i int) bool {
	return text[i] == ' ' || text[i-1] == ' '
}

type sentence struct {
	text  string
	start int
	end   int
}

// splitSentences cuts text at sentence terminators (., !, ?) followed by
// whitespace, keeping the terminator with its sentence.
func splitSentences(text string) []sentence {
	var out []sentence
	start := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start == -1 {
			if ch == ' ' || ch == '\n' || ch == '\t' || ch == '\r' {
				continue
			}
			start = i
		}
		if ch == '.' || ch == '!' || ch == '?' {
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' || text[i+1] == '\r' {
				out = append(out, sentence{text: text[start : i+1], start: start, end: i + 1})
				start = -1
			}
		}
	}
	if start != -1 {
		s := strings.TrimRight(text[start:], " \n\t\r")
		if s != "" {
			out = append(out, sentence{text: s, start: start, end: start + len(s)})
		}
	}
	return out
}
