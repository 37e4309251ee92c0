package chunk

import (
	"strings"
	"testing"
)

func TestFixedSizeChunking(t *testing.T) {
	document := strings.Repeat("This is a test document. ", 50)
	c := New(Config{Strategy: FixedSize, Size: 200, Overlap: 20})
	chunks := c.Split("test_doc", document)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Seq != i {
			t.Errorf("chunk %d has seq %d", i, ch.Seq)
		}
		if ch.DocID != "test_doc" {
			t.Errorf("chunk %d has doc id %q", i, ch.DocID)
		}
		if len(ch.Text) > 220 {
			t.Errorf("chunk %d is %d chars, want <= 220", i, len(ch.Text))
		}
		if ch.ID == "" {
			t.Errorf("chunk %d has no id", i)
		}
	}
	// Neighbouring chunks replay the overlap region.
	if chunks[1].Start >= chunks[0].End {
		t.Errorf("no overlap: chunk 1 starts at %d, chunk 0 ends at %d", chunks[1].Start, chunks[0].End)
	}
}

func TestEmptyDocument(t *testing.T) {
	c := New(Config{})
	if chunks := c.Split("empty", ""); len(chunks) != 0 {
		t.Fatalf("empty document produced %d chunks", len(chunks))
	}
	if chunks := c.Split("blank", "   \n\t  "); len(chunks) != 0 {
		t.Fatalf("whitespace-only document produced %d chunks", len(chunks))
	}
}

func TestSingleWord(t *testing.T) {
	c := New(Config{Size: 100})
	chunks := c.Split("short", "Hello")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "Hello" {
		t.Errorf("chunk text = %q, want Hello", chunks[0].Text)
	}
}

func TestSentenceChunking(t *testing.T) {
	document := "First sentence. Second sentence. Third sentence. Fourth sentence. Fifth sentence."
	c := New(Config{Strategy: Sentence, Size: 50})
	chunks := c.Split("sent_doc", document)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if !strings.HasSuffix(strings.TrimSpace(ch.Text), ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, ch.Text)
		}
	}
}

func TestParagraphChunking(t *testing.T) {
	document := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	c := New(Config{Strategy: Paragraph, Size: 100})
	chunks := c.Split("para_doc", document)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "First paragraph") {
		t.Errorf("chunk 0 = %q, want the first paragraph", chunks[0].Text)
	}
	if chunks[1].Start <= chunks[0].End {
		t.Errorf("paragraph offsets overlap: %d <= %d", chunks[1].Start, chunks[0].End)
	}
}

func TestOversizedParagraphFallsBackToFixed(t *testing.T) {
	big := strings.Repeat("word ", 60) // ~300 chars
	document := "Small paragraph.\n\n" + big
	c := New(Config{Strategy: Paragraph, Size: 100, Overlap: 10})
	chunks := c.Split("para_doc", document)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want the big paragraph split up", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Seq != i {
			t.Errorf("chunk %d has seq %d after fallback", i, ch.Seq)
		}
	}
}

func TestChunkMetadata(t *testing.T) {
	document := "Test document for metadata validation."
	c := New(Config{Size: 20})
	chunks := c.Split("meta_doc", document)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.Seq != i {
			t.Errorf("chunk %d: seq = %d", i, ch.Seq)
		}
		if ch.Start < 0 {
			t.Errorf("chunk %d: start = %d", i, ch.Start)
		}
		if ch.End <= ch.Start {
			t.Errorf("chunk %d: end %d not after start %d", i, ch.End, ch.Start)
		}
		if ch.TokenCount <= 0 {
			t.Errorf("chunk %d: token count = %d", i, ch.TokenCount)
		}
		if ch.Strategy != FixedSize {
			t.Errorf("chunk %d: strategy = %q", i, ch.Strategy)
		}
	}
}

func TestNoWordSplitting(t *testing.T) {
	document := "Supercalifragilisticexpialidocious is a very long word that should not be split."
	c := New(Config{Size: 30})
	chunks := c.Split("default", document)

	var all []string
	for _, ch := range chunks {
		all = append(all, ch.Text)
	}
	if !strings.Contains(strings.Join(all, " "), "Supercalifragilisticexpialidocious") {
		t.Fatal("long word was split across chunks")
	}
}

// An overlap that reaches the chunk size would stall the window; New clamps
// it so Split always terminates.
func TestOverlapClamped(t *testing.T) {
	c := New(Config{Size: 30, Overlap: 50})
	if c.overlap >= c.size {
		t.Fatalf("overlap %d not clamped below size %d", c.overlap, c.size)
	}
	document := strings.Repeat("stall check words here. ", 20)
	chunks := c.Split("clamp", document)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start <= chunks[i-1].Start {
			t.Fatalf("window did not advance: chunk %d starts at %d, previous at %d",
				i, chunks[i].Start, chunks[i-1].Start)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens("abcdefgh"); got != 2 {
		t.Errorf("estimateTokens(8 chars) = %d, want 2", got)
	}
	if got := estimateTokens("ab"); got != 1 {
		t.Errorf("estimateTokens(2 chars) = %d, want 1", got)
	}
	if got := estimateTokens(""); got != 0 {
		t.Errorf("estimateTokens(empty) = %d, want 0", got)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"fixed", "sentence", "paragraph"} {
		if _, err := ParseStrategy(valid); err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseStrategy("semantic"); err == nil {
		t.Error("ParseStrategy should reject unknown strategies")
	}
}
