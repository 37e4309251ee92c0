package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestByID(t *testing.T) {
	docs := []Document{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
		{ID: "a", Title: "third"},
	}
	byID := ByID(docs)
	if len(byID) != 2 {
		t.Fatalf("got %d entries, want 2", len(byID))
	}
	if byID["a"].Title != "third" {
		t.Errorf("duplicate id: got %q, want the later document", byID["a"].Title)
	}
}

func TestLoadFileArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	data := `[
  {"id": "doc1", "title": "Intro", "body": "RAG connects LLMs.", "tags": ["rag"], "access_level": 1},
  {"id": "doc2", "title": "Practices", "body": "Chunking and retrieval.", "access_level": 2}
]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "doc1" || docs[0].AccessLevel != 1 {
		t.Errorf("doc1 = %+v", docs[0])
	}
	if len(docs[0].Tags) != 1 || docs[0].Tags[0] != "rag" {
		t.Errorf("doc1 tags = %v", docs[0].Tags)
	}
}

func TestLoadFileNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.ndjson")
	data := `{"id": "doc1", "title": "Intro", "body": "RAG connects LLMs."}

{"id": "doc2", "title": "Practices", "body": "Chunking and retrieval.", "access_level": 2}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[1].AccessLevel != 2 {
		t.Errorf("doc2 access level = %d, want 2", docs[1].AccessLevel)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
