// Package corpus defines the document model shared by ingestion, indexing,
// and search, together with loaders for the supported collection sources.
package corpus

// Document is the unit of indexing and retrieval. Documents are created by
// callers and never mutated by the engine.
type Document struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
	// AccessLevel gates visibility: 0 is public, higher values are more
	// restricted. Compared numerically against a searcher's access ceiling.
	AccessLevel int `json:"access_level"`
}

// ByID returns a lookup from document ID to document. If an ID appears more
// than once the later document wins.
func ByID(docs []Document) map[string]Document {
	m := make(map[string]Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return m
}
