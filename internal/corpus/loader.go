package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a document collection from path. Two layouts are accepted:
// a single JSON array of documents, or newline-delimited JSON with one
// document per line. Blank lines are skipped.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
		}
		return docs, nil
	}

	var docs []Document
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing corpus file %s line %d: %w", path, line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	return docs, nil
}
