// Package corpusio reads clinical document collections from JSONL or CSV
// exports into ingest documents.
package corpusio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
)

// Record is one JSONL line
type Record struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Group string `json:"group"`
}

// Columns names the CSV header fields to read. An empty ID column numbers
// rows from 1.
type Columns struct {
	ID    string
	Text  string
	Group string
}

// DefaultColumns matches exports with id, text and group headers.
func DefaultColumns() Columns {
	return Columns{ID: "id", Text: "text", Group: "group"}
}

// Load picks the reader from the file extension (.jsonl, .json or .csv).
func Load(path string, cols Columns) ([]ingest.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return LoadFromJSONL(path)
	case ".csv":
		return LoadFromCSV(path, cols)
	}
	return nil, fmt.Errorf("unsupported corpus format %q", filepath.Ext(path))
}

// LoadFromJSONL loads documents from a JSONL file. Malformed lines are
// skipped with a warning.
func LoadFromJSONL(path string) ([]ingest.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var docs []ingest.Document
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		docs = append(docs, ingest.Document{
			ID:    rec.ID,
			Text:  rec.Text,
			Group: ingest.GroupLabel(strings.TrimSpace(rec.Group)),
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid documents found in %s", path)
	}

	return docs, nil
}

// LoadFromCSV loads documents from a CSV file with a header row.
func LoadFromCSV(path string, cols Columns) ([]ingest.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	column := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	idCol, textCol, groupCol := column(cols.ID), column(cols.Text), column(cols.Group)
	if textCol < 0 {
		return nil, fmt.Errorf("%s has no %q column", path, cols.Text)
	}

	var docs []ingest.Document
	for row := 1; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed CSV row %d in %s: %v", row, path, err)
			continue
		}

		doc := ingest.Document{
			ID:    strconv.Itoa(row),
			Text:  field(rec, textCol),
			Group: ingest.GroupLabel(field(rec, groupCol)),
		}
		if idCol >= 0 {
			doc.ID = field(rec, idCol)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid documents found in %s", path)
	}
	return docs, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
