package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one line of a batch list: a video identifier and an optional
// display title
type Entry struct {
	ID    string
	Title string

	// Line is the 1-based line number the entry came from
	Line int
}

// ParseList reads a batch list in csv form. Each record is
// `id[,title]`; lines starting with # and blank lines are ignored.
func ParseList(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse batch list: %w", err)
		}

		line, _ := reader.FieldPos(0)
		entry := Entry{
			ID:   strings.TrimSpace(record[0]),
			Line: line,
		}
		if len(record) > 1 {
			entry.Title = strings.TrimSpace(record[1])
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// LoadList reads a batch list from a file
func LoadList(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch list: %w", err)
	}
	defer f.Close()

	entries, err := ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
