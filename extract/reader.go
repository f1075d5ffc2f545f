// Package extract reads the pipe-delimited IDX drop files. The first line is
// the header; fields are split on '|' with no quoting, so quote characters
// are literal data.
package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const maxLineSize = 4 * 1024 * 1024

// Record is one data row keyed by header name. Columns missing from a short
// line are absent, not empty.
type Record map[string]string

// Lookup returns the value of the first column in names that the record
// carries, or nil when none of them are present.
func (r Record) Lookup(names ...string) *string {
	for _, name := range names {
		if v, ok := r[name]; ok {
			return &v
		}
	}
	return nil
}

// ReadFile reads every record of the extract at path
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read extract %s: %w", path, err)
	}
	return records, nil
}

// Read reads every record from r
func Read(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var header []string
	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if header == nil {
			text = strings.TrimPrefix(text, "\ufeff")
			header = strings.Split(text, "|")
			continue
		}
		if text == "" {
			continue
		}

		fields := strings.Split(text, "|")
		rec := make(Record, len(header))
		for i, name := range header {
			if i >= len(fields) {
				break
			}
			rec[name] = fields[i]
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	if header == nil {
		return nil, fmt.Errorf("missing header row")
	}
	return records, nil
}
