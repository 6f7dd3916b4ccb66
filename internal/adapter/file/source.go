// Package file loads datasets from JSON, GeoJSON and CSV files.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format: want .json, .geojson or .csv")
	ErrNoRecords         = errors.New("no records found")
)

// Source reads one file from fs. Numeric parsing is left to the dataset,
// which knows the field kinds.
type Source struct {
	fs   afero.Fs
	path string
}

func NewSource(fs afero.Fs, path string) *Source {
	return &Source{fs: fs, path: path}
}

func (s *Source) Name() string { return "file:" + filepath.Base(s.path) }

func (s *Source) Load(ctx context.Context) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json", ".geojson":
		return parseJSON(data)
	case ".csv":
		return parseCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.path)
	}
}

// document covers the accepted JSON shapes: a bare array of objects, an
// object wrapping one under "data" or "rows", and a GeoJSON feature
// collection whose feature properties become the records.
type document struct {
	Data     []map[string]any `json:"data"`
	Rows     []map[string]any `json:"rows"`
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func parseJSON(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoRecords
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var records []map[string]any
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing JSON array: %w", err)
		}
		return records, nil
	}

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing JSON document: %w", err)
	}
	switch {
	case len(doc.Data) > 0:
		return doc.Data, nil
	case len(doc.Rows) > 0:
		return doc.Rows, nil
	case len(doc.Features) > 0:
		records := make([]map[string]any, 0, len(doc.Features))
		for _, f := range doc.Features {
			if f.Properties != nil {
				records = append(records, f.Properties)
			}
		}
		return records, nil
	}
	return nil, ErrNoRecords
}

// parseCSV reads a headed CSV. French exports use ';' with decimal commas,
// so the delimiter is sniffed from the header line.
func parseCSV(data []byte) ([]map[string]any, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRecords
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			if i >= len(row) {
				break
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[h] = v
			} else {
				rec[h] = nil
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func sniffDelimiter(data []byte) rune {
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}
