package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a titled dataset with key/value header and footer lines, e.g. a transcript.
type Document struct {
	Title   string
	Header  []Field
	Body    Dataset
	Summary []Field
}

// Field is a labelled value rendered above or below the table.
type Field struct {
	Label string
	Value string
}

// CSVExporter renders documents into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes. Header and summary fields become two-column rows around the table.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Body.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for _, f := range doc.Header {
		if err := writer.Write([]string{f.Label, f.Value}); err != nil {
			return nil, fmt.Errorf("write csv header field: %w", err)
		}
	}
	if err := writer.Write(doc.Body.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range doc.Body.Rows {
		record := make([]string, len(doc.Body.Headers))
		for i, header := range doc.Body.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, f := range doc.Summary {
		if err := writer.Write([]string{f.Label, f.Value}); err != nil {
			return nil, fmt.Errorf("write csv summary: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
