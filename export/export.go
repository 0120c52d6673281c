// Package export serializes a tabulation for metadata submission.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/labadmin/pulldown/survey"
)

// IDHeader names the respondent column
const IDHeader = "survey_id"

// Options controls delimited output
type Options struct {
	// Comma is the field delimiter. Zero means tab.
	Comma rune
	// Separator joins a MULTIPLE short name and its value in a header.
	Separator string
	// Null is written for absent cells.
	Null string
}

// DefaultOptions writes TSV with "short:value" headers and empty nulls
func DefaultOptions() Options {
	return Options{Comma: '\t', Separator: ":"}
}

// Header renders the column name used in files and JSON.
func Header(col survey.Column, sep string) string {
	switch c := col.(type) {
	case survey.MultiColumn:
		return c.Question + sep + c.Value
	default:
		return col.QuestionKey()
	}
}

// Headers returns survey_id followed by the rendered column names, in the
// table's canonical column order.
func Headers(t *survey.Table, sep string) []string {
	cols := t.Columns()
	out := make([]string, 0, len(cols)+1)
	out = append(out, IDHeader)
	for _, c := range cols {
		out = append(out, Header(c, sep))
	}
	return out
}

// WriteDelimited writes a header line then one line per respondent in
// ascending survey id order.
func WriteDelimited(w io.Writer, t *survey.Table, opts Options) error {
	if opts.Comma == 0 {
		opts.Comma = '\t'
	}
	if err := checkHeaders(t, opts.Separator); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Comma

	if err := cw.Write(Headers(t, opts.Separator)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cols := t.Columns()
	record := make([]string, len(cols)+1)
	for _, id := range t.RowIDs() {
		record[0] = id
		for i, c := range cols {
			v, ok := t.Get(id, c)
			if !ok {
				v = opts.Null
			}
			record[i+1] = v
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", id, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// checkHeaders rejects a separator that makes two columns render the same.
func checkHeaders(t *survey.Table, sep string) error {
	seen := make(map[string]bool)
	for _, h := range Headers(t, sep) {
		if seen[h] {
			return fmt.Errorf("column header %q is ambiguous with separator %q", h, sep)
		}
		seen[h] = true
	}
	return nil
}

// Row is one respondent in a Document. A nil value is a null cell.
type Row struct {
	SurveyID string             `json:"survey_id"`
	Values   map[string]*string `json:"values"`
}

// Document is the JSON form of a table.
type Document struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewDocument converts t into a Document. Every row carries every column.
func NewDocument(t *survey.Table, sep string) (*Document, error) {
	if err := checkHeaders(t, sep); err != nil {
		return nil, err
	}

	cols := t.Columns()
	headers := Headers(t, sep)[1:]
	doc := &Document{Columns: headers, Rows: make([]Row, 0, t.NumRows())}

	for _, id := range t.RowIDs() {
		row := Row{SurveyID: id, Values: make(map[string]*string, len(cols))}
		for i, c := range cols {
			if v, ok := t.Get(id, c); ok {
				row.Values[headers[i]] = &v
			} else {
				row.Values[headers[i]] = nil
			}
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc, nil
}

// Fingerprint hashes the ordered header line, identifying the column schema
// of a table independently of its cells.
func Fingerprint(t *survey.Table, sep string) string {
	h := xxh3.HashString(strings.Join(Headers(t, sep), "\x1f"))
	return fmt.Sprintf("%016x", h)
}
