// Package analysis implements the report analytics pipeline: CSV decoding,
// ZIP extraction and the sales/order metric aggregation rules.
package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one decoded CSV line, keyed by column name. Values are raw strings;
// all type coercion happens in the aggregator.
type Row map[string]string

// Get returns the raw value for a column, or "" when the field is missing.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is a decoded CSV payload. Columns preserves the ordering of the
// header line, which the order-id column detection depends on.
type Table struct {
	Columns []string
	Rows    []Row
}

// DecodeError indicates structurally unrecoverable CSV input. Merely empty
// input is not an error; it decodes to a table with zero rows.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode tabular data at line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeRows parses raw delimited text into row records. When header is
// true the first non-empty line supplies the column names; otherwise
// positional names (column_1, column_2, ...) are generated from the first
// record. Empty lines are skipped. Short records simply lack the trailing
// keys; extra fields beyond the header are dropped.
func DecodeRows(text string, header bool) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // Tolerate ragged rows
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	table := &Table{}
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &DecodeError{Line: line, Err: err}
		}

		if isEmptyRecord(record) {
			continue
		}

		if table.Columns == nil {
			if header {
				table.Columns = trimmedCopy(record)
				continue
			}
			table.Columns = make([]string, len(record))
			for i := range record {
				table.Columns[i] = fmt.Sprintf("column_%d", i+1)
			}
		}

		row := make(Row, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if table.Columns == nil {
		table.Columns = []string{}
	}

	return table, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func trimmedCopy(record []string) []string {
	out := make([]string, len(record))
	for i, field := range record {
		out[i] = strings.TrimSpace(field)
	}
	return out
}
