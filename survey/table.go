package survey

import "sort"

// Table is the wide-format tabulation: one row per respondent, one column per
// SINGLE question or per (MULTIPLE question, value) pair. A cell that is not
// set is null. The column set is tracked independently of the cells so that
// columns nobody answered still exist.
type Table struct {
	rows    map[string]map[Column]string
	columns map[Column]struct{}
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		rows:    make(map[string]map[Column]string),
		columns: make(map[Column]struct{}),
	}
}

// AddRow registers a respondent without setting any cell.
func (t *Table) AddRow(surveyID string) {
	if _, ok := t.rows[surveyID]; !ok {
		t.rows[surveyID] = make(map[Column]string)
	}
}

// AddColumn registers a column. Existing cells are untouched.
func (t *Table) AddColumn(col Column) {
	t.columns[col] = struct{}{}
}

// Set stores a cell value, registering its row and column. It returns the
// previous value and whether there was one.
func (t *Table) Set(surveyID string, col Column, value string) (string, bool) {
	t.AddRow(surveyID)
	t.AddColumn(col)
	prev, had := t.rows[surveyID][col]
	t.rows[surveyID][col] = value
	return prev, had
}

// Get returns a cell value; ok is false for a null cell.
func (t *Table) Get(surveyID string, col Column) (string, bool) {
	row, ok := t.rows[surveyID]
	if !ok {
		return "", false
	}
	v, ok := row[col]
	return v, ok
}

// Row returns a copy of the non-null cells of a respondent.
func (t *Table) Row(surveyID string) (map[Column]string, bool) {
	row, ok := t.rows[surveyID]
	if !ok {
		return nil, false
	}
	out := make(map[Column]string, len(row))
	for c, v := range row {
		out[c] = v
	}
	return out, true
}

// HasRow reports whether the respondent is present
func (t *Table) HasRow(surveyID string) bool {
	_, ok := t.rows[surveyID]
	return ok
}

// HasColumn reports whether the column is part of the schema
func (t *Table) HasColumn(col Column) bool {
	_, ok := t.columns[col]
	return ok
}

// RowIDs returns the respondent ids in ascending order.
func (t *Table) RowIDs() []string {
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Columns returns the schema in canonical order.
func (t *Table) Columns() []Column {
	cols := make([]Column, 0, len(t.columns))
	for c := range t.columns {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return columnLess(cols[i], cols[j]) })
	return cols
}

// NumRows returns the number of respondents
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.columns) }

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := NewTable()
	for col := range t.columns {
		c.columns[col] = struct{}{}
	}
	for id, row := range t.rows {
		r := make(map[Column]string, len(row))
		for col, v := range row {
			r[col] = v
		}
		c.rows[id] = r
	}
	return c
}

// Equal reports whether both tables have the same rows, columns and cells.
func (t *Table) Equal(o *Table) bool {
	if len(t.rows) != len(o.rows) || len(t.columns) != len(o.columns) {
		return false
	}
	for col := range t.columns {
		if _, ok := o.columns[col]; !ok {
			return false
		}
	}
	for id, row := range t.rows {
		orow, ok := o.rows[id]
		if !ok || len(row) != len(orow) {
			return false
		}
		for col, v := range row {
			if ov, ok := orow[col]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}
