package survey

import "sort"

// Relabel returns a copy of t whose columns carry short names instead of
// question ids. It fails if a question in the schema has no metadata, or if two
// distinct questions in the schema share a short name. On failure no table is
// returned.
func Relabel(t *Table, catalog *Catalog) (*Table, error) {
	ids := make(map[string]struct{})
	for col := range t.columns {
		ids[col.QuestionKey()] = struct{}{}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	names := make(map[string]string, len(sorted))
	owners := make(map[string][]string)
	for _, id := range sorted {
		q, ok := catalog.Question(id)
		if !ok {
			return nil, &UnknownQuestionError{QuestionID: id}
		}
		names[id] = q.ShortName
		owners[q.ShortName] = append(owners[q.ShortName], id)
	}

	// report collisions in short-name order so the error is stable
	shortNames := make([]string, 0, len(owners))
	for n := range owners {
		shortNames = append(shortNames, n)
	}
	sort.Strings(shortNames)
	for _, n := range shortNames {
		if len(owners[n]) > 1 {
			return nil, &AmbiguousShortNameError{ShortName: n, QuestionIDs: owners[n]}
		}
	}

	rename := func(col Column) Column {
		switch c := col.(type) {
		case MultiColumn:
			return MultiColumn{Question: names[c.Question], Value: c.Value}
		case SingleColumn:
			return SingleColumn{Question: names[c.Question]}
		}
		return col
	}

	out := NewTable()
	for col := range t.columns {
		out.AddColumn(rename(col))
	}
	for id, row := range t.rows {
		out.AddRow(id)
		for col, v := range row {
			out.rows[id][rename(col)] = v
		}
	}
	return out, nil
}
