package survey

// Complete adds a column for every declared value of every MULTIPLE question
// in the catalog, so the schema depends on the catalog and not on which values
// were chosen. New columns are null in every row. Existing columns and cells
// are left as they are, which makes Complete idempotent. SINGLE questions are
// not touched.
func Complete(t *Table, catalog *Catalog) {
	for id, values := range catalog.domains {
		for _, v := range values {
			t.AddColumn(MultiColumn{Question: id, Value: v})
		}
	}
}
