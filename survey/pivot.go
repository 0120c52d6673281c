package survey

// Pivot turns the long-format keyed answers into a Table with one row per
// distinct survey id and one column per distinct observed column.
//
// When several answers land in the same cell the last one in input order wins.
// Overwriting a SINGLE cell with a different value yields a duplicate-answer
// warning; repeating the same MULTIPLE choice does not.
func Pivot(keyed []KeyedAnswer) (*Table, []Warning) {
	t := NewTable()
	var warnings []Warning

	for _, k := range keyed {
		prev, had := t.Set(k.SurveyID, k.Column, k.Value)
		if !had || prev == k.Value {
			continue
		}
		if _, single := k.Column.(SingleColumn); single {
			warnings = append(warnings, Warning{
				Kind:       WarnDuplicateAnswer,
				SurveyID:   k.SurveyID,
				QuestionID: k.Column.QuestionKey(),
				Value:      k.Value,
				Detail:     "replaced " + prev,
			})
		}
	}

	return t, warnings
}
