package survey

// KeyedAnswer is an answer tagged with the column it lands in.
type KeyedAnswer struct {
	SurveyID string
	Column   Column
	Value    string
}

// Discriminate tags every answer with its column. An answer to a question in
// multiple gets a MultiColumn keyed by the response itself; any other answer
// gets the SingleColumn of its question. The mapping is per record and does
// not depend on input order.
func Discriminate(answers []AnswerRecord, multiple map[string]struct{}) []KeyedAnswer {
	out := make([]KeyedAnswer, len(answers))
	for i, a := range answers {
		var col Column = SingleColumn{Question: a.QuestionID}
		if _, ok := multiple[a.QuestionID]; ok {
			col = MultiColumn{Question: a.QuestionID, Value: a.Response}
		}
		out[i] = KeyedAnswer{SurveyID: a.SurveyID, Column: col, Value: a.Response}
	}
	return out
}

// CheckDomains looks for MULTIPLE answers whose value is not declared in the
// catalog. Under AcceptOutOfDomain every finding becomes a warning; under
// RejectOutOfDomain the first one aborts.
func CheckDomains(keyed []KeyedAnswer, catalog *Catalog, policy DomainPolicy) ([]Warning, error) {
	var warnings []Warning
	for _, k := range keyed {
		mc, ok := k.Column.(MultiColumn)
		if !ok || catalog.InDomain(mc.Question, mc.Value) {
			continue
		}
		if policy == RejectOutOfDomain {
			return nil, &OutOfDomainResponseError{SurveyID: k.SurveyID, QuestionID: mc.Question, Value: mc.Value}
		}
		warnings = append(warnings, Warning{
			Kind:       WarnOutOfDomain,
			SurveyID:   k.SurveyID,
			QuestionID: mc.Question,
			Value:      mc.Value,
		})
	}
	return warnings, nil
}
