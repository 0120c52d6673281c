package survey

import "fmt"

// AnswerRecord is one observed response to one question.
// A MULTIPLE question yields one record per selected value.
type AnswerRecord struct {
	SurveyID   string
	QuestionID string
	Response   string
}

// Cardinality tells whether a question admits one or many selected values.
type Cardinality int

const (
	Single Cardinality = iota
	Multiple
)

// String implements fmt.Stringer
func (c Cardinality) String() string {
	switch c {
	case Single:
		return "SINGLE"
	case Multiple:
		return "MULTIPLE"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// ParseCardinality converts a stored response type into a Cardinality.
// Only MULTIPLE is special; every other stored type (SINGLE, STRING, TEXT)
// holds at most one value per respondent.
func ParseCardinality(s string) Cardinality {
	if s == "MULTIPLE" {
		return Multiple
	}
	return Single
}

// QuestionMetadata describes a question for the duration of a run
type QuestionMetadata struct {
	QuestionID  string
	Cardinality Cardinality
	ShortName   string
}

// Column identifies one output column. It is either a SingleColumn or a
// MultiColumn. Question holds the question id until relabeling and the
// short name afterwards.
type Column interface {
	// QuestionKey returns the question identifier (or short name) of the column
	QuestionKey() string
	isColumn()
}

// SingleColumn is the column of a SINGLE question.
type SingleColumn struct {
	Question string
}

// MultiColumn is the column of one legal value of a MULTIPLE question.
type MultiColumn struct {
	Question string
	Value    string
}

func (c SingleColumn) QuestionKey() string { return c.Question }
func (c MultiColumn) QuestionKey() string  { return c.Question }

func (SingleColumn) isColumn() {}
func (MultiColumn) isColumn()  {}

func (c SingleColumn) String() string { return c.Question }
func (c MultiColumn) String() string  { return c.Question + "[" + c.Value + "]" }

// columnLess orders columns by question, then SINGLE before MULTIPLE, then value.
func columnLess(a, b Column) bool {
	if a.QuestionKey() != b.QuestionKey() {
		return a.QuestionKey() < b.QuestionKey()
	}
	am, aMulti := a.(MultiColumn)
	bm, bMulti := b.(MultiColumn)
	if aMulti != bMulti {
		return !aMulti
	}
	return am.Value < bm.Value
}

// WarningKind classifies a non-fatal data-quality finding.
type WarningKind string

const (
	// WarnOutOfDomain marks a MULTIPLE answer outside the declared domain
	WarnOutOfDomain WarningKind = "out_of_domain"
	// WarnDuplicateAnswer marks a SINGLE cell overwritten by a later record
	WarnDuplicateAnswer WarningKind = "duplicate_answer"
	// WarnDerivation marks a derived cell whose expression failed
	WarnDerivation WarningKind = "derivation"
)

// Warning is a non-fatal finding surfaced for data-quality review.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	SurveyID   string      `json:"surveyId,omitempty"`
	QuestionID string      `json:"questionId,omitempty"`
	Value      string      `json:"value,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s: survey=%s question=%s value=%q", w.Kind, w.SurveyID, w.QuestionID, w.Value)
	if w.Detail != "" {
		s += " (" + w.Detail + ")"
	}
	return s
}
