package survey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceRead          = errors.New("source read failed")
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrAmbiguousShortName  = errors.New("ambiguous short name")
	ErrOutOfDomainResponse = errors.New("response outside declared domain")
	ErrUndefinedDomain     = errors.New("multiple-choice question without domain")
)

// SourceReadError wraps a failure reading from the external store.
// It is never retried here; retry policy belongs to the caller.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

func (e *SourceReadError) Is(target error) bool { return target == ErrSourceRead }

// UnknownQuestionError reports a question id with no metadata entry
type UnknownQuestionError struct {
	QuestionID string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("question %s has no metadata entry", e.QuestionID)
}

func (e *UnknownQuestionError) Is(target error) bool { return target == ErrUnknownQuestion }

// AmbiguousShortNameError reports distinct questions sharing one output name
type AmbiguousShortNameError struct {
	ShortName   string
	QuestionIDs []string
}

func (e *AmbiguousShortNameError) Error() string {
	return fmt.Sprintf("short name %q is used by questions %s", e.ShortName, strings.Join(e.QuestionIDs, ", "))
}

func (e *AmbiguousShortNameError) Is(target error) bool { return target == ErrAmbiguousShortName }

// OutOfDomainResponseError is returned under the reject policy when a MULTIPLE
// answer is not part of its question's domain.
type OutOfDomainResponseError struct {
	SurveyID   string
	QuestionID string
	Value      string
}

func (e *OutOfDomainResponseError) Error() string {
	return fmt.Sprintf("survey %s answered %q to question %s, which is not a declared response", e.SurveyID, e.Value, e.QuestionID)
}

func (e *OutOfDomainResponseError) Is(target error) bool { return target == ErrOutOfDomainResponse }

// UndefinedDomainError reports a MULTIPLE question without possible responses
type UndefinedDomainError struct {
	QuestionID string
}

func (e *UndefinedDomainError) Error() string {
	return fmt.Sprintf("question %s is MULTIPLE but has no possible responses", e.QuestionID)
}

func (e *UndefinedDomainError) Is(target error) bool { return target == ErrUndefinedDomain }
