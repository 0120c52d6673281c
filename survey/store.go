package survey

import (
	"context"
	"fmt"
	"sync"
)

// Source is the read-only store holding answers and question metadata.
type Source interface {
	// StructuredAnswers returns the answers to choice questions
	StructuredAnswers(ctx context.Context) ([]AnswerRecord, error)

	// FreeTextAnswers returns the answers typed in by respondents
	FreeTextAnswers(ctx context.Context) ([]AnswerRecord, error)

	// Cardinalities maps question ids to SINGLE or MULTIPLE
	Cardinalities(ctx context.Context) (map[string]Cardinality, error)

	// PossibleResponses maps each MULTIPLE question to its legal values
	PossibleResponses(ctx context.Context) (map[string][]string, error)

	// ShortNames maps question ids to their output column names
	ShortNames(ctx context.Context) (map[string]string, error)
}

// InMemorySource implements Source over in-memory slices and maps.
// Safe for concurrent use.
type InMemorySource struct {
	structured []AnswerRecord
	freeText   []AnswerRecord
	types      map[string]Cardinality
	responses  map[string][]string
	shortNames map[string]string
	mu         sync.RWMutex
}

// NewInMemorySource creates an empty in-memory source
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{
		types:      make(map[string]Cardinality),
		responses:  make(map[string][]string),
		shortNames: make(map[string]string),
	}
}

// AddQuestion declares a question. For MULTIPLE questions, responses is the
// legal domain.
func (s *InMemorySource) AddQuestion(id, shortName string, c Cardinality, responses ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shortNames[id]; exists {
		return fmt.Errorf("question %s already exists", id)
	}

	s.shortNames[id] = shortName
	s.types[id] = c
	if c == Multiple {
		s.responses[id] = append([]string(nil), responses...)
	}
	return nil
}

// AddStructured appends structured answers in order
func (s *InMemorySource) AddStructured(recs ...AnswerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structured = append(s.structured, recs...)
}

// AddFreeText appends free-text answers in order
func (s *InMemorySource) AddFreeText(recs ...AnswerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeText = append(s.freeText, recs...)
}

func (s *InMemorySource) StructuredAnswers(ctx context.Context) ([]AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnswerRecord(nil), s.structured...), nil
}

func (s *InMemorySource) FreeTextAnswers(ctx context.Context) ([]AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnswerRecord(nil), s.freeText...), nil
}

func (s *InMemorySource) Cardinalities(ctx context.Context) (map[string]Cardinality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Cardinality, len(s.types))
	for id, c := range s.types {
		out[id] = c
	}
	return out, nil
}

func (s *InMemorySource) PossibleResponses(ctx context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.responses))
	for id, r := range s.responses {
		out[id] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *InMemorySource) ShortNames(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.shortNames))
	for id, n := range s.shortNames {
		out[id] = n
	}
	return out, nil
}
