package survey

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ReadAnswers reads both answer collections and returns structured answers
// followed by free-text answers. Order within each collection is preserved and
// nothing is deduplicated. The two reads run concurrently.
func ReadAnswers(ctx context.Context, src Source) ([]AnswerRecord, error) {
	var structured, freeText []AnswerRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := src.StructuredAnswers(gctx)
		if err != nil {
			return &SourceReadError{Source: "structured answers", Err: err}
		}
		structured = recs
		return nil
	})
	g.Go(func() error {
		recs, err := src.FreeTextAnswers(gctx)
		if err != nil {
			return &SourceReadError{Source: "free-text answers", Err: err}
		}
		freeText = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]AnswerRecord, 0, len(structured)+len(freeText))
	all = append(all, structured...)
	all = append(all, freeText...)
	return all, nil
}

// ReadCatalog reads cardinalities, possible responses and short names and
// assembles them into a Catalog. Every question with a short name gets an
// entry; a question without a cardinality row is SINGLE.
func ReadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	var (
		types     map[string]Cardinality
		responses map[string][]string
		names     map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if types, err = src.Cardinalities(gctx); err != nil {
			return &SourceReadError{Source: "question cardinalities", Err: err}
		}
		return nil
	})
	g.Go(func() (err error) {
		if responses, err = src.PossibleResponses(gctx); err != nil {
			return &SourceReadError{Source: "possible responses", Err: err}
		}
		return nil
	})
	g.Go(func() (err error) {
		if names, err = src.ShortNames(gctx); err != nil {
			return &SourceReadError{Source: "short names", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	questions := make([]QuestionMetadata, 0, len(names))
	for id, name := range names {
		questions = append(questions, QuestionMetadata{
			QuestionID:  id,
			Cardinality: types[id],
			ShortName:   name,
		})
	}

	return NewCatalog(questions, responses)
}
