package survey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/labadmin/pulldown/internal/logger"
)

// Transform post-processes a finished table, e.g. by adding derived columns.
type Transform interface {
	Apply(t *Table) (*Table, []Warning, error)
}

// Result is one completed run
type Result struct {
	RunID     string
	Table     *Table
	Warnings  []Warning
	StartedAt time.Time
	Duration  time.Duration
}

// Engine runs tabulations against a Source
type Engine struct {
	source Source
	cache  CatalogCache // nil reads metadata fresh on every run
	opts   Options
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithCatalogCache keeps the catalog between runs
func WithCatalogCache(c CatalogCache) EngineOption {
	return func(en *Engine) { en.cache = c }
}

// WithOptions sets the tabulation options
func WithOptions(opts Options) EngineOption {
	return func(en *Engine) { en.opts = opts }
}

// NewEngine creates an engine reading from src
func NewEngine(src Source, options ...EngineOption) *Engine {
	en := &Engine{source: src}
	for _, o := range options {
		o(en)
	}
	return en
}

// Catalog returns the question catalog, from the cache when it holds one.
func (en *Engine) Catalog(ctx context.Context) (*Catalog, error) {
	if en.cache != nil {
		if c := en.cache.Get(); c != nil {
			return c, nil
		}
	}

	c, err := ReadCatalog(ctx, en.source)
	if err != nil {
		return nil, err
	}

	if en.cache != nil {
		en.cache.Set(c)
	}
	return c, nil
}

// InvalidateCatalog drops the cached catalog, if caching is enabled
func (en *Engine) InvalidateCatalog() {
	if en.cache != nil {
		en.cache.Invalidate()
	}
}

// Run reads answers and metadata, tabulates them and applies transforms in
// order. Either the whole run succeeds or no table is returned.
func (en *Engine) Run(ctx context.Context, transforms ...Transform) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	err := en.run(ctx, res, transforms)
	res.Duration = time.Since(res.StartedAt)
	logger.RecordRun(err != nil)

	if err != nil {
		logger.Error("tabulation failed", "run", res.RunID, "error", err, "duration", res.Duration)
		return nil, err
	}

	for _, w := range res.Warnings {
		logger.RecordWarning(string(w.Kind))
		logger.Warn("tabulation warning", "run", res.RunID, "kind", w.Kind,
			"survey", w.SurveyID, "question", w.QuestionID, "value", w.Value)
	}

	logger.Info("tabulation completed",
		"run", res.RunID,
		"rows", res.Table.NumRows(),
		"columns", res.Table.NumColumns(),
		"warnings", len(res.Warnings),
		"duration", res.Duration,
	)
	return res, nil
}

func (en *Engine) run(ctx context.Context, res *Result, transforms []Transform) error {
	var (
		answers []AnswerRecord
		catalog *Catalog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		answers, err = ReadAnswers(gctx, en.source)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = en.Catalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("tabulation inputs read", "run", res.RunID, "answers", len(answers), "questions", catalog.Len())

	tab, err := Tabulate(answers, catalog, en.opts)
	if err != nil {
		return err
	}

	table := tab.Table
	warnings := tab.Warnings
	for i, tr := range transforms {
		next, ws, err := tr.Apply(table)
		if err != nil {
			return fmt.Errorf("transform %d: %w", i, err)
		}
		table = next
		warnings = append(warnings, ws...)
	}

	res.Table = table
	res.Warnings = warnings
	return nil
}
