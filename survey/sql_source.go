package survey

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLSource implements Source over the survey tables of a relational store.
// The tables are the ones created by migrations/000001_survey_schema.up.sql;
// prefix qualifies them (e.g. "ag.") where the dialect has schemas. seq names
// the column that records insertion order of answer rows.
type SQLSource struct {
	db     *sql.DB
	prefix string
	seq    string
}

func (s *SQLSource) table(name string) string { return s.prefix + name }

func (s *SQLSource) StructuredAnswers(ctx context.Context) ([]AnswerRecord, error) {
	return s.answers(ctx, s.table("survey_answers"))
}

func (s *SQLSource) FreeTextAnswers(ctx context.Context) ([]AnswerRecord, error) {
	return s.answers(ctx, s.table("survey_answers_other"))
}

func (s *SQLSource) answers(ctx context.Context, table string) ([]AnswerRecord, error) {
	// rows come back in insertion order so a later duplicate answer wins
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT survey_id, survey_question_id, response
		FROM %s
		ORDER BY %s
	`, table, s.seq))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var recs []AnswerRecord
	for rows.Next() {
		var r AnswerRecord
		if err := rows.Scan(&r.SurveyID, &r.QuestionID, &r.Response); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return recs, nil
}

// Cardinalities returns MULTIPLE for every question that has both a MULTIPLE
// response type and at least one possible response. Questions absent from the
// result are SINGLE.
func (s *SQLSource) Cardinalities(ctx context.Context) (map[string]Cardinality, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT survey_question_id, survey_response_type
		FROM %s
		JOIN %s USING (survey_question_id)
		WHERE survey_response_type = 'MULTIPLE'
	`, s.table("survey_question_response_type"), s.table("survey_question_response")))
	if err != nil {
		return nil, fmt.Errorf("failed to query question types: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Cardinality)
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan question type: %w", err)
		}
		out[id] = ParseCardinality(kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question types: %w", err)
	}
	return out, nil
}

func (s *SQLSource) PossibleResponses(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT survey_question_id, response
		FROM %s
		JOIN %s USING (survey_question_id)
		WHERE survey_response_type = 'MULTIPLE'
		ORDER BY survey_question_id, response
	`, s.table("survey_question_response"), s.table("survey_question_response_type")))
	if err != nil {
		return nil, fmt.Errorf("failed to query possible responses: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, response string
		if err := rows.Scan(&id, &response); err != nil {
			return nil, fmt.Errorf("failed to scan possible response: %w", err)
		}
		out[id] = append(out[id], response)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating possible responses: %w", err)
	}
	return out, nil
}

func (s *SQLSource) ShortNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT survey_question_id, question_shortname
		FROM %s
		WHERE question_shortname IS NOT NULL
	`, s.table("survey_question")))
	if err != nil {
		return nil, fmt.Errorf("failed to query short names: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan short name: %w", err)
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating short names: %w", err)
	}
	return out, nil
}

// Ping checks the connection
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Open connects to a postgres database or a sqlite snapshot and returns the
// matching source together with its close function.
func Open(driver, dsn string) (*SQLSource, func() error, error) {
	switch driver {
	case "postgres":
		db, err := OpenPostgres(dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresSource(db), db.Close, nil
	case "sqlite":
		db, err := OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteSource(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", driver)
	}
}
