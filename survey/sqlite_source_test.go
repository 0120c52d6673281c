package survey

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const snapshotSchema = `
CREATE TABLE survey_question (
	survey_question_id INTEGER PRIMARY KEY,
	american TEXT,
	question_shortname TEXT UNIQUE
);
CREATE TABLE survey_question_response_type (
	survey_question_id INTEGER PRIMARY KEY,
	survey_response_type TEXT NOT NULL
);
CREATE TABLE survey_question_response (
	survey_question_id INTEGER NOT NULL,
	response TEXT NOT NULL,
	display_index INTEGER,
	PRIMARY KEY (survey_question_id, response)
);
CREATE TABLE survey_answers (
	survey_id TEXT NOT NULL,
	survey_question_id INTEGER NOT NULL,
	response TEXT NOT NULL,
	PRIMARY KEY (survey_id, survey_question_id, response)
);
CREATE TABLE survey_answers_other (
	survey_id TEXT NOT NULL,
	survey_question_id INTEGER NOT NULL,
	response TEXT NOT NULL,
	PRIMARY KEY (survey_id, survey_question_id)
);
`

const snapshotData = `
INSERT INTO survey_question VALUES (1, 'Diet type', 'diet_type'), (2, 'Colors', 'colors'), (3, 'Comments', 'comments'), (4, 'Unnamed', NULL);
INSERT INTO survey_question_response_type VALUES (1, 'SINGLE'), (2, 'MULTIPLE'), (3, 'TEXT');
INSERT INTO survey_question_response VALUES (1, 'Vegan', 0), (1, 'Omnivore', 1), (2, 'Red', 0), (2, 'Blue', 1), (2, 'Green', 2);
INSERT INTO survey_answers VALUES ('S1', 1, 'Vegan'), ('S1', 2, 'Red'), ('S1', 2, 'Green'), ('S2', 2, 'Blue');
INSERT INTO survey_answers_other VALUES ('S2', 3, 'likes cats');
`

// writeSnapshot creates a sqlite snapshot file, runs extra statements after
// the sample data and returns its path
func writeSnapshot(t *testing.T, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ag.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to create snapshot: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(snapshotSchema); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	if _, err := db.Exec(snapshotData); err != nil {
		t.Fatalf("Failed to load data: %v", err)
	}
	for _, stmt := range extra {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to run %q: %v", stmt, err)
		}
	}
	return path
}

func openSnapshot(t *testing.T, extra ...string) *SQLSource {
	t.Helper()
	src, closeFn, err := Open("sqlite", writeSnapshot(t, extra...))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { closeFn() })
	return src
}

func TestSQLiteSource_Reads(t *testing.T) {
	src := openSnapshot(t)
	ctx := context.Background()

	structured, err := src.StructuredAnswers(ctx)
	if err != nil {
		t.Fatalf("StructuredAnswers failed: %v", err)
	}
	wantStructured := []AnswerRecord{
		{SurveyID: "S1", QuestionID: "1", Response: "Vegan"},
		{SurveyID: "S1", QuestionID: "2", Response: "Red"},
		{SurveyID: "S1", QuestionID: "2", Response: "Green"},
		{SurveyID: "S2", QuestionID: "2", Response: "Blue"},
	}
	if diff := cmp.Diff(wantStructured, structured); diff != "" {
		t.Errorf("structured answers mismatch (-want +got):\n%s", diff)
	}

	cards, err := src.Cardinalities(ctx)
	if err != nil {
		t.Fatalf("Cardinalities failed: %v", err)
	}
	if diff := cmp.Diff(map[string]Cardinality{"2": Multiple}, cards); diff != "" {
		t.Errorf("cardinalities mismatch (-want +got):\n%s", diff)
	}

	responses, err := src.PossibleResponses(ctx)
	if err != nil {
		t.Fatalf("PossibleResponses failed: %v", err)
	}
	// SINGLE questions with listed responses are not part of any domain
	if diff := cmp.Diff(map[string][]string{"2": {"Blue", "Green", "Red"}}, responses); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}

	names, err := src.ShortNames(ctx)
	if err != nil {
		t.Fatalf("ShortNames failed: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"1": "diet_type", "2": "colors", "3": "comments"}, names); diff != "" {
		t.Errorf("short names mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSource_Engine(t *testing.T) {
	res, err := NewEngine(openSnapshot(t)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]map[string]string{
		"S1": {"diet_type": "Vegan", "colors[Red]": "Red", "colors[Green]": "Green"},
		"S2": {"colors[Blue]": "Blue", "comments": "likes cats"},
	}
	if diff := cmp.Diff(want, cells(res.Table)); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	wantCols := []string{"colors[Blue]", "colors[Green]", "colors[Red]", "comments", "diet_type"}
	if diff := cmp.Diff(wantCols, colNames(res.Table)); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSource_InsertionOrder(t *testing.T) {
	src := openSnapshot(t,
		`INSERT INTO survey_answers VALUES ('S3', 1, 'Zebra')`,
		`INSERT INTO survey_answers VALUES ('S3', 1, 'Apple')`,
	)

	structured, err := src.StructuredAnswers(context.Background())
	if err != nil {
		t.Fatalf("StructuredAnswers failed: %v", err)
	}
	tail := structured[len(structured)-2:]
	want := []AnswerRecord{
		{SurveyID: "S3", QuestionID: "1", Response: "Zebra"},
		{SurveyID: "S3", QuestionID: "1", Response: "Apple"},
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Errorf("answer order mismatch (-want +got):\n%s", diff)
	}

	res, err := NewEngine(src).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := cells(res.Table)["S3"]["diet_type"]; got != "Apple" {
		t.Errorf("Expected the later answer Apple to win, got %q", got)
	}
	wantWarnings := []Warning{{
		Kind:       WarnDuplicateAnswer,
		SurveyID:   "S3",
		QuestionID: "1",
		Value:      "Apple",
		Detail:     "replaced Zebra",
	}}
	if diff := cmp.Diff(wantWarnings, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/ag.db", "file:/data/ag.db?mode=ro"},
		{"ag.db", "file:ag.db?mode=ro"},
		{"/data/snap?v=1#2.db", "file:/data/snap%3Fv=1%232.db?mode=ro"},
		{"/data/my snap.db", "file:/data/my%20snap.db?mode=ro"},
	}
	for _, tt := range tests {
		if got := snapshotDSN(tt.path); got != tt.want {
			t.Errorf("snapshotDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpenSQLite_ReservedCharsInPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap?v=1#2.db")
	if err := os.Rename(writeSnapshot(t), path); err != nil {
		t.Fatal(err)
	}

	src, closeFn, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer closeFn()

	names, err := src.ShortNames(context.Background())
	if err != nil {
		t.Fatalf("ShortNames failed: %v", err)
	}
	if names["1"] != "diet_type" {
		t.Errorf("Expected diet_type for question 1, got %v", names)
	}
}

func TestSQLiteSource_MissingTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE unrelated (id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	src, closeFn, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer closeFn()

	_, err = NewEngine(src).Run(context.Background())
	if !errors.Is(err, ErrSourceRead) {
		t.Fatalf("Expected ErrSourceRead, got %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, _, err := Open("mysql", "whatever"); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
