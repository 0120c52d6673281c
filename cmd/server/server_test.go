package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/survey"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestSource(t *testing.T) *survey.InMemorySource {
	t.Helper()
	src := survey.NewInMemorySource()
	if err := src.AddQuestion("1", "diet_type", survey.Single); err != nil {
		t.Fatal(err)
	}
	if err := src.AddQuestion("2", "colors", survey.Multiple, "Red", "Blue", "Green"); err != nil {
		t.Fatal(err)
	}
	src.AddStructured(
		survey.AnswerRecord{SurveyID: "S1", QuestionID: "1", Response: "vegan"},
		survey.AnswerRecord{SurveyID: "S1", QuestionID: "2", Response: "Red"},
		survey.AnswerRecord{SurveyID: "S2", QuestionID: "2", Response: "Blue"},
	)
	return src
}

// setupTestServer builds a server over an in-memory source
func setupTestServer(t *testing.T, src survey.Source, pinger Pinger, opts ...survey.EngineOption) *Server {
	t.Helper()
	profiles, err := derive.NewManager()
	if err != nil {
		t.Fatalf("Failed to create profile manager: %v", err)
	}
	return NewServer(survey.NewEngine(src, opts...), profiles, pinger, ":")
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), stubPinger{})

	w := do(t, s, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}

	s = setupTestServer(t, newTestSource(t), stubPinger{err: errors.New("connection refused")})
	w = do(t, s, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestListQuestions(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	w := do(t, s, http.MethodGet, "/api/v1/questions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QuestionsListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(resp.Questions))
	}
	colors := resp.Questions[1]
	if colors.ShortName != "colors" || colors.Cardinality != "MULTIPLE" {
		t.Errorf("Unexpected question: %+v", colors)
	}
	if strings.Join(colors.Responses, ",") != "Blue,Green,Red" {
		t.Errorf("Expected sorted responses, got %v", colors.Responses)
	}
}

func TestPulldown_JSON(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	w := do(t, s, http.MethodGet, "/api/v1/pulldown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Pulldown-Run") == "" {
		t.Error("Expected X-Pulldown-Run header")
	}

	var resp PulldownResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Schema != w.Header().Get("X-Pulldown-Schema") {
		t.Errorf("Schema %s does not match header %s", resp.Schema, w.Header().Get("X-Pulldown-Schema"))
	}

	wantCols := "colors:Blue,colors:Green,colors:Red,diet_type"
	if got := strings.Join(resp.Columns, ","); got != wantCols {
		t.Errorf("Expected columns %s, got %s", wantCols, got)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(resp.Rows))
	}

	s1 := resp.Rows[0]
	if s1.SurveyID != "S1" {
		t.Fatalf("Expected first row S1, got %s", s1.SurveyID)
	}
	if v := s1.Values["colors:Red"]; v == nil || *v != "Red" {
		t.Errorf("Expected colors:Red = Red, got %v", v)
	}
	if v, ok := s1.Values["colors:Blue"]; !ok || v != nil {
		t.Errorf("Expected colors:Blue to be null, got %v (present=%v)", v, ok)
	}
}

func TestPulldown_TSV(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	w := do(t, s, http.MethodGet, "/api/v1/pulldown?format=tsv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/tab-separated-values") {
		t.Errorf("Unexpected content type %s", ct)
	}

	want := "survey_id\tcolors:Blue\tcolors:Green\tcolors:Red\tdiet_type\n" +
		"S1\t\t\tRed\tvegan\n" +
		"S2\tBlue\t\t\t\n"
	if w.Body.String() != want {
		t.Errorf("Unexpected body:\n%q\nwant\n%q", w.Body.String(), want)
	}
}

func TestPulldown_BadFormat(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	w := do(t, s, http.MethodGet, "/api/v1/pulldown?format=xlsx", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPulldown_Errors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(src *survey.InMemorySource)
		opts   []survey.EngineOption
		status int
	}{
		{
			name: "unknown question",
			setup: func(src *survey.InMemorySource) {
				src.AddStructured(survey.AnswerRecord{SurveyID: "S3", QuestionID: "404", Response: "x"})
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "ambiguous short name",
			setup: func(src *survey.InMemorySource) {
				_ = src.AddQuestion("3", "diet_type", survey.Single)
				src.AddStructured(survey.AnswerRecord{SurveyID: "S3", QuestionID: "3", Response: "x"})
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "out of domain rejected",
			setup: func(src *survey.InMemorySource) {
				src.AddStructured(survey.AnswerRecord{SurveyID: "S3", QuestionID: "2", Response: "Purple"})
			},
			opts:   []survey.EngineOption{survey.WithOptions(survey.Options{OutOfDomain: survey.RejectOutOfDomain})},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t)
			tt.setup(src)
			s := setupTestServer(t, src, nil, tt.opts...)

			w := do(t, s, http.MethodGet, "/api/v1/pulldown", nil)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Details == "" {
				t.Error("Expected error details")
			}
		})
	}
}

func TestPulldown_OutOfDomainWarning(t *testing.T) {
	src := newTestSource(t)
	src.AddStructured(survey.AnswerRecord{SurveyID: "S3", QuestionID: "2", Response: "Purple"})
	s := setupTestServer(t, src, nil)

	w := do(t, s, http.MethodGet, "/api/v1/pulldown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp PulldownResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Kind != survey.WarnOutOfDomain {
		t.Errorf("Expected one out_of_domain warning, got %v", resp.Warnings)
	}
}

func TestProfiles_Lifecycle(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	body := ProfileRequest{Fields: []derive.Field{
		{Name: "SUBSET_VEGAN", Expression: `has(answers.diet_type) && answers.diet_type == "vegan"`},
	}}
	w := do(t, s, http.MethodPut, "/api/v1/profiles/subsets", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/v1/profiles/", nil)
	var list ProfilesListResponse
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list.Profiles) != 1 || list.Profiles[0].Name != "subsets" {
		t.Errorf("Unexpected profiles: %+v", list.Profiles)
	}

	w = do(t, s, http.MethodGet, "/api/v1/pulldown?format=tsv&profile=subsets", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if !strings.HasPrefix(lines[0], "survey_id\tSUBSET_VEGAN\t") {
		t.Errorf("Expected derived column in header, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "\ttrue\t") {
		t.Errorf("Expected S1 to be vegan, got %q", lines[1])
	}

	w = do(t, s, http.MethodDelete, "/api/v1/profiles/subsets", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/api/v1/profiles/subsets", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/api/v1/pulldown?profile=subsets", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a missing profile, got %d", w.Code)
	}
}

func TestProfiles_InvalidExpression(t *testing.T) {
	s := setupTestServer(t, newTestSource(t), nil)

	body := ProfileRequest{Fields: []derive.Field{{Name: "bad", Expression: `1 + 1`}}}
	w := do(t, s, http.MethodPut, "/api/v1/profiles/p", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRefreshCatalog(t *testing.T) {
	src := newTestSource(t)
	s := setupTestServer(t, src, nil, survey.WithCatalogCache(survey.NewInMemoryCatalogCache(survey.CacheConfig{})))

	if w := do(t, s, http.MethodGet, "/api/v1/questions", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if err := src.AddQuestion("3", "pets", survey.Single); err != nil {
		t.Fatal(err)
	}

	var resp QuestionsListResponse
	w := do(t, s, http.MethodGet, "/api/v1/questions", nil)
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Questions) != 2 {
		t.Errorf("Expected cached catalog with 2 questions, got %d", len(resp.Questions))
	}

	if w := do(t, s, http.MethodPost, "/api/v1/catalog/refresh", nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/api/v1/questions", nil)
	resp = QuestionsListResponse{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Questions) != 3 {
		t.Errorf("Expected 3 questions after refresh, got %d", len(resp.Questions))
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&survey.SourceReadError{Source: "short names", Err: errors.New("x")}, http.StatusBadGateway},
		{&survey.UndefinedDomainError{QuestionID: "1"}, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
