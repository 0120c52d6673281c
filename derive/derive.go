// Package derive adds computed columns to a finished tabulation. Each column
// is a CEL expression evaluated once per respondent against two variables:
//
//	answers  map(string, string)        SINGLE columns the respondent answered
//	selected map(string, list(string))  MULTIPLE short name -> chosen values
//
// For example, a SUBSET_AGE indicator:
//
//	has(answers.age_years) && int(answers.age_years) >= 20 && int(answers.age_years) <= 69
package derive

import (
	"fmt"
	"strconv"

	"github.com/google/cel-go/cel"

	"github.com/labadmin/pulldown/survey"
)

// costLimit bounds the work of a single evaluation
const costLimit = 1000000

// Field is a computed column
type Field struct {
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
}

type compiledField struct {
	Field
	prog cel.Program
}

// Profile is a compiled, named list of fields. Fields are evaluated in order
// and later fields can read earlier ones through answers.
type Profile struct {
	Name   string
	fields []compiledField
}

// NewEnv returns the CEL environment fields are compiled in
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("answers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("selected", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Compile validates and compiles fields into a Profile.
// An expression must evaluate to a string or a bool.
func Compile(env *cel.Env, name string, fields []Field) (*Profile, error) {
	if err := validateIdentifier(name); err != nil {
		return nil, fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	p := &Profile{Name: name, fields: make([]compiledField, 0, len(fields))}
	for _, f := range fields {
		prog, err := compileExpression(env, f.Expression)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		p.fields = append(p.fields, compiledField{Field: f, prog: prog})
	}
	return p, nil
}

func compileExpression(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.StringType) && !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression has type %s, want string or bool", out)
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Fields returns the profile's field definitions in evaluation order
func (p *Profile) Fields() []Field {
	out := make([]Field, len(p.fields))
	for i, f := range p.fields {
		out[i] = f.Field
	}
	return out
}

// Apply returns a copy of t with one SINGLE column per field. A field whose
// name is already a question in t is an AmbiguousShortNameError. A failed
// evaluation leaves the cell null and yields a warning.
func (p *Profile) Apply(t *survey.Table) (*survey.Table, []survey.Warning, error) {
	cols := t.Columns()
	taken := make(map[string]bool, len(cols))
	for _, c := range cols {
		taken[c.QuestionKey()] = true
	}
	for _, f := range p.fields {
		if taken[f.Name] {
			return nil, nil, &survey.AmbiguousShortNameError{
				ShortName:   f.Name,
				QuestionIDs: []string{f.Name, "derived:" + f.Name},
			}
		}
	}

	out := t.Clone()
	for _, f := range p.fields {
		out.AddColumn(survey.SingleColumn{Question: f.Name})
	}

	var warnings []survey.Warning
	for _, id := range t.RowIDs() {
		answers, selected := activation(t, id, cols)
		for _, f := range p.fields {
			v, err := evaluate(f.prog, answers, selected)
			if err != nil {
				warnings = append(warnings, survey.Warning{
					Kind:       survey.WarnDerivation,
					SurveyID:   id,
					QuestionID: f.Name,
					Detail:     err.Error(),
				})
				continue
			}
			out.Set(id, survey.SingleColumn{Question: f.Name}, v)
			answers[f.Name] = v
		}
	}
	return out, warnings, nil
}

// activation builds the CEL variables for one row. Every MULTIPLE question of
// the schema is present in selected, with an empty list when nothing was chosen.
func activation(t *survey.Table, id string, cols []survey.Column) (map[string]string, map[string][]string) {
	answers := make(map[string]string)
	selected := make(map[string][]string)
	for _, c := range cols {
		switch col := c.(type) {
		case survey.SingleColumn:
			if v, ok := t.Get(id, col); ok {
				answers[col.Question] = v
			}
		case survey.MultiColumn:
			if _, ok := selected[col.Question]; !ok {
				selected[col.Question] = []string{}
			}
			if v, ok := t.Get(id, col); ok {
				selected[col.Question] = append(selected[col.Question], v)
			}
		}
	}
	return answers, selected
}

func evaluate(prog cel.Program, answers map[string]string, selected map[string][]string) (string, error) {
	out, _, err := prog.Eval(map[string]any{
		"answers":  answers,
		"selected": selected,
	})
	if err != nil {
		return "", err
	}

	switch v := out.Value().(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expression returned %T, want string or bool", v)
	}
}
