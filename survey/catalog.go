package survey

import "sort"

// Catalog is the immutable question metadata of a run: every question's
// cardinality and short name, plus the domain of each MULTIPLE question.
type Catalog struct {
	questions map[string]QuestionMetadata
	domains   map[string][]string
}

// NewCatalog builds a catalog from question metadata and the possible responses
// of MULTIPLE questions. Domains are deduplicated and sorted. Domain entries for
// questions that are not MULTIPLE are ignored.
func NewCatalog(questions []QuestionMetadata, domains map[string][]string) (*Catalog, error) {
	c := &Catalog{
		questions: make(map[string]QuestionMetadata, len(questions)),
		domains:   make(map[string][]string),
	}
	for _, q := range questions {
		c.questions[q.QuestionID] = q
	}

	ids := make([]string, 0, len(c.questions))
	for id := range c.questions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if c.questions[id].Cardinality != Multiple {
			continue
		}
		values := uniqueSorted(domains[id])
		if len(values) == 0 {
			return nil, &UndefinedDomainError{QuestionID: id}
		}
		c.domains[id] = values
	}

	return c, nil
}

// Question returns the metadata of a question
func (c *Catalog) Question(id string) (QuestionMetadata, bool) {
	q, ok := c.questions[id]
	return q, ok
}

// IsMultiple reports whether the question is MULTIPLE
func (c *Catalog) IsMultiple(id string) bool {
	_, ok := c.domains[id]
	return ok
}

// MultipleSet returns the set of MULTIPLE question ids.
func (c *Catalog) MultipleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.domains))
	for id := range c.domains {
		set[id] = struct{}{}
	}
	return set
}

// Domain returns a copy of the possible responses of a MULTIPLE question.
func (c *Catalog) Domain(id string) []string {
	d := c.domains[id]
	out := make([]string, len(d))
	copy(out, d)
	return out
}

// InDomain reports whether value is a declared response of the question
func (c *Catalog) InDomain(id, value string) bool {
	d := c.domains[id]
	i := sort.SearchStrings(d, value)
	return i < len(d) && d[i] == value
}

// Questions returns all metadata ordered by question id.
func (c *Catalog) Questions() []QuestionMetadata {
	out := make([]QuestionMetadata, 0, len(c.questions))
	for _, q := range c.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Len returns the number of questions
func (c *Catalog) Len() int { return len(c.questions) }

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
