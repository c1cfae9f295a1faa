package query

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Spec is the YAML form of a query. Each level sets exactly one
// expression; Exact only qualifies Label.
//
//	and:
//	  - label: NP
//	  - idoms:
//	      label: ADJ
type Spec struct {
	Label       string       `yaml:"label,omitempty"`
	Exact       bool         `yaml:"exact,omitempty"`
	Regexp      string       `yaml:"regexp,omitempty"`
	DashTag     string       `yaml:"dash_tag,omitempty"`
	Text        *string      `yaml:"text,omitempty"`
	HasMetadata *MetadataRef `yaml:"has_metadata,omitempty"`

	And []Spec `yaml:"and,omitempty"`
	Or  []Spec `yaml:"or,omitempty"`
	Not *Spec  `yaml:"not,omitempty"`

	Idoms  *Spec `yaml:"idoms,omitempty"`
	Doms   *Spec `yaml:"doms,omitempty"`
	Sprec  *Spec `yaml:"sprec,omitempty"`
	Isprec *Spec `yaml:"isprec,omitempty"`
}

// MetadataRef names a metadata entry in a Spec.
type MetadataRef struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// ParseYAML decodes a Spec and builds its query.
func ParseYAML(data []byte) (Query, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return s.Build()
}

// Build converts s into a query.
func (s Spec) Build() (Query, error) {
	var (
		out Query
		set int
		err error
	)
	pick := func(q Query, e error) {
		set++
		if e != nil && err == nil {
			err = e
		}
		out = q
	}

	if s.Label != "" {
		if s.Exact {
			pick(ExactLabel(s.Label), nil)
		} else {
			pick(Label(s.Label), nil)
		}
	}
	if s.Regexp != "" {
		re, e := regexp.Compile(s.Regexp)
		if e != nil {
			e = fmt.Errorf("regexp %q: %w", s.Regexp, e)
		}
		pick(LabelRegexp(re), e)
	}
	if s.DashTag != "" {
		pick(DashTag(s.DashTag), nil)
	}
	if s.Text != nil {
		pick(Text(*s.Text), nil)
	}
	if s.HasMetadata != nil {
		pick(HasMetadata(s.HasMetadata.Key, s.HasMetadata.Value), nil)
	}
	if s.And != nil {
		pick(buildList(s.And, "and", And))
	}
	if s.Or != nil {
		pick(buildList(s.Or, "or", Or))
	}
	if s.Not != nil {
		pick(buildWrapped(s.Not, func(q Query) Query { return Not(q) }))
	}
	if s.Idoms != nil {
		pick(buildWrapped(s.Idoms, func(q Query) Query { return Idoms(q) }))
	}
	if s.Doms != nil {
		pick(buildWrapped(s.Doms, func(q Query) Query { return Doms(q) }))
	}
	if s.Sprec != nil {
		pick(buildWrapped(s.Sprec, func(q Query) Query { return Sprec(q) }))
	}
	if s.Isprec != nil {
		pick(buildWrapped(s.Isprec, func(q Query) Query { return Isprec(q) }))
	}

	switch {
	case err != nil:
		return nil, err
	case set == 0:
		return nil, fmt.Errorf("empty expression: %w", ErrInvalidSpec)
	case set > 1:
		return nil, fmt.Errorf("%d expressions at one level: %w", set, ErrInvalidSpec)
	}
	return out, nil
}

func buildWrapped(s *Spec, wrap func(Query) Query) (Query, error) {
	q, err := s.Build()
	if err != nil {
		return nil, err
	}
	return wrap(q), nil
}

func buildList[E Query](specs []Spec, op string, combine func(a, b Query, more ...Query) E) (Query, error) {
	if len(specs) < 2 {
		return nil, fmt.Errorf("%s needs at least two operands, got %d: %w", op, len(specs), ErrInvalidSpec)
	}
	qs := make([]Query, len(specs))
	for i, s := range specs {
		q, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		qs[i] = q
	}
	return combine(qs[0], qs[1], qs[2:]...), nil
}
