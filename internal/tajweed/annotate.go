package tajweed

import (
	"regexp"
	"strings"
)

// SpanKind tells plain text from rule-tagged text
type SpanKind string

const (
	SpanPlain SpanKind = "plain"
	SpanRuled SpanKind = "ruled"
)

// Span is one piece of annotated text. RuleID is set only for ruled spans.
type Span struct {
	Kind   SpanKind `json:"kind"`
	Text   string   `json:"text"`
	RuleID string   `json:"rule_id,omitempty"`
}

// Annotate splits text into plain and rule-tagged spans.
//
// When active is false the whole text comes back as one plain span.
// Otherwise every patterned rule is applied in catalog order, each one
// only splitting the plain spans left by the rules before it, so the first
// rule to tag a character keeps it. Concatenating the span texts always
// gives back text.
func (c *Catalog) Annotate(text string, active bool) []Span {
	spans := []Span{{Kind: SpanPlain, Text: text}}
	if !active || text == "" {
		return spans
	}

	for _, rule := range c.WithPattern() {
		next := make([]Span, 0, len(spans))
		for _, s := range spans {
			if s.Kind != SpanPlain {
				next = append(next, s)
				continue
			}
			next = splitPlain(next, s.Text, rule.ID, rule.Pattern)
		}
		spans = next
	}

	return spans
}

// splitPlain appends the plain/ruled pieces of text to out
func splitPlain(out []Span, text, ruleID string, pattern *regexp.Regexp) []Span {
	prev := 0
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start == end {
			continue
		}
		if start > prev {
			out = append(out, Span{Kind: SpanPlain, Text: text[prev:start]})
		}
		out = append(out, Span{Kind: SpanRuled, Text: text[start:end], RuleID: ruleID})
		prev = end
	}
	if prev < len(text) {
		out = append(out, Span{Kind: SpanPlain, Text: text[prev:]})
	}
	return out
}

// Concat joins the span texts back together
func Concat(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// RuleIDs returns the distinct rule IDs found in spans, in order of first appearance
func RuleIDs(spans []Span) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, s := range spans {
		if s.Kind != SpanRuled {
			continue
		}
		if _, ok := seen[s.RuleID]; ok {
			continue
		}
		seen[s.RuleID] = struct{}{}
		ids = append(ids, s.RuleID)
	}
	return ids
}
