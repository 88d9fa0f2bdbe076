// Package search runs read-only queries against the bleve index the
// indexing service writes to. Reads never block writes: a bleve.Index
// handle is safe for concurrent search and batch commits.
package search

import (
	"strconv"
	"strings"
)

// Kind classifies how a raw query string should be executed. Classification
// follows a fixed precedence: Phrase > Field > Boolean > Fuzzy > Text.
type Kind int

const (
	KindText Kind = iota
	KindPhrase
	KindField
	KindFuzzy
	KindBoolean
)

// MaxFuzzyDistance caps the edit distance accepted in a `term~N` query,
// regardless of what N the caller asked for.
const MaxFuzzyDistance = 3

// ParsedQuery is the result of classifying a raw query string.
type ParsedQuery struct {
	Kind Kind
	Raw  string

	// Phrase: the unquoted phrase text.
	Phrase string

	// Field: the field name and its (possibly fuzzy) value.
	FieldName  string
	FieldValue string

	// Fuzzy: the bare term and requested edit distance (already capped).
	FuzzyTerm     string
	FuzzyDistance int

	// Boolean: the operator ("AND" or "OR") and the split operands, each
	// itself parsed (operands are never boolean themselves; nesting is
	// not supported).
	BooleanOp       string
	BooleanOperands []ParsedQuery
}

// Parse classifies a raw query string per the package's precedence rules.
func Parse(raw string) ParsedQuery {
	trimmed := strings.TrimSpace(raw)

	if phrase, ok := stripQuotes(trimmed); ok {
		return ParsedQuery{Kind: KindPhrase, Raw: raw, Phrase: phrase}
	}

	if field, value, ok := splitField(trimmed); ok {
		return ParsedQuery{Kind: KindField, Raw: raw, FieldName: field, FieldValue: value}
	}

	if op, operands, ok := splitBoolean(trimmed); ok {
		parsedOperands := make([]ParsedQuery, 0, len(operands))
		for _, operand := range operands {
			parsedOperands = append(parsedOperands, parseNonBoolean(operand))
		}
		return ParsedQuery{Kind: KindBoolean, Raw: raw, BooleanOp: op, BooleanOperands: parsedOperands}
	}

	if term, distance, ok := splitFuzzy(trimmed); ok {
		return ParsedQuery{Kind: KindFuzzy, Raw: raw, FuzzyTerm: term, FuzzyDistance: distance}
	}

	return ParsedQuery{Kind: KindText, Raw: raw, Phrase: trimmed}
}

// parseNonBoolean classifies a boolean operand: Phrase > Field > Fuzzy >
// Text (Boolean queries are not recursively nested).
func parseNonBoolean(raw string) ParsedQuery {
	trimmed := strings.TrimSpace(raw)
	if phrase, ok := stripQuotes(trimmed); ok {
		return ParsedQuery{Kind: KindPhrase, Raw: raw, Phrase: phrase}
	}
	if field, value, ok := splitField(trimmed); ok {
		return ParsedQuery{Kind: KindField, Raw: raw, FieldName: field, FieldValue: value}
	}
	if term, distance, ok := splitFuzzy(trimmed); ok {
		return ParsedQuery{Kind: KindFuzzy, Raw: raw, FuzzyTerm: term, FuzzyDistance: distance}
	}
	return ParsedQuery{Kind: KindText, Raw: raw, Phrase: trimmed}
}

func stripQuotes(s string) (string, bool) {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// splitField recognises "field:value", where value may itself carry a
// fuzzy operator (e.g. "title:widget~2"). A bare leading colon or a value
// containing whitespace before the colon disqualifies the match, since
// that is more likely a URL or a boolean/text query than a field filter.
func splitField(s string) (field, value string, ok bool) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return "", "", false
	}
	field = s[:idx]
	if strings.ContainsAny(field, " \t\"") {
		return "", "", false
	}
	// Avoid misclassifying a scheme ("https://...") as a field query.
	if strings.HasPrefix(s[idx:], "://") {
		return "", "", false
	}
	value = s[idx+1:]
	return field, value, true
}

func splitBoolean(s string) (op string, operands []string, ok bool) {
	if parts := splitOnWord(s, " AND "); len(parts) > 1 {
		return "AND", parts, true
	}
	if parts := splitOnWord(s, " OR "); len(parts) > 1 {
		return "OR", parts, true
	}
	return "", nil, false
}

func splitOnWord(s, sep string) []string {
	if !strings.Contains(s, sep) {
		return nil
	}
	return strings.Split(s, sep)
}

// splitFuzzy recognises "term~" or "term~N" with no embedded whitespace.
// Distance defaults to 1 when omitted and is capped at MaxFuzzyDistance.
func splitFuzzy(s string) (term string, distance int, ok bool) {
	idx := strings.LastIndexByte(s, '~')
	if idx <= 0 {
		return "", 0, false
	}
	term = s[:idx]
	if strings.ContainsAny(term, " \t") {
		return "", 0, false
	}
	suffix := s[idx+1:]
	if suffix == "" {
		return term, 1, true
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return "", 0, false
	}
	if n > MaxFuzzyDistance {
		n = MaxFuzzyDistance
	}
	return term, n, true
}
