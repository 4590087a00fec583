// Package search ranks chat messages against a text query and extracts
// highlight spans for rendering.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/parleyhq/parley/internal/services/directory/domain"
)

// MinQueryRunes is the shortest query that produces results. Shorter
// queries return empty result sets without error.
const MinQueryRunes = 2

// Span is one run of message content, highlighted when it matched the
// query. Concatenating a result's spans reproduces the full content.
type Span struct {
	Text        string `json:"text"`
	Highlighted bool   `json:"isHighlighted"`
}

// Result pairs a matched message with its score and highlight spans.
type Result struct {
	Message domain.Message
	Score   int
	Spans   []Span
}

// Tokens splits a query into lowercased search tokens, dropping
// duplicates while preserving first-seen order.
func Tokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
	}
	return tokens
}

// TooShort reports whether a query is below the minimum length.
func TooShort(query string) bool {
	count := 0
	for _, r := range strings.TrimSpace(query) {
		if !unicode.IsSpace(r) {
			count++
		}
		if count >= MinQueryRunes {
			return false
		}
	}
	return true
}

// lowerRunes lowercases rune-by-rune so offsets stay aligned with the
// original content.
func lowerRunes(value string) []rune {
	runes := []rune(value)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

type match struct {
	start int
	end   int
}

// findMatches locates every occurrence of every token inside content,
// as rune offsets.
func findMatches(content []rune, tokens []string) []match {
	var matches []match
	for _, token := range tokens {
		needle := []rune(token)
		if len(needle) == 0 {
			continue
		}
		for i := 0; i+len(needle) <= len(content); i++ {
			hit := true
			for j, r := range needle {
				if content[i+j] != r {
					hit = false
					break
				}
			}
			if hit {
				matches = append(matches, match{start: i, end: i + len(needle)})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})
	return matches
}

// mergeMatches collapses overlapping or adjacent match ranges.
func mergeMatches(matches []match) []match {
	if len(matches) == 0 {
		return nil
	}
	merged := []match{matches[0]}
	for _, m := range matches[1:] {
		last := &merged[len(merged)-1]
		if m.start <= last.end {
			if m.end > last.end {
				last.end = m.end
			}
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// scoreWeight dominates position so a message with more matches always
// outranks one with fewer, and earlier first matches break the rest.
const scoreWeight = 1 << 20

func scoreMatches(matches []match) int {
	if len(matches) == 0 {
		return 0
	}
	earliest := matches[0].start
	if earliest >= scoreWeight {
		earliest = scoreWeight - 1
	}
	return len(matches)*scoreWeight - earliest
}

// HighlightSpans splits content into alternating plain and highlighted
// runs. The spans always cover the entire content.
func HighlightSpans(content string, tokens []string) []Span {
	runes := []rune(content)
	merged := mergeMatches(findMatches(lowerRunes(content), tokens))
	if len(merged) == 0 {
		if content == "" {
			return nil
		}
		return []Span{{Text: content}}
	}

	var spans []Span
	cursor := 0
	for _, m := range merged {
		if m.start > cursor {
			spans = append(spans, Span{Text: string(runes[cursor:m.start])})
		}
		spans = append(spans, Span{Text: string(runes[m.start:m.end]), Highlighted: true})
		cursor = m.end
	}
	if cursor < len(runes) {
		spans = append(spans, Span{Text: string(runes[cursor:])})
	}
	return spans
}

// Rank scores candidates against the query tokens and orders them by
// score, then recency, then ID. Messages with no match are dropped. The
// ordering is deterministic for a fixed dataset.
func Rank(candidates []domain.Message, tokens []string) []Result {
	results := make([]Result, 0, len(candidates))
	for _, msg := range candidates {
		matches := findMatches(lowerRunes(msg.Content), tokens)
		score := scoreMatches(matches)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			Message: msg,
			Score:   score,
			Spans:   HighlightSpans(msg.Content, tokens),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Message.CreatedAt.Equal(results[j].Message.CreatedAt) {
			return results[i].Message.CreatedAt.After(results[j].Message.CreatedAt)
		}
		return results[i].Message.ID < results[j].Message.ID
	})
	return results
}
