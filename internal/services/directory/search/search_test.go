package search

import (
	"strings"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/services/directory/domain"
)

func TestTokensLowercasesAndDedupes(t *testing.T) {
	t.Parallel()

	got := Tokens("Hello, WORLD hello!")
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Fatalf("tokens = %v, want [hello world]", got)
	}
}

func TestTooShort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"a", true},
		{" a ", true},
		{"ab", false},
		{"héllo", false},
	}
	for _, tc := range tests {
		if got := TooShort(tc.query); got != tc.want {
			t.Fatalf("TooShort(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestHighlightSpansCoverContent(t *testing.T) {
	t.Parallel()

	content := "Hello world, hello again"
	spans := HighlightSpans(content, Tokens("hello"))

	var rebuilt strings.Builder
	for _, span := range spans {
		rebuilt.WriteString(span.Text)
	}
	if rebuilt.String() != content {
		t.Fatalf("spans rebuild %q, want %q", rebuilt.String(), content)
	}

	var highlighted []string
	for _, span := range spans {
		if span.Highlighted {
			highlighted = append(highlighted, span.Text)
		}
	}
	if len(highlighted) != 2 || highlighted[0] != "Hello" || highlighted[1] != "hello" {
		t.Fatalf("highlighted = %v, want [Hello hello]", highlighted)
	}
}

func TestHighlightSpansMergeOverlaps(t *testing.T) {
	t.Parallel()

	spans := HighlightSpans("interconnected", []string{"inter", "terconnect"})
	if len(spans) != 2 {
		t.Fatalf("spans = %+v, want 2 runs", spans)
	}
	if !spans[0].Highlighted || spans[0].Text != "interconnect" {
		t.Fatalf("first span = %+v, want highlighted %q", spans[0], "interconnect")
	}
	if spans[1].Highlighted || spans[1].Text != "ed" {
		t.Fatalf("second span = %+v, want plain %q", spans[1], "ed")
	}
}

func TestHighlightSpansNoMatch(t *testing.T) {
	t.Parallel()

	spans := HighlightSpans("nothing here", Tokens("zebra"))
	if len(spans) != 1 || spans[0].Highlighted {
		t.Fatalf("spans = %+v, want one plain run", spans)
	}
}

func TestRankOrdersByMatchesThenPositionThenRecency(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	candidates := []domain.Message{
		{ID: "msg-late-single", Content: "say hello", CreatedAt: base.Add(time.Minute)},
		{ID: "msg-double", Content: "well hello hello", CreatedAt: base},
		{ID: "msg-early-single", Content: "hello there", CreatedAt: base},
	}

	results := Rank(candidates, Tokens("hello"))
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	// Two matches beat one; among single matches the earlier first
	// position wins regardless of recency.
	wantOrder := []string{"msg-double", "msg-early-single", "msg-late-single"}
	for i, want := range wantOrder {
		if results[i].Message.ID != want {
			t.Fatalf("results[%d] = %q, want %q", i, results[i].Message.ID, want)
		}
	}
}

func TestRankBreaksTiesByRecencyThenID(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	candidates := []domain.Message{
		{ID: "msg-b", Content: "hello", CreatedAt: base},
		{ID: "msg-a", Content: "hello", CreatedAt: base},
		{ID: "msg-newer", Content: "hello", CreatedAt: base.Add(time.Minute)},
	}

	results := Rank(candidates, Tokens("hello"))
	wantOrder := []string{"msg-newer", "msg-a", "msg-b"}
	for i, want := range wantOrder {
		if results[i].Message.ID != want {
			t.Fatalf("results[%d] = %q, want %q", i, results[i].Message.ID, want)
		}
	}
}

func TestRankDropsNonMatches(t *testing.T) {
	t.Parallel()

	results := Rank([]domain.Message{{ID: "msg-1", Content: "goodbye"}}, Tokens("hello"))
	if len(results) != 0 {
		t.Fatalf("results = %+v, want empty", results)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	candidates := []domain.Message{
		{ID: "msg-1", Content: "hello world", CreatedAt: base},
		{ID: "msg-2", Content: "world of hellos", CreatedAt: base},
		{ID: "msg-3", Content: "hello hello world", CreatedAt: base},
	}
	first := Rank(candidates, Tokens("hello world"))
	second := Rank(candidates, Tokens("hello world"))
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Message.ID != second[i].Message.ID || first[i].Score != second[i].Score {
			t.Fatalf("run mismatch at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
