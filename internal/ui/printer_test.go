package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/search"
	"github.com/askdocs/askdocs/internal/store"
)

func TestPrintResults_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResults("pool hours", []search.Result{
		{
			Passage: store.Passage{ID: 0, SourceID: "pool.md", Text: "The pool opens at six.", Start: 0, End: 22},
			Score:   0.0321,
		},
		{
			Passage:  store.Passage{ID: 3, SourceID: "faq.md", Text: "See the schedule page.", Start: 100, End: 122},
			Score:    0.9,
			Reranked: true,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "2 results for: pool hours")
	assert.Contains(t, out, "pool.md [0:22]")
	assert.Contains(t, out, "The pool opens at six.")
	assert.Contains(t, out, "(reranked)")
	assert.NotContains(t, out, "\x1b[", "piped output must carry no ANSI escapes")
}

func TestPrintResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintResults("nothing", nil)
	assert.Contains(t, buf.String(), "no results for: nothing")
}

func TestPrintBuildStats(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBuildStats(&index.Stats{
		BuildID:    "abc123",
		Documents:  4,
		Passages:   17,
		Dimensions: 256,
		Duration:   1234 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "documents:  4")
	assert.Contains(t, out, "passages:   17")
	assert.Contains(t, out, "abc123")
}

func TestSnippet_CollapsesAndTruncates(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n\n  b\tc"))

	long := strings.Repeat("word ", 100)
	s := snippet(long)
	assert.LessOrEqual(t, len(s), snippetLength+3)
	assert.True(t, strings.HasSuffix(s, "..."))
}
