package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/search"
	"github.com/askdocs/askdocs/internal/store"
)

// snippetLength caps the passage preview shown per result.
const snippetLength = 280

// Printer writes human-readable build and query output.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer for out, styled when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styles: StylesFor(out)}
}

// PrintResults renders search results, best first.
func (p *Printer) PrintResults(query string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintf(p.out, "%s\n", p.styles.Dim.Render("no results for: "+query))
		return
	}

	fmt.Fprintf(p.out, "%s\n\n", p.styles.Header.Render(fmt.Sprintf("%d results for: %s", len(results), query)))

	for i, r := range results {
		rank := p.styles.Rank.Render(fmt.Sprintf("%2d.", i+1))
		source := p.styles.Source.Render(fmt.Sprintf("%s [%d:%d]", r.Passage.SourceID, r.Passage.Start, r.Passage.End))
		score := p.styles.Score.Render(fmt.Sprintf("score=%.4f%s", r.Score, rerankMark(r)))

		fmt.Fprintf(p.out, "%s %s  %s\n", rank, source, score)
		fmt.Fprintf(p.out, "    %s\n\n", snippet(r.Passage.Text))
	}
}

func rerankMark(r search.Result) string {
	if r.Reranked {
		return " (reranked)"
	}
	return ""
}

// PrintBuildStats renders a completed build summary.
func (p *Printer) PrintBuildStats(stats *index.Stats) {
	fmt.Fprintf(p.out, "%s\n", p.styles.Header.Render("index built"))
	fmt.Fprintf(p.out, "  documents:  %d\n", stats.Documents)
	fmt.Fprintf(p.out, "  passages:   %d\n", stats.Passages)
	fmt.Fprintf(p.out, "  dimensions: %d\n", stats.Dimensions)
	fmt.Fprintf(p.out, "  duration:   %s\n", stats.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(p.out, "  build id:   %s\n", p.styles.Dim.Render(stats.BuildID))
}

// PrintManifest renders bundle information for the info command.
func (p *Printer) PrintManifest(dir string, m store.Manifest) {
	fmt.Fprintf(p.out, "%s\n", p.styles.Header.Render("index bundle: "+dir))
	fmt.Fprintf(p.out, "  build id:      %s\n", m.BuildID)
	fmt.Fprintf(p.out, "  built at:      %s\n", m.BuiltAt.Format(time.RFC3339))
	fmt.Fprintf(p.out, "  model:         %s (%d dims)\n", m.Model, m.Dimensions)
	fmt.Fprintf(p.out, "  chunking:      size=%d overlap=%d\n", m.ChunkSize, m.ChunkOverlap)
	fmt.Fprintf(p.out, "  documents:     %d\n", m.Documents)
	fmt.Fprintf(p.out, "  passages:      %d\n", m.Passages)
}

// PrintWarning renders a warning line.
func (p *Printer) PrintWarning(msg string) {
	fmt.Fprintf(p.out, "%s\n", p.styles.Warning.Render("warning: "+msg))
}

// snippet returns a single-line preview of text.
func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) <= snippetLength {
		return collapsed
	}
	return collapsed[:snippetLength] + "..."
}
