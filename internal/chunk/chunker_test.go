package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadSizeOverlap(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 100, 20, false},
		{"zero overlap", 100, 0, false},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 200, true},
		{"negative overlap", 100, -1, true},
		{"zero size", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplit_EmptyAndWhitespaceYieldNothing(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	assert.Empty(t, c.Split("doc", ""))
	assert.Empty(t, c.Split("doc", "   \n\n  \n\t\n"))
}

func TestSplit_SingleSmallDocumentIsOnePassage(t *testing.T) {
	c, err := New(1000, 100)
	require.NoError(t, err)

	text := "First paragraph.\n\nSecond paragraph."
	passages := c.Split("doc.md", text)

	require.Len(t, passages, 1)
	assert.Equal(t, text, passages[0].Text)
	assert.Equal(t, 0, passages[0].Start)
	assert.Equal(t, len(text), passages[0].End)
	assert.Equal(t, "doc.md", passages[0].SourceID)
}

func TestSplit_SpansSliceOriginalText(t *testing.T) {
	c, err := New(40, 10)
	require.NoError(t, err)

	text := strings.Join([]string{
		"The pool opens at six in the morning.",
		"Lap lanes are on the left side.",
		"Diving boards close at eight.",
		"Lessons run on weekday evenings.",
	}, "\n\n")

	passages := c.Split("pool.txt", text)
	require.NotEmpty(t, passages)

	for i, p := range passages {
		assert.Equal(t, text[p.Start:p.End], p.Text, "passage %d text must equal its span slice", i)
		assert.Equal(t, p.End-p.Start, len(p.Text))
	}
}

func TestSplit_ConsecutivePassagesOverlapExactly(t *testing.T) {
	const overlap = 12
	c, err := New(60, overlap)
	require.NoError(t, err)

	text := strings.Join([]string{
		"Paragraph one has a reasonable amount of text in it.",
		"Paragraph two also carries enough words to matter.",
		"Paragraph three continues the documentation here.",
		"Paragraph four wraps the whole document up nicely.",
	}, "\n\n")

	passages := c.Split("doc", text)
	require.GreaterOrEqual(t, len(passages), 2)

	for i := 1; i < len(passages); i++ {
		assert.Equal(t, passages[i-1].End-overlap, passages[i].Start,
			"passage %d must start exactly overlap before the previous end", i)
		assert.Equal(t,
			passages[i-1].Text[len(passages[i-1].Text)-overlap:],
			passages[i].Text[:overlap],
			"shared suffix/prefix must match")
	}
}

// Skipping the known overlap between consecutive spans and concatenating
// must reconstruct the original document exactly.
func TestSplit_ReconstructsDocument(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"small chunks small overlap", 30, 5},
		{"medium chunks", 80, 20},
		{"zero overlap", 50, 0},
		{"large chunks", 500, 100},
	}

	text := strings.Join([]string{
		"Alpha paragraph with some words inside of it.",
		"Beta paragraph, slightly different in length.",
		"Gamma paragraph closes out the first section.",
		"Delta paragraph opens the second section here.",
		"Epsilon paragraph is the last one in the file.",
	}, "\n\n")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			require.NoError(t, err)

			passages := c.Split("doc", text)
			require.NotEmpty(t, passages)

			var b strings.Builder
			b.WriteString(passages[0].Text)
			for i := 1; i < len(passages); i++ {
				b.WriteString(passages[i].Text[tt.overlap:])
			}
			assert.Equal(t, text, b.String())
		})
	}
}

// Three 9-character paragraphs with size=10, overlap=3 must produce at
// least two passages whose spans overlap by exactly 3 characters.
func TestSplit_OverlapScenario(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	text := "A A A A A\n\nB B B B B\n\nC C C C C"
	passages := c.Split("doc", text)

	require.GreaterOrEqual(t, len(passages), 2)
	for i := 1; i < len(passages); i++ {
		assert.Equal(t, 3, passages[i-1].End-passages[i].Start,
			"spans must overlap by exactly 3 characters")
	}
}

func TestSplit_OversizedParagraphStaysWhole(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)

	big := strings.Repeat("word ", 20) // one 100-char paragraph
	passages := c.Split("doc", big)

	require.Len(t, passages, 1, "paragraphs are never split except via the size threshold")
	assert.Equal(t, big, passages[0].Text)
}

func TestSplit_SkipsLeadingBlankParagraphs(t *testing.T) {
	c, err := New(1000, 50)
	require.NoError(t, err)

	text := "\n\n  \n\nActual content starts here."
	passages := c.Split("doc", text)

	require.Len(t, passages, 1)
	assert.Equal(t, "Actual content starts here.", passages[0].Text)
	assert.Equal(t, strings.Index(text, "Actual"), passages[0].Start)
}

func TestSplit_NoTrailingOverlapOnlyPassage(t *testing.T) {
	// Document length lands exactly on an emission boundary; the seeded
	// overlap buffer must not be emitted as a spurious final passage.
	c, err := New(10, 3)
	require.NoError(t, err)

	text := "A A A A A\n\nB B B B B"
	passages := c.Split("doc", text)

	require.Len(t, passages, 1)
	assert.Equal(t, text, passages[0].Text)
}
