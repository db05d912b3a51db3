// Package chunk splits documents into overlapping passages.
//
// Passages accumulate whole paragraphs until a size threshold, then
// overlap by a fixed suffix so that context spanning a boundary is
// retrievable from either side. Every passage records its character
// span into the original document text.
package chunk

import (
	"regexp"
	"strings"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// Passage is one retrievable unit of a document. Text is always the
// contiguous slice of the original document covered by [Start, End).
type Passage struct {
	SourceID string
	Text     string
	Start    int
	End      int
}

// paragraphSeparator matches blank-line boundaries between paragraphs.
var paragraphSeparator = regexp.MustCompile(`\n[ \t]*\n`)

// Chunker splits document text into overlapping passages.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given target passage size and overlap,
// both in characters. Overlap must be smaller than size; anything else
// would loop or truncate and is rejected as a configuration error.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, apperrors.ConfigError("chunk size must be positive", nil)
	}
	if overlap < 0 || overlap >= size {
		return nil, apperrors.ConfigError("chunk overlap must be in [0, size)", nil)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the ordered passage sequence for one document.
//
// Paragraphs accumulate into a buffer tracked as an offset range into the
// original text. When the buffer reaches the size threshold it is emitted
// and the next buffer is seeded with the trailing overlap characters, so
// consecutive passages share exactly that suffix/prefix. A trailing
// non-empty buffer is emitted as the final passage. Whitespace-only
// buffers are never emitted.
func (c *Chunker) Split(sourceID, text string) []Passage {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var passages []Passage

	// bufStart < 0 means the buffer is empty and will start at the next
	// non-empty paragraph.
	bufStart := -1
	bufEnd := 0

	for _, para := range paragraphs(text) {
		if bufStart < 0 {
			if strings.TrimSpace(text[para.start:para.end]) == "" {
				continue
			}
			bufStart = para.start
		}
		bufEnd = para.end

		if bufEnd-bufStart >= c.size {
			passages = append(passages, Passage{
				SourceID: sourceID,
				Text:     text[bufStart:bufEnd],
				Start:    bufStart,
				End:      bufEnd,
			})
			// Seed the next buffer with the trailing overlap of the one
			// just emitted; its start is recomputed from the emitted end.
			if c.overlap > 0 {
				bufStart = bufEnd - c.overlap
			} else {
				bufStart = -1
			}
		}
	}

	if bufStart >= 0 && bufEnd > bufStart {
		tail := text[bufStart:bufEnd]
		emitted := len(passages) > 0 && passages[len(passages)-1].End == bufEnd
		if !emitted && strings.TrimSpace(tail) != "" {
			passages = append(passages, Passage{
				SourceID: sourceID,
				Text:     tail,
				Start:    bufStart,
				End:      bufEnd,
			})
		}
	}

	return passages
}

// span is a half-open offset range into the document text.
type span struct {
	start, end int
}

// paragraphs returns the offset ranges of the paragraph units of text,
// split on blank-line boundaries. Separator runs belong to no paragraph.
func paragraphs(text string) []span {
	seps := paragraphSeparator.FindAllStringIndex(text, -1)

	var out []span
	prev := 0
	for _, sep := range seps {
		out = append(out, span{start: prev, end: sep[0]})
		prev = sep[1]
	}
	out = append(out, span{start: prev, end: len(text)})
	return out
}
