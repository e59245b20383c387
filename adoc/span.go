// Package adoc parses AsciiDoc-style lightweight-markup documents into a
// structured tree. It has two tightly coupled stages: a line-oriented
// preprocessor that amalgamates a document from its includes and conditional
// directives into a single flat source, and a parser that converts that
// source into an abstract syntax tree.
package adoc

import (
	"strings"
	"unicode/utf8"
)

// A Span is an immutable view over a slice of the amalgamated source.
// Besides the text itself it carries the 1-based line and column of its
// first byte, so every parse result can report where it came from.
//
// Spans are small values and are cheap to copy. Two spans are considered
// equal when their text is equal; the location is metadata, not identity.
type Span struct {
	src    string // the complete source buffer
	start  int    // byte offset of the view in src
	end    int    // byte offset one past the view
	line   int    // 1-based line of the byte at start
	column int    // 1-based column (in runes) of the byte at start
}

// NewSpan returns a span covering the whole of src, located at line 1,
// column 1.
func NewSpan(src string) Span {
	return Span{src: src, start: 0, end: len(src), line: 1, column: 1}
}

// Len returns the length of the view in bytes.
func (s Span) Len() int { return s.end - s.start }

// IsEmpty reports whether the view is empty.
func (s Span) IsEmpty() bool { return s.start == s.end }

// Text returns the text of the view. The returned string shares storage
// with the source buffer.
func (s Span) Text() string { return s.src[s.start:s.end] }

// Offset returns the byte offset of the view in the source buffer.
func (s Span) Offset() int { return s.start }

// Line returns the 1-based line number of the first byte of the view.
func (s Span) Line() int { return s.line }

// Column returns the 1-based column of the first byte of the view,
// counted in runes.
func (s Span) Column() int { return s.column }

// Equal reports whether two spans view the same text, regardless of
// location. go-cmp picks this method up, so AST comparisons in tests get
// the same semantics.
func (s Span) Equal(o Span) bool { return s.Text() == o.Text() }

// String implements fmt.Stringer for debug output.
func (s Span) String() string { return s.Text() }

// advance walks over text and returns the line/column location directly
// after it, starting from the given location.
func advance(line, column int, text string) (int, int) {
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
		text = text[size:]
	}
	return line, column
}

// Slice returns the sub-view [from, to) of the span. The location of the
// result is the location of byte from in the original buffer. Slicing past
// the end of the view panics, like slicing a string would.
func (s Span) Slice(from, to int) Span {
	if from < 0 || to < from || s.start+to > s.end {
		panic("adoc: span slice out of range")
	}
	line, column := advance(s.line, s.column, s.src[s.start:s.start+from])
	return Span{src: s.src, start: s.start + from, end: s.start + to, line: line, column: column}
}

// From returns the suffix of the span starting at byte i.
func (s Span) From(i int) Span { return s.Slice(i, s.Len()) }

// To returns the prefix of the span ending before byte i.
func (s Span) To(i int) Span { return s.Slice(0, i) }

// Position returns the byte offset within the span of the first rune for
// which pred returns true, or -1 if there is none.
func (s Span) Position(pred func(rune) bool) int {
	return strings.IndexFunc(s.Text(), pred)
}

// HasPrefix reports whether the span's text starts with lit.
func (s Span) HasPrefix(lit string) bool {
	return strings.HasPrefix(s.Text(), lit)
}

// FindSubstring returns the byte offset of the first occurrence of lit in
// the span, or -1 if lit is not present.
func (s Span) FindSubstring(lit string) int {
	return strings.Index(s.Text(), lit)
}
