package adoc

import (
	"fmt"
	"strings"
)

// An ErrorFrame is one entry of a parse error's context stack. It points at
// the input position a parser gave up at, together with a message saying
// what was being parsed there.
type ErrorFrame struct {
	At  Span
	Msg string
}

// A ParseError is the first-error report returned when the grammar did not
// match. The innermost frame comes first; outer frames record which
// constructs were being parsed when the failure happened.
type ParseError struct {
	Frames []ErrorFrame
}

// errorf builds a new single-frame parse error located at the start of at.
func errorf(at Span, format string, args ...any) *ParseError {
	return &ParseError{Frames: []ErrorFrame{{At: at, Msg: fmt.Sprintf(format, args...)}}}
}

// in appends a context frame to the error and returns it, so parsers can
// annotate failures bubbling up from their sub-parsers.
func (e *ParseError) in(at Span, msg string) *ParseError {
	e.Frames = append(e.Frames, ErrorFrame{At: at, Msg: msg})
	return e
}

// Line and column of the innermost failure, for callers that want to build
// their own diagnostics.
func (e *ParseError) Position() (line, column int) {
	if len(e.Frames) == 0 {
		return 0, 0
	}
	return e.Frames[0].At.Line(), e.Frames[0].At.Column()
}

// Error renders each frame as the offending source line with a caret under
// the failing column, followed by the frame's message.
func (e *ParseError) Error() string {
	if len(e.Frames) == 0 {
		return "parse error"
	}
	var b strings.Builder
	b.WriteString("parse error:\n")
	for _, f := range e.Frames {
		line, col := f.At.Line(), f.At.Column()
		fmt.Fprintf(&b, "%4d | %s\n", line, sourceLine(f.At.src, line))
		fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
		fmt.Fprintf(&b, "%s\n", f.Msg)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// sourceLine extracts the n-th (1-based) line of src, without its newline.
func sourceLine(src string, n int) string {
	for i := 1; ; i++ {
		end := strings.IndexByte(src, '\n')
		if end == -1 {
			return src
		}
		if i == n {
			return src[:end]
		}
		src = src[end+1:]
	}
}
