package adoc

import (
	"strings"
	"unicode"
)

// The parsers in this package all follow the same contract: they take a
// span, and return the unconsumed suffix together with the parsed value,
// or a ParseError locating the failure. Alternatives fail locally and the
// caller backtracks by reusing the span it passed in.

// literal consumes lit from the front of i.
func literal(i Span, lit string) (Span, *ParseError) {
	if !i.HasPrefix(lit) {
		return i, errorf(i, "expected %q", lit)
	}
	return i.From(len(lit)), nil
}

// takeUntil consumes up to, but not including, the first occurrence of
// lit, failing when lit is absent.
func takeUntil(i Span, lit string) (rest, value Span, err *ParseError) {
	idx := i.FindSubstring(lit)
	if idx == -1 {
		return i, i, errorf(i, "expected %q later in the input", lit)
	}
	return i.From(idx), i.To(idx), nil
}

// takeWhile consumes the longest (possibly empty) prefix of runes
// matching pred.
func takeWhile(i Span, pred func(rune) bool) (rest, value Span) {
	idx := i.Position(func(r rune) bool { return !pred(r) })
	if idx == -1 {
		idx = i.Len()
	}
	return i.From(idx), i.To(idx)
}

// takeWhile1 is takeWhile requiring at least one matching rune. what
// names the expected input for the error message.
func takeWhile1(i Span, pred func(rune) bool, what string) (rest, value Span, err *ParseError) {
	rest, value = takeWhile(i, pred)
	if value.IsEmpty() {
		return i, value, errorf(i, "expected %s", what)
	}
	return rest, value, nil
}

// isHorizontalSpace reports whitespace other than the line terminator.
func isHorizontalSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}

func isASCIIAlphanumeric(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}

func isASCIIDigit(r rune) bool { return '0' <= r && r <= '9' }

// ws consumes zero or more horizontal whitespace runes.
func ws(i Span) Span {
	rest, _ := takeWhile(i, isHorizontalSpace)
	return rest
}

// ws1 consumes one or more horizontal whitespace runes.
func ws1(i Span) (Span, *ParseError) {
	rest, _, err := takeWhile1(i, isHorizontalSpace, "whitespace")
	return rest, err
}

// wsnl consumes zero or more whitespace runes of any kind, newlines
// included.
func wsnl(i Span) Span {
	rest, _ := takeWhile(i, unicode.IsSpace)
	return rest
}

// wsWithNL consumes horizontal whitespace up to and including one line
// terminator. End of input terminates a line as well as '\n' does.
func wsWithNL(i Span) (Span, *ParseError) {
	rest := ws(i)
	if rest.IsEmpty() {
		return rest, nil
	}
	return literal(rest, "\n")
}

// takeLine consumes a line without its terminator: everything up to
// (exclusive) the next '\n', consuming the '\n', or the remainder of the
// input when no terminator follows. It fails only on empty input.
func takeLine(i Span) (rest, value Span, err *ParseError) {
	if i.IsEmpty() {
		return i, i, errorf(i, "expected a line")
	}
	idx := strings.IndexByte(i.Text(), '\n')
	if idx == -1 {
		return i.From(i.Len()), i, nil
	}
	return i.From(idx + 1), i.To(idx), nil
}
