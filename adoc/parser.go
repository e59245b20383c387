package adoc

import (
	"strconv"
	"strings"
)

// ParseDocument parses a complete amalgamated source, wrapped in a span by
// NewSpan. It succeeds only when the whole input is consumed; trailing
// whitespace is allowed.
func ParseDocument(i Span) (Document, error) {
	doc, err := parseDocument(i)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ParseDocHeader parses a "= Title" line followed by any number of
// document attribute lines.
func ParseDocHeader(i Span) (Span, DocumentHeader, error) {
	rest, h, err := parseDocHeader(i)
	if err != nil {
		return i, DocumentHeader{}, err
	}
	return rest, h, nil
}

// ParseDocAttribute parses one ":name: value" line, including the
// ":!name:" and ":name!:" unset forms.
func ParseDocAttribute(i Span) (Span, DocAttribute, error) {
	rest, a, err := parseDocAttribute(i)
	if err != nil {
		return i, DocAttribute{}, err
	}
	return rest, a, nil
}

// ParseAttributeList parses a bracketed attribute list, "[a,b=2]".
func ParseAttributeList(i Span) (Span, AttributeList, error) {
	rest, attrs, err := parseAttributeList(i)
	if err != nil {
		return i, nil, err
	}
	return rest, attrs, nil
}

// ParseAttributedBlock parses one block: leading blank lines, an optional
// attribute-list line, the block body, and trailing callouts.
func ParseAttributedBlock(i Span) (Span, Block, error) {
	rest, b, err := parseAttributedBlock(i)
	if err != nil {
		return i, Block{}, err
	}
	return rest, b, nil
}

// ParseSectionTitle parses a heading line, "=" repeated one to six times
// followed by the title text.
func ParseSectionTitle(i Span) (Span, SectionTitle, error) {
	rest, t, err := parseSectionTitle(i)
	if err != nil {
		return i, SectionTitle{}, err
	}
	return rest, t, nil
}

// ParseParagraph parses one or more non-empty lines terminated by a blank
// line or the end of input, one span per physical line.
func ParseParagraph(i Span) (Span, []Span, error) {
	rest, lines, err := parseParagraph(i)
	if err != nil {
		return i, nil, err
	}
	return rest, lines, nil
}

// ParseCallouts parses zero or more trailing callout lines, "<1> text".
func ParseCallouts(i Span) (Span, []Callout, error) {
	rest, callouts, err := parseCallouts(i)
	if err != nil {
		return i, nil, err
	}
	return rest, callouts, nil
}

func parseDocument(i Span) (Document, *ParseError) {
	rest := i

	var header *DocumentHeader
	if r, h, err := parseDocHeader(rest); err == nil {
		header = &h
		rest = r
	}

	var blocks []Block
	var blockErr *ParseError
	for {
		r, b, err := parseAttributedBlock(rest)
		if err != nil {
			blockErr = err
			break
		}
		blocks = append(blocks, b)
		rest = r
	}

	rest = wsnl(rest)
	if !rest.IsEmpty() {
		// Report why the last block attempt gave up rather than a bare
		// "leftover input".
		if blockErr != nil {
			return Document{}, blockErr.in(rest, "in document")
		}
		return Document{}, errorf(rest, "unexpected content")
	}
	return Document{Header: header, Content: blocks}, nil
}

func parseDocHeader(i Span) (Span, DocumentHeader, *ParseError) {
	rest, err := literal(i, "= ")
	if err != nil {
		return i, DocumentHeader{}, err.in(i, "in document header")
	}
	rest, title, err := takeLine(rest)
	if err != nil {
		return i, DocumentHeader{}, err.in(i, "in document header")
	}

	var attrs []DocAttribute
	for {
		r, attr, err := parseDocAttribute(rest)
		if err != nil {
			break
		}
		attrs = append(attrs, attr)
		rest = r
	}
	return rest, DocumentHeader{Title: title, Attributes: attrs}, nil
}

func parseDocAttribute(i Span) (Span, DocAttribute, *ParseError) {
	rest, err := literal(i, ":")
	if err != nil {
		return i, DocAttribute{}, err.in(i, "in document attribute")
	}
	unset := false
	if r, err := literal(rest, "!"); err == nil {
		unset = true
		rest = r
	}
	rest, id, err := takeWhile1(rest, func(r rune) bool { return r != '\n' && r != ':' }, "attribute name")
	if err != nil {
		return i, DocAttribute{}, err.in(i, "in document attribute")
	}
	rest, err = literal(rest, ":")
	if err != nil {
		return i, DocAttribute{}, err.in(i, "in document attribute")
	}

	// The value is whatever follows the first run of whitespace, up to the
	// end of the line, trailing spaces included.
	var value []Span
	if r, err := ws1(rest); err == nil {
		idx := strings.IndexByte(r.Text(), '\n')
		if idx == -1 {
			idx = r.Len()
		}
		value = append(value, r.To(idx))
		rest = r.From(idx)
	}
	rest, err = wsWithNL(rest)
	if err != nil {
		return i, DocAttribute{}, err.in(i, "in document attribute")
	}

	// A trailing '!' on the id is the other spelling of unset.
	if strings.HasSuffix(id.Text(), "!") {
		id = id.To(id.Len() - 1)
		unset = true
	}
	return rest, DocAttribute{ID: id, Unset: unset, Value: value}, nil
}

// parseAttribute parses one entry of an attribute list: a name, optionally
// followed by "= value". The value runs up to the next ',', ']' or line
// end and keeps interior and trailing spaces.
func parseAttribute(i Span) (rest, name, value Span, hasValue bool, err *ParseError) {
	rest, _, err = takeWhile1(i, isASCIIAlphanumeric, "attribute name")
	if err != nil {
		return i, name, value, false, err
	}
	rest, _ = takeWhile(rest, func(r rune) bool {
		return isASCIIAlphanumeric(r) || r == '-' || r == '.'
	})
	name = i.To(i.Len() - rest.Len())

	after := ws(rest)
	if r, err := literal(after, "="); err == nil {
		r = ws(r)
		r, v, err := takeWhile1(r, func(c rune) bool { return c != ',' && c != ']' && c != '\n' }, "attribute value")
		if err == nil {
			return r, name, v, true, nil
		}
	}
	return rest, name, value, false, nil
}

func parseAttributeList(i Span) (Span, AttributeList, *ParseError) {
	rest, err := literal(i, "[")
	if err != nil {
		return i, nil, err.in(i, "in attribute list")
	}

	attrs := AttributeList{}
	if r, name, value, hasValue, err := parseAttribute(rest); err == nil {
		insertAttribute(attrs, name, value, hasValue)
		rest = r
		for {
			r := ws(rest)
			r, cerr := literal(r, ",")
			if cerr != nil {
				break
			}
			r = ws(r)
			r, name, value, hasValue, err := parseAttribute(r)
			if err != nil {
				break
			}
			insertAttribute(attrs, name, value, hasValue)
			rest = r
		}
	}

	rest, err = literal(rest, "]")
	if err != nil {
		return i, nil, err.in(i, "in attribute list")
	}
	return rest, attrs, nil
}

// insertAttribute records one parsed attribute; a duplicate name keeps the
// last value.
func insertAttribute(attrs AttributeList, name, value Span, hasValue bool) {
	if hasValue {
		attrs[name.Text()] = value.Text()
	} else {
		attrs[name.Text()] = ""
	}
}

func parseAttributedBlock(i Span) (Span, Block, *ParseError) {
	rest := i

	// Skip leading blank lines.
	for {
		r, err := wsWithNL(rest)
		if err != nil || r.Offset() == rest.Offset() {
			break
		}
		rest = r
	}

	// An attribute list applies to the block only when it sits on its own
	// line; otherwise it belongs to whatever the body turns out to be.
	attrs := AttributeList{}
	if r, al, err := parseAttributeList(rest); err == nil {
		if r, err := wsWithNL(r); err == nil {
			attrs = al
			rest = r
		}
	}

	rest, context, perr := parseBlockBody(rest)
	if perr != nil {
		return i, Block{}, perr
	}
	rest, err := wsWithNL(rest)
	if err != nil {
		return i, Block{}, err.in(i, "after block")
	}

	rest, callouts, perr := parseCallouts(rest)
	if perr != nil {
		return i, Block{}, perr
	}
	return rest, Block{Context: context, Attributes: attrs, Callouts: callouts}, nil
}

func parseBlockBody(i Span) (Span, Context, *ParseError) {
	if rest, err := literal(i, "'''"); err == nil {
		return rest, ThematicBreak{}, nil
	}
	if rest, err := literal(i, ">>>"); err == nil {
		return rest, PageBreak{}, nil
	}
	if rest, err := literal(i, "```"); err == nil {
		rest, listing, err := parseFencedRest(rest)
		if err != nil {
			return i, nil, err
		}
		return rest, listing, nil
	}
	if rest, m, err := parseMacro(i); err == nil {
		return rest, BlockMacro{Macro: m}, nil
	}
	return i, nil, errorf(i, "expected a block")
}

// parseFencedRest parses the remainder of a fenced listing after its
// opening fence: a newline, the content, and the closing fence.
func parseFencedRest(i Span) (Span, Context, *ParseError) {
	rest, err := literal(i, "\n")
	if err != nil {
		return i, nil, err.in(i, "in fenced block")
	}
	rest, content, err := takeUntil(rest, "```")
	if err != nil {
		return i, nil, errorf(i, "unterminated fenced block")
	}
	rest, err = literal(rest, "```")
	if err != nil {
		return i, nil, err.in(i, "in fenced block")
	}
	return rest, Listing{Content: content}, nil
}

func parseMacro(i Span) (Span, Macro, *ParseError) {
	rest, name, err := takeWhile1(i, isASCIIAlphanumeric, "macro name")
	if err != nil {
		return i, Macro{}, err.in(i, "in block macro")
	}
	rest, err = literal(rest, "::")
	if err != nil {
		return i, Macro{}, err.in(i, "in block macro")
	}
	rest, target, err := takeWhile1(rest, func(r rune) bool { return r != '[' && r != '\n' }, "macro target")
	if err != nil {
		return i, Macro{}, err.in(i, "in block macro")
	}
	rest, attrs, err := parseAttributeList(rest)
	if err != nil {
		return i, Macro{}, err.in(i, "in block macro")
	}
	return rest, Macro{Name: name, Target: target, Attributes: attrs}, nil
}

func parseCallouts(i Span) (Span, []Callout, *ParseError) {
	var callouts []Callout
	rest := i
	for {
		r, c, err := parseCallout(rest)
		if err != nil {
			break
		}
		callouts = append(callouts, c)
		rest = r
	}
	return rest, callouts, nil
}

func parseCallout(i Span) (Span, Callout, *ParseError) {
	rest, err := literal(i, "<")
	if err != nil {
		return i, Callout{}, err.in(i, "in callout")
	}
	rest, digits, err := takeWhile1(rest, isASCIIDigit, "callout number")
	if err != nil {
		return i, Callout{}, err.in(i, "in callout")
	}
	rest, err = literal(rest, ">")
	if err != nil {
		return i, Callout{}, err.in(i, "in callout")
	}
	number, convErr := strconv.ParseUint(digits.Text(), 10, strconv.IntSize)
	if convErr != nil {
		return i, Callout{}, errorf(digits, "callout number %s out of range", digits.Text())
	}
	rest = ws(rest)
	rest, text, err := takeLine(rest)
	if err != nil {
		return i, Callout{}, err.in(i, "in callout")
	}
	return rest, Callout{Number: uint(number), Text: text}, nil
}

func parseSectionTitle(i Span) (Span, SectionTitle, *ParseError) {
	level := 0
	rest := i
	for level < 6 {
		r, err := literal(rest, "=")
		if err != nil {
			break
		}
		rest = r
		level++
	}
	if level == 0 {
		return i, SectionTitle{}, errorf(i, "expected a section title")
	}
	if rest.HasPrefix("=") {
		return i, SectionTitle{}, errorf(i, "section titles nest at most six levels deep")
	}
	rest = ws(rest)
	rest, content, err := takeLine(rest)
	if err != nil {
		return i, SectionTitle{}, err.in(i, "in section title")
	}
	return rest, SectionTitle{Level: level - 1, Content: content}, nil
}

func parseParagraph(i Span) (Span, []Span, *ParseError) {
	var lines []Span
	rest := i
	for {
		if r, err := literal(rest, "\n"); err == nil {
			rest = r
			break
		}
		if rest.IsEmpty() {
			break
		}
		r, line, err := takeLine(rest)
		if err != nil {
			return i, nil, err.in(i, "in paragraph")
		}
		lines = append(lines, line)
		rest = r
	}
	if len(lines) == 0 {
		return i, nil, errorf(i, "expected a paragraph")
	}
	return rest, lines, nil
}
