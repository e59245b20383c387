package adoc

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxIncludeDepth bounds include recursion unless the caller picks
// another limit with SetMaxIncludeDepth.
const DefaultMaxIncludeDepth = 64

// An IncludeFunc resolves the target of an include:: directive to the
// source text it stands for. It is the only boundary between the
// preprocessor and the filesystem (or any other storage): see MapResolver
// and DirResolver for the common implementations.
type IncludeFunc func(attrs AttributeMap, target string) (string, error)

// ErrMaxIncludeDepth is returned by Amalgamate when the include stack
// would grow past the configured maximum depth.
var ErrMaxIncludeDepth = errors.New("maximum include depth reached")

// An IncludeError wraps an error returned by the include callback.
type IncludeError struct {
	Target string
	Err    error
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("including %q: %v", e.Target, e.Err)
}

func (e *IncludeError) Unwrap() error { return e.Err }

// An EndifMismatchError is returned when an endif:: directive names a
// target expression different from the one that opened the conditional.
type EndifMismatchError struct {
	Opened string // target expression of the opening ifdef/ifndef/ifeval
	Closed string // target expression named by the endif
}

func (e *EndifMismatchError) Error() string {
	return fmt.Sprintf("endif::%s[] does not match the open conditional %q", e.Closed, e.Opened)
}

// include is one entry of the include stack: a source text and a cursor
// marking how far it has been consumed.
type include struct {
	source string
	cursor int
}

// nextLine returns the next newline-terminated line of the source, with
// the terminator and a trailing '\r' removed. The second result is false
// once the source is exhausted: a final line without a terminator still
// counts as a line, so the expansion stays byte-identical to a textual
// paste.
func (in *include) nextLine() (string, bool) {
	if in.cursor >= len(in.source) {
		return "", false
	}
	line := in.source[in.cursor:]
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	in.cursor += len(line) + 1
	return strings.TrimSuffix(line, "\r"), true
}

// exhausted reports whether nextLine has consumed the whole source.
func (in *include) exhausted() bool { return in.cursor >= len(in.source) }

// conditional is one entry of the conditional stack. skipping records
// whether this directive is the one that turned suppression on, so the
// matching endif knows whether to turn it off again.
type conditional struct {
	targets  string
	skipping bool
}

// A Preprocessor expands include:: directives and evaluates the
// conditional directives ifdef::, ifndef::, endif:: and ifeval::,
// producing one flat amalgamated source. All other lines pass through
// verbatim, in strict top-to-bottom, depth-first order.
type Preprocessor struct {
	out          strings.Builder
	result       string
	includes     []include
	conditionals []conditional
	skipping     bool
	attrs        AttributeMap
	resolve      IncludeFunc
	maxDepth     int
}

// NewPreprocessor returns a preprocessor over source. The resolver is
// invoked lazily, once per include:: directive outside a skipped
// conditional block; attrs seeds
// the attribute map conditionals are evaluated against (it is mutated when
// the document sets or unsets attributes, and may be nil).
func NewPreprocessor(source string, resolve IncludeFunc, attrs AttributeMap) *Preprocessor {
	if attrs == nil {
		attrs = NewAttributeMap()
	}
	p := &Preprocessor{
		includes: []include{{source: source}},
		attrs:    attrs,
		resolve:  resolve,
		maxDepth: DefaultMaxIncludeDepth,
	}
	p.out.Grow(len(source))
	return p
}

// SetMaxIncludeDepth changes the include recursion bound.
func (p *Preprocessor) SetMaxIncludeDepth(n int) { p.maxDepth = n }

// Attributes returns the attribute map, reflecting any :name: lines
// processed so far.
func (p *Preprocessor) Attributes() AttributeMap { return p.attrs }

// Result returns the amalgamated source built by Amalgamate.
func (p *Preprocessor) Result() string { return p.result }

// Amalgamate runs the per-line loop until the include stack is empty. On
// success the amalgamated source, with one trailing newline stripped, is
// available from Result.
func (p *Preprocessor) Amalgamate() error {
	for len(p.includes) > 0 {
		depth := len(p.includes)
		line, ok := p.includes[depth-1].nextLine()
		if !ok {
			p.includes = p.includes[:depth-1]
			continue
		}

		// Document attribute lines update the map so that later
		// conditionals see them, and still pass through for the parser.
		if !p.skipping {
			if name, value, unset, ok := parseDocAttributeLine(line); ok {
				if unset {
					p.attrs.Unset(name)
				} else {
					p.attrs.Set(name, value)
				}
				p.pushLine(line)
				continue
			}
		}

		d, ok := parseDirective(line)
		if !ok {
			if !p.skipping {
				p.pushLine(line)
			}
			continue
		}

		switch d.kind {
		case directiveEndif:
			if len(p.conditionals) == 0 {
				break
			}
			frame := p.conditionals[len(p.conditionals)-1]
			p.conditionals = p.conditionals[:len(p.conditionals)-1]
			if d.targets != "" && d.targets != frame.targets {
				return &EndifMismatchError{Opened: frame.targets, Closed: d.targets}
			}
			if frame.skipping {
				p.skipping = false
			}

		case directiveInclude:
			if p.skipping {
				break
			}
			if depth >= p.maxDepth {
				return ErrMaxIncludeDepth
			}
			source, err := p.resolve(p.attrs, d.targets)
			if err != nil {
				return &IncludeError{Target: d.targets, Err: err}
			}
			// Tail call: a parent on its last line is popped first, so the
			// include replaces it instead of deepening the stack.
			if top := &p.includes[len(p.includes)-1]; top.exhausted() {
				p.includes = p.includes[:len(p.includes)-1]
			}
			p.includes = append(p.includes, include{source: source})

		case directiveIfdef, directiveIfndef:
			active := targetsActive(d.targets, p.attrs)
			if d.kind == directiveIfndef {
				active = !active
			}
			if d.bracket != "" {
				// Inline form: the bracket text replaces the whole
				// conditional block.
				if !p.skipping && active {
					p.pushLine(d.bracket)
				}
				break
			}
			p.pushConditional(d.targets, !active)

		case directiveIfeval:
			p.pushConditional(d.targets, !evalCondition(d.bracket, p.attrs))
		}
	}

	p.result = strings.TrimSuffix(p.out.String(), "\n")
	return nil
}

// pushConditional enters a conditional block that suppresses output when
// skip is set, remembering whether it is the frame that started skipping.
func (p *Preprocessor) pushConditional(targets string, skip bool) {
	p.conditionals = append(p.conditionals, conditional{
		targets:  targets,
		skipping: !p.skipping && skip,
	})
	p.skipping = p.skipping || skip
}

func (p *Preprocessor) pushLine(line string) {
	p.out.WriteString(line)
	p.out.WriteByte('\n')
}

// Amalgamate is the one-shot form of the Preprocessor API.
func Amalgamate(source string, resolve IncludeFunc, attrs AttributeMap) (string, error) {
	p := NewPreprocessor(source, resolve, attrs)
	if err := p.Amalgamate(); err != nil {
		return "", err
	}
	return p.Result(), nil
}

// targetsActive evaluates the target expression of an ifdef/ifndef
// directive. A '+' joins conjuncts (every part must be set), a ','
// alternatives (any part may be set); whichever operator occurs first,
// scanning left to right, decides. Without an operator the whole string
// is looked up as one attribute name.
func targetsActive(targets string, attrs AttributeMap) bool {
	op := strings.IndexAny(targets, "+,")
	if op == -1 {
		return attrs.Contains(targets)
	}
	sep := targets[op]
	for _, part := range strings.Split(targets, string(sep)) {
		switch {
		case sep == '+' && !attrs.Contains(part):
			return false
		case sep == ',' && attrs.Contains(part):
			return true
		}
	}
	return sep == '+'
}

type directiveKind int

const (
	directiveInclude directiveKind = iota
	directiveIfdef
	directiveIfndef
	directiveEndif
	directiveIfeval
)

// directive is a recognised preprocessor line: the target text between the
// :: and the opening bracket, plus the bracket body.
type directive struct {
	kind    directiveKind
	targets string
	bracket string
}

var directivePrefixes = []struct {
	prefix      string
	kind        directiveKind
	emptyTarget bool
}{
	{"include::", directiveInclude, false},
	{"ifdef::", directiveIfdef, false},
	{"ifndef::", directiveIfndef, false},
	{"endif::", directiveEndif, true},
	{"ifeval::", directiveIfeval, true},
}

// parseDirective recognises preprocessor directives. Anything that does
// not match completely, including directive-looking lines with a missing
// or unterminated bracket, is reported as not-a-directive and falls
// through to verbatim emission. A line starting with '[' is never a
// directive.
func parseDirective(line string) (directive, bool) {
	if strings.HasPrefix(line, "[") {
		return directive{}, false
	}
	for _, p := range directivePrefixes {
		body, found := strings.CutPrefix(line, p.prefix)
		if !found {
			continue
		}
		open := strings.IndexByte(body, '[')
		if open == -1 || (open == 0 && !p.emptyTarget) {
			return directive{}, false
		}
		end := strings.IndexByte(body[open:], ']')
		if end == -1 {
			return directive{}, false
		}
		// Trailing text after the bracket is ignored.
		return directive{
			kind:    p.kind,
			targets: body[:open],
			bracket: body[open+1 : open+end],
		}, true
	}
	return directive{}, false
}

// parseDocAttributeLine recognises document attribute lines of the form
// ":name: value", ":!name:" and ":name!:". Recognition is deliberately
// stricter than the in-document grammar: the name must be a single word,
// and a value must be separated from the closing colon by whitespace, so
// ordinary prose starting with a colon is left alone.
func parseDocAttributeLine(line string) (name, value string, unset, ok bool) {
	rest, found := strings.CutPrefix(line, ":")
	if !found {
		return "", "", false, false
	}
	end := strings.IndexByte(rest, ':')
	if end <= 0 {
		return "", "", false, false
	}
	name, rest = rest[:end], rest[end+1:]

	if n, found := strings.CutPrefix(name, "!"); found {
		name, unset = n, true
	}
	if n, found := strings.CutSuffix(name, "!"); found {
		name, unset = n, true
	}
	if !isAttributeName(name) {
		return "", "", false, false
	}

	switch {
	case rest == "":
	case rest[0] == ' ' || rest[0] == '\t':
		value = strings.TrimSpace(rest)
	default:
		return "", "", false, false
	}
	return name, value, unset, true
}

func isAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '_':
		case (c == '-') && i > 0:
		default:
			return false
		}
	}
	return true
}
