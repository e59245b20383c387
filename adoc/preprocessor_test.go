package adoc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noInclude fails the test when a fixture unexpectedly uses include::.
func noInclude(t *testing.T) IncludeFunc {
	return func(_ AttributeMap, target string) (string, error) {
		t.Fatalf("unexpected include of %q", target)
		return "", nil
	}
}

func amalgamate(t *testing.T, source string, resolve IncludeFunc, attrs AttributeMap) string {
	t.Helper()
	out, err := Amalgamate(source, resolve, attrs)
	require.NoError(t, err)
	return out
}

func TestAmalgamateIdentity(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "plain text",
			source: "Demo\n================\n\n:some:\n:random:\n:attributes:\n",
			want:   "Demo\n================\n\n:some:\n:random:\n:attributes:",
		},
		{
			name:   "no trailing newline",
			source: "one\ntwo",
			want:   "one\ntwo",
		},
		{
			name:   "empty",
			source: "",
			want:   "",
		},
		{
			name:   "crlf line endings",
			source: "one\r\ntwo\r\n",
			want:   "one\ntwo",
		},
		{
			name:   "bracket lines are never directives",
			source: "[include::a[]]\n[ifdef::foo[]]\n",
			want:   "[include::a[]]\n[ifdef::foo[]]",
		},
		{
			name:   "malformed directives fall through",
			source: "include::no-bracket\nifdef::\nendif:\n",
			want:   "include::no-bracket\nifdef::\nendif:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amalgamate(t, tt.source, noInclude(t), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmalgamateInclude(t *testing.T) {
	files := map[string]string{
		"foo.adoc":          ":neeeeerd:",
		"bar.adoc":          ":neeeeeeeeeerd:\n\n",
		"unsafe-secrets.rs": "unsafe {\n    *std::ptr::null()\n}\n",
		"empty":             "",
	}
	source := `Asciidoctor Demo
================
include::foo.adoc[]

include::bar.adoc[]

include::unsafe-secrets.rs[]

include::empty[]
`
	want := "Asciidoctor Demo\n" +
		"================\n" +
		":neeeeerd:\n" +
		"\n" +
		":neeeeeeeeeerd:\n" +
		"\n" +
		"\n" +
		"unsafe {\n" +
		"    *std::ptr::null()\n" +
		"}\n"
	got := amalgamate(t, source, MapResolver(files), nil)
	assert.Equal(t, want, got)
}

func TestAmalgamateRecursiveInclude(t *testing.T) {
	files := map[string]string{
		"foo.adoc": "include::bar.adoc[]",
		"bar.adoc": "bar\ninclude::baz.adoc[]\nbar\n",
		"baz.adoc": "baz",
	}
	got := amalgamate(t, "include::foo.adoc[]", MapResolver(files), nil)
	assert.Equal(t, "bar\nbaz\nbar", got)
}

func TestAmalgamateIncludeChain(t *testing.T) {
	files := map[string]string{
		"a": "x\ninclude::b[]\ny\n",
		"b": "z",
	}
	got := amalgamate(t, "include::a[]", MapResolver(files), nil)
	assert.Equal(t, "x\nz\ny", got)
}

func TestAmalgamateIncludeDepth(t *testing.T) {
	// Every expansion leaves the parent unfinished, so the stack grows
	// until the bound trips. The resolver counts its calls to prove the
	// recursion stayed within the limit.
	calls := 0
	recurse := func(_ AttributeMap, target string) (string, error) {
		calls++
		return "include::again[]\ntail\n", nil
	}

	p := NewPreprocessor("include::start[]\ntail\n", recurse, nil)
	err := p.Amalgamate()
	require.ErrorIs(t, err, ErrMaxIncludeDepth)
	assert.LessOrEqual(t, calls, DefaultMaxIncludeDepth)

	p = NewPreprocessor("include::start[]\ntail\n", recurse, nil)
	p.SetMaxIncludeDepth(4)
	calls = 0
	err = p.Amalgamate()
	require.ErrorIs(t, err, ErrMaxIncludeDepth)
	assert.LessOrEqual(t, calls, 4)
}

func TestAmalgamateIncludeError(t *testing.T) {
	sentinel := errors.New("not found")
	failing := func(_ AttributeMap, target string) (string, error) {
		return "", fmt.Errorf("opening %s: %w", target, sentinel)
	}
	_, err := Amalgamate("include::missing.adoc[]", failing, nil)
	require.Error(t, err)

	var ie *IncludeError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "missing.adoc", ie.Target)
	assert.ErrorIs(t, err, sentinel)
}

func TestAmalgamateSkippedInclude(t *testing.T) {
	// An include inside a skipped conditional must not invoke the
	// resolver, and the directive line itself is never emitted.
	source := "ifdef::nope[]\ninclude::never.adoc[]\nendif::[]\nafter\n"
	got := amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "after", got)
}

func TestIfdefInline(t *testing.T) {
	source := "ifdef::foo[This is an inline ifdef]"
	got := amalgamate(t, source, noInclude(t), AttributeMap{"foo": ""})
	assert.Equal(t, "This is an inline ifdef", got)

	got = amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "", got)
}

func TestIfndefInline(t *testing.T) {
	source := "ifndef::foo[This is an inline ifndef]"
	got := amalgamate(t, source, noInclude(t), AttributeMap{"foo": ""})
	assert.Equal(t, "", got)

	got = amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "This is an inline ifndef", got)
}

func TestIfdefBlock(t *testing.T) {
	source := "flip the table\nifdef::flip[]\n(table flipped)\nendif::[]\nflip the table\n"

	got := amalgamate(t, source, noInclude(t), AttributeMap{"flip": ""})
	assert.Equal(t, "flip the table\n(table flipped)\nflip the table", got)

	got = amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "flip the table\nflip the table", got)
}

func TestIfndefBlock(t *testing.T) {
	source := "unflip the table\nifndef::unflip[]\n(table unflipped)\nendif::[]\nunflip the table\n"

	got := amalgamate(t, source, noInclude(t), AttributeMap{"unflip": ""})
	assert.Equal(t, "unflip the table\nunflip the table", got)

	got = amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "unflip the table\n(table unflipped)\nunflip the table", got)
}

func TestIfdefAnd(t *testing.T) {
	source := "Flip Flappers is a\nifdef::flip+flap[]\nnice\nendif::[]\nshow\n"

	got := amalgamate(t, source, noInclude(t), AttributeMap{"flip": ""})
	assert.Equal(t, "Flip Flappers is a\nshow", got)

	got = amalgamate(t, source, noInclude(t), AttributeMap{"flip": "", "flap": ""})
	assert.Equal(t, "Flip Flappers is a\nnice\nshow", got)
}

func TestIfdefOr(t *testing.T) {
	source := "Wonder\nifdef::flip,flap[]\nEgg\nendif::[]\nPriority\n"

	got := amalgamate(t, source, noInclude(t), nil)
	assert.Equal(t, "Wonder\nPriority", got)

	got = amalgamate(t, source, noInclude(t), AttributeMap{"flip": ""})
	assert.Equal(t, "Wonder\nEgg\nPriority", got)

	got = amalgamate(t, source, noInclude(t), AttributeMap{"flip": "", "flap": ""})
	assert.Equal(t, "Wonder\nEgg\nPriority", got)
}

func TestIfdefNested(t *testing.T) {
	source := "ifdef::flip[]\nFlip\nifdef::flap[]\nFlap\nendif::[]\nFlop\nendif::[]\n"

	tests := []struct {
		name  string
		attrs AttributeMap
		want  string
	}{
		{name: "neither", attrs: nil, want: ""},
		{name: "outer only", attrs: AttributeMap{"flip": ""}, want: "Flip\nFlop"},
		{name: "inner only", attrs: AttributeMap{"flap": ""}, want: ""},
		{name: "both", attrs: AttributeMap{"flip": "", "flap": ""}, want: "Flip\nFlap\nFlop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amalgamate(t, source, noInclude(t), tt.attrs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMixedOperatorsFirstWins(t *testing.T) {
	// The first operator scanning left to right decides: "a+b,c" is a
	// conjunction of "a", "b,c".
	source := "ifdef::a+b,c[yes]"

	got := amalgamate(t, source, noInclude(t), AttributeMap{"a": "", "b,c": ""})
	assert.Equal(t, "yes", got)

	got = amalgamate(t, source, noInclude(t), AttributeMap{"a": "", "b": "", "c": ""})
	assert.Equal(t, "", got)
}

func TestDocAttributeLines(t *testing.T) {
	t.Run("set feeds later ifdef", func(t *testing.T) {
		source := ":feature: on\nifdef::feature[feature is on]\n"
		got := amalgamate(t, source, noInclude(t), nil)
		assert.Equal(t, ":feature: on\nfeature is on", got)
	})

	t.Run("unset hides later ifdef", func(t *testing.T) {
		source := ":!feature:\nifdef::feature[feature is on]\n"
		got := amalgamate(t, source, noInclude(t), AttributeMap{"feature": ""})
		assert.Equal(t, ":!feature:", got)
	})

	t.Run("trailing bang unsets too", func(t *testing.T) {
		source := ":feature!:\nifndef::feature[feature is off]\n"
		got := amalgamate(t, source, noInclude(t), AttributeMap{"feature": ""})
		assert.Equal(t, ":feature!:\nfeature is off", got)
	})

	t.Run("value is recorded", func(t *testing.T) {
		p := NewPreprocessor(":version: 1.2.3\n", noInclude(t), nil)
		require.NoError(t, p.Amalgamate())
		v, ok := p.Attributes().Get("version")
		assert.True(t, ok)
		assert.Equal(t, "1.2.3", v)
	})

	t.Run("skipped attribute lines do not touch the map", func(t *testing.T) {
		source := "ifdef::nope[]\n:feature: on\nendif::[]\nifdef::feature[leaked]\n"
		got := amalgamate(t, source, noInclude(t), nil)
		assert.Equal(t, "", got)
	})

	t.Run("prose with colons is left alone", func(t *testing.T) {
		source := ": this is not an attribute :\n"
		got := amalgamate(t, source, noInclude(t), nil)
		assert.Equal(t, ": this is not an attribute :", got)
	})
}

func TestEndifTargets(t *testing.T) {
	t.Run("matching target", func(t *testing.T) {
		source := "ifdef::flip[]\nFlip\nendif::flip[]\nafter\n"
		got := amalgamate(t, source, noInclude(t), AttributeMap{"flip": ""})
		assert.Equal(t, "Flip\nafter", got)
	})

	t.Run("mismatched target", func(t *testing.T) {
		source := "ifdef::flip[]\nendif::flop[]\n"
		_, err := Amalgamate(source, nil, AttributeMap{"flip": ""})
		var mismatch *EndifMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "flip", mismatch.Opened)
		assert.Equal(t, "flop", mismatch.Closed)
	})

	t.Run("unbalanced endif is a no-op", func(t *testing.T) {
		source := "endif::[]\nafter\n"
		got := amalgamate(t, source, noInclude(t), nil)
		assert.Equal(t, "after", got)
	})
}

func TestIfeval(t *testing.T) {
	tests := []struct {
		name   string
		source string
		attrs  AttributeMap
		want   string
	}{
		{
			name:   "true literal comparison",
			source: "ifeval::[1 < 2]\nkept\nendif::[]\n",
			want:   "kept",
		},
		{
			name:   "false literal comparison",
			source: "ifeval::[1 > 2]\ndropped\nendif::[]\n",
			want:   "",
		},
		{
			name:   "attribute comparison",
			source: "ifeval::[version == \"2\"]\nkept\nendif::[]\n",
			attrs:  AttributeMap{"version": "2"},
			want:   "kept",
		},
		{
			name:   "broken expression keeps the block",
			source: "ifeval::[}{]\nkept\nendif::[]\n",
			want:   "kept",
		},
		{
			name:   "nested under a skipping ifdef stays skipped",
			source: "ifdef::nope[]\nifeval::[1 < 2]\ndropped\nendif::[]\nendif::[]\n",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amalgamate(t, tt.source, noInclude(t), tt.attrs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoDirectiveLinesInOutput(t *testing.T) {
	files := map[string]string{"a.adoc": "included\nifdef::x[]\nhidden\nendif::[]\n"}
	source := "start\ninclude::a.adoc[]\nifndef::x[shown]\nifeval::[1 < 2]\nkept\nendif::[]\n[a]\nend\n"

	got := amalgamate(t, source, MapResolver(files), nil)

	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "[") {
			continue
		}
		for _, prefix := range []string{"include::", "ifdef::", "ifndef::", "endif::", "ifeval::"} {
			assert.False(t, strings.HasPrefix(line, prefix), "directive line %q leaked into the output", line)
		}
	}
}

func TestAttributesArePassedToResolver(t *testing.T) {
	resolve := func(attrs AttributeMap, target string) (string, error) {
		v, _ := attrs.Get("flavour")
		return target + " with " + v, nil
	}
	got := amalgamate(t, ":flavour: cheese\ninclude::toast[]\n", resolve, nil)
	assert.Equal(t, ":flavour: cheese\ntoast with cheese", got)
}
