package adoc

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MapResolver returns an IncludeFunc backed by an in-memory map from
// include target to source text. It is the resolver to use in tests and
// for documents embedded in a binary; resolving a target that is not in
// the map is an error.
func MapResolver(files map[string]string) IncludeFunc {
	return func(_ AttributeMap, target string) (string, error) {
		source, ok := files[target]
		if !ok {
			return "", fmt.Errorf("no include source for %q", target)
		}
		return source, nil
	}
}

// DirResolver returns an IncludeFunc that reads include targets from the
// filesystem, relative to root. Targets are slash-separated and may not
// escape the root.
//
// A target containing glob metacharacters is expanded against the root
// (doublestar patterns, so chapters/**/*.adoc works) and the matching
// files are concatenated in lexical order, each source terminated by a
// newline. A pattern matching nothing is an error, like a missing file.
func DirResolver(root string) IncludeFunc {
	return func(_ AttributeMap, target string) (string, error) {
		clean := path.Clean(target)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return "", fmt.Errorf("include target %q escapes the include root", target)
		}
		fsys := os.DirFS(root)

		if strings.ContainsAny(clean, "*?[{") {
			matches, err := doublestar.Glob(fsys, clean)
			if err != nil {
				return "", fmt.Errorf("include pattern %q: %w", target, err)
			}
			if len(matches) == 0 {
				return "", fmt.Errorf("include pattern %q matched no files", target)
			}
			sort.Strings(matches)
			var b strings.Builder
			for _, match := range matches {
				data, err := fs.ReadFile(fsys, match)
				if err != nil {
					return "", fmt.Errorf("reading include %q: %w", match, err)
				}
				b.Write(data)
				if len(data) > 0 && data[len(data)-1] != '\n' {
					b.WriteByte('\n')
				}
			}
			return b.String(), nil
		}

		data, err := fs.ReadFile(fsys, clean)
		if err != nil {
			return "", fmt.Errorf("reading include %q: %w", target, err)
		}
		return string(data), nil
	}
}
