package adoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestMapResolver(t *testing.T) {
	resolve := MapResolver(map[string]string{"a.adoc": "alpha"})

	src, err := resolve(nil, "a.adoc")
	require.NoError(t, err)
	assert.Equal(t, "alpha", src)

	_, err = resolve(nil, "missing.adoc")
	assert.Error(t, err)
}

func TestDirResolver(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"intro.adoc":           "intro\n",
		"chapters/01-one.adoc": "one\n",
		"chapters/02-two.adoc": "two", // no trailing newline
		"chapters/notes.txt":   "not a chapter\n",
	})
	resolve := DirResolver(root)

	t.Run("plain file", func(t *testing.T) {
		src, err := resolve(nil, "intro.adoc")
		require.NoError(t, err)
		assert.Equal(t, "intro\n", src)
	})

	t.Run("nested file", func(t *testing.T) {
		src, err := resolve(nil, "chapters/01-one.adoc")
		require.NoError(t, err)
		assert.Equal(t, "one\n", src)
	})

	t.Run("glob concatenates in lexical order", func(t *testing.T) {
		src, err := resolve(nil, "chapters/*.adoc")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", src)
	})

	t.Run("doublestar glob", func(t *testing.T) {
		src, err := resolve(nil, "**/*.adoc")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nintro\n", src)
	})

	t.Run("glob with no matches fails", func(t *testing.T) {
		_, err := resolve(nil, "appendix/*.adoc")
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := resolve(nil, "missing.adoc")
		assert.Error(t, err)
	})

	t.Run("escaping the root fails", func(t *testing.T) {
		_, err := resolve(nil, "../outside.adoc")
		assert.Error(t, err)

		_, err = resolve(nil, "chapters/../../outside.adoc")
		assert.Error(t, err)
	})
}

func TestDirResolverWithPreprocessor(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"index.adoc":           "= Book\n\ninclude::chapters/*.adoc[]\n",
		"chapters/01-one.adoc": "first\n",
		"chapters/02-two.adoc": "second\n",
	})

	source, err := os.ReadFile(filepath.Join(root, "index.adoc"))
	require.NoError(t, err)

	got, err := Amalgamate(string(source), DirResolver(root), nil)
	require.NoError(t, err)
	assert.Equal(t, "= Book\n\nfirst\nsecond", got)
}
