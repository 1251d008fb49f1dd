package commands

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fb2html/config"
	"fb2html/state"
)

func newEnv(t *testing.T) *state.LocalEnv {
	t.Helper()
	env := state.NewLocalEnv()
	cfg, err := config.BuildConfig()
	require.NoError(t, err)
	env.Cfg = cfg
	return env
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		fname := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(fname), 0755))
		require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
	}
}

func writeZip(t *testing.T, fname string, files map[string]string) {
	t.Helper()
	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func assertExists(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := os.Stat(name)
		assert.NoError(t, err, name)
	}
}

func TestConvertSource(t *testing.T) {

	dir := t.TempDir()
	src, out := filepath.Join(dir, "src"), filepath.Join(dir, "out")

	writeTree(t, src, map[string]string{
		"one.fb2":     tinyBook,
		"sub/two.fb2": tinyBook,
		"bad.fb2":     "not a book",
		"notes.txt":   "ignored",
	})
	writeZip(t, filepath.Join(src, "arc.zip"), map[string]string{
		"inner/three.fb2": tinyBook,
		"other/four.fb2":  tinyBook,
	})

	env := newEnv(t)
	opts := &convertOptions{dst: out}

	require.NoError(t, convertSource(src, opts, env))
	assertExists(t,
		filepath.Join(out, "one.html"),
		filepath.Join(out, "sub", "two.html"),
		filepath.Join(out, "inner", "three.html"),
		filepath.Join(out, "other", "four.html"),
		filepath.Join(out, "stylesheet.css"),
	)

	// path inside archive selects part of it
	single := filepath.Join(dir, "single")
	opts = &convertOptions{dst: single, nodirs: true}
	require.NoError(t, convertSource(filepath.Join(src, "arc.zip", "inner"), opts, env))
	assertExists(t, filepath.Join(single, "three.html"))
	_, err := os.Stat(filepath.Join(single, "four.html"))
	assert.True(t, os.IsNotExist(err))

	// single book
	require.NoError(t, convertSource(filepath.Join(src, "one.fb2"), opts, env))
	assertExists(t, filepath.Join(single, "one.html"))

	assert.Error(t, convertSource(filepath.Join(src, "absent.fb2"), opts, env))
	assert.Error(t, convertSource(filepath.Join(src, "notes.txt"), opts, env))
	assert.Error(t, convertSource(filepath.Join(src, "sub", "two.fb2", "tail"), opts, env))
}

func TestProcessBookOverwrite(t *testing.T) {

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"book.fb2": tinyBook})

	env := newEnv(t)
	opts := &convertOptions{dst: filepath.Join(dir, "out")}

	require.NoError(t, processFile(filepath.Join(dir, "book.fb2"), "book.fb2", encUnknown, opts, env))
	assert.Error(t, processFile(filepath.Join(dir, "book.fb2"), "book.fb2", encUnknown, opts, env))

	opts.overwrite = true
	assert.NoError(t, processFile(filepath.Join(dir, "book.fb2"), "book.fb2", encUnknown, opts, env))
}
