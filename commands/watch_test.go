package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchBook(t *testing.T) {

	dir := t.TempDir()
	src, out := filepath.Join(dir, "book.fb2"), filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(src, []byte(tinyBook), 0644))

	env := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- watchBook(ctx, src, &convertOptions{dst: out, nodirs: true, overwrite: true}, env, func(err error) {
			results <- err
		})
	}()

	wait := func() {
		t.Helper()
		select {
		case err := <-results:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("conversion did not happen")
		}
	}

	wait()
	data, err := os.ReadFile(filepath.Join(out, "book.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>x</p>")

	changed := strings.Replace(tinyBook, "<p>x</p>", "<p>changed</p>", 1)
	require.NoError(t, os.WriteFile(src, []byte(changed), 0644))

	wait()
	data, err = os.ReadFile(filepath.Join(out, "book.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>changed</p>")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
