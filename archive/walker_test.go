package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func makeArchive(t *testing.T, entries ...*zip.FileHeader) string {
	t.Helper()

	fname := filepath.Join(t.TempDir(), "books.zip")
	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, h := range entries {
		out, err := w.CreateHeader(h)
		require.NoError(t, err)
		_, err = out.Write([]byte(h.Name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return fname
}

func TestWalk(t *testing.T) {

	fname := makeArchive(t,
		&zip.FileHeader{Name: "a/one.fb2"},
		&zip.FileHeader{Name: "a/b/two.fb2"},
		&zip.FileHeader{Name: "c/three.fb2"},
	)

	var names []string
	err := Walk(fname, "a/", nil, func(archive, name string, f *zip.File) error {
		assert.Equal(t, fname, archive)
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.fb2", "a/b/two.fb2"}, names)

	names = nil
	require.NoError(t, Walk(fname, "", nil, func(_, name string, _ *zip.File) error {
		names = append(names, name)
		return nil
	}))
	assert.Len(t, names, 3)

	assert.Error(t, Walk(filepath.Join(t.TempDir(), "absent.zip"), "", nil, nil))
}

func TestDecodeName(t *testing.T) {

	// "книга" in cp866
	raw := string([]byte{0xaa, 0xad, 0xa8, 0xa3, 0xa0})

	f := &zip.File{FileHeader: zip.FileHeader{Name: raw, NonUTF8: true}}
	assert.Equal(t, "книга", DecodeName(f, charmap.CodePage866))
	assert.Equal(t, raw, DecodeName(f, nil))

	f.NonUTF8 = false
	assert.Equal(t, raw, DecodeName(f, charmap.CodePage866))
}
