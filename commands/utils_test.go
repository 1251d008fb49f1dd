package commands

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const tinyBook = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns:l="http://www.w3.org/1999/xlink"><body><p>x</p></body></FictionBook>`

func TestDetectUTF(t *testing.T) {

	cases := []struct {
		in  []byte
		out srcEncoding
	}{
		{[]byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{[]byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{[]byte{0xEF, 0xBB, 0xBF, '<'}, encUTF8},
		{[]byte{0xFE, 0xFF, 0x00, '<'}, encUTF16BigEndian},
		{[]byte{0xFF, 0xFE, '<', 0x00}, encUTF16LittleEndian},
		{[]byte("<?xm"), encUnknown},
		{[]byte{0xEF}, encUnknown},
	}
	for i, c := range cases {
		if res := detectUTF(c.in); res != c.out {
			t.Fatalf("BAD RESULT for case %d: expected %d, got %d", i+1, c.out, res)
		}
	}
}

func TestIsBookFile(t *testing.T) {

	dir := t.TempDir()

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(tinyBook))
	require.NoError(t, err)

	files := map[string][]byte{
		"plain.fb2": []byte(tinyBook),
		"bom.fb2":   append([]byte{0xEF, 0xBB, 0xBF}, tinyBook...),
		"wide.fb2":  utf16,
		"other.fb2": []byte(`<?xml version="1.0"?><html/>`),
		"book.txt":  []byte(tinyBook),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}

	cases := []struct {
		name string
		ok   bool
		enc  srcEncoding
	}{
		{"plain.fb2", true, encUnknown},
		{"bom.fb2", true, encUTF8},
		{"wide.fb2", true, encUTF16LittleEndian},
		{"other.fb2", false, encUnknown},
		{"book.txt", false, encUnknown},
	}
	for _, c := range cases {
		ok, enc, err := isBookFile(filepath.Join(dir, c.name))
		require.NoError(t, err, c.name)
		assert.Equal(t, c.ok, ok, c.name)
		if c.ok {
			assert.Equal(t, c.enc, enc, c.name)
		}
	}

	_, _, err = isBookFile(filepath.Join(dir, "absent.fb2"))
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {

	dir := t.TempDir()
	fname := filepath.Join(dir, "books.zip")

	f, err := os.Create(fname)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range map[string]string{"a/book.fb2": tinyBook, "a/readme.txt": "text"} {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	ok, err := isArchiveFile(fname)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = isArchiveFile(filepath.Join(dir, "books.fb2"))
	require.NoError(t, err)
	assert.False(t, ok, "extension is checked first")

	z, err := zip.OpenReader(fname)
	require.NoError(t, err)
	defer z.Close()

	for _, f := range z.File {
		ok, _, err := isBookInArchive(f)
		require.NoError(t, err)
		assert.Equal(t, f.Name == "a/book.fb2", ok, f.Name)
	}
}
