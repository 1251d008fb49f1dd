package commands

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// isArchiveFile detects if file is our supported archive.
func isArchiveFile(fname string) (bool, error) {

	if !strings.EqualFold(filepath.Ext(fname), ".zip") {
		return false, nil
	}

	file, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer file.Close()

	header := make([]byte, 262)
	if count, err := io.ReadFull(file, header); err != nil && count == 0 {
		return false, err
	}
	return filetype.Is(header, "zip"), nil
}

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// selectReader handles various unicode encodings (with or without BOM).
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	default:
		panic("unsupported encoding - should never happen")
	}
}

var boms = []struct {
	mark []byte
	enc  srcEncoding
}{
	// longer marks first, UTF-32LE starts with UTF-16LE mark
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
	{[]byte{0xEF, 0xBB, 0xBF}, encUTF8},
	{[]byte{0xFE, 0xFF}, encUTF16BigEndian},
	{[]byte{0xFF, 0xFE}, encUTF16LittleEndian},
}

func detectUTF(buf []byte) srcEncoding {
	for _, b := range boms {
		if bytes.HasPrefix(buf, b.mark) {
			return b.enc
		}
	}
	return encUnknown
}

// sniffBook detects if stream is fb2/xml document and if it is tries to detect its encoding.
// Stream is opened twice: to look for BOM and to check decoded header.
func sniffBook(name string, open func() (io.ReadCloser, error)) (bool, srcEncoding, error) {

	if !strings.EqualFold(filepath.Ext(name), ".fb2") {
		return false, encUnknown, nil
	}

	r, err := open()
	if err != nil {
		return false, encUnknown, err
	}
	buf := make([]byte, 4)
	n, err := io.ReadFull(r, buf)
	r.Close()
	if err != nil && n == 0 {
		return false, encUnknown, err
	}
	enc := detectUTF(buf[:n])

	if r, err = open(); err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	header := make([]byte, 512)
	if n, err = io.ReadFull(selectReader(r, enc), header); err != nil && n == 0 {
		return false, encUnknown, err
	}
	return filetype.Is(header[:n], "fb2"), enc, nil
}

// isBookFile detects if file is fb2 book.
func isBookFile(fname string) (bool, srcEncoding, error) {
	return sniffBook(fname, func() (io.ReadCloser, error) {
		return os.Open(fname)
	})
}

// isBookInArchive detects if compressed file is fb2 book.
func isBookInArchive(f *zip.File) (bool, srcEncoding, error) {
	return sniffBook(f.Name, f.Open)
}

func init() {
	// Register FB2 matcher for filetype
	filetype.AddMatcher(
		filetype.NewType("fb2", "application/x-fictionbook+xml"),
		func(buf []byte) bool {
			text := string(buf)
			return strings.HasPrefix(strings.TrimSpace(text), `<?xml`) && strings.Contains(text, `<FictionBook`)
		})
}
