// Package archive gives access to books stored in zip archives.
package archive

import (
	"archive/zip"
	"strings"

	"golang.org/x/text/encoding"
)

// WalkFunc is called for every matching file in archive. The name argument is the file path inside
// archive, decoded from forced code page when one was given and the entry is not marked as UTF-8.
// If an error is returned, processing stops.
type WalkFunc func(archive, name string, file *zip.File) error

// Walk visits all regular files in the archive whose path starts with prefix.
func Walk(archive, prefix string, cpage encoding.Encoding, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	prefix = strings.TrimPrefix(prefix, "/")
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if err := walkFn(archive, DecodeName(f, cpage), f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeName returns entry path, converting it from cpage for entries without UTF-8 flag.
func DecodeName(f *zip.File, cpage encoding.Encoding) string {
	if cpage == nil || !f.NonUTF8 {
		return f.Name
	}
	if n, err := cpage.NewDecoder().String(f.Name); err == nil {
		return n
	}
	return f.Name
}
