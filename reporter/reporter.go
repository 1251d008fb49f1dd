// Package reporter collects artifacts of a program run into single archive for debugging.
package reporter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ReportName is preferred name of the report file.
const ReportName = "fb2html-report.zip"

// Report accumulates information necessary to prepare debug report.
type Report struct {
	// NOTE: not to be used concurrently!
	paths map[string]string
	data  map[string][]byte
	file  *os.File
}

// NewReport creates initialized empty report in current directory, falling back to temporary one.
func NewReport() (*Report, error) {

	r := &Report{paths: make(map[string]string), data: make(map[string][]byte)}

	if f, err := os.Create(ReportName); err == nil {
		r.file = f
	} else if f, err = os.CreateTemp("", "fb2html-report.*.zip"); err == nil {
		r.file = f
	} else {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	return r, nil
}

// Close finalizes debug report.
func (r *Report) Close() error {

	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	return r.finalize()
}

// Name returns name of underlying file.
func (r *Report) Name() string {

	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store saves path to file or directory to be put in the final archive later.
// Calls on nil report are ignored, this means no report has been requested.
func (r *Report) Store(name, path string) {

	if r == nil {
		return
	}
	if old, exists := r.paths[name]; exists && old != path {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old, path))
	}
	if p, err := filepath.Abs(path); err == nil {
		r.paths[name] = p
	} else {
		r.paths[name] = path
	}
}

// StoreData keeps in-memory content to be put in the final archive.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.data[name] = bytes.Clone(data)
}

func (r *Report) finalize() error {

	arc := zip.NewWriter(r.file)
	defer arc.Close()

	t := time.Now()

	names, manifest := prepareManifest(r.paths, r.data)
	if err := saveFile(arc, "MANIFEST", t, manifest); err != nil {
		return err
	}

	for _, name := range names {
		if data, ok := r.data[name]; ok {
			if err := saveFile(arc, name, t, bytes.NewReader(data)); err != nil {
				return err
			}
			continue
		}
		path := r.paths[name]
		// ignoring absent files
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if err := saveFromDisk(arc, name, path, info.ModTime()); err != nil {
				return err
			}
		case info.Mode().IsDir():
			if err := saveDir(arc, name, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func prepareManifest(paths map[string]string, data map[string][]byte) ([]string, *bytes.Buffer) {

	buf := new(bytes.Buffer)

	keys := make([]string, 0, len(paths)+len(data))
	for k := range paths {
		keys = append(keys, k)
	}
	for k := range data {
		if _, exists := paths[k]; !exists {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		src, ok := paths[k]
		if _, inMemory := data[k]; inMemory || !ok {
			src = "<memory>"
		}
		fmt.Fprintf(buf, "%s\t%s\n", k, src)
	}
	return keys, buf
}

func saveFromDisk(dst *zip.Writer, name, path string, t time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(dst, name, t, f)
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func saveDir(dst *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// root entry under new name
		return saveFromDisk(dst, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
	})
}
