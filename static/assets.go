// Package static has runtime resources for various commands.
package static

import (
	"embed"
	"os"
	"path"
	"path/filepath"
)

// Names of embedded resources.
const (
	DefaultStylesheet = "stylesheets/default.css.tmpl"
	SampleConfig      = "configuration.yaml"
)

//go:embed configuration.yaml stylesheets
var content embed.FS

// Asset loads and returns the asset for the given name.
func Asset(name string) ([]byte, error) {
	return content.ReadFile(name)
}

// AssetDir returns the file names below a certain directory.
// AssetDir("") will return all top level names.
func AssetDir(name string) ([]string, error) {

	name = path.Clean(filepath.ToSlash(name))

	dirEntries, err := content.ReadDir(name)
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, de := range dirEntries {
		entries = append(entries, de.Name())
	}
	return entries, nil
}

func restoreFile(dir, name string) error {

	data, err := content.ReadFile(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, filepath.Dir(name)), os.FileMode(0755)); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, os.FileMode(0644))
}

// RestoreAssets restores an asset under the given directory recursively.
func RestoreAssets(dir, name string) error {

	dir, name = path.Clean(filepath.ToSlash(dir)), path.Clean(filepath.ToSlash(name))

	dirEntries, err := content.ReadDir(name)
	if err != nil {
		return restoreFile(dir, name)
	}

	for _, de := range dirEntries {
		if err := RestoreAssets(dir, path.Join(name, de.Name())); err != nil {
			return err
		}
	}
	return nil
}
