package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fb2html/converter"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
	return fname
}

func TestDefaults(t *testing.T) {

	conf, err := BuildConfig()
	require.NoError(t, err)

	assert.Equal(t, "", conf.Converter.Fb2Prefix)
	assert.Equal(t, "fb2-", conf.Converter.ClassPrefix)
	assert.True(t, conf.Output.WrapPage)
	assert.Equal(t, StylesheetDefault, conf.Output.Stylesheet)
	assert.Equal(t, "images", conf.Output.ImagesDir)
	assert.Equal(t, "normal", conf.ConsoleLogger.Level)
	assert.Empty(t, conf.TagRules())
}

func TestLayers(t *testing.T) {

	dir := t.TempDir()

	yml := writeFile(t, dir, "first.yaml", `
converter:
  fb2_prefix: xlink
  rules:
    - from: binary
      to: ""
    - from: emphasis
      to: em
      class: stress
output:
  wrap_page: false
`)
	tml := writeFile(t, dir, "second.toml", `
[converter]
class_prefix = "book-"

[logger.console]
level = "debug"
`)
	hcl := writeFile(t, dir, "third.hcl", `
output {
  bodies = ["main", "notes"]
  file_name_template = "{{ .Title }}"
}
`)

	conf, err := BuildConfig(yml, tml, hcl)
	require.NoError(t, err)

	assert.Equal(t, dir, conf.Path)
	assert.Equal(t, "xlink", conf.Converter.Fb2Prefix)
	assert.Equal(t, "book-", conf.Converter.ClassPrefix)
	assert.Equal(t, "debug", conf.ConsoleLogger.Level)
	assert.False(t, conf.Output.WrapPage, "later layer must be able to turn boolean off")
	assert.True(t, conf.Output.IncludeAnnotation, "untouched defaults survive")
	assert.Equal(t, []string{"main", "notes"}, conf.Output.Bodies)
	assert.Equal(t, "{{ .Title }}", conf.Output.FileNameTemplate)

	rules := conf.TagRules()
	require.Len(t, rules, 2)
	assert.Equal(t, converter.TagRule{From: "binary", Drop: true}, rules[0])
	assert.Equal(t, converter.TagRule{From: "emphasis", To: "em", Class: "stress"}, rules[1])
}

func TestInvalid(t *testing.T) {

	dir := t.TempDir()

	cases := map[string]string{
		"prefix.json":  `{"converter": {"fb2_prefix": "1bad"}}`,
		"class.json":   `{"converter": {"class_prefix": "a b"}}`,
		"handler.json": `{"converter": {"rules": [{"from": "x", "handler": "bold"}]}}`,
		"from.json":    `{"converter": {"rules": [{"from": ""}]}}`,
		"to.json":      `{"converter": {"rules": [{"from": "x", "to": "<div>"}]}}`,
		"syntax.json":  `{"converter": `,
	}
	for name, content := range cases {
		_, err := BuildConfig(writeFile(t, dir, name, content))
		assert.Error(t, err, name)
	}
}

func TestResolvePath(t *testing.T) {

	conf := &Config{Path: filepath.FromSlash("/etc/fb2html")}

	assert.Equal(t, filepath.Join(conf.Path, "style.css"), conf.ResolvePath("style.css"))
	assert.Equal(t, "", conf.ResolvePath(""))

	abs, err := filepath.Abs("style.css")
	require.NoError(t, err)
	assert.Equal(t, abs, conf.ResolvePath(abs))
}

func TestDump(t *testing.T) {

	conf, err := BuildConfig()
	require.NoError(t, err)

	raw, err := conf.GetBytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"class_prefix": "fb2-"`)

	actual, err := conf.GetActualBytes()
	require.NoError(t, err)
	assert.Contains(t, string(actual), `"images_dir": "images"`)
}
