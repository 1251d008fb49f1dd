package processor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"fb2html/config"
)

// Values is a struct that holds variables we make available for template expansion.
type Values struct {
	Title      string
	Language   string
	Date       string
	Authors    []Author
	SourceFile string
	Name       string
	BookID     string
}

func expandTemplate(name, field string, data any) (string, error) {

	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *Processor) values() Values {
	return Values{
		Title:      p.Book.Title,
		Language:   p.Book.Lang,
		Date:       p.Book.Date,
		Authors:    append([]Author(nil), p.Book.Authors...),
		SourceFile: filepath.Base(p.src),
		Name:       strings.TrimSuffix(filepath.Base(p.src), filepath.Ext(p.src)),
		BookID:     p.Book.ID.String(),
	}
}

func (p *Processor) cleanName(name string) string {
	if p.env.Cfg.Output.FileNameTranslit {
		name = slug.Make(name)
	}
	return config.CleanFileName(name)
}

// prepareOutputName generates output file name.
func (p *Processor) prepareOutputName() (string, error) {

	var outDir string
	if !p.nodirs {
		outDir = filepath.Dir(p.src)
	}
	outDir = filepath.Join(p.dst, outDir)

	name := p.values().Name
	if format := p.env.Cfg.Output.FileNameTemplate; len(format) > 0 {
		expanded, err := expandTemplate("file-name", format, p.values())
		if err != nil {
			return "", err
		}
		if expanded = strings.Trim(filepath.FromSlash(strings.TrimSpace(expanded)), string(os.PathSeparator)); len(expanded) > 0 {
			dirs := strings.Split(expanded, string(os.PathSeparator))
			name = dirs[len(dirs)-1]
			for _, d := range dirs[:len(dirs)-1] {
				if len(strings.TrimSpace(d)) > 0 {
					outDir = filepath.Join(outDir, p.cleanName(d))
				}
			}
		}
	}
	if len(strings.TrimSpace(name)) == 0 {
		name = p.Book.ID.String()
	}
	return filepath.Join(outDir, p.cleanName(name)+".html"), nil
}

// stylesheetValues are available to stylesheet template.
type stylesheetValues struct {
	Prefix string
}

func expandStylesheet(text []byte, classPrefix string) ([]byte, error) {
	s, err := expandTemplate("stylesheet", string(text), stylesheetValues{Prefix: classPrefix})
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
