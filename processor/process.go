// Package processor does actual work.
package processor

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"fb2html/config"
	"fb2html/converter"
	"fb2html/state"
	"fb2html/static"
)

// Various names used across the program.
const (
	NSXlink        = "http://www.w3.org/1999/xlink"
	DefaultPrefix  = "l"
	MainBodyName   = "main"
	StylesheetName = "stylesheet.css"
)

// Processor state.
type Processor struct {
	// input parameters
	src string
	dst string
	// parameters translated to internal types
	nodirs    bool
	overwrite bool
	// input document
	doc *etree.Document
	// conversion results
	out        *etree.Document
	outName    string
	imagesDir  string
	stylesheet []byte
	styleRef   string
	Book       *Book
	// program environment
	env  *state.LocalEnv
	conv *converter.Converter
}

// NewFB2 parses FB2 document and prepares book processor.
func NewFB2(r io.Reader, unknownEncoding bool, src, dst string, nodirs, overwrite bool, env *state.LocalEnv) (*Processor, error) {

	u, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate UUID")
	}

	p := &Processor{
		src:       src,
		dst:       dst,
		nodirs:    nodirs,
		overwrite: overwrite,
		doc:       etree.NewDocument(),
		Book:      NewBook(u, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))),
		env:       env,
	}

	if unknownEncoding {
		// input file had no BOM mark - most likely was not Unicode
		p.doc.ReadSettings = etree.ReadSettings{
			CharsetReader: charset.NewReaderLabel,
			PreserveCData: true,
		}
	} else {
		// input is already UTF-8, whatever XML declaration says
		p.doc.ReadSettings = etree.ReadSettings{
			CharsetReader: func(_ string, input io.Reader) (io.Reader, error) { return input, nil },
			PreserveCData: true,
		}
	}

	// Read and parse fb2
	if _, err := p.doc.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "unable to parse FB2")
	}
	if root := p.doc.Root(); root == nil || root.Tag != "FictionBook" {
		return nil, errors.New("not a FictionBook document")
	}

	prefix := env.Cfg.Converter.Fb2Prefix
	if len(prefix) == 0 {
		prefix = detectLinkPrefix(p.doc.Root())
	}
	p.conv = converter.New(converter.Options{
		Fb2Prefix:   prefix,
		ClassPrefix: env.Cfg.Converter.ClassPrefix,
		Extra:       env.Cfg.TagRules(),
	}, env.Log)

	p.processDescription()

	if p.outName, err = p.prepareOutputName(); err != nil {
		return nil, errors.Wrap(err, "unable to prepare output name")
	}
	// images of every book are kept apart
	base := strings.TrimSuffix(filepath.Base(p.outName), filepath.Ext(p.outName))
	p.imagesDir = path.Join(filepath.ToSlash(env.Cfg.Output.ImagesDir), filepath.ToSlash(base))

	p.env.Log.Debug("Parsed book",
		zap.Stringer("id", p.Book.ID),
		zap.String("title", p.Book.Title),
		zap.String("lang", p.Book.Lang),
		zap.String("authors", p.Book.BookAuthors()),
		zap.String("link prefix", prefix),
	)
	return p, nil
}

// detectLinkPrefix finds namespace prefix document declares for xlink.
func detectLinkPrefix(root *etree.Element) string {
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == NSXlink {
			return a.Key
		}
	}
	return DefaultPrefix
}

// Converter returns converter used for this book.
func (p *Processor) Converter() *converter.Converter {
	return p.conv
}

// OutputName returns full name of file Save will produce.
func (p *Processor) OutputName() string {
	return p.outName
}

// Process does all the work.
func (p *Processor) Process() error {

	// Processing - order of steps is important as references are resolved against accumulated results

	if p.env.Cfg.Output.ExtractImages {
		if err := p.processBinaries(); err != nil {
			return err
		}
	}
	if err := p.prepareStylesheet(); err != nil {
		return err
	}
	container := p.prepareOutput()
	if err := p.processAnnotation(container); err != nil {
		return err
	}
	if err := p.processBodies(container); err != nil {
		return err
	}
	// never leave page body self-closed
	if len(container.Child) == 0 && p.env.Cfg.Output.WrapPage {
		container.CreateText("")
	}
	p.processImages()
	p.processLinks()
	return nil
}

// prepareOutput creates resulting document and returns element converted content goes to.
func (p *Processor) prepareOutput() *etree.Element {

	p.out = etree.NewDocument()
	p.out.WriteSettings = etree.WriteSettings{CanonicalText: true, CanonicalAttrVal: true}

	if !p.env.Cfg.Output.WrapPage {
		return &p.out.Element
	}

	p.out.CreateDirective("DOCTYPE html")
	html := p.out.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	if len(p.Book.Lang) > 0 {
		html.CreateAttr("lang", p.Book.Lang)
	}
	head := html.CreateElement("head")
	head.CreateElement("meta").CreateAttr("charset", "utf-8")
	gen := head.CreateElement("meta")
	gen.CreateAttr("name", "generator")
	gen.CreateAttr("content", "fb2html")
	title := head.CreateElement("title")
	if len(p.Book.Title) > 0 {
		title.SetText(p.Book.Title)
	} else {
		title.CreateText("")
	}
	if len(p.Book.Authors) > 0 {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", "author")
		meta.CreateAttr("content", p.Book.BookAuthors())
	}
	if len(p.styleRef) > 0 {
		link := head.CreateElement("link")
		link.CreateAttr("rel", "stylesheet")
		link.CreateAttr("type", "text/css")
		link.CreateAttr("href", p.styleRef)
	}
	return html.CreateElement("body")
}

// prepareStylesheet loads stylesheet to be linked from the page.
func (p *Processor) prepareStylesheet() error {

	if !p.env.Cfg.Output.WrapPage {
		return nil
	}

	var err error
	switch s := p.env.Cfg.Output.Stylesheet; {
	case len(s) == 0 || s == config.StylesheetNone:
	case s == config.StylesheetDefault:
		var data []byte
		if data, err = static.Asset(static.DefaultStylesheet); err != nil {
			return errors.Wrap(err, "unable to get default stylesheet")
		}
		if p.stylesheet, err = expandStylesheet(data, p.conv.Options().ClassPrefix); err != nil {
			return errors.Wrap(err, "unable to prepare default stylesheet")
		}
		p.styleRef = StylesheetName
	case govalidator.IsRequestURL(s) && strings.Contains(s, "://"):
		p.styleRef = s
	default:
		if p.stylesheet, err = os.ReadFile(p.env.Cfg.ResolvePath(s)); err != nil {
			return errors.Wrap(err, "unable to read stylesheet")
		}
		p.styleRef = StylesheetName
	}
	return nil
}

// processAnnotation puts converted book annotation in front of the text.
func (p *Processor) processAnnotation(container *etree.Element) error {

	if !p.env.Cfg.Output.IncludeAnnotation {
		return nil
	}
	ann := p.doc.FindElement("./FictionBook/description/title-info/annotation")
	if ann == nil {
		return nil
	}
	if err := p.conv.ConvertInto(container, ann); err != nil {
		return errors.Wrap(err, "unable to convert annotation")
	}
	return nil
}

// processBodies converts selected book bodies, each wrapped in its own block.
func (p *Processor) processBodies(container *etree.Element) error {

	start := time.Now()
	p.env.Log.Debug("Converting bodies - start")
	defer func(start time.Time) {
		p.env.Log.Debug("Converting bodies - done",
			zap.Duration("elapsed", time.Since(start)),
		)
	}(start)

	classPrefix := p.conv.Options().ClassPrefix
	for i, body := range p.doc.FindElements("./FictionBook/body") {

		name := getAttrValue(body, "name")
		if len(name) == 0 {
			name = MainBodyName
		}
		if bodies := p.env.Cfg.Output.Bodies; len(bodies) > 0 && !IsOneOf(name, bodies) {
			p.env.Log.Debug("Skipping body", zap.Int("index", i), zap.String("name", name))
			continue
		}

		div := container.CreateElement("div")
		div.CreateAttr("class", classPrefix+"body")
		div.CreateAttr("data-body", name)
		if err := p.conv.ConvertInto(div, body.Child...); err != nil {
			return errors.Wrapf(err, "unable to convert body %d (%s)", i, name)
		}
		if len(div.Child) == 0 {
			div.CreateText("")
		}
	}
	return nil
}

// processImages points converted images to extracted files.
func (p *Processor) processImages() {

	if !p.env.Cfg.Output.ExtractImages {
		return
	}

	byID := make(map[string]*binImage, len(p.Book.Images))
	for _, b := range p.Book.Images {
		if _, exists := byID[b.id]; exists {
			p.env.Log.Warn("Duplicate binary id, using first one", zap.String("id", b.id))
			continue
		}
		byID[b.id] = b
	}

	for _, img := range p.out.FindElements(".//img[@src]") {
		src := getAttrValue(img, "src")
		if !strings.HasPrefix(src, "#") {
			continue
		}
		b, ok := byID[src[1:]]
		if !ok {
			p.env.Log.Warn("Unable to find image for reference", zap.String("src", src))
			continue
		}
		img.CreateAttr("src", path.Join(p.imagesDir, b.fname))
	}
}

// processLinks reports links which will not work in produced page.
func (p *Processor) processLinks() {

	ids := make(map[string]bool)
	for _, e := range p.out.FindElements(".//*[@id]") {
		ids[getAttrValue(e, "id")] = true
	}

	var broken int
	for _, a := range p.out.FindElements(".//a[@href]") {
		href := getAttrValue(a, "href")
		switch {
		case strings.HasPrefix(href, "#"):
			if !ids[href[1:]] {
				broken++
				p.env.Log.Debug("Unable to find link target", zap.String("href", href))
			}
		case strings.HasPrefix(href, "mailto:"):
			if !govalidator.IsEmail(strings.TrimPrefix(href, "mailto:")) {
				broken++
				p.env.Log.Debug("Link does not look like email", zap.String("href", href))
			}
		case !govalidator.IsURL(href):
			broken++
			p.env.Log.Debug("Link does not look like URL", zap.String("href", href))
		}
	}
	if broken > 0 {
		p.env.Log.Warn("Book has links which could not be resolved", zap.Int("count", broken))
	}
}

// Save makes the conversion results permanent and returns name of produced file.
func (p *Processor) Save() (string, error) {

	start := time.Now()
	p.env.Log.Debug("Saving content - starting", zap.String("file", p.outName))
	defer func(start time.Time) {
		p.env.Log.Debug("Saving content - done", zap.Duration("elapsed", time.Since(start)))
	}(start)

	if p.out == nil {
		return "", errors.New("nothing to save, book was not processed")
	}

	if _, err := os.Stat(p.outName); err == nil && !p.overwrite {
		return "", errors.Errorf("output file already exists: %s", p.outName)
	}

	outDir := filepath.Dir(p.outName)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", errors.Wrap(err, "unable to create output directory")
	}
	if err := p.out.WriteToFile(p.outName); err != nil {
		return "", errors.Wrap(err, "unable to save output")
	}
	if len(p.stylesheet) > 0 {
		if err := os.WriteFile(filepath.Join(outDir, StylesheetName), p.stylesheet, 0644); err != nil {
			return "", errors.Wrap(err, "unable to save stylesheet")
		}
	}
	if p.env.Cfg.Output.ExtractImages {
		dir := filepath.Join(outDir, filepath.FromSlash(p.imagesDir))
		for _, b := range p.Book.Images {
			if err := b.flush(dir); err != nil {
				return "", err
			}
		}
	}
	return p.outName, nil
}

// Render returns produced document as a string.
func (p *Processor) Render() (string, error) {
	if p.out == nil {
		return "", errors.New("nothing to render, book was not processed")
	}
	return p.out.WriteToString()
}
