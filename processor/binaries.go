package processor

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fb2html/config"
)

// binImage is decoded content of FB2 binary element.
type binImage struct {
	id    string
	ct    string
	fname string
	data  []byte
}

func (b *binImage) flush(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "unable to create images directory")
	}
	if err := os.WriteFile(filepath.Join(dir, b.fname), b.data, 0644); err != nil {
		return errors.Wrapf(err, "unable to save image (%s)", b.id)
	}
	return nil
}

func decodeBinary(id, text string) ([]byte, error) {

	s := strings.TrimSpace(text)
	// some files are badly formatted
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	// and some have several images stuffed together, keep everything before first bad byte
	var cie base64.CorruptInputError
	if !errors.As(err, &cie) || cie == 0 {
		return nil, errors.Wrapf(err, "unable to decode binary (%s)", id)
	}
	data, er := base64.StdEncoding.DecodeString(s[:cie-cie%4])
	if er != nil {
		return nil, errors.Wrapf(err, "unable to decode binary (%s)", id)
	}
	return data, nil
}

// detectType returns content type and file extension for binary data.
func detectType(declaredCT string, data []byte) (string, string) {

	if ct := strings.ToLower(declaredCT); strings.HasSuffix(ct, "svg") || strings.HasSuffix(ct, "svg+xml") {
		return "image/svg+xml", "svg"
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value, kind.Extension
	}
	if exts, err := mime.ExtensionsByType(declaredCT); err == nil && len(exts) > 0 {
		return declaredCT, strings.TrimPrefix(exts[0], ".")
	}
	return declaredCT, "bin"
}

// processBinaries decodes book binaries so they could be saved along with the output.
func (p *Processor) processBinaries() error {

	start := time.Now()
	p.env.Log.Debug("Parsing binaries - start")
	defer func(start time.Time) {
		p.env.Log.Debug("Parsing binaries - done",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("images", len(p.Book.Images)),
		)
	}(start)

	names := make(map[string]bool)
	for _, el := range p.doc.FindElements("./FictionBook/binary[@id]") {

		id := getAttrValue(el, "id")
		if len(id) == 0 {
			continue
		}
		declaredCT := getAttrValue(el, "content-type")

		data, err := decodeBinary(id, el.Text())
		if err != nil {
			return err
		}

		ct, ext := detectType(declaredCT, data)
		if len(declaredCT) > 0 && !strings.EqualFold(declaredCT, ct) {
			p.env.Log.Warn("Declared and detected binary types do not match, using detected type",
				zap.String("id", id),
				zap.String("declared", declaredCT),
				zap.String("detected", ct))
		}

		base := id
		if strings.EqualFold(filepath.Ext(base), "."+ext) {
			base = strings.TrimSuffix(base, filepath.Ext(base))
		}
		base = config.CleanFileName(base)
		fname := base + "." + ext
		for i := 1; names[fname]; i++ {
			fname = base + "_" + strconv.Itoa(i) + "." + ext
		}
		names[fname] = true

		p.Book.Images = append(p.Book.Images, &binImage{
			id:    id,
			ct:    ct,
			fname: fname,
			data:  data,
		})
	}
	return nil
}
