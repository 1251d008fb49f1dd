package processor

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// will be used to derive UUIDs from non-parsable book ID
var nameSpaceFB2 = uuid.MustParse("09aa0c17-ca72-42d3-afef-75911e5d7646")

// Author is a single book author from title-info.
type Author struct {
	FirstName, MiddleName, LastName, Nickname string
}

// String returns name suitable for display.
func (a Author) String() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if len(s) > 0 {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return a.Nickname
	}
	return strings.Join(parts, " ")
}

// Book keeps book metadata and conversion results.
type Book struct {
	ID      uuid.UUID
	Title   string
	Lang    string
	Date    string
	Authors []Author
	Images  []*binImage
}

// NewBook creates book with default title.
func NewBook(u uuid.UUID, name string) *Book {
	return &Book{ID: u, Title: name}
}

// BookAuthors returns comma separated list of authors.
func (b *Book) BookAuthors() string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.String())
	}
	return strings.Join(names, ", ")
}

// processDescription reads metadata necessary for naming and page head.
func (p *Processor) processDescription() {

	desc := p.doc.FindElement("./FictionBook/description")
	if desc == nil {
		p.env.Log.Debug("Book has no description")
		return
	}

	if id := desc.FindElement("./document-info/id"); id != nil {
		text := getTextFragment(id)
		if u, err := uuid.Parse(text); err == nil {
			p.Book.ID = u
		} else if len(text) > 0 {
			p.env.Log.Debug("Unable to parse book id, deriving new", zap.String("id", text), zap.Error(err))
			p.Book.ID = uuid.NewSHA1(nameSpaceFB2, []byte(text))
		}
	}

	info := desc.SelectElement("title-info")
	if info == nil {
		return
	}
	if t := getTextFragment(info.SelectElement("book-title")); len(t) > 0 {
		p.Book.Title = t
	}
	if l := getTextFragment(info.SelectElement("lang")); len(l) > 0 {
		if t, err := language.Parse(l); err == nil {
			p.Book.Lang = t.String()
		} else {
			p.env.Log.Debug("Unable to parse book language, using as is", zap.String("lang", l), zap.Error(err))
			p.Book.Lang = l
		}
	}
	p.Book.Date = getTextFragment(info.SelectElement("date"))

	for _, e := range info.SelectElements("author") {
		a := Author{
			FirstName:  childText(e, "first-name"),
			MiddleName: childText(e, "middle-name"),
			LastName:   childText(e, "last-name"),
			Nickname:   childText(e, "nickname"),
		}
		if a != (Author{}) {
			p.Book.Authors = append(p.Book.Authors, a)
		}
	}
}

func childText(e *etree.Element, tag string) string {
	return getTextFragment(e.SelectElement(tag))
}
