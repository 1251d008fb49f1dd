package converter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

func TestBuildRulesUnique(t *testing.T) {

	seen := make(map[string]bool)
	for _, r := range BuildRules("x-") {
		if seen[r.From] {
			t.Fatalf("duplicate rule for [%s]", r.From)
		}
		seen[r.From] = true
		if r.Drop {
			t.Fatalf("built-in rule for [%s] drops content", r.From)
		}
	}
}

func TestBuildRulesClassPrefix(t *testing.T) {

	for _, r := range BuildRules("pre-") {
		switch {
		case len(r.Class) == 0:
		case r.From == "date":
			if r.Class != "date" {
				t.Fatalf("date class must not be prefixed: [%s]", r.Class)
			}
		case r.Class != "pre-"+r.From:
			t.Fatalf("unexpected class [%s] for [%s]", r.Class, r.From)
		}
	}
}

// Every tag in the table produces element with expected name and class.
func TestEveryRule(t *testing.T) {

	c := New(Options{Fb2Prefix: "l", ClassPrefix: "pre-"}, nil)

	for _, r := range c.TagTranslate() {

		src := etree.NewElement(r.From)
		if r.Handler == HandlerImage {
			src.CreateAttr("l:href", "#x")
		}

		out, ok := c.Convert(src).(*etree.Element)
		if !ok {
			t.Fatalf("no element produced for [%s]", r.From)
		}

		expected := r.To
		if len(expected) == 0 {
			expected = r.From
		}
		if out.Tag != expected {
			t.Fatalf("tag [%s]: expected [%s], got [%s]", r.From, expected, out.Tag)
		}
		if class := out.SelectAttrValue("class", ""); class != r.Class {
			t.Fatalf("tag [%s]: expected class [%s], got [%s]", r.From, r.Class, class)
		}
		if IsVoid(out.Tag) != (len(out.Child) == 0) {
			t.Fatalf("tag [%s]: wrong padding, %d children", r.From, len(out.Child))
		}
	}
}

func TestIDIsCopied(t *testing.T) {

	c := New(Options{Fb2Prefix: "l", ClassPrefix: "pre-"}, nil)

	for _, tag := range append([]string{"unknown", "body"}, ruleNames()...) {
		src := etree.NewElement(tag)
		src.CreateAttr("id", "  id-"+tag)
		src.CreateAttr("l:href", "#x")

		out, ok := c.Convert(src).(*etree.Element)
		if !ok {
			t.Fatalf("no element produced for [%s]", tag)
		}
		if id := out.SelectAttrValue("id", ""); id != "  id-"+tag {
			t.Fatalf("tag [%s]: id was not copied verbatim, got [%s]", tag, id)
		}
	}
}

func ruleNames() []string {
	var names []string
	for _, r := range BuildRules("") {
		names = append(names, r.From)
	}
	return names
}

const sampleSection = `<section id="ch1">
<title><p>Chapter 1</p></title>
<epigraph><p>Quote</p><text-author>Someone</text-author></epigraph>
<p>Text<a l:href="#n1">1</a> and <a l:href="https://example.org/">link</a>.</p>
<empty-line/>
<poem><title><p>Poem</p></title><stanza><v>line one</v><v>line two</v></stanza><date>1999</date></poem>
<image l:href="#pic1"/>
<image/>
<annotation><p>About</p></annotation>
</section>`

func TestSectionStructure(t *testing.T) {

	c := New(Options{Fb2Prefix: "l", ClassPrefix: "fb2-"}, nil)

	res, err := c.Render(parse(t, sampleSection))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res))
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		selector string
		count    int
	}{
		{"section#ch1", 1},
		{"section > div.fb2-title > p", 1},
		{"div.fb2-epigraph > div.fb2-text-author", 1},
		{"a.fb2-note[href='#n1']", 1},
		{"a[href='https://example.org/']:not([class])", 1},
		{"div.fb2-empty-line", 1},
		{"div.fb2-poem div.fb2-stanza > p", 2},
		{"div.fb2-poem > div.fb2-title", 1},
		{"div.date", 1},
		{"img[src='#pic1']", 1},
		{"img", 1},
		{"div.fb2-annotation > p", 1},
	}
	for _, ch := range checks {
		if n := doc.Find(ch.selector).Length(); n != ch.count {
			t.Fatalf("selector [%s]: expected %d, got %d\n%s", ch.selector, ch.count, n, res)
		}
	}
}

func TestParseHandlerString(t *testing.T) {

	cases := map[string]HandlerKind{
		"":     HandlerNone,
		"none": HandlerNone,
		"a":    HandlerLink,
		"IMG":  HandlerImage,
		"sub":  HandlerSub,
		"sup":  HandlerSup,
		"span": UnsupportedHandler,
	}
	for in, out := range cases {
		if k := ParseHandlerString(in); k != out {
			t.Fatalf("[%s]: expected %s, got %s", in, out, k)
		}
	}

	var k HandlerKind
	if err := k.UnmarshalText([]byte("img")); err != nil || k != HandlerImage {
		t.Fatalf("unexpected result %s, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("bold")); err == nil {
		t.Fatal("expected error for unknown handler")
	}
}

func TestVoidTags(t *testing.T) {

	void := []string{"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr"}
	for _, tag := range void {
		if !IsVoid(tag) {
			t.Fatalf("[%s] must be void", tag)
		}
	}
	for _, tag := range []string{"command", "keygen", "p", "div", "section", "a", "image"} {
		if IsVoid(tag) {
			t.Fatalf("[%s] must not be void", tag)
		}
	}
	if len(voidTags) != len(void) {
		t.Fatalf("unexpected void set size %d", len(voidTags))
	}
}
