package processor

import (
	"testing"

	"github.com/beevik/etree"
)

type testCase struct {
	in  string
	out string
}

var casesTxtFragment = []testCase{
	{
		in:  `<p><emphasis>Молоток</emphasis> — небольшой ударный ручной инструмент, применяемый для забивания <emphasis>Гвоздей</emphasis>.</p>`,
		out: `Молоток — небольшой ударный ручной инструмент, применяемый для забивания Гвоздей.`,
	},
	{
		in:  `<book-title>  Sample Book
  </book-title>`,
		out: `Sample Book`,
	},
	{
		in:  `<annotation><p>First.</p><p>Second.</p></annotation>`,
		out: "First.\nSecond.",
	},
	{
		in:  `<id><![CDATA[abc]]></id>`,
		out: `abc`,
	},
}

func TestTextFragment(t *testing.T) {

	for i, c := range casesTxtFragment {
		d := etree.NewDocument()
		if err := d.ReadFromString(c.in); err != nil {
			t.Fatal(err)
		}
		res := getTextFragment(d.Root())
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i+1, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(casesTxtFragment))
}

func TestGetAttrValue(t *testing.T) {

	d := etree.NewDocument()
	if err := d.ReadFromString(`<image l:href="#a" href="#b" xlink:href="#c"/>`); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{"l:href": "#a", "href": "#b", "xlink:href": "#c", "x:href": ""} {
		if got := getAttrValue(d.Root(), key); got != want {
			t.Fatalf("BAD RESULT for %s: expected [%s], got [%s]", key, want, got)
		}
	}
}
