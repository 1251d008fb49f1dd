package converter

// TagRule describes how a single FB2 tag is rendered.
type TagRule struct {
	// From is the qualified name of the source tag, first matching rule wins.
	From string `json:"from"`
	// To is the name of the generated tag, empty keeps source name.
	To string `json:"to,omitempty"`
	// Drop removes the element together with its content.
	Drop bool `json:"drop,omitempty"`
	// Class is attached to the generated element as is.
	Class   string      `json:"class,omitempty"`
	Handler HandlerKind `json:"handler,omitempty"`
}

// BuildRules returns built-in translation table with class names prefixed by classPrefix.
func BuildRules(classPrefix string) []TagRule {
	return []TagRule{
		{From: "epigraph", To: "div", Class: classPrefix + "epigraph"},
		{From: "cite", To: "blockquote"},
		{From: "emphasis", To: "i"},
		{From: "strong", To: "b"},
		{From: "strikethrough", To: "s"},
		{From: "text-author", To: "div", Class: classPrefix + "text-author"},
		{From: "stanza", To: "div", Class: classPrefix + "stanza"},
		{From: "subtitle", To: "div", Class: classPrefix + "subtitle"},
		{From: "poem", To: "div", Class: classPrefix + "poem"},
		{From: "v", To: "p"},
		{From: "title", To: "div", Class: classPrefix + "title"},
		{From: "a", Handler: HandlerLink},
		{From: "image", To: "img", Handler: HandlerImage},
		{From: "empty-line", To: "div", Class: classPrefix + "empty-line"},
		{From: "code", To: "code"},
		// NOTE: date class is never prefixed
		{From: "date", To: "div", Class: "date"},
		{From: "section", To: "section"},
		{From: "annotation", To: "div", Class: classPrefix + "annotation"},
		{From: "sub", Handler: HandlerSub},
		{From: "sup", Handler: HandlerSup},
		{From: "style", To: "p"},
		{From: "p", To: "p"},
		{From: "table", To: "table"},
		{From: "tr", To: "tr"},
		{From: "td", To: "td"},
		{From: "th", To: "th"},
	}
}

// findRule scans rules in order and returns first rule for tag.
func findRule(rules []TagRule, tag string) (TagRule, bool) {
	for _, r := range rules {
		if r.From == tag {
			return r, true
		}
	}
	return TagRule{}, false
}

// voidTags cannot have content and are never padded with empty text.
var voidTags = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoid reports if tag is one of HTML void elements.
func IsVoid(tag string) bool {
	return voidTags[tag]
}
