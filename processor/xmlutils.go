package processor

import (
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// getAttrValue returns value of attribute with exactly matching qualified name or empty string.
func getAttrValue(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if a.FullKey() == key {
			return a.Value
		}
	}
	return ""
}

func extractText(e *etree.Element, head bool) string {
	var res strings.Builder
	for _, t := range e.Child {
		switch c := t.(type) {
		case *etree.CharData:
			res.WriteString(c.Data)
		case *etree.Element:
			if IsOneOf(c.Tag, []string{"p", "v", "stanza"}) && res.Len() > 0 {
				res.WriteString("\n")
			}
			res.WriteString(extractText(c, false))
		}
	}
	if !head {
		return res.String()
	}
	return strings.TrimSpace(res.String())
}

// getTextFragment returns trimmed text content of e and its descendants.
func getTextFragment(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return extractText(e, true)
}

// IsOneOf checks if string is present in list.
func IsOneOf(name string, names []string) bool {
	return slices.Contains(names, name)
}
