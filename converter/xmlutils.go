package converter

import (
	"github.com/beevik/etree"
)

// getAttrValue returns value of attribute with exactly matching qualified name ("l:href" does not match "xlink:href").
func getAttrValue(e *etree.Element, key string) (string, bool) {
	for _, a := range e.Attr {
		if a.FullKey() == key {
			return a.Value, true
		}
	}
	return "", false
}

func isNilToken(t etree.Token) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *etree.Element:
		return v == nil
	case *etree.CharData:
		return v == nil
	case *etree.Comment:
		return v == nil
	case *etree.ProcInst:
		return v == nil
	case *etree.Directive:
		return v == nil
	}
	return false
}
