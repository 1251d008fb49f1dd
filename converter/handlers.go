package converter

import (
	"strings"

	"github.com/beevik/etree"
)

// Handler finishes element creation for tags which cannot be handled by simple renaming. It receives
// source element and freshly created target element and returns element to be used from now on.
// Returning nil removes element from the output.
type Handler func(opts Options, from, to *etree.Element) *etree.Element

// same set of characters PHP trim() removes by default
const hrefCutset = " \t\n\r\x00\x0B"

// builtinHandlers has implementations available out of the box, sub and sup are intentionally absent.
func builtinHandlers() map[HandlerKind]Handler {
	return map[HandlerKind]Handler{
		HandlerLink:  linkHandler,
		HandlerImage: imageHandler,
	}
}

// linkHandler separates internal references (notes) from external links.
func linkHandler(opts Options, from, to *etree.Element) *etree.Element {

	href, ok := getAttrValue(from, opts.HrefKey())

	switch {
	case strings.HasPrefix(href, "#"):
		to.CreateAttr("class", opts.ClassPrefix+"note")
		to.CreateAttr("href", strings.Trim(href, hrefCutset))
	case ok:
		to.CreateAttr("href", href)
	}
	return to
}

// imageHandler moves namespaced href to src, images without href are dropped.
func imageHandler(opts Options, from, to *etree.Element) *etree.Element {

	src, ok := getAttrValue(from, opts.HrefKey())
	if !ok {
		return nil
	}
	to.CreateAttr("src", src)
	return to
}
