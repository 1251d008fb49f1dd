// Package converter turns FB2 markup into HTML.
//
// Conversion is driven by an ordered table of tag rules (see BuildRules). Each rule may rename the
// tag, attach css class or pass element to a special handler. Elements without rule are copied
// with their name intact, everything except text and elements is dropped.
package converter

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNilNode is returned when nil token is passed for conversion.
var ErrNilNode = errors.New("nil node passed for conversion")

// Options define conversion parameters.
type Options struct {
	// Fb2Prefix is namespace prefix FB2 document uses for xlink attributes.
	Fb2Prefix string
	// ClassPrefix is prepended to all generated class names.
	ClassPrefix string
	// Extra rules are looked up before built-in ones.
	Extra []TagRule
}

// HrefKey returns qualified name of FB2 link attribute.
func (o Options) HrefKey() string {
	return o.Fb2Prefix + ":href"
}

// snapshot is immutable once published.
type snapshot struct {
	opts     Options
	rules    []TagRule
	handlers map[HandlerKind]Handler
}

func newSnapshot(opts Options, handlers map[HandlerKind]Handler) *snapshot {
	opts.Extra = slices.Clone(opts.Extra)
	return &snapshot{
		opts:     opts,
		rules:    append(slices.Clone(opts.Extra), BuildRules(opts.ClassPrefix)...),
		handlers: handlers,
	}
}

// Converter keeps translation table and produces HTML from FB2 nodes. It is safe for concurrent use,
// every conversion works with the table which was current when it started.
type Converter struct {
	log *zap.Logger

	mu      sync.Mutex // serializes setters
	current atomic.Pointer[snapshot]
}

// New creates converter, log may be nil.
func New(opts Options, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Converter{log: log}
	c.current.Store(newSnapshot(opts, builtinHandlers()))
	return c
}

// update publishes modified copy of current state.
func (c *Converter) update(modify func(opts *Options, handlers map[HandlerKind]Handler)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current.Load()
	opts, handlers := cur.opts, maps.Clone(cur.handlers)
	modify(&opts, handlers)
	c.current.Store(newSnapshot(opts, handlers))
}

// SetFb2Prefix changes prefix used to find FB2 href attributes.
func (c *Converter) SetFb2Prefix(prefix string) {
	c.update(func(opts *Options, _ map[HandlerKind]Handler) {
		opts.Fb2Prefix = prefix
	})
}

// SetClassPrefix changes class prefix and rebuilds translation table.
func (c *Converter) SetClassPrefix(prefix string) {
	c.update(func(opts *Options, _ map[HandlerKind]Handler) {
		opts.ClassPrefix = prefix
	})
}

// SetExtraRules replaces additional rules, they take precedence over built-in ones.
func (c *Converter) SetExtraRules(rules []TagRule) {
	c.update(func(opts *Options, _ map[HandlerKind]Handler) {
		opts.Extra = rules
	})
}

// RegisterHandler installs (or with nil h removes) implementation for handler kind.
func (c *Converter) RegisterHandler(kind HandlerKind, h Handler) {
	c.update(func(_ *Options, handlers map[HandlerKind]Handler) {
		if h == nil {
			delete(handlers, kind)
			return
		}
		handlers[kind] = h
	})
}

// Options returns current conversion options.
func (c *Converter) Options() Options {
	opts := c.current.Load().opts
	opts.Extra = slices.Clone(opts.Extra)
	return opts
}

// TagTranslate returns copy of current translation table, extra rules first.
func (c *Converter) TagTranslate() []TagRule {
	return slices.Clone(c.current.Load().rules)
}

// Rule returns rule for the tag if one exists.
func (c *Converter) Rule(tag string) (TagRule, bool) {
	return findRule(c.current.Load().rules, tag)
}

// Convert converts single node. Result is nil when node does not produce any output.
func (c *Converter) Convert(t etree.Token) etree.Token {
	if isNilToken(t) {
		return nil
	}
	return c.convert(c.current.Load(), t)
}

// ConvertInto converts nodes and appends results to parent.
func (c *Converter) ConvertInto(parent *etree.Element, tokens ...etree.Token) error {

	s := c.current.Load()
	for i, t := range tokens {
		if isNilToken(t) {
			return errors.Wrapf(ErrNilNode, "node %d", i)
		}
		if out := c.convert(s, t); out != nil {
			parent.AddChild(out)
		}
	}
	return nil
}

// Render converts nodes and returns concatenated serialized results.
func (c *Converter) Render(tokens ...etree.Token) (string, error) {

	var (
		buf strings.Builder
		s   = c.current.Load()
	)

	for i, t := range tokens {
		if isNilToken(t) {
			return "", errors.Wrapf(ErrNilNode, "node %d", i)
		}
		out := c.convert(s, t)
		if out == nil {
			continue
		}
		doc := etree.NewDocument()
		doc.WriteSettings = etree.WriteSettings{CanonicalText: true, CanonicalAttrVal: true}
		doc.AddChild(out)
		if _, err := doc.WriteTo(&buf); err != nil {
			return "", errors.Wrapf(err, "unable to serialize node %d", i)
		}
	}
	return buf.String(), nil
}

// RenderChildren renders content of e without e itself.
func (c *Converter) RenderChildren(e *etree.Element) (string, error) {
	if e == nil {
		return "", ErrNilNode
	}
	return c.Render(e.Child...)
}

func (c *Converter) convert(s *snapshot, t etree.Token) etree.Token {

	switch from := t.(type) {
	case *etree.CharData:
		if from.IsCData() {
			return nil
		}
		return etree.NewText(from.Data)
	case *etree.Element:
		if to := c.convertElement(s, from); to != nil {
			return to
		}
	}
	return nil
}

func (c *Converter) convertElement(s *snapshot, from *etree.Element) *etree.Element {

	tag := from.FullTag()

	var to *etree.Element
	if rule, ok := findRule(s.rules, tag); ok {
		if rule.Drop {
			c.log.Debug("Tag dropped by rule", zap.String("tag", tag))
			return nil
		}
		if len(rule.To) > 0 {
			to = etree.NewElement(rule.To)
		} else {
			to = etree.NewElement(tag)
		}
		if len(rule.Class) > 0 {
			to.CreateAttr("class", rule.Class)
		}
		if h, ok := s.handlers[rule.Handler]; ok && rule.Handler != HandlerNone {
			if to = h(s.opts, from, to); to == nil {
				c.log.Debug("Tag dropped by handler", zap.String("tag", tag), zap.Stringer("handler", rule.Handler))
				return nil
			}
		}
	} else {
		c.log.Debug("Unexpected tag, transferring", zap.String("tag", tag))
		to = etree.NewElement(tag)
	}

	if id, ok := getAttrValue(from, "id"); ok {
		to.CreateAttr("id", id)
	}

	for _, child := range from.Child {
		if out := c.convert(s, child); out != nil {
			to.AddChild(out)
		}
	}

	// keep explicit closing tag for empty non-void elements
	if len(to.Child) == 0 && !IsVoid(to.FullTag()) {
		to.CreateText("")
	}
	return to
}
