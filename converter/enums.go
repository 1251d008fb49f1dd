package converter

import (
	"strings"
)

//go:generate go tool stringer -type=HandlerKind -linecomment

// HandlerKind selects special processing attached to a tag rule.
type HandlerKind int

// Known handlers. Names are the ones used in configuration files.
const (
	HandlerNone        HandlerKind = iota // none
	HandlerLink                           // a
	HandlerImage                          // img
	HandlerSub                            // sub
	HandlerSup                            // sup
	UnsupportedHandler                    //
)

// ParseHandlerString converts string to enum value. Case insensitive, empty string is HandlerNone.
func ParseHandlerString(name string) HandlerKind {

	if len(name) == 0 {
		return HandlerNone
	}
	for i := HandlerNone; i < UnsupportedHandler; i++ {
		if strings.EqualFold(i.String(), name) {
			return i
		}
	}
	return UnsupportedHandler
}

// MarshalText implements encoding.TextMarshaler.
func (h HandlerKind) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HandlerKind) UnmarshalText(text []byte) error {
	k := ParseHandlerString(string(text))
	if k == UnsupportedHandler {
		return &UnknownHandlerError{Name: string(text)}
	}
	*h = k
	return nil
}

// UnknownHandlerError is returned when handler name cannot be parsed.
type UnknownHandlerError struct {
	Name string
}

func (e *UnknownHandlerError) Error() string {
	return "unknown tag handler \"" + e.Name + "\""
}
