// Package encoder handles configuration file formats.
package encoder

// Encoder converts configuration between its textual representation and Go values.
type Encoder interface {
	Encode(interface{}) ([]byte, error)
	Decode([]byte, interface{}) error
	String() string
}
