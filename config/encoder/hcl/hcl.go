package hcl

import (
	"encoding/json"

	"github.com/hashicorp/hcl"

	"fb2html/config/encoder"
)

type hclEncoder struct{}

func (h hclEncoder) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode keeps HCL block semantics: every block becomes list of objects. Callers are expected to
// flatten single block lists if they need JSON like shape.
func (h hclEncoder) Decode(d []byte, v interface{}) error {
	return hcl.Unmarshal(d, v)
}

func (h hclEncoder) String() string {
	return "hcl"
}

func NewEncoder() encoder.Encoder {
	return hclEncoder{}
}
