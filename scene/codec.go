package scene

import (
	gojson "github.com/goccy/go-json"
	"github.com/sugawarayuuta/sonnet"
)

// Codec encodes and decodes the JSON scene format.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Sonnet is a JSON codec backed by github.com/sugawarayuuta/sonnet.
type Sonnet struct{}

// Marshal encodes the value to JSON.
func (Sonnet) Marshal(v any) ([]byte, error) { return sonnet.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (Sonnet) Unmarshal(data []byte, v any) error { return sonnet.Unmarshal(data, v) }

// Name returns "sonnet".
func (Sonnet) Name() string { return "sonnet" }

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
type GoJSON struct{}

// Marshal encodes the value to JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }

// Default is the codec used by Unmarshal, Decode and Marshal.
var Default Codec = Sonnet{}

// CodecByName returns a built-in codec by its name.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "sonnet", "":
		return Sonnet{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
