package artifact

import "fmt"

// Format selects the artifact encoding.
type Format int

const (
	// FormatONNX writes the binary protobuf the model compiler consumes.
	FormatONNX Format = iota
	// FormatJSON writes the graph specification as indented JSON for
	// inspection.
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatONNX:
		return "onnx"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Ext returns the conventional file extension for the format.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".onnx"
}
