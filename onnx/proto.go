// Package onnx implements the subset of the ONNX protobuf schema this
// system exchanges with its model compiler: enough of ModelProto and
// friends to describe a feed-forward graph with initializers, plus a
// deterministic encoder and a wire-format parser.
package onnx

// TensorProto element types (onnx.TensorProto.DataType).
const (
	TensorProtoFloat  int32 = 1
	TensorProtoUint8  int32 = 2
	TensorProtoInt8   int32 = 3
	TensorProtoInt32  int32 = 6
	TensorProtoInt64  int32 = 7
	TensorProtoString int32 = 8
	TensorProtoBool   int32 = 9
	TensorProtoDouble int32 = 11
)

// AttributeProto value types (onnx.AttributeProto.AttributeType).
const (
	AttributeProtoUndefined int32 = 0
	AttributeProtoFloat     int32 = 1
	AttributeProtoInt       int32 = 2
	AttributeProtoString    int32 = 3
	AttributeProtoTensor    int32 = 4
	AttributeProtoGraph     int32 = 5
	AttributeProtoFloats    int32 = 6
	AttributeProtoInts      int32 = 7
	AttributeProtoStrings   int32 = 8
)

// ModelProto is the top-level ONNX container.
type ModelProto struct {
	IrVersion       int64               // field 1
	ProducerName    string              // field 2
	ProducerVersion string              // field 3
	Domain          string              // field 4
	ModelVersion    int64               // field 5
	Graph           *GraphProto         // field 7
	OpsetImport     []*OperatorSetID    // field 8
	Metadata        []*StringStringEntry // field 14
}

// GraphProto is the computation graph: nodes in execution order,
// initializers for weights, and the declared inputs and outputs.
type GraphProto struct {
	Node        []*NodeProto      // field 1
	Name        string            // field 2
	Initializer []*TensorProto    // field 5
	DocString   string            // field 10
	Input       []*ValueInfoProto // field 11
	Output      []*ValueInfoProto // field 12
	ValueInfo   []*ValueInfoProto // field 13
}

// NodeProto is one operator invocation.
type NodeProto struct {
	Input     []string          // field 1
	Output    []string          // field 2
	Name      string            // field 3
	OpType    string            // field 4
	Attribute []*AttributeProto // field 5
	Domain    string            // field 7
}

// TensorProto carries a constant tensor, used here for initializers.
type TensorProto struct {
	Dims      []int64   // field 1
	DataType  int32     // field 2
	FloatData []float32 // field 4, packed
	Name      string    // field 8
	RawData   []byte    // field 9
}

// AttributeProto is a named operator attribute.
type AttributeProto struct {
	Name    string    // field 1
	F       float32   // field 2
	I       int64     // field 3
	S       []byte    // field 4
	Floats  []float32 // field 6
	Ints    []int64   // field 7
	Strings [][]byte  // field 8
	Type    int32     // field 20
}

// ValueInfoProto declares a named, typed graph input or output.
type ValueInfoProto struct {
	Name string     // field 1
	Type *TypeProto // field 2
}

// TypeProto wraps the type of a value; only tensor types appear here.
type TypeProto struct {
	TensorType *TensorTypeProto // field 1
}

// TensorTypeProto is an element type plus a shape.
type TensorTypeProto struct {
	ElemType int32             // field 1
	Shape    *TensorShapeProto // field 2
}

// TensorShapeProto is an ordered list of dimensions.
type TensorShapeProto struct {
	Dim []*Dimension // field 1
}

// Dimension is one shape entry: a concrete size or a symbolic name.
type Dimension struct {
	Value int64  // field 1 (dim_value)
	Param string // field 2 (dim_param)
}

// OperatorSetID pins an operator-set domain to a version.
type OperatorSetID struct {
	Domain  string // field 1
	Version int64  // field 2
}

// StringStringEntry is one metadata key/value pair.
type StringStringEntry struct {
	Key   string // field 1
	Value string // field 2
}
