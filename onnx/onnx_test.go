package onnx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// sampleModel builds a model with one Conv node, a weight initializer,
// typed inputs and outputs, and metadata. It touches every message the
// codec handles.
func sampleModel() *ModelProto {
	return &ModelProto{
		IrVersion:       7,
		ProducerName:    "go-mnist",
		ProducerVersion: "1.0",
		ModelVersion:    1,
		OpsetImport:     []*OperatorSetID{{Domain: "", Version: 13}},
		Graph: &GraphProto{
			Name: "sample",
			Node: []*NodeProto{
				{
					Name:   "conv1",
					OpType: "Conv",
					Input:  []string{"image", "conv1_weight", "conv1_bias"},
					Output: []string{"conv1_out"},
					Attribute: []*AttributeProto{
						{Name: "kernel_shape", Type: AttributeProtoInts, Ints: []int64{3, 3}},
						{Name: "strides", Type: AttributeProtoInts, Ints: []int64{1, 1}},
						{Name: "pads", Type: AttributeProtoInts, Ints: []int64{1, 1, 1, 1}},
					},
				},
			},
			Initializer: []*TensorProto{
				{
					Name:      "conv1_bias",
					DataType:  TensorProtoFloat,
					Dims:      []int64{4},
					FloatData: []float32{0, 0.5, -0.5, 1.25},
				},
			},
			Input: []*ValueInfoProto{
				{
					Name: "image",
					Type: &TypeProto{TensorType: &TensorTypeProto{
						ElemType: TensorProtoFloat,
						Shape: &TensorShapeProto{Dim: []*Dimension{
							{Param: "batch"},
							{Value: 1},
							{Value: 28},
							{Value: 28},
						}},
					}},
				},
			},
			Output: []*ValueInfoProto{
				{
					Name: "conv1_out",
					Type: &TypeProto{TensorType: &TensorTypeProto{
						ElemType: TensorProtoFloat,
						Shape: &TensorShapeProto{Dim: []*Dimension{
							{Param: "batch"},
							{Value: 4},
							{Value: 28},
							{Value: 28},
						}},
					}},
				},
			},
		},
		Metadata: []*StringStringEntry{
			{Key: "training.optimizer", Value: "adam"},
			{Key: "training.epochs", Value: "6"},
		},
	}
}

// TestMarshalDeterministic verifies repeated encodes of the same model
// produce identical bytes.
func TestMarshalDeterministic(t *testing.T) {
	m := sampleModel()

	first := m.Marshal()
	second := m.Marshal()

	require.NotEmpty(t, first)
	assert.True(t, bytes.Equal(first, second), "two encodes of one model differ")

	// A structurally equal clone must encode to the same bytes too.
	clone := sampleModel()
	assert.True(t, bytes.Equal(first, clone.Marshal()), "equal models encode differently")
}

// TestMarshalParseRoundTrip verifies every field survives an
// encode/decode cycle.
func TestMarshalParseRoundTrip(t *testing.T) {
	m := sampleModel()

	parsed, err := ParseModel(m.Marshal())
	require.NoError(t, err)

	assert.Equal(t, int64(7), parsed.IrVersion)
	assert.Equal(t, "go-mnist", parsed.ProducerName)
	assert.Equal(t, "1.0", parsed.ProducerVersion)
	assert.Equal(t, int64(1), parsed.ModelVersion)

	require.Len(t, parsed.OpsetImport, 1)
	assert.Equal(t, int64(13), parsed.OpsetImport[0].Version)

	require.NotNil(t, parsed.Graph)
	assert.Equal(t, "sample", parsed.Graph.Name)

	require.Len(t, parsed.Graph.Node, 1)
	node := parsed.Graph.Node[0]
	assert.Equal(t, "conv1", node.Name)
	assert.Equal(t, "Conv", node.OpType)
	assert.Equal(t, []string{"image", "conv1_weight", "conv1_bias"}, node.Input)
	assert.Equal(t, []string{"conv1_out"}, node.Output)

	require.Len(t, node.Attribute, 3)
	assert.Equal(t, "kernel_shape", node.Attribute[0].Name)
	assert.Equal(t, []int64{3, 3}, node.Attribute[0].Ints)
	assert.Equal(t, []int64{1, 1, 1, 1}, node.Attribute[2].Ints)

	require.Len(t, parsed.Graph.Initializer, 1)
	init := parsed.Graph.Initializer[0]
	assert.Equal(t, "conv1_bias", init.Name)
	assert.Equal(t, TensorProtoFloat, init.DataType)
	assert.Equal(t, []int64{4}, init.Dims)
	assert.Equal(t, []float32{0, 0.5, -0.5, 1.25}, init.FloatData)

	require.Len(t, parsed.Graph.Input, 1)
	input := parsed.Graph.Input[0]
	assert.Equal(t, "image", input.Name)
	require.NotNil(t, input.Type)
	require.NotNil(t, input.Type.TensorType)
	assert.Equal(t, TensorProtoFloat, input.Type.TensorType.ElemType)

	dims := input.Type.TensorType.Shape.Dim
	require.Len(t, dims, 4)
	assert.Equal(t, "batch", dims[0].Param)
	assert.Equal(t, int64(28), dims[2].Value)

	require.Len(t, parsed.Metadata, 2)
	assert.Equal(t, "training.optimizer", parsed.Metadata[0].Key)
	assert.Equal(t, "adam", parsed.Metadata[0].Value)
	assert.Equal(t, "6", parsed.Metadata[1].Value)
}

// TestAttributeRoundTrip covers each attribute payload kind.
func TestAttributeRoundTrip(t *testing.T) {
	m := &ModelProto{
		IrVersion: 7,
		Graph: &GraphProto{
			Name: "attrs",
			Node: []*NodeProto{
				{
					Name:   "n",
					OpType: "Custom",
					Output: []string{"y"},
					Attribute: []*AttributeProto{
						{Name: "alpha", Type: AttributeProtoFloat, F: 0.25},
						{Name: "axis", Type: AttributeProtoInt, I: 1},
						{Name: "mode", Type: AttributeProtoString, S: []byte("constant")},
						{Name: "scales", Type: AttributeProtoFloats, Floats: []float32{1, 2.5, -3}},
						{Name: "shape", Type: AttributeProtoInts, Ints: []int64{4, 5, 6}},
						{Name: "names", Type: AttributeProtoStrings, Strings: [][]byte{[]byte("a"), []byte("b")}},
					},
				},
			},
		},
	}

	parsed, err := ParseModel(m.Marshal())
	require.NoError(t, err)
	require.Len(t, parsed.Graph.Node, 1)

	attrs := parsed.Graph.Node[0].Attribute
	require.Len(t, attrs, 6)

	assert.Equal(t, AttributeProtoFloat, attrs[0].Type)
	assert.InDelta(t, 0.25, attrs[0].F, 1e-9)

	assert.Equal(t, AttributeProtoInt, attrs[1].Type)
	assert.Equal(t, int64(1), attrs[1].I)

	assert.Equal(t, AttributeProtoString, attrs[2].Type)
	assert.Equal(t, "constant", string(attrs[2].S))

	assert.Equal(t, AttributeProtoFloats, attrs[3].Type)
	assert.Equal(t, []float32{1, 2.5, -3}, attrs[3].Floats)

	assert.Equal(t, AttributeProtoInts, attrs[4].Type)
	assert.Equal(t, []int64{4, 5, 6}, attrs[4].Ints)

	assert.Equal(t, AttributeProtoStrings, attrs[5].Type)
	require.Len(t, attrs[5].Strings, 2)
	assert.Equal(t, "a", string(attrs[5].Strings[0]))
	assert.Equal(t, "b", string(attrs[5].Strings[1]))
}

// TestAttributeZeroValues verifies scalar attributes keep their tag even
// when the payload is the zero value, so decode recovers the type.
func TestAttributeZeroValues(t *testing.T) {
	m := &ModelProto{
		IrVersion: 7,
		Graph: &GraphProto{
			Node: []*NodeProto{
				{
					Name:   "n",
					OpType: "Custom",
					Attribute: []*AttributeProto{
						{Name: "axis", Type: AttributeProtoInt, I: 0},
						{Name: "alpha", Type: AttributeProtoFloat, F: 0},
					},
				},
			},
		},
	}

	parsed, err := ParseModel(m.Marshal())
	require.NoError(t, err)

	attrs := parsed.Graph.Node[0].Attribute
	require.Len(t, attrs, 2)
	assert.Equal(t, AttributeProtoInt, attrs[0].Type)
	assert.Equal(t, int64(0), attrs[0].I)
	assert.Equal(t, AttributeProtoFloat, attrs[1].Type)
	assert.Equal(t, float32(0), attrs[1].F)
}

// TestTensorRawData verifies raw byte payloads survive the cycle.
func TestTensorRawData(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i)
	}
	m := &ModelProto{
		IrVersion: 7,
		Graph: &GraphProto{
			Initializer: []*TensorProto{
				{Name: "W", DataType: TensorProtoFloat, Dims: []int64{4, 4}, RawData: raw},
			},
		},
	}

	parsed, err := ParseModel(m.Marshal())
	require.NoError(t, err)
	require.Len(t, parsed.Graph.Initializer, 1)
	assert.Equal(t, raw, parsed.Graph.Initializer[0].RawData)
	assert.Equal(t, []int64{4, 4}, parsed.Graph.Initializer[0].Dims)
}

// TestParseUnpackedRepeated verifies the parser accepts repeated scalar
// fields written one element per tag, the pre-proto3 encoding.
func TestParseUnpackedRepeated(t *testing.T) {
	// TensorProto with dims written unpacked: two varint fields.
	var tensor []byte
	tensor = protowire.AppendTag(tensor, 1, protowire.VarintType)
	tensor = protowire.AppendVarint(tensor, 4)
	tensor = protowire.AppendTag(tensor, 1, protowire.VarintType)
	tensor = protowire.AppendVarint(tensor, 9)
	tensor = protowire.AppendTag(tensor, 8, protowire.BytesType)
	tensor = protowire.AppendString(tensor, "W")

	var graph []byte
	graph = protowire.AppendTag(graph, 5, protowire.BytesType)
	graph = protowire.AppendBytes(graph, tensor)

	var model []byte
	model = protowire.AppendTag(model, 1, protowire.VarintType)
	model = protowire.AppendVarint(model, 7)
	model = protowire.AppendTag(model, 7, protowire.BytesType)
	model = protowire.AppendBytes(model, graph)

	parsed, err := ParseModel(model)
	require.NoError(t, err)
	require.Len(t, parsed.Graph.Initializer, 1)
	assert.Equal(t, []int64{4, 9}, parsed.Graph.Initializer[0].Dims)
	assert.Equal(t, "W", parsed.Graph.Initializer[0].Name)
}

// TestParseSkipsUnknownFields verifies fields outside the handled subset
// are ignored rather than rejected.
func TestParseSkipsUnknownFields(t *testing.T) {
	data := sampleModel().Marshal()

	// Append a varint field and a length-delimited field with numbers the
	// parser does not know.
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)
	data = protowire.AppendTag(data, 25, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	parsed, err := ParseModel(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), parsed.IrVersion)
	assert.Equal(t, "go-mnist", parsed.ProducerName)
	require.NotNil(t, parsed.Graph)
	assert.Len(t, parsed.Graph.Node, 1)
}

// TestParseMalformed verifies corrupt payloads error instead of
// producing a silently wrong model.
func TestParseMalformed(t *testing.T) {
	data := sampleModel().Marshal()

	// Truncating mid-message leaves a length-delimited field short.
	_, err := ParseModel(data[:len(data)-10])
	assert.Error(t, err)

	// A tag announcing a huge payload that is not there.
	var bogus []byte
	bogus = protowire.AppendTag(bogus, 7, protowire.BytesType)
	bogus = protowire.AppendVarint(bogus, 1<<20)
	_, err = ParseModel(bogus)
	assert.Error(t, err)
}

// TestParseEmpty verifies empty input yields an empty model.
func TestParseEmpty(t *testing.T) {
	parsed, err := ParseModel(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), parsed.IrVersion)
	assert.Nil(t, parsed.Graph)
}

// TestDimensionEncoding verifies symbolic and fixed dimensions encode
// distinctly.
func TestDimensionEncoding(t *testing.T) {
	m := &ModelProto{
		IrVersion: 7,
		Graph: &GraphProto{
			Input: []*ValueInfoProto{
				{
					Name: "x",
					Type: &TypeProto{TensorType: &TensorTypeProto{
						ElemType: TensorProtoFloat,
						Shape: &TensorShapeProto{Dim: []*Dimension{
							{Param: "batch"},
							{Value: 10},
						}},
					}},
				},
			},
		},
	}

	parsed, err := ParseModel(m.Marshal())
	require.NoError(t, err)

	dims := parsed.Graph.Input[0].Type.TensorType.Shape.Dim
	require.Len(t, dims, 2)
	assert.Equal(t, "batch", dims[0].Param)
	assert.Equal(t, int64(0), dims[0].Value)
	assert.Equal(t, "", dims[1].Param)
	assert.Equal(t, int64(10), dims[1].Value)
}
