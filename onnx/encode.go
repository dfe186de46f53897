package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal renders the model in ONNX wire format. Fields are appended in
// ascending field-number order and repeated fields keep their slice
// order, so equal models always marshal to identical bytes.
func (m *ModelProto) Marshal() []byte {
	var b []byte
	if m.IrVersion != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.IrVersion))
	}
	b = appendString(b, 2, m.ProducerName)
	b = appendString(b, 3, m.ProducerVersion)
	b = appendString(b, 4, m.Domain)
	if m.ModelVersion != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ModelVersion))
	}
	if m.Graph != nil {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Graph.marshal())
	}
	for _, op := range m.OpsetImport {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, op.marshal())
	}
	for _, kv := range m.Metadata {
		b = protowire.AppendTag(b, 14, protowire.BytesType)
		b = protowire.AppendBytes(b, kv.marshal())
	}
	return b
}

func (g *GraphProto) marshal() []byte {
	var b []byte
	for _, n := range g.Node {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, n.marshal())
	}
	b = appendString(b, 2, g.Name)
	for _, t := range g.Initializer {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, t.marshal())
	}
	b = appendString(b, 10, g.DocString)
	for _, v := range g.Input {
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshal())
	}
	for _, v := range g.Output {
		b = protowire.AppendTag(b, 12, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshal())
	}
	for _, v := range g.ValueInfo {
		b = protowire.AppendTag(b, 13, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshal())
	}
	return b
}

func (n *NodeProto) marshal() []byte {
	var b []byte
	for _, in := range n.Input {
		b = appendString(b, 1, in)
	}
	for _, out := range n.Output {
		b = appendString(b, 2, out)
	}
	b = appendString(b, 3, n.Name)
	b = appendString(b, 4, n.OpType)
	for _, a := range n.Attribute {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, a.marshal())
	}
	b = appendString(b, 7, n.Domain)
	return b
}

func (t *TensorProto) marshal() []byte {
	var b []byte
	if len(t.Dims) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, packVarints(t.Dims))
	}
	if t.DataType != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t.DataType))
	}
	if len(t.FloatData) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, packFloats(t.FloatData))
	}
	b = appendString(b, 8, t.Name)
	if len(t.RawData) > 0 {
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendBytes(b, t.RawData)
	}
	return b
}

func (a *AttributeProto) marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	if a.Type == AttributeProtoFloat {
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	}
	if a.Type == AttributeProtoInt {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.I))
	}
	if len(a.S) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	}
	if len(a.Floats) > 0 {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, packFloats(a.Floats))
	}
	if len(a.Ints) > 0 {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, packVarints(a.Ints))
	}
	for _, s := range a.Strings {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, s)
	}
	if a.Type != AttributeProtoUndefined {
		b = protowire.AppendTag(b, 20, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.Type))
	}
	return b
}

func (v *ValueInfoProto) marshal() []byte {
	var b []byte
	b = appendString(b, 1, v.Name)
	if v.Type != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Type.marshal())
	}
	return b
}

func (t *TypeProto) marshal() []byte {
	var b []byte
	if t.TensorType != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, t.TensorType.marshal())
	}
	return b
}

func (t *TensorTypeProto) marshal() []byte {
	var b []byte
	if t.ElemType != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t.ElemType))
	}
	if t.Shape != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, t.Shape.marshal())
	}
	return b
}

func (s *TensorShapeProto) marshal() []byte {
	var b []byte
	for _, d := range s.Dim {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, d.marshal())
	}
	return b
}

func (d *Dimension) marshal() []byte {
	var b []byte
	if d.Param != "" {
		b = appendString(b, 2, d.Param)
		return b
	}
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.Value))
	return b
}

func (o *OperatorSetID) marshal() []byte {
	var b []byte
	b = appendString(b, 1, o.Domain)
	if o.Version != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.Version))
	}
	return b
}

func (e *StringStringEntry) marshal() []byte {
	var b []byte
	b = appendString(b, 1, e.Key)
	b = appendString(b, 2, e.Value)
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func packVarints(vals []int64) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func packFloats(vals []float32) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}
