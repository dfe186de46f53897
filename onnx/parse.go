package onnx

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ParseModel decodes ONNX wire format into a ModelProto. Unknown fields
// are skipped, so artifacts from richer producers still parse.
func ParseModel(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			m.IrVersion = int64(v)
		case 2:
			m.ProducerName = string(val)
		case 3:
			m.ProducerVersion = string(val)
		case 4:
			m.Domain = string(val)
		case 5:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			m.ModelVersion = int64(v)
		case 7:
			g, err := parseGraph(val)
			if err != nil {
				return err
			}
			m.Graph = g
		case 8:
			op, err := parseOperatorSet(val)
			if err != nil {
				return err
			}
			m.OpsetImport = append(m.OpsetImport, op)
		case 14:
			kv, err := parseStringEntry(val)
			if err != nil {
				return err
			}
			m.Metadata = append(m.Metadata, kv)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("model: %v", err)
	}
	return m, nil
}

func parseGraph(data []byte) (*GraphProto, error) {
	g := &GraphProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			n, err := parseNode(val)
			if err != nil {
				return err
			}
			g.Node = append(g.Node, n)
		case 2:
			g.Name = string(val)
		case 5:
			t, err := parseTensor(val)
			if err != nil {
				return err
			}
			g.Initializer = append(g.Initializer, t)
		case 10:
			g.DocString = string(val)
		case 11, 12, 13:
			v, err := parseValueInfo(val)
			if err != nil {
				return err
			}
			switch num {
			case 11:
				g.Input = append(g.Input, v)
			case 12:
				g.Output = append(g.Output, v)
			case 13:
				g.ValueInfo = append(g.ValueInfo, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: %v", err)
	}
	return g, nil
}

func parseNode(data []byte) (*NodeProto, error) {
	n := &NodeProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			n.Input = append(n.Input, string(val))
		case 2:
			n.Output = append(n.Output, string(val))
		case 3:
			n.Name = string(val)
		case 4:
			n.OpType = string(val)
		case 5:
			a, err := parseAttribute(val)
			if err != nil {
				return err
			}
			n.Attribute = append(n.Attribute, a)
		case 7:
			n.Domain = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("node: %v", err)
	}
	return n, nil
}

func parseTensor(data []byte) (*TensorProto, error) {
	t := &TensorProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			dims, err := unpackVarints(val, typ)
			if err != nil {
				return err
			}
			t.Dims = append(t.Dims, dims...)
		case 2:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			t.DataType = int32(v)
		case 4:
			floats, err := unpackFloats(val, typ)
			if err != nil {
				return err
			}
			t.FloatData = append(t.FloatData, floats...)
		case 8:
			t.Name = string(val)
		case 9:
			t.RawData = append([]byte(nil), val...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tensor: %v", err)
	}
	return t, nil
}

func parseAttribute(data []byte) (*AttributeProto, error) {
	a := &AttributeProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			a.Name = string(val)
		case 2:
			v, err := asFixed32(val, typ)
			if err != nil {
				return err
			}
			a.F = math.Float32frombits(v)
		case 3:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			a.I = int64(v)
		case 4:
			a.S = append([]byte(nil), val...)
		case 6:
			floats, err := unpackFloats(val, typ)
			if err != nil {
				return err
			}
			a.Floats = append(a.Floats, floats...)
		case 7:
			ints, err := unpackVarints(val, typ)
			if err != nil {
				return err
			}
			a.Ints = append(a.Ints, ints...)
		case 8:
			a.Strings = append(a.Strings, append([]byte(nil), val...))
		case 20:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			a.Type = int32(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attribute: %v", err)
	}
	return a, nil
}

func parseValueInfo(data []byte) (*ValueInfoProto, error) {
	v := &ValueInfoProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			v.Name = string(val)
		case 2:
			tp, err := parseType(val)
			if err != nil {
				return err
			}
			v.Type = tp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("value info: %v", err)
	}
	return v, nil
}

func parseType(data []byte) (*TypeProto, error) {
	t := &TypeProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == 1 {
			tt, err := parseTensorType(val)
			if err != nil {
				return err
			}
			t.TensorType = tt
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("type: %v", err)
	}
	return t, nil
}

func parseTensorType(data []byte) (*TensorTypeProto, error) {
	t := &TensorTypeProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			t.ElemType = int32(v)
		case 2:
			s, err := parseShape(val)
			if err != nil {
				return err
			}
			t.Shape = s
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tensor type: %v", err)
	}
	return t, nil
}

func parseShape(data []byte) (*TensorShapeProto, error) {
	s := &TensorShapeProto{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == 1 {
			d := &Dimension{}
			err := walkFields(val, func(num protowire.Number, typ protowire.Type, val []byte) error {
				switch num {
				case 1:
					v, err := asVarint(val, typ)
					if err != nil {
						return err
					}
					d.Value = int64(v)
				case 2:
					d.Param = string(val)
				}
				return nil
			})
			if err != nil {
				return err
			}
			s.Dim = append(s.Dim, d)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("shape: %v", err)
	}
	return s, nil
}

func parseOperatorSet(data []byte) (*OperatorSetID, error) {
	o := &OperatorSetID{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			o.Domain = string(val)
		case 2:
			v, err := asVarint(val, typ)
			if err != nil {
				return err
			}
			o.Version = int64(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("opset: %v", err)
	}
	return o, nil
}

func parseStringEntry(data []byte) (*StringStringEntry, error) {
	e := &StringStringEntry{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			e.Key = string(val)
		case 2:
			e.Value = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("metadata entry: %v", err)
	}
	return e, nil
}

// walkFields iterates every field in a message, handing the visitor the
// field number, wire type, and raw value. Varint and fixed values are
// passed re-encoded so the visitor can reinterpret them; length-
// delimited values are passed as their payload.
func walkFields(data []byte, visit func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("invalid tag: %v", protowire.ParseError(n))
		}
		data = data[n:]

		var val []byte
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("field %d: invalid varint", num)
			}
			val = protowire.AppendVarint(nil, v)
			data = data[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return fmt.Errorf("field %d: invalid fixed32", num)
			}
			val = protowire.AppendFixed32(nil, v)
			data = data[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return fmt.Errorf("field %d: invalid fixed64", num)
			}
			val = protowire.AppendFixed64(nil, v)
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("field %d: invalid length-delimited value", num)
			}
			val = v
			data = data[n:]
		default:
			return fmt.Errorf("field %d: unsupported wire type %d", num, typ)
		}

		if err := visit(num, typ, val); err != nil {
			return err
		}
	}
	return nil
}

// asVarint reads a scalar that arrived as a varint field.
func asVarint(val []byte, typ protowire.Type) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("wire type %d, want varint", typ)
	}
	v, n := protowire.ConsumeVarint(val)
	if n < 0 {
		return 0, fmt.Errorf("invalid varint")
	}
	return v, nil
}

// asFixed32 reads a scalar that arrived as a fixed32 field.
func asFixed32(val []byte, typ protowire.Type) (uint32, error) {
	if typ != protowire.Fixed32Type {
		return 0, fmt.Errorf("wire type %d, want fixed32", typ)
	}
	v, n := protowire.ConsumeFixed32(val)
	if n < 0 {
		return 0, fmt.Errorf("invalid fixed32")
	}
	return v, nil
}

// unpackVarints reads a repeated varint field in either packed or
// unpacked encoding.
func unpackVarints(val []byte, typ protowire.Type) ([]int64, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(val)
		if n < 0 {
			return nil, fmt.Errorf("invalid varint")
		}
		return []int64{int64(v)}, nil
	case protowire.BytesType:
		var out []int64
		for len(val) > 0 {
			v, n := protowire.ConsumeVarint(val)
			if n < 0 {
				return nil, fmt.Errorf("invalid packed varint")
			}
			out = append(out, int64(v))
			val = val[n:]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wire type %d, want varint or packed", typ)
	}
}

// unpackFloats reads a repeated float field in either packed or
// unpacked encoding.
func unpackFloats(val []byte, typ protowire.Type) ([]float32, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(val)
		if n < 0 {
			return nil, fmt.Errorf("invalid fixed32")
		}
		return []float32{math.Float32frombits(v)}, nil
	case protowire.BytesType:
		if len(val)%4 != 0 {
			return nil, fmt.Errorf("packed float payload of %d bytes", len(val))
		}
		out := make([]float32, 0, len(val)/4)
		for len(val) > 0 {
			v, n := protowire.ConsumeFixed32(val)
			if n < 0 {
				return nil, fmt.Errorf("invalid packed float")
			}
			out = append(out, math.Float32frombits(v))
			val = val[n:]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wire type %d, want fixed32 or packed", typ)
	}
}
