// Package graph declares layered neural-network topologies and their
// training configuration, validates them, and hands the result to the
// artifact serializer as an immutable Spec.
package graph

import (
	"encoding/json"
	"fmt"
)

// LayerType enumerates the supported layer variants.
type LayerType int

const (
	Convolution LayerType = iota
	Pooling
	Flatten
	InnerProduct
	ReLU
	Softmax
)

// String returns the layer type name used in summaries and artifacts.
func (lt LayerType) String() string {
	switch lt {
	case Convolution:
		return "Convolution"
	case Pooling:
		return "Pooling"
	case Flatten:
		return "Flatten"
	case InnerProduct:
		return "InnerProduct"
	case ReLU:
		return "ReLU"
	case Softmax:
		return "Softmax"
	default:
		return fmt.Sprintf("Unknown(%d)", int(lt))
	}
}

// MarshalJSON renders the layer type by name in JSON artifacts.
func (lt LayerType) MarshalJSON() ([]byte, error) {
	return json.Marshal(lt.String())
}

// Padding selects the spatial padding policy of a convolution or pool.
type Padding int

const (
	// PaddingSame pads with a zero border so stride-1 output keeps the
	// input's spatial size.
	PaddingSame Padding = iota
	// PaddingValid applies no padding.
	PaddingValid
)

// String returns the padding policy name.
func (p Padding) String() string {
	switch p {
	case PaddingSame:
		return "same"
	case PaddingValid:
		return "valid"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// PoolKind selects the pooling reduction.
type PoolKind int

const (
	MaxPool PoolKind = iota
	AvgPool
)

// String returns the pool kind name.
func (k PoolKind) String() string {
	switch k {
	case MaxPool:
		return "max"
	case AvgPool:
		return "average"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// FlattenOrder selects the axis order a Flatten layer collapses in.
type FlattenOrder int

const (
	ChannelFirst FlattenOrder = iota
	ChannelLast
)

// String returns the flatten order name.
func (o FlattenOrder) String() string {
	switch o {
	case ChannelFirst:
		return "channel_first"
	case ChannelLast:
		return "channel_last"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// LayerNode is one node of the graph: a typed layer with a unique name,
// ordered input and output tensor-name references, and variant-specific
// parameters.
type LayerNode struct {
	Type    LayerType              `json:"type"`
	Name    string                 `json:"name"`
	Inputs  []string               `json:"inputs"`
	Outputs []string               `json:"outputs"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// IntParam retrieves an integer parameter, tolerating the numeric types
// a JSON round-trip produces.
func (n *LayerNode) IntParam(key string) (int, bool) {
	switch v := n.Params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// BoolParam retrieves a boolean parameter.
func (n *LayerNode) BoolParam(key string) (bool, bool) {
	v, ok := n.Params[key].(bool)
	return v, ok
}

// StringParam retrieves a string parameter.
func (n *LayerNode) StringParam(key string) (string, bool) {
	v, ok := n.Params[key].(string)
	return v, ok
}

// ConvParams configures a Convolution node. Channel counts refer to the
// weight tensor layout [out, in, kernelH, kernelW].
type ConvParams struct {
	InChannels  int
	OutChannels int
	KernelH     int
	KernelW     int
	StrideH     int
	StrideW     int
	Padding     Padding
	UseBias     bool
}

// NewConvolution builds a Convolution node reading input and producing
// output.
func NewConvolution(name, input, output string, p ConvParams) LayerNode {
	return LayerNode{
		Type:    Convolution,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
		Params: map[string]interface{}{
			"in_channels":  p.InChannels,
			"out_channels": p.OutChannels,
			"kernel_h":     p.KernelH,
			"kernel_w":     p.KernelW,
			"stride_h":     p.StrideH,
			"stride_w":     p.StrideW,
			"padding":      p.Padding.String(),
			"use_bias":     p.UseBias,
		},
	}
}

// PoolParams configures a Pooling node.
type PoolParams struct {
	Kind    PoolKind
	KernelH int
	KernelW int
	StrideH int
	StrideW int
	Padding Padding
}

// NewPooling builds a Pooling node.
func NewPooling(name, input, output string, p PoolParams) LayerNode {
	return LayerNode{
		Type:    Pooling,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
		Params: map[string]interface{}{
			"pool":     p.Kind.String(),
			"kernel_h": p.KernelH,
			"kernel_w": p.KernelW,
			"stride_h": p.StrideH,
			"stride_w": p.StrideW,
			"padding":  p.Padding.String(),
		},
	}
}

// NewFlatten builds a Flatten node.
func NewFlatten(name, input, output string, order FlattenOrder) LayerNode {
	return LayerNode{
		Type:    Flatten,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
		Params: map[string]interface{}{
			"order": order.String(),
		},
	}
}

// InnerProductParams configures an InnerProduct (dense) node.
type InnerProductParams struct {
	InputDim  int
	OutputDim int
	UseBias   bool
}

// NewInnerProduct builds an InnerProduct node.
func NewInnerProduct(name, input, output string, p InnerProductParams) LayerNode {
	return LayerNode{
		Type:    InnerProduct,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
		Params: map[string]interface{}{
			"input_dim":  p.InputDim,
			"output_dim": p.OutputDim,
			"use_bias":   p.UseBias,
		},
	}
}

// NewReLU builds a ReLU activation node.
func NewReLU(name, input, output string) LayerNode {
	return LayerNode{
		Type:    ReLU,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
	}
}

// NewSoftmax builds a Softmax activation node.
func NewSoftmax(name, input, output string) LayerNode {
	return LayerNode{
		Type:    Softmax,
		Name:    name,
		Inputs:  []string{input},
		Outputs: []string{output},
	}
}
