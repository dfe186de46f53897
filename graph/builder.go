package graph

import (
	"fmt"
	"strings"
)

// TensorDecl declares a named tensor and its shape.
type TensorDecl struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

// Spec is a validated graph description: declared inputs, outputs and
// training-only inputs, the ordered layer nodes, and one training
// configuration. A Spec is immutable once Build returns it; the
// artifact serializer consumes it as-is.
type Spec struct {
	Inputs         []TensorDecl   `json:"inputs"`
	Outputs        []TensorDecl   `json:"outputs"`
	TrainingInputs []TensorDecl   `json:"training_inputs"`
	Nodes          []LayerNode    `json:"nodes"`
	Training       TrainingConfig `json:"training"`
}

// Summary renders a readable table of the graph for logs.
func (s *Spec) Summary() string {
	var sb strings.Builder
	sb.WriteString("Graph:\n")
	for _, in := range s.Inputs {
		fmt.Fprintf(&sb, "  input  %-12s %v\n", in.Name, in.Shape)
	}
	for _, in := range s.TrainingInputs {
		fmt.Fprintf(&sb, "  train  %-12s %v\n", in.Name, in.Shape)
	}
	for _, n := range s.Nodes {
		fmt.Fprintf(&sb, "  %-12s %-12s %v -> %v\n", n.Type, n.Name, n.Inputs, n.Outputs)
	}
	for _, out := range s.Outputs {
		fmt.Fprintf(&sb, "  output %-12s %v\n", out.Name, out.Shape)
	}
	fmt.Fprintf(&sb, "  loss %s(%s, %s), optimizer %s, epochs %d, batch %d, shuffle %t\n",
		s.Training.Loss.Kind, s.Training.Loss.Input, s.Training.Loss.Target,
		s.Training.Optimizer.Kind, s.Training.Epochs.Value, s.Training.BatchSize.Value,
		s.Training.Shuffle)
	return sb.String()
}

// Builder assembles a Spec step by step: tensor declarations first,
// then layer nodes in execution order, then the training configuration.
// Build validates the result and returns it immutable.
type Builder struct {
	inputs         []TensorDecl
	outputs        []TensorDecl
	trainingInputs []TensorDecl
	nodes          []LayerNode
	training       TrainingConfig
	hasTraining    bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Input declares a graph input tensor.
func (b *Builder) Input(name string, shape ...int) *Builder {
	b.inputs = append(b.inputs, TensorDecl{Name: name, Shape: shape})
	return b
}

// Output declares a graph output tensor. The name must be produced by
// one of the nodes.
func (b *Builder) Output(name string, shape ...int) *Builder {
	b.outputs = append(b.outputs, TensorDecl{Name: name, Shape: shape})
	return b
}

// TrainingInput declares a tensor fed only during training, such as the
// ground-truth labels the loss compares against.
func (b *Builder) TrainingInput(name string, shape ...int) *Builder {
	b.trainingInputs = append(b.trainingInputs, TensorDecl{Name: name, Shape: shape})
	return b
}

// Add appends a layer node.
func (b *Builder) Add(node LayerNode) *Builder {
	b.nodes = append(b.nodes, node)
	return b
}

// AddConvolution appends a Convolution node.
func (b *Builder) AddConvolution(name, input, output string, p ConvParams) *Builder {
	return b.Add(NewConvolution(name, input, output, p))
}

// AddPooling appends a Pooling node.
func (b *Builder) AddPooling(name, input, output string, p PoolParams) *Builder {
	return b.Add(NewPooling(name, input, output, p))
}

// AddFlatten appends a Flatten node.
func (b *Builder) AddFlatten(name, input, output string, order FlattenOrder) *Builder {
	return b.Add(NewFlatten(name, input, output, order))
}

// AddInnerProduct appends an InnerProduct node.
func (b *Builder) AddInnerProduct(name, input, output string, p InnerProductParams) *Builder {
	return b.Add(NewInnerProduct(name, input, output, p))
}

// AddReLU appends a ReLU node.
func (b *Builder) AddReLU(name, input, output string) *Builder {
	return b.Add(NewReLU(name, input, output))
}

// AddSoftmax appends a Softmax node.
func (b *Builder) AddSoftmax(name, input, output string) *Builder {
	return b.Add(NewSoftmax(name, input, output))
}

// WithTraining sets the training configuration.
func (b *Builder) WithTraining(cfg TrainingConfig) *Builder {
	b.training = cfg
	b.hasTraining = true
	return b
}

// Build validates the assembled graph and returns it. A rule violation
// surfaces as a *ValidationError naming the first rule broken and the
// offending node or tensor; no artifact can be serialized from a graph
// that failed validation.
func (b *Builder) Build() (*Spec, error) {
	if len(b.inputs) == 0 {
		return nil, fmt.Errorf("graph declares no input tensors")
	}
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("graph declares no layer nodes")
	}
	if !b.hasTraining {
		return nil, fmt.Errorf("graph declares no training configuration")
	}

	spec := &Spec{
		Inputs:         b.inputs,
		Outputs:        b.outputs,
		TrainingInputs: b.trainingInputs,
		Nodes:          b.nodes,
		Training:       b.training,
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}
