// Package artifact turns a validated graph.Spec into a model artifact
// on disk and compiles artifacts back into executable handles. The
// binary format is ONNX (IR version 7, opset 13); the training
// configuration rides along as metadata so the training runtime reads
// everything from one file.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/tsawler/go-mnist/graph"
	"github.com/tsawler/go-mnist/onnx"
)

const (
	irVersion       = 7
	opsetVersion    = 13
	producerName    = "go-mnist"
	producerVersion = "1.0.0"
	graphName       = "go-mnist-model"
)

// Serializer writes graph specifications to disk. Encoding is
// deterministic: exporting an unchanged Spec twice produces
// byte-identical files. The destination is overwritten, never merged.
type Serializer struct {
	format  Format
	scratch string
}

// NewSerializer returns a Serializer producing the given format.
func NewSerializer(format Format) *Serializer {
	return &Serializer{format: format}
}

// WithScratchDir stages exports in dir before moving them into place,
// so an interrupted run never leaves a truncated file at the
// destination. The directory is created on first use.
func (s *Serializer) WithScratchDir(dir string) *Serializer {
	s.scratch = dir
	return s
}

// Export encodes spec and writes it to path. The write is scoped: the
// file is created or truncated, written and closed before Export
// returns. I/O failures come back wrapped, without retries.
func (s *Serializer) Export(spec *graph.Spec, path string) error {
	data, err := s.Encode(spec)
	if err != nil {
		return err
	}
	if s.scratch == "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		return nil
	}
	return s.stageWrite(data, path)
}

// stageWrite lands data at path by way of a staging file in the
// scratch directory.
func (s *Serializer) stageWrite(data []byte, path string) error {
	if err := os.MkdirAll(s.scratch, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.scratch, "artifact-*")
	if err != nil {
		return fmt.Errorf("failed to stage artifact: %w", err)
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to stage artifact: %w", werr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		// The scratch directory can sit on another filesystem, where
		// rename fails; write the destination directly instead.
		defer os.Remove(tmp.Name())
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}
	return nil
}

// Encode returns the artifact bytes without touching the filesystem.
func (s *Serializer) Encode(spec *graph.Spec) ([]byte, error) {
	switch s.format {
	case FormatONNX:
		model, err := buildModel(spec)
		if err != nil {
			return nil, err
		}
		return model.Marshal(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode spec as JSON: %v", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported artifact format %s", s.format)
	}
}

// buildModel lowers a Spec into ONNX form: one node per layer, except
// InnerProduct which becomes the MatMul+Add pair ONNX expresses dense
// layers as. Every learnable tensor gets a zero-filled initializer, the
// placeholder trained weights later replace.
func buildModel(spec *graph.Spec) (*onnx.ModelProto, error) {
	shapes, err := graph.InferShapes(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve graph shapes: %v", err)
	}

	g := &onnx.GraphProto{Name: graphName}
	for _, in := range spec.Inputs {
		g.Input = append(g.Input, valueInfo(in))
	}

	for i := range spec.Nodes {
		node := &spec.Nodes[i]

		var (
			nodes []*onnx.NodeProto
			inits []*onnx.TensorProto
			err   error
		)
		switch node.Type {
		case graph.Convolution:
			nodes, inits, err = convNodes(node, shapes[node.Name])
		case graph.Pooling:
			nodes, err = poolNodes(node, shapes[node.Name])
		case graph.Flatten:
			nodes = []*onnx.NodeProto{flattenNode(node)}
		case graph.InnerProduct:
			nodes, inits, err = innerProductNodes(node)
		case graph.ReLU:
			nodes = []*onnx.NodeProto{activationNode(node, "Relu")}
		case graph.Softmax:
			nodes = []*onnx.NodeProto{softmaxNode(node)}
		default:
			err = fmt.Errorf("unsupported layer type %s", node.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode node %s: %v", node.Name, err)
		}

		g.Node = append(g.Node, nodes...)
		g.Initializer = append(g.Initializer, inits...)
	}

	for _, out := range spec.Outputs {
		g.Output = append(g.Output, valueInfo(out))
	}

	return &onnx.ModelProto{
		IrVersion:       irVersion,
		ProducerName:    producerName,
		ProducerVersion: producerVersion,
		ModelVersion:    1,
		OpsetImport:     []*onnx.OperatorSetID{{Domain: "", Version: opsetVersion}},
		Graph:           g,
		Metadata:        trainingMetadata(&spec.Training),
	}, nil
}

func convNodes(node *graph.LayerNode, ns graph.NodeShapes) ([]*onnx.NodeProto, []*onnx.TensorProto, error) {
	inChannels, err := intParam(node, "in_channels")
	if err != nil {
		return nil, nil, err
	}
	outChannels, err := intParam(node, "out_channels")
	if err != nil {
		return nil, nil, err
	}
	kernelH, err := intParam(node, "kernel_h")
	if err != nil {
		return nil, nil, err
	}
	kernelW, err := intParam(node, "kernel_w")
	if err != nil {
		return nil, nil, err
	}
	strideH, err := intParam(node, "stride_h")
	if err != nil {
		return nil, nil, err
	}
	strideW, err := intParam(node, "stride_w")
	if err != nil {
		return nil, nil, err
	}
	useBias, _ := node.BoolParam("use_bias")

	weightName := node.Name + ".weight"
	inputs := []string{node.Inputs[0], weightName}
	inits := []*onnx.TensorProto{
		zeroTensor(weightName, outChannels, inChannels, kernelH, kernelW),
	}
	if useBias {
		biasName := node.Name + ".bias"
		inputs = append(inputs, biasName)
		inits = append(inits, zeroTensor(biasName, outChannels))
	}

	conv := &onnx.NodeProto{
		OpType: "Conv",
		Name:   node.Name,
		Input:  inputs,
		Output: []string{node.Outputs[0]},
		Attribute: []*onnx.AttributeProto{
			intsAttr("kernel_shape", kernelH, kernelW),
			intsAttr("strides", strideH, strideW),
			padsAttr(ns.Pads),
		},
	}
	return []*onnx.NodeProto{conv}, inits, nil
}

func poolNodes(node *graph.LayerNode, ns graph.NodeShapes) ([]*onnx.NodeProto, error) {
	kernelH, err := intParam(node, "kernel_h")
	if err != nil {
		return nil, err
	}
	kernelW, err := intParam(node, "kernel_w")
	if err != nil {
		return nil, err
	}
	strideH, err := intParam(node, "stride_h")
	if err != nil {
		return nil, err
	}
	strideW, err := intParam(node, "stride_w")
	if err != nil {
		return nil, err
	}

	kind, ok := node.StringParam("pool")
	if !ok {
		return nil, fmt.Errorf("missing pool parameter")
	}
	var opType string
	switch kind {
	case "max":
		opType = "MaxPool"
	case "average":
		opType = "AveragePool"
	default:
		return nil, fmt.Errorf("unknown pool kind %q", kind)
	}

	pool := &onnx.NodeProto{
		OpType: opType,
		Name:   node.Name,
		Input:  []string{node.Inputs[0]},
		Output: []string{node.Outputs[0]},
		Attribute: []*onnx.AttributeProto{
			intsAttr("kernel_shape", kernelH, kernelW),
			intsAttr("strides", strideH, strideW),
			padsAttr(ns.Pads),
		},
	}
	return []*onnx.NodeProto{pool}, nil
}

func flattenNode(node *graph.LayerNode) *onnx.NodeProto {
	n := activationNode(node, "Flatten")
	// Axis 1 keeps the batch dimension and collapses the rest.
	n.Attribute = []*onnx.AttributeProto{intAttr("axis", 1)}
	return n
}

func innerProductNodes(node *graph.LayerNode) ([]*onnx.NodeProto, []*onnx.TensorProto, error) {
	inputDim, err := intParam(node, "input_dim")
	if err != nil {
		return nil, nil, err
	}
	outputDim, err := intParam(node, "output_dim")
	if err != nil {
		return nil, nil, err
	}
	useBias, _ := node.BoolParam("use_bias")

	// Weights are stored [input, output], the layout MatMul consumes
	// directly.
	weightName := node.Name + ".weight"
	inits := []*onnx.TensorProto{zeroTensor(weightName, inputDim, outputDim)}

	matmulOutput := node.Outputs[0]
	if useBias {
		matmulOutput = node.Name + "_matmul_output"
	}
	matmul := &onnx.NodeProto{
		OpType: "MatMul",
		Name:   node.Name,
		Input:  []string{node.Inputs[0], weightName},
		Output: []string{matmulOutput},
	}
	nodes := []*onnx.NodeProto{matmul}

	if useBias {
		biasName := node.Name + ".bias"
		inits = append(inits, zeroTensor(biasName, outputDim))
		nodes = append(nodes, &onnx.NodeProto{
			OpType: "Add",
			Name:   node.Name + "_add_bias",
			Input:  []string{matmulOutput, biasName},
			Output: []string{node.Outputs[0]},
		})
	}
	return nodes, inits, nil
}

func activationNode(node *graph.LayerNode, opType string) *onnx.NodeProto {
	return &onnx.NodeProto{
		OpType: opType,
		Name:   node.Name,
		Input:  []string{node.Inputs[0]},
		Output: []string{node.Outputs[0]},
	}
}

func softmaxNode(node *graph.LayerNode) *onnx.NodeProto {
	n := activationNode(node, "Softmax")
	n.Attribute = []*onnx.AttributeProto{intAttr("axis", 1)}
	return n
}

// valueInfo declares a float tensor with a symbolic batch dimension
// ahead of the per-example shape.
func valueInfo(decl graph.TensorDecl) *onnx.ValueInfoProto {
	dims := []*onnx.Dimension{{Param: "batch"}}
	for _, d := range decl.Shape {
		dims = append(dims, &onnx.Dimension{Value: int64(d)})
	}
	return &onnx.ValueInfoProto{
		Name: decl.Name,
		Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
			ElemType: onnx.TensorProtoFloat,
			Shape:    &onnx.TensorShapeProto{Dim: dims},
		}},
	}
}

// zeroTensor builds a zero-filled float initializer of the given shape.
func zeroTensor(name string, shape ...int) *onnx.TensorProto {
	dims := make([]int64, len(shape))
	count := 1
	for i, s := range shape {
		dims[i] = int64(s)
		count *= s
	}
	return &onnx.TensorProto{
		Name:      name,
		DataType:  onnx.TensorProtoFloat,
		Dims:      dims,
		FloatData: make([]float32, count),
	}
}

// trainingMetadata flattens the training configuration into metadata
// entries so compiler and runtime read the schedule from the artifact
// itself. The entry order is fixed to keep encoding deterministic.
func trainingMetadata(cfg *graph.TrainingConfig) []*onnx.StringStringEntry {
	entries := []*onnx.StringStringEntry{
		{Key: "training.loss", Value: cfg.Loss.Kind.String()},
		{Key: "training.loss_input", Value: cfg.Loss.Input},
		{Key: "training.loss_target", Value: cfg.Loss.Target},
		{Key: "training.optimizer", Value: cfg.Optimizer.Kind.String()},
	}
	for _, np := range cfg.Optimizer.Params() {
		entries = append(entries, &onnx.StringStringEntry{
			Key:   "training." + np.Name,
			Value: strconv.FormatFloat(np.Param.Value, 'g', -1, 64),
		})
	}
	return append(entries,
		&onnx.StringStringEntry{Key: "training.epochs", Value: strconv.Itoa(cfg.Epochs.Value)},
		&onnx.StringStringEntry{Key: "training.batch_size", Value: strconv.Itoa(cfg.BatchSize.Value)},
		&onnx.StringStringEntry{Key: "training.shuffle", Value: strconv.FormatBool(cfg.Shuffle)},
	)
}

func intsAttr(name string, values ...int) *onnx.AttributeProto {
	ints := make([]int64, len(values))
	for i, v := range values {
		ints[i] = int64(v)
	}
	return &onnx.AttributeProto{Name: name, Type: onnx.AttributeProtoInts, Ints: ints}
}

func intAttr(name string, v int) *onnx.AttributeProto {
	return &onnx.AttributeProto{Name: name, Type: onnx.AttributeProtoInt, I: int64(v)}
}

func padsAttr(p [4]int) *onnx.AttributeProto {
	return intsAttr("pads", p[0], p[1], p[2], p[3])
}

func intParam(node *graph.LayerNode, key string) (int, error) {
	v, ok := node.IntParam(key)
	if !ok {
		return 0, fmt.Errorf("missing %s parameter", key)
	}
	return v, nil
}
