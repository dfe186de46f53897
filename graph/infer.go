package graph

import "fmt"

// NodeShapes holds the per-example tensor shapes resolved for one node,
// plus the explicit zero padding a same-policy window expands to. Pads
// is [top, left, bottom, right] and stays zero for valid padding.
type NodeShapes struct {
	Input  []int
	Output []int
	Pads   [4]int
}

// InferShapes walks the nodes in declaration order and resolves every
// node's input and output shape from the declared graph inputs, keyed
// by node name. Shapes are per example; serialization adds the batch
// dimension. The walk expects a validated Spec, so each referenced
// tensor is known by the time a node consumes it.
func InferShapes(s *Spec) (map[string]NodeShapes, error) {
	tensors := make(map[string][]int, len(s.Inputs)+len(s.Nodes))
	for _, in := range s.Inputs {
		tensors[in.Name] = in.Shape
	}

	resolved := make(map[string]NodeShapes, len(s.Nodes))
	for i := range s.Nodes {
		node := &s.Nodes[i]
		if len(node.Inputs) == 0 || len(node.Outputs) == 0 {
			return nil, fmt.Errorf("node %s: missing tensor references", node.Name)
		}
		in, ok := tensors[node.Inputs[0]]
		if !ok {
			return nil, fmt.Errorf("node %s: consumes unknown tensor %s", node.Name, node.Inputs[0])
		}

		ns := NodeShapes{Input: in}
		switch node.Type {
		case Convolution:
			if len(in) != 3 {
				return nil, fmt.Errorf("node %s: convolution wants [channels, height, width], got %v", node.Name, in)
			}
			p, err := windowParams(node)
			if err != nil {
				return nil, err
			}
			outChannels, err := nodeInt(node, "out_channels")
			if err != nil {
				return nil, err
			}
			h, w := convOutput(in[1], in[2], p.kernelH, p.kernelW, p.strideH, p.strideW, p.padding)
			ns.Output = []int{outChannels, h, w}
			if p.padding == PaddingSame {
				ns.Pads = samePads(in[1], in[2], p.kernelH, p.kernelW, p.strideH, p.strideW)
			}

		case Pooling:
			if len(in) != 3 {
				return nil, fmt.Errorf("node %s: pooling wants [channels, height, width], got %v", node.Name, in)
			}
			p, err := windowParams(node)
			if err != nil {
				return nil, err
			}
			h, w := poolOutput(in[1], in[2], p.kernelH, p.kernelW, p.strideH, p.strideW, p.padding)
			ns.Output = []int{in[0], h, w}
			if p.padding == PaddingSame {
				ns.Pads = samePads(in[1], in[2], p.kernelH, p.kernelW, p.strideH, p.strideW)
			}

		case Flatten:
			total := 1
			for _, d := range in {
				total *= d
			}
			ns.Output = []int{total}

		case InnerProduct:
			inputDim, err := nodeInt(node, "input_dim")
			if err != nil {
				return nil, err
			}
			outputDim, err := nodeInt(node, "output_dim")
			if err != nil {
				return nil, err
			}
			total := 1
			for _, d := range in {
				total *= d
			}
			if total != inputDim {
				return nil, fmt.Errorf("node %s: input_dim %d does not match incoming %v", node.Name, inputDim, in)
			}
			ns.Output = []int{outputDim}

		case ReLU, Softmax:
			ns.Output = in

		default:
			return nil, fmt.Errorf("node %s: unsupported layer type %s", node.Name, node.Type)
		}

		resolved[node.Name] = ns
		tensors[node.Outputs[0]] = ns.Output
	}
	return resolved, nil
}

type spatialParams struct {
	kernelH, kernelW int
	strideH, strideW int
	padding          Padding
}

// windowParams reads the kernel, stride and padding parameters shared by
// convolution and pooling nodes.
func windowParams(n *LayerNode) (spatialParams, error) {
	var p spatialParams
	var err error
	if p.kernelH, err = nodeInt(n, "kernel_h"); err != nil {
		return p, err
	}
	if p.kernelW, err = nodeInt(n, "kernel_w"); err != nil {
		return p, err
	}
	if p.strideH, err = nodeInt(n, "stride_h"); err != nil {
		return p, err
	}
	if p.strideW, err = nodeInt(n, "stride_w"); err != nil {
		return p, err
	}
	if p.strideH < 1 || p.strideW < 1 {
		return p, fmt.Errorf("node %s: stride must be positive", n.Name)
	}
	pad, ok := n.StringParam("padding")
	if !ok {
		return p, fmt.Errorf("node %s: missing padding parameter", n.Name)
	}
	switch pad {
	case "same":
		p.padding = PaddingSame
	case "valid":
		p.padding = PaddingValid
	default:
		return p, fmt.Errorf("node %s: unknown padding %q", n.Name, pad)
	}
	return p, nil
}

func nodeInt(n *LayerNode, key string) (int, error) {
	v, ok := n.IntParam(key)
	if !ok {
		return 0, fmt.Errorf("node %s: missing %s parameter", n.Name, key)
	}
	return v, nil
}
