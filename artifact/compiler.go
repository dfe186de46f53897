package artifact

import (
	"fmt"
	"os"

	"github.com/klauspost/cpuid/v2"

	"github.com/tsawler/go-mnist/onnx"
)

// CompileError wraps any failure while turning an artifact into an
// executable model. Callers treat it as opaque: it propagates without
// retry and flips no readiness flag.
type CompileError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Path, e.Err)
}

// Unwrap exposes the cause.
func (e *CompileError) Unwrap() error { return e.Err }

// CompiledModel is the handle a successful compilation returns.
type CompiledModel struct {
	Path      string
	Compiled  bool
	IRVersion int64
	Opset     int64
	Host      string
}

// Compiler loads a serialized artifact and verifies it is executable.
// The heavy lowering happens inside the training runtime; this stage
// proves the artifact parses and records the host it was compiled on.
type Compiler struct{}

// NewCompiler returns a Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile reads, parses and structurally verifies the artifact at path.
func (c *Compiler) Compile(path string) (*CompiledModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}

	model, err := onnx.ParseModel(data)
	if err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}

	if model.Graph == nil {
		return nil, &CompileError{Path: path, Err: fmt.Errorf("artifact carries no graph")}
	}
	if len(model.Graph.Node) == 0 {
		return nil, &CompileError{Path: path, Err: fmt.Errorf("graph carries no nodes")}
	}
	if len(model.OpsetImport) == 0 {
		return nil, &CompileError{Path: path, Err: fmt.Errorf("artifact declares no opset")}
	}

	return &CompiledModel{
		Path:      path,
		Compiled:  true,
		IRVersion: model.IrVersion,
		Opset:     model.OpsetImport[0].Version,
		Host:      cpuid.CPU.BrandName,
	}, nil
}
