// Package config loads the pipeline configuration from HCL: where the
// dataset lives, where artifacts land, and optional training overrides.
// Config files may reference tmpdir and home so paths stay portable.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/tsawler/go-mnist/ctxlog"
)

// Config is the decoded pipeline configuration.
type Config struct {
	// DatasetPath is the CSV file the dataset builder consumes.
	DatasetPath string `hcl:"dataset_path,attr"`
	// ArtifactDir receives the serialized model artifacts.
	ArtifactDir string `hcl:"artifact_dir,attr"`
	// ScratchDir holds intermediate files. Defaults under the OS temp
	// directory; kept explicit so runs never depend on ambient state.
	ScratchDir string `hcl:"scratch_dir,optional"`
	// Format names the artifact encoding, "onnx" or "json".
	Format string `hcl:"format,optional"`
	// Training optionally overrides parts of the training schedule.
	Training *Training `hcl:"training,block"`
}

// Training overrides parts of the built-in training configuration. Nil
// fields keep the defaults. Overridden values still pass graph
// validation, so a value outside the allowed schedule fails the build.
type Training struct {
	Epochs       *int     `hcl:"epochs,optional"`
	BatchSize    *int     `hcl:"batch_size,optional"`
	Shuffle      *bool    `hcl:"shuffle,optional"`
	LearningRate *float64 `hcl:"learning_rate,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DatasetPath: filepath.Join("data", "mnist_train.csv"),
		ArtifactDir: "artifacts",
		ScratchDir:  filepath.Join(os.TempDir(), "go-mnist"),
		Format:      "onnx",
	}
}

// Load parses the HCL file at path, decodes it against the eval
// context, fills defaults and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"path", path,
		"dataset", cfg.DatasetPath,
		"artifact_dir", cfg.ArtifactDir,
		"format", cfg.Format)
	return &cfg, nil
}

// evalContext exposes tmpdir and home so config files can anchor paths
// without hardcoding machine specifics.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	vars["tmpdir"] = cty.StringVal(os.TempDir())
	if home, err := os.UserHomeDir(); err == nil {
		vars["home"] = cty.StringVal(home)
	} else {
		vars["home"] = cty.StringVal(".")
	}
	return &hcl.EvalContext{Variables: vars}
}

func (c *Config) applyDefaults() {
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "go-mnist")
	}
	if c.Format == "" {
		c.Format = "onnx"
	}
}

// Validate checks the configuration is complete and internally
// consistent. Path existence is not checked here; the pipeline surfaces
// I/O errors when it opens the files.
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("config: dataset_path must not be empty")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("config: artifact_dir must not be empty")
	}
	switch c.Format {
	case "onnx", "json":
	default:
		return fmt.Errorf("config: unknown artifact format %q", c.Format)
	}
	return nil
}

// ArtifactPath returns the destination file for the model artifact.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.ArtifactDir, "model."+c.Format)
}
