package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
dataset_path = "/data/mnist_train.csv"
artifact_dir = "/out"
scratch_dir  = "/scratch"
format       = "json"

training {
  epochs     = 6
  batch_size = 32
  shuffle    = false
}
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatasetPath != "/data/mnist_train.csv" {
		t.Errorf("dataset_path = %q", cfg.DatasetPath)
	}
	if cfg.ArtifactDir != "/out" {
		t.Errorf("artifact_dir = %q", cfg.ArtifactDir)
	}
	if cfg.ScratchDir != "/scratch" {
		t.Errorf("scratch_dir = %q", cfg.ScratchDir)
	}
	if cfg.Format != "json" {
		t.Errorf("format = %q", cfg.Format)
	}

	if cfg.Training == nil {
		t.Fatal("training block not decoded")
	}
	if cfg.Training.Epochs == nil || *cfg.Training.Epochs != 6 {
		t.Errorf("training.epochs = %v", cfg.Training.Epochs)
	}
	if cfg.Training.BatchSize == nil || *cfg.Training.BatchSize != 32 {
		t.Errorf("training.batch_size = %v", cfg.Training.BatchSize)
	}
	if cfg.Training.Shuffle == nil || *cfg.Training.Shuffle != false {
		t.Errorf("training.shuffle = %v", cfg.Training.Shuffle)
	}
	if cfg.Training.LearningRate != nil {
		t.Errorf("training.learning_rate should stay nil, got %v", *cfg.Training.LearningRate)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dataset_path = "/data/train.csv"
artifact_dir = "/out"
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Format != "onnx" {
		t.Errorf("default format = %q, want onnx", cfg.Format)
	}
	if cfg.ScratchDir == "" {
		t.Error("scratch_dir default not applied")
	}
	if cfg.Training != nil {
		t.Errorf("training block should be nil, got %+v", cfg.Training)
	}
}

func TestLoadEvalVariables(t *testing.T) {
	path := writeConfig(t, `
dataset_path = "${tmpdir}/train.csv"
artifact_dir = "${tmpdir}/artifacts"
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := filepath.Join(os.TempDir(), "train.csv")
	// HCL interpolation joins with the literal separator in the template.
	if cfg.DatasetPath != os.TempDir()+"/train.csv" && cfg.DatasetPath != want {
		t.Errorf("dataset_path = %q, tmpdir not substituted", cfg.DatasetPath)
	}
	if !strings.HasPrefix(cfg.ArtifactDir, os.TempDir()) {
		t.Errorf("artifact_dir = %q, tmpdir not substituted", cfg.ArtifactDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadBadSyntax(t *testing.T) {
	path := writeConfig(t, `dataset_path = `)
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoadMissingRequiredAttribute(t *testing.T) {
	path := writeConfig(t, `artifact_dir = "/out"`)
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected decode error for missing dataset_path, got nil")
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	path := writeConfig(t, `
dataset_path = "/data/train.csv"
artifact_dir = "/out"
format       = "yaml"
`)
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected validation error for unknown format, got nil")
	}
}

func TestValidateEmptyFields(t *testing.T) {
	cfg := Default()
	cfg.DatasetPath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty dataset_path")
	}

	cfg = Default()
	cfg.ArtifactDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty artifact_dir")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestArtifactPath(t *testing.T) {
	cfg := &Config{ArtifactDir: "/out", Format: "onnx"}
	if got := cfg.ArtifactPath(); got != filepath.Join("/out", "model.onnx") {
		t.Errorf("ArtifactPath = %q", got)
	}
	cfg.Format = "json"
	if got := cfg.ArtifactPath(); got != filepath.Join("/out", "model.json") {
		t.Errorf("ArtifactPath = %q", got)
	}
}
