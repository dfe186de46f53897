// Package pipeline ties the preparation stages together: streaming the
// dataset into a Batch, building and serializing the classifier graph,
// and compiling the resulting artifact. A Controller runs the stages
// and exposes their readiness for observation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tsawler/go-mnist/artifact"
	"github.com/tsawler/go-mnist/config"
	"github.com/tsawler/go-mnist/ctxlog"
	"github.com/tsawler/go-mnist/dataset"
	"github.com/tsawler/go-mnist/graph"
)

// Controller drives the preparation pipeline over one configuration.
// The stages are independent; each flips its readiness flag only after
// it fully succeeds, so a failed stage leaves the flags as they were.
type Controller struct {
	cfg      *config.Config
	builder  *dataset.Builder
	compiler *artifact.Compiler

	mu            sync.Mutex
	batch         *dataset.Batch
	compiled      *artifact.CompiledModel
	modelPrepared bool
	modelCompiled bool
}

// NewController returns a Controller over cfg.
func NewController(cfg *config.Config) *Controller {
	return &Controller{
		cfg:      cfg,
		builder:  dataset.NewBuilder(),
		compiler: artifact.NewCompiler(),
	}
}

// PrepareDataset streams the configured dataset file into a Batch,
// blocking until the source is exhausted, the context is cancelled, or
// the source fails. Progress is observable through Subscribe. On
// success the Batch is stored and the preparation state reads Ready;
// on failure the state stays Preparing and no Batch is kept.
func (c *Controller) PrepareDataset(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	src, err := dataset.OpenFile(c.cfg.DatasetPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer src.Close()

	batches, failures, err := c.builder.Prepare(ctx, src, nil)
	if err != nil {
		return err
	}

	select {
	case batch := <-batches:
		c.mu.Lock()
		c.batch = batch
		c.mu.Unlock()
		stats := c.builder.Stats()
		logger.Info("dataset prepared", "examples", batch.Len(), "skipped", stats.Skipped)
		return nil
	case err := <-failures:
		return err
	}
}

// BuildModel constructs the digit-classifier topology with any
// configured training overrides, validates it, and serializes it to
// the configured artifact path. modelPrepared flips only after the
// write lands; validation failures surface before anything is written.
func (c *Controller) BuildModel() error {
	format, err := artifactFormat(c.cfg.Format)
	if err != nil {
		return err
	}

	spec, err := c.topology()
	if err != nil {
		return fmt.Errorf("failed to build model graph: %w", err)
	}

	if err := os.MkdirAll(c.cfg.ArtifactDir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	serializer := artifact.NewSerializer(format).WithScratchDir(c.cfg.ScratchDir)
	if err := serializer.Export(spec, c.cfg.ArtifactPath()); err != nil {
		return err
	}

	c.mu.Lock()
	c.modelPrepared = true
	c.mu.Unlock()
	return nil
}

// CompileModel hands the serialized artifact to the compiler and
// records the compiled handle. modelCompiled flips only on success; a
// CompileError leaves both readiness flags untouched.
func (c *Controller) CompileModel() error {
	compiled, err := c.compiler.Compile(c.cfg.ArtifactPath())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.compiled = compiled
	c.modelCompiled = true
	c.mu.Unlock()
	return nil
}

// Batch returns the prepared dataset, nil until PrepareDataset
// succeeds.
func (c *Controller) Batch() *dataset.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch
}

// CompiledModel returns the compile result, nil until CompileModel
// succeeds.
func (c *Controller) CompiledModel() *artifact.CompiledModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiled
}

// State reports the current preparation state and count.
func (c *Controller) State() dataset.Status {
	return c.builder.Tracker().Snapshot()
}

// Stats reports the decoded and skipped counters of the current or
// most recent preparation run.
func (c *Controller) Stats() dataset.Stats {
	return c.builder.Stats()
}

// ModelPrepared reports whether the model graph has been serialized.
func (c *Controller) ModelPrepared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelPrepared
}

// ModelCompiled reports whether the artifact has been compiled.
func (c *Controller) ModelCompiled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelCompiled
}

// Subscribe registers fn to run on every preparation transition.
// Register before PrepareDataset to observe the whole run. fn runs on
// the run's dispatch goroutine and must not block.
func (c *Controller) Subscribe(fn func(dataset.Status)) {
	c.builder.Tracker().Subscribe(fn)
}

// topology applies the config training overrides to the default
// training configuration. Overriding epochs or batch size pins both
// the value and its allowed set; a learning-rate override keeps the
// optimizer's bounds, so an out-of-range value still fails validation.
func (c *Controller) topology() (*graph.Spec, error) {
	training := graph.DefaultTrainingConfig()
	if t := c.cfg.Training; t != nil {
		if t.Epochs != nil {
			training.Epochs = graph.IntChoice{Value: *t.Epochs, Allowed: []int{*t.Epochs}}
		}
		if t.BatchSize != nil {
			training.BatchSize = graph.IntChoice{Value: *t.BatchSize, Allowed: []int{*t.BatchSize}}
		}
		if t.Shuffle != nil {
			training.Shuffle = *t.Shuffle
		}
		if t.LearningRate != nil {
			training.Optimizer.LearningRate.Value = *t.LearningRate
		}
	}
	return graph.DigitClassifierWithTraining(training)
}

// artifactFormat maps a config format name onto the serializer enum.
func artifactFormat(name string) (artifact.Format, error) {
	switch name {
	case "", "onnx":
		return artifact.FormatONNX, nil
	case "json":
		return artifact.FormatJSON, nil
	default:
		return 0, fmt.Errorf("pipeline: unknown artifact format %q", name)
	}
}
