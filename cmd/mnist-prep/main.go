// Command mnist-prep runs the training-preparation pipeline: it
// streams the MNIST dataset into memory, serializes the
// digit-classifier topology to a model artifact, and compiles the
// artifact for the device it runs on.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tsawler/go-mnist/config"
	"github.com/tsawler/go-mnist/ctxlog"
	"github.com/tsawler/go-mnist/dataset"
	"github.com/tsawler/go-mnist/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("mnist-prep", flag.ContinueOnError)
	configPath := flags.String("config", "", "HCL pipeline configuration file")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(ctx, *configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctrl := pipeline.NewController(cfg)

	// Redraw every hundredth record; the final count lands via Finish.
	bar := pipeline.NewProgressBar(os.Stdout, "preparing", 0)
	rendered := false
	ctrl.Subscribe(func(st dataset.Status) {
		if st.State == dataset.Preparing && st.Count > 0 && st.Count%100 == 0 {
			bar.Update(st.Count)
			rendered = true
		}
	})

	logger.Info("preparing dataset", "path", cfg.DatasetPath)
	if err := ctrl.PrepareDataset(ctx); err != nil {
		if rendered {
			fmt.Fprintln(os.Stdout)
		}
		return err
	}
	bar.Update(ctrl.Batch().Len())
	bar.Finish()
	stats := ctrl.Stats()
	logger.Info("dataset ready", "examples", ctrl.Batch().Len(), "skipped", stats.Skipped)

	logger.Info("building model", "artifact", cfg.ArtifactPath())
	if err := ctrl.BuildModel(); err != nil {
		return err
	}

	if err := ctrl.CompileModel(); err != nil {
		return err
	}
	compiled := ctrl.CompiledModel()
	logger.Info("model compiled",
		"path", compiled.Path,
		"ir_version", compiled.IRVersion,
		"opset", compiled.Opset,
		"host", compiled.Host)

	return nil
}
