package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/config"
	"github.com/dudu/facescore/internal/hub"
	"github.com/dudu/facescore/internal/inference"
	"github.com/dudu/facescore/internal/logging"
	"github.com/dudu/facescore/internal/pipeline"
	"github.com/dudu/facescore/internal/preprocess"
	"github.com/dudu/facescore/internal/registry"
)

// Version is the application version.
const Version = "0.1.0"

const defaultConfigPath = "facescore.yaml"

var (
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "facescore",
	Short:         "Detect a face in a photo and score it",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The default path is optional; an explicit one must exist.
		explicit := cmd.Flags().Changed("config")
		loaded, err := config.Load(configPath, !explicit)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
			if err := config.Validate(loaded); err != nil {
				return err
			}
		}
		cfg = loaded

		l, closer, err := logging.New(cfg.LoggingOptions())
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger, closeLog = l, closer
		return nil
	},
}

// Execute runs the root command with a context cancelled by Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command tree and then flushes and closes the log. cobra
// skips post-run hooks when RunE fails, so the log is closed here.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)

	if cerr := closeLog(); cerr != nil {
		fmt.Fprintln(os.Stderr, "failed to close log:", cerr)
	}
	logger, closeLog = zap.NewNop(), func() error { return nil }
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(scoreCmd, interactiveCmd, statusCmd, fetchCmd, inspectCmd)
}

func newResolver() *hub.Resolver {
	return hub.NewResolver(hub.Options{
		Endpoint: cfg.Hub.Endpoint,
		CacheDir: cfg.Hub.CacheDir,
		Offline:  cfg.Hub.Offline,
		Timeout:  cfg.Hub.Timeout,
		Logger:   logger,
	})
}

// openModels loads both models and prints the start-up summary. The returned
// function releases the models and the runtime; call it only when no worker
// can still be using them (see stopWorker).
func openModels(ctx context.Context, out io.Writer) (*registry.Registry, func()) {
	models := registry.New(registry.ONNXLoaders(cfg, newResolver(), logger), logger)
	models.Load(ctx)
	printModelSummary(out, models)

	release := func() {
		if err := models.Close(); err != nil {
			logger.Warn("failed to release models", zap.Error(err))
		}
		if err := inference.Shutdown(); err != nil {
			logger.Warn("failed to shut down runtime", zap.Error(err))
		}
	}
	return models, release
}

// stopWorker shuts the worker down and releases the models only once it has
// stopped. A worker still inside a forward pass keeps its sessions, which are
// reclaimed when the process exits.
func stopWorker(worker *pipeline.Worker, wait time.Duration, release func()) bool {
	if !worker.Shutdown(wait) {
		logger.Warn("worker still running, leaving models open", zap.Duration("wait", wait))
		return false
	}
	release()
	return true
}

func newPreprocessor() (*preprocess.Preprocessor, error) {
	return preprocess.New(cfg.Models.Scorer.InputHeight, cfg.Models.Scorer.InputWidth)
}

func printModelSummary(out io.Writer, models *registry.Registry) {
	fmt.Fprintln(out, "Model load status:")
	for _, h := range models.Handles() {
		line := fmt.Sprintf("  - %-8s %s", h.Kind, h.Status)
		if h.Status == registry.Loaded {
			line += fmt.Sprintf(" (%s, %s)", h.Source, h.Device)
		} else if h.Reason != "" {
			line += ": " + h.Reason
		}
		fmt.Fprintln(out, line)
	}
	if !models.LoadStatus().Ready() {
		fmt.Fprintln(out, "Warning: one or more models failed to load; every request will report them as unavailable.")
		return
	}
	fmt.Fprintf(out, "Models ready | device: %s\n", models.Device())
}
