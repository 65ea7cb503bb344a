package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/imaging"
	"github.com/dudu/facescore/internal/pipeline"
	"github.com/dudu/facescore/internal/progress"
	"github.com/dudu/facescore/internal/ui"
)

var (
	outputPath string
	preview    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <image>",
	Short: "Score the most prominent face in one image",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the annotated image to this PNG file")
	scoreCmd.Flags().BoolVarP(&preview, "preview", "p", false, "show the result in a preview window")
}

func runScore(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !pipeline.SupportedFile(path) {
		return fmt.Errorf("unsupported file type: %s (choose PNG, JPG, JPEG or BMP)", pipeline.DisplayName(path))
	}

	pre, err := newPreprocessor()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	models, release := openModels(ctx, cmd.ErrOrStderr())

	results := make(chan pipeline.Completion, 1)
	worker := pipeline.New(models,
		pipeline.WithPreprocessor(pre),
		pipeline.WithLogger(logger),
		pipeline.WithHandler(func(c pipeline.Completion) { results <- c }),
	)
	defer stopWorker(worker, cfg.UI.ShutdownWait, release)

	bar := progress.Start(cmd.ErrOrStderr(), "Processing "+pipeline.DisplayName(path), cfg.UI.ProgressTick)
	if !worker.Submit(path) {
		bar.Complete()
		return errors.New("still processing, try again later")
	}

	var c pipeline.Completion
	select {
	case c = <-results:
		bar.Complete()
	case <-ctx.Done():
		bar.Complete()
		return ctx.Err()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Score:  %s\n", c.Display.ScoreText)
	fmt.Fprintf(out, "Status: %s\n", c.Display.Status)
	logger.Debug("request timing",
		zap.Duration("decode", c.Timing.Decode),
		zap.Duration("detection", c.Timing.Detection),
		zap.Duration("scoring", c.Timing.Scoring),
		zap.Duration("total", c.Timing.Total))

	if outputPath != "" && c.Display.Image != nil {
		if err := imaging.SavePNG(outputPath, c.Display.Image); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved:  %s\n", outputPath)
	}

	if preview || cfg.UI.Preview {
		if err := showPreview(c.Display); err != nil {
			return err
		}
	}

	if c.Display.IsFailure() {
		return errors.New(pipeline.StatusCategory(c.Display.Status))
	}
	return nil
}

// showPreview blocks until a key is pressed or the window is closed.
func showPreview(d pipeline.Display) error {
	window := ui.NewWindow("facescore")
	defer window.Close()

	if err := window.Show(d); err != nil {
		return err
	}
	for {
		if key := window.WaitKey(100); key >= 0 || window.Closed() {
			return nil
		}
	}
}
