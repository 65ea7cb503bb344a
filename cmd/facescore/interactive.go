package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudu/facescore/internal/pipeline"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Read image paths from stdin and score them one at a time",
	Long: `Reads one image path per line. A path entered while the previous image
is still being processed is rejected, not queued.`,
	Args: cobra.NoArgs,
	RunE: runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	pre, err := newPreprocessor()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	models, release := openModels(ctx, cmd.ErrOrStderr())

	worker := pipeline.New(models,
		pipeline.WithPreprocessor(pre),
		pipeline.WithLogger(logger),
		pipeline.WithHandler(func(c pipeline.Completion) {
			fmt.Fprintf(out, "[%s] score=%s status=%s\n",
				pipeline.DisplayName(c.Request.Path), c.Display.ScoreText, c.Display.Status)
		}),
	)
	defer func() {
		if !stopWorker(worker, cfg.UI.ShutdownWait, release) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Worker still running at exit; shutting down anyway.")
		}
	}()

	lines := readLines(cmd.InOrStdin())
	fmt.Fprintln(out, "Enter image paths (Ctrl+D to finish):")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				waitIdle(cmd, worker)
				return nil
			}
			submit(out, worker, line)
		}
	}
}

func submit(out io.Writer, worker *pipeline.Worker, line string) {
	path := strings.TrimSpace(line)
	switch {
	case path == "":
		return
	case !pipeline.SupportedFile(path):
		fmt.Fprintf(out, "Unsupported file type: %s (choose PNG, JPG, JPEG or BMP)\n", pipeline.DisplayName(path))
	case !worker.Submit(path):
		fmt.Fprintln(out, "Still processing the previous image, please wait.")
	default:
		fmt.Fprintf(out, "Processing %s...\n", pipeline.DisplayName(path))
	}
}

// readLines streams r line by line until EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// waitIdle lets the last request finish after stdin closes.
func waitIdle(cmd *cobra.Command, worker *pipeline.Worker) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for worker.State() == pipeline.StateBusy {
		select {
		case <-cmd.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
