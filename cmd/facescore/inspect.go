package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/facescore/internal/inference"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <model.onnx>",
	Short: "Show the inputs, outputs and metadata of an ONNX model",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	modelPath := args[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Testing ONNX model: %s\n", modelPath)

	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model not found: %w", err)
	}

	if err := inference.Initialize(cfg.Runtime.SharedLibrary); err != nil {
		return fmt.Errorf("%w (set runtime.shared_library to the onnxruntime library)", err)
	}
	defer inference.Shutdown()

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	fmt.Fprintf(out, "\nInputs (%d):\n", len(inputs))
	for _, info := range inputs {
		fmt.Fprintf(out, "  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}
	fmt.Fprintf(out, "\nOutputs (%d):\n", len(outputs))
	for _, info := range outputs {
		fmt.Fprintf(out, "  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	printMetadata(out, modelPath)
	printLayers(out, modelPath)
	return nil
}

func printMetadata(out io.Writer, modelPath string) {
	fmt.Fprintln(out, "\nMetadata:")
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Fprintf(out, "  (Could not read metadata: %v)\n", err)
		return
	}
	defer metadata.Destroy()

	if producer, err := metadata.GetProducerName(); err == nil {
		fmt.Fprintf(out, "  Producer: %s\n", producer)
	}
	if version, err := metadata.GetVersion(); err == nil {
		fmt.Fprintf(out, "  Version: %d\n", version)
	}
	if domain, err := metadata.GetDomain(); err == nil {
		fmt.Fprintf(out, "  Domain: %s\n", domain)
	}
	if desc, err := metadata.GetDescription(); err == nil {
		fmt.Fprintf(out, "  Description: %s\n", desc)
	}
}
