//go:build darwin

package main

import (
	"fmt"
	"io"

	"github.com/tsawler/go-metal/checkpoints"
)

// printLayers lists the graph as the go-metal importer sees it.
func printLayers(out io.Writer, modelPath string) {
	fmt.Fprintln(out, "\nImporting with go-metal...")
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		fmt.Fprintf(out, "  (go-metal cannot import this graph: %v)\n", err)
		return
	}

	fmt.Fprintf(out, "  Layers: %d\n", len(checkpoint.ModelSpec.Layers))
	fmt.Fprintf(out, "  Weights: %d tensors\n", len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Fprintf(out, "  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
}
