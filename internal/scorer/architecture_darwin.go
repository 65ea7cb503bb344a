//go:build darwin

package scorer

import (
	"fmt"

	"github.com/tsawler/go-metal/checkpoints"
	"go.uber.org/zap"
)

// verifyLayers imports the graph with go-metal and counts its convolutions.
// Graphs the importer cannot read are only logged; ONNX Runtime remains the
// authority on whether the model runs.
func verifyLayers(modelPath string, logger *zap.Logger) error {
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		logger.Warn("go-metal could not import scorer graph, skipping layer check",
			zap.String("path", modelPath), zap.Error(err))
		return nil
	}

	types := make([]string, 0, len(checkpoint.ModelSpec.Layers))
	for _, layer := range checkpoint.ModelSpec.Layers {
		types = append(types, fmt.Sprint(layer.Type))
	}
	return checkConvBlocks(modelPath, types)
}
