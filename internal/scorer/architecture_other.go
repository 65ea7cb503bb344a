//go:build !darwin

package scorer

import "go.uber.org/zap"

// verifyLayers is a no-op where the go-metal importer is unavailable.
func verifyLayers(modelPath string, logger *zap.Logger) error {
	logger.Debug("layer check requires go-metal, skipping", zap.String("path", modelPath))
	return nil
}
