package registry

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/config"
	"github.com/dudu/facescore/internal/detector"
	"github.com/dudu/facescore/internal/hub"
	"github.com/dudu/facescore/internal/inference"
	"github.com/dudu/facescore/internal/logging"
	"github.com/dudu/facescore/internal/scorer"
)

// DetectorArtifact returns the hub artifact for the configured detector.
func DetectorArtifact(cfg config.DetectorConfig) hub.Artifact {
	return hub.Artifact{
		Repo:     cfg.Repo,
		Filename: cfg.Filename,
		Revision: cfg.Revision,
		Fallback: cfg.FallbackPath,
	}
}

// ONNXLoaders returns loaders that open both models with ONNX Runtime.
// The detector is resolved through the hub; the scorer is a local file that
// must match the scorer architecture.
func ONNXLoaders(cfg *config.Config, resolver *hub.Resolver, logger *zap.Logger) Loaders {
	logger = logging.OrNop(logger)

	return Loaders{
		Device: func() (inference.Device, error) {
			if err := inference.Initialize(cfg.Runtime.SharedLibrary); err != nil {
				return inference.DeviceCPU, err
			}
			return inference.SelectDevice(cfg.Runtime.Device), nil
		},

		Detector: func(ctx context.Context, device inference.Device) (detector.Detector, string, error) {
			d := cfg.Models.Detector
			path, err := resolver.Resolve(ctx, DetectorArtifact(d))
			if err != nil {
				return nil, "", fmt.Errorf("failed to resolve detector model: %w", err)
			}

			det, err := detector.New(d.Kind, path, detector.Options{
				InputSize:     d.InputSize,
				ConfThreshold: d.ConfThreshold,
				NMSThreshold:  d.NMSThreshold,
				InputName:     d.InputName,
				OutputName:    d.OutputName,
				Device:        device,
			})
			if err != nil {
				return nil, path, err
			}
			return det, path, nil
		},

		Scorer: func(ctx context.Context, device inference.Device) (scorer.Regressor, string, error) {
			s := cfg.Models.Scorer
			info, err := os.Stat(s.Path)
			if err != nil {
				return nil, s.Path, fmt.Errorf("scorer weights not found: %w", err)
			}
			if info.IsDir() {
				return nil, s.Path, fmt.Errorf("scorer weights path %s is a directory", s.Path)
			}

			err = scorer.VerifyArchitecture(s.Path, scorer.Expectation{
				InputName:   s.InputName,
				OutputName:  s.OutputName,
				InputHeight: s.InputHeight,
				InputWidth:  s.InputWidth,
			}, logger)
			if err != nil {
				return nil, s.Path, err
			}

			reg, err := scorer.NewONNXRegressor(s.Path, s.InputName, s.OutputName, device)
			if err != nil {
				return nil, s.Path, err
			}
			return reg, s.Path, nil
		},
	}
}
