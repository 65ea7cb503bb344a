package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dudu/facescore/internal/logging"
)

// Validate checks the configuration and fills derived defaults
func Validate(cfg *Config) error {
	if err := validateDetector(&cfg.Models.Detector); err != nil {
		return fmt.Errorf("models.detector: %w", err)
	}
	if err := validateScorer(&cfg.Models.Scorer); err != nil {
		return fmt.Errorf("models.scorer: %w", err)
	}

	switch strings.ToLower(cfg.Runtime.Device) {
	case "", "auto":
		cfg.Runtime.Device = "auto"
	case "cpu":
		cfg.Runtime.Device = "cpu"
	default:
		return fmt.Errorf("runtime.device must be 'auto' or 'cpu', got %q", cfg.Runtime.Device)
	}

	if cfg.Hub.Endpoint == "" {
		cfg.Hub.Endpoint = "https://huggingface.co"
	}
	cfg.Hub.Endpoint = strings.TrimRight(cfg.Hub.Endpoint, "/")
	if cfg.Hub.CacheDir == "" {
		cfg.Hub.CacheDir = DefaultCacheDir()
	}
	if cfg.Hub.Timeout <= 0 {
		cfg.Hub.Timeout = 2 * time.Minute
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if cfg.UI.ShutdownWait <= 0 {
		cfg.UI.ShutdownWait = time.Second
	}
	if cfg.UI.ProgressTick <= 0 {
		cfg.UI.ProgressTick = 50 * time.Millisecond
	}

	return nil
}

func validateDetector(d *DetectorConfig) error {
	d.Kind = strings.ToLower(d.Kind)
	switch d.Kind {
	case "":
		d.Kind = DetectorYOLOv8
	case DetectorYOLOv8, DetectorSCRFD:
	default:
		return fmt.Errorf("unknown kind %q (must be '%s' or '%s')", d.Kind, DetectorYOLOv8, DetectorSCRFD)
	}

	if d.Repo == "" && d.FallbackPath == "" {
		return fmt.Errorf("either repo or fallback_path is required")
	}
	if d.Repo != "" && d.Filename == "" {
		return fmt.Errorf("filename is required when repo is set")
	}
	if d.Revision == "" {
		d.Revision = "main"
	}

	if d.InputSize <= 0 {
		d.InputSize = 640
	}
	// SCRFD decodes feature maps at strides 8, 16 and 32.
	if d.Kind == DetectorSCRFD && d.InputSize%32 != 0 {
		return fmt.Errorf("input_size must be a multiple of 32 for scrfd, got %d", d.InputSize)
	}

	if d.ConfThreshold < 0 || d.ConfThreshold >= 1 {
		return fmt.Errorf("conf_threshold must be in [0, 1), got %v", d.ConfThreshold)
	}
	if d.NMSThreshold <= 0 || d.NMSThreshold > 1 {
		return fmt.Errorf("nms_threshold must be in (0, 1], got %v", d.NMSThreshold)
	}

	if d.InputName == "" {
		if d.Kind == DetectorSCRFD {
			d.InputName = "input.1"
		} else {
			d.InputName = "images"
		}
	}
	if d.OutputName == "" {
		d.OutputName = "output0"
	}
	return nil
}

func validateScorer(s *ScorerConfig) error {
	if s.Path == "" {
		return fmt.Errorf("path is required")
	}
	if s.InputHeight <= 0 || s.InputWidth <= 0 {
		return fmt.Errorf("input size must be positive, got %dx%d", s.InputWidth, s.InputHeight)
	}
	if s.InputName == "" {
		s.InputName = "input"
	}
	if s.OutputName == "" {
		s.OutputName = "output"
	}
	return nil
}

// DefaultCacheDir returns the model cache directory.
// Tries os.UserCacheDir, then os.TempDir.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "facescore", "hub")
}
