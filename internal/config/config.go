// Package config loads the facescore YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dudu/facescore/internal/logging"
)

// Detector backends.
const (
	DetectorYOLOv8 = "yolov8"
	DetectorSCRFD  = "scrfd"
)

// Config represents the complete facescore configuration
type Config struct {
	Models  ModelsConfig  `yaml:"models"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Hub     HubConfig     `yaml:"hub"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`
}

// ModelsConfig contains both model definitions
type ModelsConfig struct {
	Detector DetectorConfig `yaml:"detector"`
	Scorer   ScorerConfig   `yaml:"scorer"`
}

// DetectorConfig describes the face detector artifact and its decoding
type DetectorConfig struct {
	Kind          string  `yaml:"kind"`           // yolov8 or scrfd
	Repo          string  `yaml:"repo"`           // hub repository, empty disables remote fetch
	Filename      string  `yaml:"filename"`       // file inside the repository
	Revision      string  `yaml:"revision"`       // branch, tag or commit
	FallbackPath  string  `yaml:"fallback_path"`  // local path used when the hub cannot resolve
	InputSize     int     `yaml:"input_size"`     // square network input
	ConfThreshold float32 `yaml:"conf_threshold"` // minimum candidate confidence
	NMSThreshold  float32 `yaml:"nms_threshold"`  // IoU above which candidates are suppressed
	InputName     string  `yaml:"input_name"`
	OutputName    string  `yaml:"output_name"` // yolov8 only; scrfd uses its fixed nine outputs
}

// ScorerConfig describes the local regressor weights
type ScorerConfig struct {
	Path        string `yaml:"path"`
	InputHeight int    `yaml:"input_height"`
	InputWidth  int    `yaml:"input_width"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
}

// RuntimeConfig selects the ONNX Runtime library and device policy
type RuntimeConfig struct {
	SharedLibrary string `yaml:"shared_library"`
	Device        string `yaml:"device"` // auto or cpu
}

// HubConfig controls remote model resolution
type HubConfig struct {
	Endpoint string        `yaml:"endpoint"`
	CacheDir string        `yaml:"cache_dir"`
	Offline  bool          `yaml:"offline"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig mirrors logging.Config in YAML form
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// UIConfig contains front-end settings
type UIConfig struct {
	Preview      bool          `yaml:"preview"`
	ShutdownWait time.Duration `yaml:"shutdown_wait"` // bounded wait for the worker on exit
	ProgressTick time.Duration `yaml:"progress_tick"`
}

// Default returns the built-in configuration.
//
// The default detector repository, arnabdhar/YOLOv8-Face-Detection, publishes
// PyTorch weights (model.pt) only, so fetching model.onnx from it fails with
// hub.ErrNotPublished and the fallback path is used. Export the weights with
// Ultralytics (yolo export model=model.pt format=onnx) and place the result
// at models.detector.fallback_path, or point repo and filename at a
// repository that publishes an ONNX export.
func Default() *Config {
	lc := logging.DefaultConfig()
	return &Config{
		Models: ModelsConfig{
			Detector: DetectorConfig{
				Kind:          DetectorYOLOv8,
				Repo:          "arnabdhar/YOLOv8-Face-Detection",
				Filename:      "model.onnx",
				Revision:      "main",
				FallbackPath:  "model.onnx",
				InputSize:     640,
				ConfThreshold: 0.25,
				NMSThreshold:  0.45,
				InputName:     "images",
				OutputName:    "output0",
			},
			Scorer: ScorerConfig{
				Path:        "beauty_cnn_model.onnx",
				InputHeight: 128,
				InputWidth:  128,
				InputName:   "input",
				OutputName:  "output",
			},
		},
		Runtime: RuntimeConfig{
			SharedLibrary: "",
			Device:        "auto",
		},
		Hub: HubConfig{
			Endpoint: "https://huggingface.co",
			Timeout:  2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      lc.Level,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		},
		UI: UIConfig{
			Preview:      false,
			ShutdownWait: time.Second,
			ProgressTick: 50 * time.Millisecond,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path, or a missing file when optional is set, yields the defaults.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoggingOptions converts the YAML section into logging.Config.
func (c *Config) LoggingOptions() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}
