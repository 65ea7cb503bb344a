package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facescore.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Models.Detector.Kind != DetectorYOLOv8 {
		t.Errorf("detector kind = %q, want %q", cfg.Models.Detector.Kind, DetectorYOLOv8)
	}
	if cfg.Models.Scorer.InputHeight != 128 || cfg.Models.Scorer.InputWidth != 128 {
		t.Errorf("scorer input = %dx%d, want 128x128", cfg.Models.Scorer.InputWidth, cfg.Models.Scorer.InputHeight)
	}
	if cfg.Hub.CacheDir == "" {
		t.Error("cache dir should be filled in")
	}
	if cfg.UI.ShutdownWait != time.Second {
		t.Errorf("shutdown wait = %v, want 1s", cfg.UI.ShutdownWait)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(missing, true); err != nil {
		t.Fatalf("optional missing file should give defaults, got %v", err)
	}
	if _, err := Load(missing, false); err == nil {
		t.Fatal("required missing file should fail")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
models:
  detector:
    kind: SCRFD
    repo: ""
    fallback_path: models/scrfd_10g.onnx
    input_size: 640
    conf_threshold: 0.5
    nms_threshold: 0.4
    input_name: ""
  scorer:
    path: weights/beauty.onnx
runtime:
  device: CPU
hub:
  endpoint: http://mirror.local/
  cache_dir: /tmp/facescore-cache
logging:
  level: debug
ui:
  shutdown_wait: 250ms
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	d := cfg.Models.Detector
	if d.Kind != DetectorSCRFD {
		t.Errorf("kind = %q, want scrfd", d.Kind)
	}
	if d.InputName != "input.1" {
		t.Errorf("scrfd input name default = %q, want input.1", d.InputName)
	}
	if d.FallbackPath != "models/scrfd_10g.onnx" {
		t.Errorf("fallback path = %q", d.FallbackPath)
	}
	if cfg.Models.Scorer.Path != "weights/beauty.onnx" {
		t.Errorf("scorer path = %q", cfg.Models.Scorer.Path)
	}
	// untouched fields keep their defaults
	if cfg.Models.Scorer.InputHeight != 128 {
		t.Errorf("scorer height = %d, want default 128", cfg.Models.Scorer.InputHeight)
	}
	if cfg.Runtime.Device != "cpu" {
		t.Errorf("device = %q, want cpu", cfg.Runtime.Device)
	}
	if cfg.Hub.Endpoint != "http://mirror.local" {
		t.Errorf("endpoint = %q, want trailing slash trimmed", cfg.Hub.Endpoint)
	}
	if cfg.UI.ShutdownWait != 250*time.Millisecond {
		t.Errorf("shutdown wait = %v", cfg.UI.ShutdownWait)
	}
	if cfg.LoggingOptions().Level != "debug" {
		t.Errorf("logging level = %q", cfg.LoggingOptions().Level)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown detector", func(c *Config) { c.Models.Detector.Kind = "haar" }, "unknown kind"},
		{"no artifact", func(c *Config) {
			c.Models.Detector.Repo = ""
			c.Models.Detector.FallbackPath = ""
		}, "either repo or fallback_path"},
		{"repo without filename", func(c *Config) { c.Models.Detector.Filename = "" }, "filename is required"},
		{"scrfd odd size", func(c *Config) {
			c.Models.Detector.Kind = DetectorSCRFD
			c.Models.Detector.InputSize = 630
		}, "multiple of 32"},
		{"conf threshold", func(c *Config) { c.Models.Detector.ConfThreshold = 1.5 }, "conf_threshold"},
		{"nms threshold", func(c *Config) { c.Models.Detector.NMSThreshold = 0 }, "nms_threshold"},
		{"scorer path", func(c *Config) { c.Models.Scorer.Path = "" }, "path is required"},
		{"scorer size", func(c *Config) { c.Models.Scorer.InputWidth = -1 }, "input size"},
		{"device", func(c *Config) { c.Runtime.Device = "tpu" }, "runtime.device"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "models: [unclosed")
	if _, err := Load(path, false); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
