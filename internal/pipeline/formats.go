package pipeline

import (
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file types offered to users.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// SupportedFile reports whether path has a supported image extension. It is
// a front-end check only; the worker relies on decoding.
func SupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
