package pipeline

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/dudu/facescore/internal/registry"
	"github.com/dudu/facescore/internal/scorer"
)

// Markers used in Display.
const (
	// ErrorMarker appears in the status of every failure and is the score
	// text of an internal error.
	ErrorMarker = "Error"
	// NotAvailable is the score text when no score was produced.
	NotAvailable = "N/A"
	// StatusDelimiter separates the status category from its explanation.
	StatusDelimiter = " - "
)

const maxDisplayName = 40

// Display is what a front end shows for a completed request.
type Display struct {
	Image     image.Image // nil when nothing can be shown
	ScoreText string
	Status    string
}

// Completion is delivered exactly once per accepted request.
type Completion struct {
	Request Request
	Outcome Outcome
	Display Display
	Timing  Timing
}

// Present maps an outcome to the image, score text and status message.
func Present(o Outcome, path string) Display {
	name := filepath.Base(path)

	switch v := o.(type) {
	case Success:
		return Display{Image: v.Annotated, ScoreText: scorer.FormatScore(v.Score), Status: "Done: " + name}
	case NoFaceFound:
		return Display{Image: v.Original, ScoreText: NotAvailable, Status: "No face detected"}
	case InvalidBox:
		return Display{Image: v.Original, ScoreText: NotAvailable, Status: "Invalid face box detected"}
	case ModelsUnavailable:
		return Display{ScoreText: NotAvailable, Status: fmt.Sprintf("%s: %s model not loaded", ErrorMarker, kindNames(v.Which))}
	case ReadFailure:
		return Display{ScoreText: NotAvailable, Status: fmt.Sprintf("%s: cannot read image %s", ErrorMarker, filepath.Base(v.Path))}
	case InternalError:
		return Display{
			Image:     v.Partial,
			ScoreText: ErrorMarker,
			Status:    ErrorMarker + ": processing failed" + StatusDelimiter + v.Message,
		}
	default:
		return Display{ScoreText: ErrorMarker, Status: fmt.Sprintf("%s: unknown outcome %T", ErrorMarker, o)}
	}
}

// IsFailure reports whether the display describes an error.
func (d Display) IsFailure() bool {
	return d.ScoreText == ErrorMarker || strings.Contains(d.Status, ErrorMarker)
}

// StatusCategory returns the short part of a status message, before the
// first delimiter.
func StatusCategory(status string) string {
	category, _, found := strings.Cut(status, StatusDelimiter)
	if !found {
		return status
	}
	return strings.TrimSpace(category)
}

// DisplayName shortens long file names for status lines.
func DisplayName(path string) string {
	name := filepath.Base(path)
	r := []rune(name)
	if len(r) <= maxDisplayName {
		return name
	}
	return string(r[:maxDisplayName-3]) + "..."
}

func kindNames(kinds []registry.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
