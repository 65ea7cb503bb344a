package pipeline

import (
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dudu/facescore/internal/detector"
	"github.com/dudu/facescore/internal/registry"
)

// Request is one accepted submission. Path is made absolute when the
// request is accepted and is not re-resolved afterwards.
type Request struct {
	ID          uuid.UUID
	Path        string
	SubmittedAt time.Time
}

// Name returns the file name of the request path.
func (r Request) Name() string {
	return filepath.Base(r.Path)
}

// Outcome is the result of one request. It is one of Success, NoFaceFound,
// InvalidBox, ModelsUnavailable, ReadFailure or InternalError.
type Outcome interface {
	outcome()
}

// Success carries the annotated image and the score.
type Success struct {
	Annotated image.Image
	Score     float64
	Box       detector.Box
}

// NoFaceFound means the detector returned no candidates.
type NoFaceFound struct {
	Original image.Image
}

// InvalidBox means the selected box was degenerate after clamping.
type InvalidBox struct {
	Original image.Image
	Box      detector.Box
}

// ModelsUnavailable means at least one model is not loaded. Nothing past
// the guard ran.
type ModelsUnavailable struct {
	Which []registry.Kind
}

// ReadFailure means the file could not be decoded as an image.
type ReadFailure struct {
	Path string
	Err  error
}

// InternalError covers every unexpected failure after the guard. Partial is
// the best image available at the time, possibly nil.
type InternalError struct {
	Message string
	Partial image.Image
	Err     error
}

func (Success) outcome()           {}
func (NoFaceFound) outcome()       {}
func (InvalidBox) outcome()        {}
func (ModelsUnavailable) outcome() {}
func (ReadFailure) outcome()       {}
func (InternalError) outcome()     {}

// Timing holds per-step durations of a request.
type Timing struct {
	Decode    time.Duration
	Detection time.Duration
	Scoring   time.Duration
	Total     time.Duration
}
