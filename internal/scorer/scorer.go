// Package scorer runs the attractiveness regressor over a cropped face.
package scorer

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/dudu/facescore/internal/preprocess"
)

// Regressor maps a preprocessed face tensor to a single scalar.
type Regressor interface {
	Predict(input preprocess.Tensor) (float32, error)
	Close() error
}

// BeautyScorer combines the preprocessor and the regressor.
type BeautyScorer struct {
	pre   *preprocess.Preprocessor
	model Regressor
}

// New creates a scorer. Both arguments are required.
func New(pre *preprocess.Preprocessor, model Regressor) (*BeautyScorer, error) {
	if pre == nil || model == nil {
		return nil, errors.New("scorer requires a preprocessor and a regressor")
	}
	return &BeautyScorer{pre: pre, model: model}, nil
}

// Score returns the raw score for a cropped face.
func (s *BeautyScorer) Score(face image.Image) (float64, error) {
	tensor, err := s.pre.Prepare(face)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare face: %w", err)
	}

	v, err := s.model.Predict(tensor)
	if err != nil {
		return 0, fmt.Errorf("regressor forward pass failed: %w", err)
	}
	return float64(v), nil
}

// FormatScore renders a score with two decimals, the form shown to users.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
