// Package registry owns the detector and scorer models. Both are loaded once
// at process start and are read-only afterwards.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/detector"
	"github.com/dudu/facescore/internal/inference"
	"github.com/dudu/facescore/internal/logging"
	"github.com/dudu/facescore/internal/scorer"
)

// Kind identifies one of the two models.
type Kind int

const (
	// Detector is the face detection model.
	Detector Kind = iota
	// Scorer is the attractiveness regressor.
	Scorer
)

func (k Kind) String() string {
	switch k {
	case Detector:
		return "detector"
	case Scorer:
		return "scorer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the load state of a model.
type Status int

const (
	Unloaded Status = iota
	Loaded
	FailedToLoad
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case FailedToLoad:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Handle describes one model after Load. It never changes afterwards.
type Handle struct {
	Kind   Kind
	Status Status
	Device inference.Device
	Reason string // set when Status is FailedToLoad
	Source string // resolved artifact path
}

// LoadStatus reports which models are usable.
type LoadStatus struct {
	Detector bool
	Scorer   bool
}

// Ready reports whether both models are loaded.
func (s LoadStatus) Ready() bool {
	return s.Detector && s.Scorer
}

// Loaders materialize the models. Each returns the model and the artifact
// path it was opened from. A nil loader counts as a failed load.
type Loaders struct {
	Device   func() (inference.Device, error)
	Detector func(ctx context.Context, device inference.Device) (detector.Detector, string, error)
	Scorer   func(ctx context.Context, device inference.Device) (scorer.Regressor, string, error)
}

// Registry holds the loaded models.
type Registry struct {
	loaders Loaders
	log     *zap.Logger
	once    sync.Once

	mu        sync.RWMutex
	device    inference.Device
	handles   [2]Handle
	detector  detector.Detector
	regressor scorer.Regressor
}

// New creates an empty registry. Nothing is loaded until Load.
func New(loaders Loaders, logger *zap.Logger) *Registry {
	return &Registry{
		loaders: loaders,
		log:     logging.OrNop(logger).Named("registry"),
		handles: [2]Handle{{Kind: Detector}, {Kind: Scorer}},
	}
}

// Load selects the device and loads both models. Only the first call does
// any work; failures are recorded, never returned or retried.
func (r *Registry) Load(ctx context.Context) LoadStatus {
	r.once.Do(func() { r.load(ctx) })
	return r.LoadStatus()
}

func (r *Registry) load(ctx context.Context) {
	device := r.selectDevice()

	det, detHandle := loadModel(r.log, Detector, device, func() (detector.Detector, string, error) {
		if r.loaders.Detector == nil {
			return nil, "", errors.New("no loader configured")
		}
		return r.loaders.Detector(ctx, device)
	})
	reg, regHandle := loadModel(r.log, Scorer, device, func() (scorer.Regressor, string, error) {
		if r.loaders.Scorer == nil {
			return nil, "", errors.New("no loader configured")
		}
		return r.loaders.Scorer(ctx, device)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.device = device
	r.handles = [2]Handle{detHandle, regHandle}
	r.detector = det
	r.regressor = reg
}

func (r *Registry) selectDevice() (device inference.Device) {
	device = inference.DeviceCPU
	if r.loaders.Device == nil {
		return device
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("device selection panicked, using cpu", zap.Any("panic", p))
			device = inference.DeviceCPU
		}
	}()

	d, err := r.loaders.Device()
	if err != nil {
		r.log.Warn("device selection failed, using cpu", zap.Error(err))
		return inference.DeviceCPU
	}
	r.log.Info("compute device selected", zap.Stringer("device", d))
	return d
}

// loadModel runs one loader and converts every failure, panics included,
// into a FailedToLoad handle.
func loadModel[T any](log *zap.Logger, kind Kind, device inference.Device, fn func() (T, string, error)) (model T, h Handle) {
	h = Handle{Kind: kind, Status: FailedToLoad, Device: device}
	log = log.With(zap.Stringer("model", kind))

	defer func() {
		if p := recover(); p != nil {
			var zero T
			model = zero
			h.Status = FailedToLoad
			h.Reason = fmt.Sprintf("loader panicked: %v", p)
			log.Error("model load panicked", zap.Any("panic", p))
		}
	}()

	m, source, err := fn()
	h.Source = source
	switch {
	case err != nil:
		h.Reason = logging.NewOperationError("load "+kind.String(), "", err).Error()
		log.Error("model failed to load", zap.String("source", source), zap.Error(err))
		return model, h
	case any(m) == nil:
		h.Reason = "loader returned no model"
		log.Error("model failed to load", zap.String("reason", h.Reason))
		return model, h
	}

	h.Status = Loaded
	h.Reason = ""
	log.Info("model loaded", zap.String("source", source), zap.Stringer("device", device))
	return m, h
}

// Handle returns the handle of one model.
func (r *Registry) Handle(kind Kind) Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if kind < Detector || kind > Scorer {
		return Handle{Kind: kind, Status: FailedToLoad, Reason: "unknown model kind"}
	}
	return r.handles[kind]
}

// Handles returns both handles, detector first.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return []Handle{r.handles[Detector], r.handles[Scorer]}
}

// LoadStatus reports which models are loaded. Safe to call at any time.
func (r *Registry) LoadStatus() LoadStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return LoadStatus{
		Detector: r.handles[Detector].Status == Loaded,
		Scorer:   r.handles[Scorer].Status == Loaded,
	}
}

// Missing lists the models that are not loaded, detector first.
func (r *Registry) Missing() []Kind {
	status := r.LoadStatus()
	var missing []Kind
	if !status.Detector {
		missing = append(missing, Detector)
	}
	if !status.Scorer {
		missing = append(missing, Scorer)
	}
	return missing
}

// Device returns the device chosen by Load.
func (r *Registry) Device() inference.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device
}

// Detector returns the loaded detector, or nil.
func (r *Registry) Detector() detector.Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.detector
}

// Regressor returns the loaded scorer network, or nil.
func (r *Registry) Regressor() scorer.Regressor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.regressor
}

// Close releases both models.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.detector != nil {
		if err := r.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close detector: %w", err))
		}
		r.detector = nil
	}
	if r.regressor != nil {
		if err := r.regressor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close scorer: %w", err))
		}
		r.regressor = nil
	}
	return errors.Join(errs...)
}
