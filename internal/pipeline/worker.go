// Package pipeline runs the single-image scoring pipeline: one submission at
// a time, every result delivered exactly once as a typed outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/facescore/internal/detector"
	"github.com/dudu/facescore/internal/imaging"
	"github.com/dudu/facescore/internal/logging"
	"github.com/dudu/facescore/internal/preprocess"
	"github.com/dudu/facescore/internal/registry"
	"github.com/dudu/facescore/internal/scorer"
)

// DefaultInputSize is the scorer input resolution (height and width).
const DefaultInputSize = 128

// boxThickness is the outline width drawn around the scored face.
const boxThickness = 2

// Handler receives completions. Calls are serialized and follow the order in
// which requests were accepted; a handler may call Submit.
type Handler func(Completion)

// Decoder loads a BGR image from an absolute path. The worker closes the
// returned Mat.
type Decoder func(path string) (gocv.Mat, error)

// Option configures a Worker.
type Option func(*Worker)

// WithHandler registers the completion handler.
func WithHandler(h Handler) Option {
	return func(w *Worker) { w.handler = h }
}

// WithDecoder replaces the image decoder.
func WithDecoder(d Decoder) Option {
	return func(w *Worker) { w.decode = d }
}

// WithPreprocessor sets the scorer input preprocessing.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(w *Worker) { w.pre = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.log = logging.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// Worker processes one request at a time.
//
// The pool size is fixed at one: ONNX Runtime sessions sharing one
// accelerator context are not known to be safe for concurrent Run calls, so
// a submission while Busy is rejected instead of queued.
type Worker struct {
	models  *registry.Registry
	pre     *preprocess.Preprocessor
	decode  Decoder
	handler Handler
	log     *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	current *Request
	closed  bool

	// deliverMu serializes handler calls.
	deliverMu sync.Mutex
}

// New creates an idle worker over models.
func New(models *registry.Registry, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		models:  models,
		decode:  imaging.DecodeFile,
		handler: func(Completion) {},
		log:     zap.NewNop(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.pre == nil {
		w.pre, _ = preprocess.New(DefaultInputSize, DefaultInputSize)
	}
	w.log = w.log.Named("pipeline")
	return w
}

// Submit starts processing path and returns immediately. It returns false,
// starting nothing, while a request is in flight or after Shutdown.
func (w *Worker) Submit(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	w.mu.Lock()
	if w.closed || !w.state.CanTransitionTo(StateBusy) {
		w.mu.Unlock()
		w.log.Debug("submission rejected", zap.String("path", abs))
		return false
	}
	req := Request{ID: uuid.New(), Path: abs, SubmittedAt: w.now()}
	w.state = StateBusy
	w.current = &req
	w.wg.Add(1)
	w.mu.Unlock()

	w.log.Info("request accepted", zap.Stringer("request_id", req.ID), zap.String("path", req.Path))
	go w.run(req)
	return true
}

// State returns the current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Current returns the in-flight request, if any.
func (w *Worker) Current() (Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return Request{}, false
	}
	return *w.current, true
}

// ModelStatus reports which models are loaded.
func (w *Worker) ModelStatus() registry.LoadStatus {
	return w.models.LoadStatus()
}

// Shutdown rejects further submissions and asks the in-flight request to
// stop at its next checkpoint. It waits at most wait and reports whether the
// worker finished. A forward pass already running is not interrupted.
func (w *Worker) Shutdown(wait time.Duration) bool {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(wait):
		w.log.Warn("worker still running after shutdown wait", zap.Duration("wait", wait))
		return false
	}
}

func (w *Worker) run(req Request) {
	defer w.wg.Done()

	start := w.now()
	var timing Timing
	outcome := w.process(req, &timing)
	timing.Total = w.now().Sub(start)

	w.deliver(Completion{
		Request: req,
		Outcome: outcome,
		Display: Present(outcome, req.Path),
		Timing:  timing,
	})
}

// deliver moves Busy -> Idle and calls the handler once.
func (w *Worker) deliver(c Completion) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	w.mu.Lock()
	w.state = StateIdle
	w.current = nil
	w.mu.Unlock()

	w.log.Info("request completed",
		zap.Stringer("request_id", c.Request.ID),
		zap.String("outcome", fmt.Sprintf("%T", c.Outcome)),
		zap.String("status", c.Display.Status),
		zap.Duration("total", c.Timing.Total))

	defer func() {
		if p := recover(); p != nil {
			w.log.Error("completion handler panicked", zap.Stringer("request_id", c.Request.ID), zap.Any("panic", p))
		}
	}()
	w.handler(c)
}

// process runs the work unit in order: guard, decode, locate, score, draw.
func (w *Worker) process(req Request, timing *Timing) (outcome Outcome) {
	if missing := w.models.Missing(); len(missing) > 0 {
		return ModelsUnavailable{Which: missing}
	}

	id := req.ID.String()
	log := logging.WithOperation(w.log, "process", id)

	// Best image available for InternalError.
	var partial image.Image
	defer func() {
		if p := recover(); p != nil {
			log.Error("processing panicked", zap.Any("panic", p))
			outcome = InternalError{
				Message: fmt.Sprint(p),
				Partial: partial,
				Err:     logging.NewOperationError("process", id, fmt.Errorf("panic: %v", p)),
			}
		}
	}()

	internal := func(step string, err error) Outcome {
		log.Error("step failed", zap.String("step", step), zap.Error(err))
		return InternalError{Message: err.Error(), Partial: partial, Err: logging.NewOperationError(step, id, err)}
	}
	// Shutdown is honoured between steps only.
	cancelled := func(step string) (Outcome, bool) {
		err := w.ctx.Err()
		if err == nil {
			return nil, false
		}
		log.Info("request cancelled", zap.String("step", step))
		return InternalError{Message: "processing cancelled", Partial: partial, Err: logging.NewOperationError(step, id, err)}, true
	}

	if o, stop := cancelled("decode"); stop {
		return o
	}
	t := w.now()
	mat, err := w.decode(req.Path)
	timing.Decode = w.now().Sub(t)
	if err != nil {
		log.Warn("image not readable", zap.Error(err))
		return ReadFailure{Path: req.Path, Err: err}
	}
	defer mat.Close()

	original, err := imaging.ToImage(mat)
	if err != nil {
		return internal("decode", err)
	}
	partial = original

	det := w.models.Detector()
	reg := w.models.Regressor()
	if det == nil || reg == nil {
		return internal("process", errors.New("models were released"))
	}

	if o, stop := cancelled("detect"); stop {
		return o
	}
	t = w.now()
	box, verdict, err := detector.NewLocator(det).Locate(mat)
	timing.Detection = w.now().Sub(t)
	if err != nil {
		return internal("detect", err)
	}
	switch verdict {
	case detector.NoFace:
		return NoFaceFound{Original: original}
	case detector.InvalidBox:
		return InvalidBox{Original: original, Box: box}
	}

	if o, stop := cancelled("score"); stop {
		return o
	}
	s, err := scorer.New(w.pre, reg)
	if err != nil {
		return internal("score", err)
	}
	t = w.now()
	crop := imaging.Crop(mat, box.Rect())
	defer crop.Close()
	face, err := imaging.ToImage(crop)
	if err != nil {
		return internal("score", err)
	}
	value, err := s.Score(face)
	timing.Scoring = w.now().Sub(t)
	if err != nil {
		return internal("score", err)
	}
	log.Debug("face scored", zap.Stringer("box", box), zap.Float64("score", value))

	drawn := imaging.DrawBox(mat, box.Corners(), imaging.BoxColor, boxThickness)
	defer drawn.Close()
	annotated, err := imaging.ToImage(drawn)
	if err != nil {
		return internal("draw", err)
	}

	return Success{
		Annotated: annotated,
		Score:     value,
		Box:       box,
	}
}
