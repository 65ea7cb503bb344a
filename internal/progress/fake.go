// Package progress draws an approximate progress bar while a request runs.
// The bar is not driven by inference: it creeps towards 95% on a timer and
// jumps to 100% when the real outcome arrives.
package progress

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	step    = 2
	ceiling = 95
	full    = 100
)

// Fake is an animated progress bar with no link to real progress.
type Fake struct {
	bar *progressbar.ProgressBar

	mu    sync.Mutex
	value int

	once     sync.Once
	stop     chan struct{}
	finished chan struct{}
}

// Start draws a bar to w and advances it every tick.
func Start(w io.Writer, description string, tick time.Duration) *Fake {
	f := &Fake{
		bar: progressbar.NewOptions(full,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetPredictTime(false),
		),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go f.animate(tick)
	return f
}

func (f *Fake) animate(tick time.Duration) {
	defer close(f.finished)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.mu.Lock()
			if f.value < ceiling {
				f.value = min(f.value+step, ceiling)
				_ = f.bar.Set(f.value)
			}
			f.mu.Unlock()
		}
	}
}

// Value returns the displayed percentage.
func (f *Fake) Value() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Complete stops the animation, forces the bar to 100% and finishes it.
// Later calls do nothing.
func (f *Fake) Complete() {
	f.once.Do(func() {
		close(f.stop)
		<-f.finished

		f.mu.Lock()
		defer f.mu.Unlock()
		f.value = full
		_ = f.bar.Set(full)
		_ = f.bar.Finish()
	})
}
