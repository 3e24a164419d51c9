// Package pipeline runs landmark detection and the selected warp filter over
// a stream of frames.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/dudu/facewarp/internal/filter"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
)

// Timing holds per-stage durations of one frame.
type Timing struct {
	Detection time.Duration
	Filter    time.Duration
	Total     time.Duration
}

// Options configures a Pipeline.
type Options struct {
	Logger *zap.SugaredLogger
	Clock  clock.Clock
	// Window is how many frames the timing summary keeps.
	Window int
}

// Pipeline detects landmarks on each frame and applies one of its filters.
type Pipeline struct {
	source     landmark.Source
	filters    []filter.WarpFilter
	current    int
	clock      clock.Clock
	logger     *zap.SugaredLogger
	lastTiming Timing
	recorder   *Recorder
}

// New creates a pipeline that starts with the first filter. The pipeline
// does not own source.
func New(source landmark.Source, filters []filter.WarpFilter, opts Options) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("pipeline needs a landmark source")
	}
	if len(filters) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one filter")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Pipeline{
		source:   source,
		filters:  filters,
		clock:    opts.Clock,
		logger:   opts.Logger,
		recorder: NewRecorder(opts.Window),
	}, nil
}

// Process warps one frame. A detection error is returned alongside an
// unwarped copy of the frame.
func (p *Pipeline) Process(frame *image.RGBA) (*image.RGBA, error) {
	var timing Timing
	start := p.clock.Now()

	lm, err := p.source.Detect(frame)
	timing.Detection = p.clock.Since(start)
	if err != nil {
		lm = nil
		err = fmt.Errorf("landmark detection failed: %w", err)
	}

	filterStart := p.clock.Now()
	out := p.Filter().Apply(frame, lm)
	if out == nil {
		out = resample.Clone(frame)
	}
	timing.Filter = p.clock.Since(filterStart)
	timing.Total = p.clock.Since(start)

	p.lastTiming = timing
	p.recorder.Add(timing)
	return out, err
}

// Filter returns the active filter.
func (p *Pipeline) Filter() filter.WarpFilter {
	return p.filters[p.current]
}

// Next switches to the following filter, wrapping around, and resets it.
// It returns the new filter name.
func (p *Pipeline) Next() string {
	p.current = (p.current + 1) % len(p.filters)
	p.Reset()
	name := p.Filter().Name()
	p.logger.Infow("filter selected", "filter", name)
	return name
}

// Reset clears the state of the active filter.
func (p *Pipeline) Reset() {
	if r, ok := p.Filter().(filter.Resetter); ok {
		r.Reset()
	}
}

// LastTiming returns timing from the last Process call.
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Summary returns the timing statistics of the recorded frames.
func (p *Pipeline) Summary() Summary {
	return p.recorder.Summary()
}

// Overlay returns the status lines drawn over the preview.
func (p *Pipeline) Overlay() []string {
	t := p.lastTiming
	lines := []string{"Filter: " + p.Filter().Name()}
	if t.Total > 0 {
		lines = append(lines, fmt.Sprintf("D:%.0fms F:%.0fms T:%.0fms (%.1f FPS)",
			ms(t.Detection), ms(t.Filter), ms(t.Total), 1000/ms(t.Total)))
	}
	return lines
}

// Run processes frames until the source ends, ctx is done or the quit key
// is pressed. Per-frame errors are logged and skipped. display may be nil.
func (p *Pipeline) Run(ctx context.Context, frames FrameSource, display Display) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := frames.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read frame: %w", err)
		}
		if frame == nil {
			continue
		}

		out, err := p.Process(frame)
		if err != nil {
			p.logger.Warnw("frame not warped", "error", err)
		}

		if display == nil {
			continue
		}
		display.Show(out, p.Overlay())
		switch display.WaitKey(1) {
		case KeyQuit, KeyEscape:
			p.logger.Info("quit requested")
			return nil
		case KeyNext:
			p.Next()
		case KeyReset:
			p.Reset()
			p.logger.Infow("filter reset", "filter", p.Filter().Name())
		}
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
