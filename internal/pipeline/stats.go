package pipeline

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
)

// DefaultWindow is the number of frames a Recorder keeps.
const DefaultWindow = 900

// StageSummary describes the recorded durations of one stage.
type StageSummary struct {
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
}

func (s StageSummary) String() string {
	return fmt.Sprintf("mean %.1fms p50 %.1fms p95 %.1fms", ms(s.Mean), ms(s.P50), ms(s.P95))
}

// Summary is the timing report printed when a run ends.
type Summary struct {
	Frames    int
	Detection StageSummary
	Filter    StageSummary
	Total     StageSummary
}

// Recorder keeps the timings of the most recent frames.
type Recorder struct {
	window    int
	frames    int
	detection stats.Float64Data
	filter    stats.Float64Data
	total     stats.Float64Data
}

// NewRecorder creates a recorder over the last window frames. A window of 0
// uses DefaultWindow.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recorder{window: window}
}

// Add records one frame.
func (r *Recorder) Add(t Timing) {
	r.frames++
	r.detection = r.push(r.detection, t.Detection)
	r.filter = r.push(r.filter, t.Filter)
	r.total = r.push(r.total, t.Total)
}

func (r *Recorder) push(data stats.Float64Data, d time.Duration) stats.Float64Data {
	data = append(data, float64(d))
	if len(data) > r.window {
		data = data[len(data)-r.window:]
	}
	return data
}

// Summary computes the statistics over the window. Frames counts every
// frame ever added.
func (r *Recorder) Summary() Summary {
	return Summary{
		Frames:    r.frames,
		Detection: summarize(r.detection),
		Filter:    summarize(r.filter),
		Total:     summarize(r.total),
	}
}

func summarize(data stats.Float64Data) StageSummary {
	if len(data) == 0 {
		return StageSummary{}
	}
	// errors only come from empty input
	mean, _ := stats.Mean(data)
	p50, _ := stats.Median(data)
	p95, _ := stats.Percentile(data, 95)
	return StageSummary{
		Mean: time.Duration(mean),
		P50:  time.Duration(p50),
		P95:  time.Duration(p95),
	}
}
