// Package extrude grows a textured protrusion out of the face over time.
package extrude

import (
	"math"
	"time"
)

// TimerState is the phase of a GrowthTimer.
type TimerState int

const (
	// NotStarted means no time has been observed since the last reset.
	NotStarted TimerState = iota
	// Growing means the length is still increasing.
	Growing
	// Saturated means the maximum length was reached.
	Saturated
)

func (s TimerState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Growing:
		return "growing"
	case Saturated:
		return "saturated"
	default:
		return "unknown"
	}
}

// GrowthTimer maps elapsed time to a length that eases in from Min to Max
// over Duration.
type GrowthTimer struct {
	Duration time.Duration
	Min, Max float64

	start   time.Time
	started bool
}

// NewGrowthTimer creates a stopped timer.
func NewGrowthTimer(duration time.Duration, minLength, maxLength float64) *GrowthTimer {
	return &GrowthTimer{Duration: duration, Min: minLength, Max: maxLength}
}

// Start starts the timer at now if it is not running yet.
func (g *GrowthTimer) Start(now time.Time) {
	if !g.started {
		g.start = now
		g.started = true
	}
}

// Elapsed returns the time since the timer started. The first call after a
// reset starts the timer and returns zero.
func (g *GrowthTimer) Elapsed(now time.Time) time.Duration {
	g.Start(now)
	d := now.Sub(g.start)
	if d < 0 {
		return 0
	}
	return d
}

// Progress returns clamp(elapsed/Duration, 0, 1)^1.5.
func (g *GrowthTimer) Progress(elapsed time.Duration) float64 {
	if g.Duration <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(g.Duration)
	p = math.Max(0, math.Min(1, p))
	return math.Pow(p, 1.5)
}

// Length returns the length after elapsed.
func (g *GrowthTimer) Length(elapsed time.Duration) float64 {
	return g.Min + (g.Max-g.Min)*g.Progress(elapsed)
}

// State reports the timer phase at now without starting it.
func (g *GrowthTimer) State(now time.Time) TimerState {
	if !g.started {
		return NotStarted
	}
	if g.Progress(now.Sub(g.start)) >= 1 {
		return Saturated
	}
	return Growing
}

// Reset stops the timer; the next Elapsed call restarts it.
func (g *GrowthTimer) Reset() {
	g.started = false
	g.start = time.Time{}
}
