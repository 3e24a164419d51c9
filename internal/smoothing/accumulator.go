// Package smoothing damps per-frame jitter of anchor geometry.
package smoothing

// State reports how many samples an Accumulator has seen.
type State int

const (
	// Unset means no sample has been seen since construction or Reset.
	Unset State = iota
	// Initialized means the first sample was stored as-is.
	Initialized
	// Updated means at least one sample was blended into the average.
	Updated
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Initialized:
		return "initialized"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Accumulator is an exponential moving average over a fixed-length vector:
// s = Alpha*s + (1-Alpha)*x. Alpha 0 disables smoothing and values close to
// 1 follow the input slowly.
type Accumulator struct {
	alpha float64
	value []float64
	state State
}

// New creates an accumulator. alpha is clamped to [0,1).
func New(alpha float64) *Accumulator {
	if alpha < 0 {
		alpha = 0
	}
	if alpha >= 1 {
		alpha = 0.99
	}
	return &Accumulator{alpha: alpha}
}

// Alpha returns the weight of the previous average.
func (a *Accumulator) Alpha() float64 {
	return a.alpha
}

// Update blends sample into the average and returns a copy of the result.
// The first sample after a Reset, or a sample whose length differs from the
// stored one, restarts the average.
func (a *Accumulator) Update(sample ...float64) []float64 {
	if a.state == Unset || len(sample) != len(a.value) {
		a.value = append(a.value[:0], sample...)
		a.state = Initialized
		return a.Value()
	}
	for i, x := range sample {
		a.value[i] = a.alpha*a.value[i] + (1-a.alpha)*x
	}
	a.state = Updated
	return a.Value()
}

// Value returns a copy of the current average, or nil when unset.
func (a *Accumulator) Value() []float64 {
	if a.state == Unset {
		return nil
	}
	out := make([]float64, len(a.value))
	copy(out, a.value)
	return out
}

// State returns the accumulator state.
func (a *Accumulator) State() State {
	return a.state
}

// Initialized reports whether a sample has been seen since the last Reset.
func (a *Accumulator) Initialized() bool {
	return a.state != Unset
}

// Reset forgets the average.
func (a *Accumulator) Reset() {
	a.value = a.value[:0]
	a.state = Unset
}
