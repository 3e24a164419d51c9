package landmark

import (
	"image"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Recording is the on-disk form of a landmark replay. Each frame is a list of
// [x, y, z] triples, or null when no face was seen.
type Recording struct {
	Frames [][][3]float64 `json:"frames"`
}

// Replay is a Source that returns recorded landmarks in order, looping at
// the end.
type Replay struct {
	mu     sync.Mutex
	frames []*Set
	next   int
}

// NewReplay builds a Replay from recorded sets. Nil entries mean no face.
func NewReplay(frames []*Set) *Replay {
	return &Replay{frames: frames}
}

// LoadReplay reads a recording from a JSON file.
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open landmark recording")
	}
	defer f.Close()
	return ReadReplay(f)
}

// ReadReplay decodes a recording.
func ReadReplay(r io.Reader) (*Replay, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode landmark recording")
	}
	if len(rec.Frames) == 0 {
		return nil, errors.New("landmark recording has no frames")
	}

	frames := make([]*Set, len(rec.Frames))
	for i, raw := range rec.Frames {
		if raw == nil {
			continue
		}
		points := make([]Point, len(raw))
		for j, xyz := range raw {
			points[j] = Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		frames[i] = NewSet(points)
	}
	return NewReplay(frames), nil
}

// WriteRecording encodes sets as a recording.
func WriteRecording(w io.Writer, sets []*Set) error {
	rec := Recording{Frames: make([][][3]float64, len(sets))}
	for i, s := range sets {
		if s == nil {
			continue
		}
		frame := make([][3]float64, s.Len())
		for j := 0; j < s.Len(); j++ {
			p := s.At(j)
			frame[j] = [3]float64{p.X, p.Y, p.Z}
		}
		rec.Frames[i] = frame
	}
	return errors.Wrap(json.NewEncoder(w).Encode(&rec), "failed to encode landmark recording")
}

// Detect ignores the image and returns the next recorded frame.
func (r *Replay) Detect(_ image.Image) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return nil, nil
	}
	s := r.frames[r.next]
	r.next = (r.next + 1) % len(r.frames)
	return s, nil
}

// Close is a no-op.
func (r *Replay) Close() error {
	return nil
}

// Capture is a Source that keeps every set its inner Source returns, so a
// live session can be saved and replayed later. It grows with the session.
type Capture struct {
	Source
	mu   sync.Mutex
	sets []*Set
}

// NewCapture wraps src. Closing the Capture closes src.
func NewCapture(src Source) *Capture {
	return &Capture{Source: src}
}

// Detect implements Source. Failed detections are not recorded.
func (c *Capture) Detect(img image.Image) (*Set, error) {
	s, err := c.Source.Detect(img)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.sets = append(c.sets, s)
	c.mu.Unlock()
	return s, nil
}

// Len returns the number of captured frames.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

// Save writes the captured frames to path in the format LoadReplay reads.
func (c *Capture) Save(path string) (err error) {
	c.mu.Lock()
	sets := append([]*Set(nil), c.sets...)
	c.mu.Unlock()
	if len(sets) == 0 {
		return errors.New("no frames captured")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create landmark recording")
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return WriteRecording(f, sets)
}
