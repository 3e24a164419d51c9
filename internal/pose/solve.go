package pose

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotConverged is returned when the solver runs out of iterations.
	ErrNotConverged = errors.New("pose solver did not converge")
	// ErrBehindCamera is returned when the solution puts the face behind the camera.
	ErrBehindCamera = errors.New("pose solution is behind the camera")
	// ErrReprojection is returned when the solution does not explain the landmarks.
	ErrReprojection = errors.New("pose reprojection error too large")
)

// SolverConfig bounds the Levenberg-Marquardt iteration.
type SolverConfig struct {
	MaxIterations int
	// Tolerance is the relative cost decrease below which the solve stops.
	Tolerance float64
	// MaxRMS is the largest accepted reprojection RMS as a fraction of the
	// frame width.
	MaxRMS float64
}

// DefaultSolverConfig is used for zero SolverConfig fields.
var DefaultSolverConfig = SolverConfig{
	MaxIterations: 100,
	Tolerance:     1e-10,
	MaxRMS:        0.1,
}

func (c SolverConfig) withDefaults() SolverConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultSolverConfig.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultSolverConfig.Tolerance
	}
	if c.MaxRMS <= 0 {
		c.MaxRMS = DefaultSolverConfig.MaxRMS
	}
	return c
}

// Estimate is a rigid model-to-camera transform.
type Estimate struct {
	Rotation    *mat.Dense
	Translation r3.Vector
	// RMS is the reprojection error in pixels.
	RMS        float64
	Iterations int
}

// Transform maps a model point into camera space.
func (e *Estimate) Transform(p r3.Vector) r3.Vector {
	return rotate(e.Rotation, p).Add(e.Translation)
}

// Project maps a model point into the image.
func (e *Estimate) Project(in Intrinsics, p r3.Vector) (r2.Point, bool) {
	return in.Project(e.Transform(p))
}

// Solve finds the rotation and translation that best project model onto
// image. The rotation is parameterized as Rodrigues(w) * Rz(theta) * flip,
// where flip turns the model's y-up, z-out axes into camera axes and theta is
// the in-plane roll of an initial 2D similarity fit.
func Solve(model []r3.Vector, image []r2.Point, in Intrinsics, cfg SolverConfig) (*Estimate, error) {
	if err := in.CheckValid(); err != nil {
		return nil, err
	}
	if len(model) < 4 || len(model) != len(image) {
		return nil, errors.Errorf("pose needs at least 4 matching points, got %d model and %d image", len(model), len(image))
	}
	for _, p := range image {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, errors.New("image points are not finite")
		}
	}
	cfg = cfg.withDefaults()

	// frontal projection of the model in image orientation
	flat := make([]r2.Point, len(model))
	for i, p := range model {
		flat[i] = r2.Point{X: p.X, Y: -p.Y}
	}
	sim := estimateSimilarity(flat, image)
	if sim.Scale <= 1e-9 {
		return nil, errors.New("landmarks are degenerate")
	}
	base := mat.NewDense(3, 3, []float64{
		sim.Cos, sim.Sin, 0,
		sim.Sin, -sim.Cos, 0,
		0, 0, -1,
	})
	tz := in.Fx / sim.Scale
	x := []float64{
		0, 0, 0,
		(sim.T.X - in.Ppx) * tz / in.Fx,
		(sim.T.Y - in.Ppy) * tz / in.Fy,
		tz,
	}

	residuals := func(y, x []float64) {
		r := mat.NewDense(3, 3, nil)
		r.Mul(rodrigues(r3.Vector{X: x[0], Y: x[1], Z: x[2]}), base)
		t := r3.Vector{X: x[3], Y: x[4], Z: x[5]}
		for i, p := range model {
			c := rotate(r, p).Add(t)
			z := c.Z
			if math.Abs(z) < 1e-9 {
				z = 1e-9
			}
			y[2*i] = c.X/z*in.Fx + in.Ppx - image[i].X
			y[2*i+1] = c.Y/z*in.Fy + in.Ppy - image[i].Y
		}
	}

	m := 2 * len(model)
	res := make([]float64, m)
	cost := func(x []float64) float64 {
		residuals(res, x)
		var s float64
		for _, v := range res {
			s += v * v
		}
		return s
	}

	jac := mat.NewDense(m, 6, nil)
	settings := &fd.JacobianSettings{Formula: fd.Central}
	lambda := 1e-3
	current := cost(x)
	converged := false
	iter := 0

	for ; iter < cfg.MaxIterations; iter++ {
		residuals(res, x)
		rv := mat.NewVecDense(m, append([]float64(nil), res...))
		fd.Jacobian(jac, residuals, x, settings)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), rv)

		improved := false
		for lambda < 1e12 {
			aug := mat.DenseCopyOf(&jtj)
			for i := 0; i < 6; i++ {
				aug.Set(i, i, jtj.At(i, i)*(1+lambda)+1e-12)
			}
			var step mat.VecDense
			if err := step.SolveVec(aug, &grad); err != nil {
				if _, ok := err.(mat.Condition); !ok {
					lambda *= 10
					continue
				}
			}
			next := make([]float64, 6)
			for i := range next {
				next[i] = x[i] - step.AtVec(i)
			}
			c := cost(next)
			if c < current && !math.IsNaN(c) {
				rel := (current - c) / math.Max(current, 1e-12)
				x = next
				current = c
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				if rel < cfg.Tolerance {
					converged = true
				}
				break
			}
			lambda *= 10
		}
		// no downhill step left means a minimum was reached
		if !improved || converged || current < 1e-18 {
			converged = true
			break
		}
	}

	if !converged {
		return nil, ErrNotConverged
	}
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return nil, errors.New("pose solution is not finite")
	}
	if x[5] <= 0 {
		return nil, ErrBehindCamera
	}
	rms := math.Sqrt(current / float64(len(model)))
	if rms > cfg.MaxRMS*float64(in.Width) {
		return nil, errors.Wrapf(ErrReprojection, "rms %.1fpx", rms)
	}

	rot := mat.NewDense(3, 3, nil)
	rot.Mul(rodrigues(r3.Vector{X: x[0], Y: x[1], Z: x[2]}), base)
	return &Estimate{
		Rotation:    rot,
		Translation: r3.Vector{X: x[3], Y: x[4], Z: x[5]},
		RMS:         rms,
		Iterations:  iter + 1,
	}, nil
}

// rodrigues converts an axis-angle vector into a rotation matrix.
func rodrigues(w r3.Vector) *mat.Dense {
	theta := w.Norm()
	k := mat.NewDense(3, 3, []float64{
		0, -w.Z, w.Y,
		w.Z, 0, -w.X,
		-w.Y, w.X, 0,
	})
	r := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if theta < 1e-12 {
		r.Add(r, k)
		return r
	}
	var k2 mat.Dense
	k2.Mul(k, k)
	a := math.Sin(theta) / theta
	b := (1 - math.Cos(theta)) / (theta * theta)
	var ks mat.Dense
	ks.Scale(a, k)
	r.Add(r, &ks)
	ks.Scale(b, &k2)
	r.Add(r, &ks)
	return r
}

func rotate(r mat.Matrix, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.At(0, 0)*p.X + r.At(0, 1)*p.Y + r.At(0, 2)*p.Z,
		Y: r.At(1, 0)*p.X + r.At(1, 1)*p.Y + r.At(1, 2)*p.Z,
		Z: r.At(2, 0)*p.X + r.At(2, 1)*p.Y + r.At(2, 2)*p.Z,
	}
}
