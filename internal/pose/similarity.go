package pose

import (
	"math"

	"github.com/golang/geo/r2"
)

// similarity is a 2D transform dst = Scale*R(theta)*src + T.
type similarity struct {
	Scale    float64
	Cos, Sin float64
	T        r2.Point
}

func (s similarity) apply(p r2.Point) r2.Point {
	return r2.Point{
		X: s.Scale*(s.Cos*p.X-s.Sin*p.Y) + s.T.X,
		Y: s.Scale*(s.Sin*p.X+s.Cos*p.Y) + s.T.Y,
	}
}

// estimateSimilarity finds the least-squares similarity mapping src onto dst.
func estimateSimilarity(src, dst []r2.Point) similarity {
	n := len(src)
	if n == 0 || n != len(dst) {
		return similarity{Cos: 1}
	}

	// centroids
	var srcC, dstC r2.Point
	for i := 0; i < n; i++ {
		srcC = srcC.Add(src[i])
		dstC = dstC.Add(dst[i])
	}
	srcC = srcC.Mul(1 / float64(n))
	dstC = dstC.Mul(1 / float64(n))

	var srcNorm, dstNorm float64
	var a11, a12, a21, a22 float64
	for i := 0; i < n; i++ {
		s := src[i].Sub(srcC)
		d := dst[i].Sub(dstC)
		srcNorm += s.Dot(s)
		dstNorm += d.Dot(d)

		// cross-covariance
		a11 += s.X * d.X
		a12 += s.X * d.Y
		a21 += s.Y * d.X
		a22 += s.Y * d.Y
	}
	srcNorm = math.Sqrt(srcNorm)
	dstNorm = math.Sqrt(dstNorm)

	// cos(theta) ~ a11 + a22, sin(theta) ~ a12 - a21
	norm := math.Hypot(a11+a22, a12-a21)
	if norm < 1e-10 {
		norm = 1
	}
	out := similarity{
		Cos: (a11 + a22) / norm,
		Sin: (a12 - a21) / norm,
	}
	if out.Cos == 0 && out.Sin == 0 {
		out.Cos = 1
	}
	if srcNorm > 1e-10 {
		out.Scale = dstNorm / srcNorm
	}

	// translation: dstC - scale * R * srcC
	out.T = dstC.Sub(similarity{Scale: out.Scale, Cos: out.Cos, Sin: out.Sin}.apply(srcC))
	return out
}
