package pose

import (
	"github.com/golang/geo/r3"

	"github.com/dudu/facewarp/internal/landmark"
)

// GenericFace is a hand-authored 3D face in arbitrary units with the nose tip
// at the origin, +Y toward the forehead and +Z out of the face. The points
// match the landmark.PoseAnchors order: nose tip, chin, left eye corner,
// right eye corner, left mouth corner, right mouth corner.
var GenericFace = []r3.Vector{
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: -330, Z: -65},
	{X: -225, Y: 170, Z: -135},
	{X: 225, Y: 170, Z: -135},
	{X: -150, Y: -150, Z: -125},
	{X: 150, Y: -150, Z: -125},
}

// DefaultDepth is how far in front of the nose the forward target lies, in
// model units.
const DefaultDepth = 500.0

// Anchors returns the landmark indices matching GenericFace.
func Anchors() []int {
	return landmark.Indices(landmark.PoseAnchors)
}
