package landmark

// Region names a semantic part of the face mesh.
type Region string

// Regions used by the warp filters. Left and right are from the subject's
// point of view as laid out by the mesh topology.
const (
	Forehead       Region = "forehead"
	NoseBridge     Region = "nose_bridge"
	NoseTip        Region = "nose_tip"
	NoseBottom     Region = "nose_bottom"
	Chin           Region = "chin"
	LeftTemple     Region = "left_temple"
	RightTemple    Region = "right_temple"
	LeftCheekbone  Region = "left_cheekbone"
	RightCheekbone Region = "right_cheekbone"
	LeftJaw        Region = "left_jaw"
	RightJaw       Region = "right_jaw"
	LeftEyeOuter   Region = "left_eye_outer"
	RightEyeOuter  Region = "right_eye_outer"
	LeftIris       Region = "left_iris"
	RightIris      Region = "right_iris"
	LeftMouth      Region = "left_mouth"
	RightMouth     Region = "right_mouth"
	UpperLip       Region = "upper_lip"
	LowerLip       Region = "lower_lip"
	PoseAnchors    Region = "pose_anchors"
	FaceOval       Region = "face_oval"

	// Closed contours, in ring order.
	LeftEyeContour  Region = "left_eye_contour"
	RightEyeContour Region = "right_eye_contour"
	LipsContour     Region = "lips_contour"
)

var regions = map[Region][]int{
	Forehead:       {10},
	NoseBridge:     {168},
	NoseTip:        {4},
	NoseBottom:     {1},
	Chin:           {152},
	LeftTemple:     {234},
	RightTemple:    {454},
	LeftCheekbone:  {127},
	RightCheekbone: {356},
	LeftJaw:        {172},
	RightJaw:       {397},
	LeftEyeOuter:   {33},
	RightEyeOuter:  {263},
	LeftIris:       {468},
	RightIris:      {473},
	LeftMouth:      {61},
	RightMouth:     {291},
	UpperLip:       {13},
	LowerLip:       {14},
	// nose tip, chin, eye outer corners, mouth corners; order matches pose.GenericFace
	PoseAnchors: {4, 152, 33, 263, 61, 291},
	FaceOval: {
		10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
		397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
		172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
	},
	LeftEyeContour:  {33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246},
	RightEyeContour: {263, 249, 390, 373, 374, 380, 381, 382, 362, 398, 384, 385, 386, 387, 388, 466},
	LipsContour:     {61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 409, 270, 269, 267, 0, 37, 39, 40, 185},
}

// Indices returns the mesh indices of a region. The returned slice is a copy.
func Indices(r Region) []int {
	idx := regions[r]
	out := make([]int, len(idx))
	copy(out, idx)
	return out
}

// Index returns the first mesh index of a region, or -1 when unknown.
func Index(r Region) int {
	idx := regions[r]
	if len(idx) == 0 {
		return -1
	}
	return idx[0]
}

// IndicesOf flattens several regions into one index list.
func IndicesOf(rs ...Region) []int {
	var out []int
	for _, r := range rs {
		out = append(out, regions[r]...)
	}
	return out
}
