package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/inference"
	"github.com/dudu/facewarp/internal/landmark"
)

// FaceMeshConfig describes the mesh model and how faces are cropped for it.
type FaceMeshConfig struct {
	ModelPath    string
	DetectorPath string
	GPU          bool

	// InputSize is the side of the square model input.
	InputSize int
	// CropScale grows the detector box before cropping.
	CropScale float32
	// NCHW selects planar input; the MediaPipe exports take NHWC.
	NCHW      bool

	InputName       string
	LandmarksOutput string
	// ScoreOutput is the face presence output. Empty skips the check.
	ScoreOutput     string
	MinScore        float32

	SCRFD SCRFDConfig
}

// DefaultFaceMeshConfig matches the 478 point attention mesh export.
func DefaultFaceMeshConfig() FaceMeshConfig {
	return FaceMeshConfig{
		InputSize:       256,
		CropScale:       1.5,
		InputName:       "input_12",
		LandmarksOutput: "Identity",
		ScoreOutput:     "Identity_1",
		MinScore:        0.5,
		SCRFD:           DefaultSCRFDConfig(),
	}
}

// FaceMesh is a landmark.Source: SCRFD finds the largest face, the mesh
// model places landmark.MeshSize points inside the crop around it.
type FaceMesh struct {
	cfg      FaceMeshConfig
	boxes    *SCRFD
	session  *inference.Session
	logger   *zap.SugaredLogger
	outNames []string
}

var _ landmark.Source = (*FaceMesh)(nil)

// NewFaceMesh loads both models. inference.Initialize must have been called.
func NewFaceMesh(cfg FaceMeshConfig, logger *zap.SugaredLogger) (*FaceMesh, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	opts := inference.Options{GPU: cfg.GPU, Logger: logger}

	boxes, err := NewSCRFD(cfg.DetectorPath, cfg.SCRFD, opts)
	if err != nil {
		return nil, err
	}

	outNames := []string{cfg.LandmarksOutput}
	if cfg.ScoreOutput != "" {
		outNames = append(outNames, cfg.ScoreOutput)
	}
	session, err := inference.NewSession(cfg.ModelPath, []string{cfg.InputName}, outNames, opts)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("failed to create face mesh session: %w", err), boxes.Close())
	}

	return &FaceMesh{
		cfg:      cfg,
		boxes:    boxes,
		session:  session,
		logger:   logger,
		outNames: outNames,
	}, nil
}

// Detect implements landmark.Source.
func (m *FaceMesh) Detect(img image.Image) (*landmark.Set, error) {
	// ImageToMatRGB lays the pixels out in OpenCV's BGR order.
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	faces, err := m.boxes.Detect(mat)
	if err != nil {
		return nil, err
	}
	face, ok := Largest(faces)
	if !ok {
		return nil, nil
	}

	crop := face.BoundingBox.Square(m.cfg.CropScale)
	if crop.Width() <= 0 {
		return nil, nil
	}
	k := float32(m.cfg.InputSize) / crop.Width()
	center := crop.Center()

	input, err := m.prepare(mat, center, k)
	if err != nil {
		return nil, err
	}

	outputs := make([]ort.Value, len(m.outNames))
	defer func() {
		_ = inference.DestroyAll(append(outputs, input)...)
	}()
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("face mesh inference failed: %w", err)
	}

	if m.cfg.ScoreOutput != "" {
		score, err := firstFloat(outputs[1])
		if err != nil {
			return nil, err
		}
		if score < 0 || score > 1 {
			score = sigmoid(score)
		}
		if score < m.cfg.MinScore {
			m.logger.Debugw("face mesh rejected the crop", "score", score, "box_score", face.Score)
			return nil, nil
		}
	}

	raw, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected face mesh output type %T", outputs[0])
	}
	return m.postprocess(raw.GetData(), center, k, mat.Cols(), mat.Rows())
}

// prepare crops the face with an axis aligned affine and normalizes it to
// RGB in [0, 1].
func (m *FaceMesh) prepare(mat gocv.Mat, center Point, k float32) (ort.Value, error) {
	size := m.cfg.InputSize
	M := cropMatrix(center, k, size)
	defer M.Close()

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(mat, &aligned, M, image.Pt(size, size))

	if m.cfg.NCHW {
		blob := gocv.BlobFromImage(aligned, 1.0/255.0, image.Pt(size, size),
			gocv.NewScalar(0, 0, 0, 0), true, false)
		defer blob.Close()
		t, err := inference.CreateTensor([]int64{1, 3, int64(size), int64(size)}, bytesToFloat32(blob.ToBytes()))
		if err != nil {
			return nil, fmt.Errorf("failed to create input tensor: %w", err)
		}
		return t, nil
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(aligned, &rgb, gocv.ColorBGRToRGB)
	scaled := gocv.NewMat()
	defer scaled.Close()
	rgb.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	data, err := scaled.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read crop: %w", err)
	}
	// the tensor must own its data once the Mat is closed
	owned := append([]float32(nil), data...)
	t, err := inference.CreateTensor([]int64{1, int64(size), int64(size), 3}, owned)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	return t, nil
}

// postprocess maps crop pixels back to normalized frame coordinates. Depth
// shares the x scale.
func (m *FaceMesh) postprocess(out []float32, center Point, k float32, width, height int) (*landmark.Set, error) {
	if len(out) < landmark.MeshSize*3 {
		return nil, fmt.Errorf("face mesh returned %d values, want %d", len(out), landmark.MeshSize*3)
	}
	half := float32(m.cfg.InputSize) / 2
	points := make([]landmark.Point, landmark.MeshSize)
	for i := range points {
		x := (out[i*3]-half)/k + center.X
		y := (out[i*3+1]-half)/k + center.Y
		z := out[i*3+2] / k
		points[i] = landmark.Point{
			X: float64(x) / float64(width),
			Y: float64(y) / float64(height),
			Z: float64(z) / float64(width),
		}
	}
	return landmark.NewSet(points), nil
}

// cropMatrix scales by k around center and moves center to the middle of a
// size x size output.
func cropMatrix(center Point, k float32, size int) gocv.Mat {
	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	M.SetDoubleAt(0, 0, float64(k))
	M.SetDoubleAt(0, 1, 0)
	M.SetDoubleAt(0, 2, float64(size)/2-float64(center.X*k))
	M.SetDoubleAt(1, 0, 0)
	M.SetDoubleAt(1, 1, float64(k))
	M.SetDoubleAt(1, 2, float64(size)/2-float64(center.Y*k))
	return M
}

func firstFloat(v ort.Value) (float32, error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected score output type %T", v)
	}
	data := t.GetData()
	if len(data) == 0 {
		return 0, fmt.Errorf("empty score output")
	}
	return data[0], nil
}

// Close implements landmark.Source.
func (m *FaceMesh) Close() error {
	return multierr.Combine(m.session.Destroy(), m.boxes.Close())
}
