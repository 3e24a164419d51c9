package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/inference"
)

// SCRFDConfig tunes the face detector.
type SCRFDConfig struct {
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
}

// DefaultSCRFDConfig matches the 640 px SCRFD exports.
func DefaultSCRFDConfig() SCRFDConfig {
	return SCRFDConfig{InputSize: 640, ConfThreshold: 0.5, NMSThreshold: 0.4}
}

var scrfdStrides = []int{8, 16, 32}

const scrfdAnchors = 2

// SCRFD finds face boxes and five keypoints.
type SCRFD struct {
	session *inference.Session
	cfg     SCRFDConfig
}

// NewSCRFD loads an SCRFD model.
func NewSCRFD(modelPath string, cfg SCRFDConfig, opts inference.Options) (*SCRFD, error) {
	// 1 input, 3 levels x (score, bbox, kps) outputs
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}
	return &SCRFD{session: session, cfg: cfg}, nil
}

// Detect finds faces in a BGR image, best score first.
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	size := s.cfg.InputSize
	blob, scale := s.preprocess(img)
	defer blob.Close()

	input, err := inference.CreateTensor([]int64{1, 3, int64(size), int64(size)}, bytesToFloat32(blob.ToBytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputs := make([]*ort.Tensor[float32], 9)
	values := make([]ort.Value, 9)
	defer func() {
		_ = inference.DestroyAll(append(values, input)...)
	}()
	for level, stride := range scrfdStrides {
		side := size / stride
		n := int64(side * side * scrfdAnchors)
		for k, width := range []int64{1, 4, 10} {
			t, err := inference.CreateEmptyTensor[float32]([]int64{n, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[level+3*k] = t
			values[level+3*k] = t
		}
	}

	if err := s.session.Run([]ort.Value{input}, values); err != nil {
		return nil, fmt.Errorf("SCRFD inference failed: %w", err)
	}

	faces := s.postprocess(outputs, scale, img.Cols(), img.Rows())
	return nms(faces, s.cfg.NMSThreshold), nil
}

// preprocess letterboxes the image into the top-left of the input square
// and normalizes it to (x - 127.5) / 128 in RGB NCHW order.
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	size := s.cfg.InputSize
	scale := float32(size) / float32(max(img.Rows(), img.Cols()))
	newWidth := int(float32(img.Cols()) * scale)
	newHeight := int(float32(img.Rows()) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer padded.Close()
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(size, size),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	return blob, scale
}

func (s *SCRFD) postprocess(outputs []*ort.Tensor[float32], scale float32, origWidth, origHeight int) []Face {
	var faces []Face
	for level, stride := range scrfdStrides {
		side := s.cfg.InputSize / stride
		st := float32(stride)
		scores := outputs[level].GetData()
		boxes := outputs[level+3].GetData()
		kps := outputs[level+6].GetData()

		anchor := 0
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				cx := float32(x) * st
				cy := float32(y) * st
				for a := 0; a < scrfdAnchors; a++ {
					score := scores[anchor]
					if score < 0 || score > 1 {
						score = sigmoid(score)
					}
					if score > s.cfg.ConfThreshold {
						b := boxes[anchor*4 : anchor*4+4]
						box := BoundingBox{
							X1: clamp((cx-b[0]*st)/scale, 0, float32(origWidth)),
							Y1: clamp((cy-b[1]*st)/scale, 0, float32(origHeight)),
							X2: clamp((cx+b[2]*st)/scale, 0, float32(origWidth)),
							Y2: clamp((cy+b[3]*st)/scale, 0, float32(origHeight)),
						}
						k := kps[anchor*10 : anchor*10+10]
						pt := func(i int) Point {
							return Point{X: (cx + k[2*i]*st) / scale, Y: (cy + k[2*i+1]*st) / scale}
						}
						faces = append(faces, Face{
							BoundingBox: box,
							Keypoints: Keypoints{
								LeftEye:    pt(0),
								RightEye:   pt(1),
								Nose:       pt(2),
								LeftMouth:  pt(3),
								RightMouth: pt(4),
							},
							Score: score,
						})
					}
					anchor++
				}
			}
		}
	}
	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
