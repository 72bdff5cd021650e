package detect

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/video"
)

// PoseParams defines the YOLOv8-pose post processing parameters
type PoseParams struct {
	// InputSize is the square model input dimension in pixels
	InputSize int
	// BoxThreshold is the minimum person score for a box to be considered
	BoxThreshold float32
	// NMSThreshold is the maximum IoU allowed between two kept boxes
	NMSThreshold float32
	// MaxObjects is the maximum number of people returned per frame
	MaxObjects int
	// KeyPoints is the number of COCO keypoints the model outputs
	KeyPoints int
}

// DefaultPoseParams returns parameters for a COCO trained YOLOv8-pose model
// exported to ONNX at 640x640
func DefaultPoseParams() PoseParams {
	return PoseParams{
		InputSize:    640,
		BoxThreshold: 0.25,
		NMSThreshold: 0.45,
		MaxObjects:   64,
		KeyPoints:    pose.KeyPointsTotal,
	}
}

// ONNXConfig defines how to load the pose model
type ONNXConfig struct {
	// Model is the path to the ONNX file
	Model string
	// Workers is the number of networks to load for concurrent inference
	Workers int
	// Backend and Target select the OpenCV DNN backend, eg: "default", "cpu"
	Backend string
	Target  string
	Params  PoseParams
}

// ONNXPose runs a YOLOv8-pose model through OpenCV DNN
type ONNXPose struct {
	pool   *Pool
	params PoseParams
	idGen  *pose.IDGenerator
}

// NewONNXPose loads the model into a pool of networks
func NewONNXPose(cfg ONNXConfig) (*ONNXPose, error) {

	pool, err := NewPool(cfg.Workers, cfg.Model, cfg.Backend, cfg.Target)

	if err != nil {
		return nil, err
	}

	return &ONNXPose{
		pool:   pool,
		params: cfg.Params,
		idGen:  pose.NewIDGenerator(),
	}, nil
}

// Detect runs inference on the frame
func (o *ONNXPose) Detect(ctx context.Context, frame video.Frame) ([]pose.Detection, error) {

	if frame.Image.Empty() {
		return nil, fmt.Errorf("frame %d is empty", frame.Index)
	}

	net, err := o.pool.Get(ctx)

	if err != nil {
		return nil, err
	}

	defer o.pool.Return(net)

	size := o.params.InputSize
	resizer := NewResizer(frame.Image.Cols(), frame.Image.Rows(), size, size)

	input := gocv.NewMat()
	defer input.Close()

	resizer.LetterBox(frame.Image, &input)

	// BGR to RGB with pixel values scaled to [0,1]
	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")

	output := net.Forward("")
	defer output.Close()

	dims := output.Size()

	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	data, err := output.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("failed to read output tensor: %w", err)
	}

	return o.decode(data, dims[1], dims[2], resizer)
}

// decode converts the [1, 5+3*keypoints, anchors] output tensor into
// detections in source image coordinates
func (o *ONNXPose) decode(data []float32, rows, anchors int, resizer *Resizer) ([]pose.Detection, error) {

	kpCount := o.params.KeyPoints

	if rows != 5+3*kpCount {
		return nil, fmt.Errorf("output has %d rows, expected %d for %d keypoints", rows, 5+3*kpCount, kpCount)
	}

	if len(data) < rows*anchors {
		return nil, fmt.Errorf("output has %d values, expected %d", len(data), rows*anchors)
	}

	at := func(row, anchor int) float32 {
		return data[row*anchors+anchor]
	}

	var cands []pose.Detection

	for a := 0; a < anchors; a++ {

		score := at(4, a)

		if score < o.params.BoxThreshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)

		left, top := resizer.ToSource(cx-w/2, cy-h/2)
		right, bottom := resizer.ToSource(cx+w/2, cy+h/2)

		kps := make([]pose.KeyPoint, kpCount)

		for k := 0; k < kpCount; k++ {
			x, y := resizer.ToSource(at(5+k*3, a), at(5+k*3+1, a))
			kps[k] = pose.KeyPoint{X: x, Y: y, Score: at(5+k*3+2, a)}
		}

		cands = append(cands, pose.Detection{
			Box:       pose.BoxRect{Left: left, Top: top, Right: right, Bottom: bottom},
			Score:     score,
			KeyPoints: kps,
		})
	}

	kept := nms(cands, o.params.NMSThreshold)

	if len(kept) > o.params.MaxObjects {
		kept = kept[:o.params.MaxObjects]
	}

	for i := range kept {
		kept[i].ID = o.idGen.GetNext()
	}

	return kept, nil
}

// Close releases the networks
func (o *ONNXPose) Close() error {
	o.pool.Close()
	return nil
}
