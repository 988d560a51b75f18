package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"helmetweb/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

// OpenCVEngine runs an ONNX export through the OpenCV DNN module.
type OpenCVEngine struct {
	net  gocv.Net
	size int
}

// NewOpenCVEngine loads the network and sets backend/target preferences.
func NewOpenCVEngine(modelPath string, size int) (*OpenCVEngine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &OpenCVEngine{net: net, size: size}, nil
}

func (e *OpenCVEngine) Size() int {
	return e.size
}

// Forward letterboxes the frame, runs the network and copies the output out
// of the OpenCV buffer.
func (e *OpenCVEngine) Forward(frame gocv.Mat) (*Output, error) {
	lb := yolo.NewLetterbox(frame.Cols(), frame.Rows(), e.size)

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(frame, &resized, image.Pt(lb.Width, lb.Height), 0, 0, gocv.InterpolationLinear); err != nil {
		return nil, fmt.Errorf("error resizing frame: %w", err)
	}

	padded := gocv.NewMat()
	defer padded.Close()
	grey := color.RGBA{R: yolo.PadValue, G: yolo.PadValue, B: yolo.PadValue, A: 0}
	err := gocv.CopyMakeBorder(resized, &padded,
		lb.PadY, e.size-lb.Height-lb.PadY,
		lb.PadX, e.size-lb.Width-lb.PadX,
		gocv.BorderConstant, grey)
	if err != nil {
		return nil, fmt.Errorf("error padding frame: %w", err)
	}

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(e.size, e.size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	if err := e.net.SetInput(blob, ""); err != nil {
		return nil, fmt.Errorf("error setting network input: %w", err)
	}
	out := e.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	data := make([]float32, len(raw))
	copy(data, raw)

	return &Output{
		Data:      data,
		Channels:  dims[1],
		Anchors:   dims[2],
		Letterbox: lb,
	}, nil
}

func (e *OpenCVEngine) Close() error {
	return e.net.Close()
}
