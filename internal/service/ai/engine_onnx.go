package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"helmetweb/internal/service/ai/yolo"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the shared library once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXRuntimeEngine runs the model through ONNX Runtime with preallocated
// input and output tensors.
type ONNXRuntimeEngine struct {
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
	size     int
	channels int
	anchors  int
}

// NewONNXRuntimeEngine creates a session for a model with numClasses classes.
func NewONNXRuntimeEngine(libPath, modelPath string, size, numClasses int) (*ONNXRuntimeEngine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("error initializing onnxruntime: %w", err)
	}

	channels := 4 + numClasses
	anchors := anchorCount(size)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(channels), int64(anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ONNXRuntimeEngine{
		session:  session,
		input:    inputTensor,
		output:   outputTensor,
		size:     size,
		channels: channels,
		anchors:  anchors,
	}, nil
}

func (e *ONNXRuntimeEngine) Size() int {
	return e.size
}

func (e *ONNXRuntimeEngine) Forward(frame gocv.Mat) (*Output, error) {
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}

	lb := yolo.NewLetterbox(frame.Cols(), frame.Rows(), e.size)
	fillInput(e.input.GetData(), letterbox(img, lb), e.size)

	if err := e.session.Run(); err != nil {
		return nil, err
	}

	data := make([]float32, e.channels*e.anchors)
	copy(data, e.output.GetData())

	return &Output{
		Data:      data,
		Channels:  e.channels,
		Anchors:   e.anchors,
		Letterbox: lb,
	}, nil
}

func (e *ONNXRuntimeEngine) Close() error {
	e.session.Destroy()
	e.input.Destroy()
	e.output.Destroy()
	return nil
}

// letterbox scales img into a grey square canvas.
func letterbox(img image.Image, lb yolo.Letterbox) *image.NRGBA {
	scaled := resize.Resize(uint(lb.Width), uint(lb.Height), img, resize.Bilinear)
	canvas := imaging.New(lb.Size, lb.Size, color.NRGBA{R: yolo.PadValue, G: yolo.PadValue, B: yolo.PadValue, A: 255})
	return imaging.Paste(canvas, scaled, image.Pt(lb.PadX, lb.PadY))
}

// fillInput writes the canvas into dst as planar RGB scaled to [0, 1].
func fillInput(dst []float32, canvas *image.NRGBA, size int) {
	plane := size * size
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < size; x++ {
			idx := y*size + x
			dst[idx] = float32(row[x*4]) / 255.0
			dst[idx+plane] = float32(row[x*4+1]) / 255.0
			dst[idx+2*plane] = float32(row[x*4+2]) / 255.0
		}
	}
}
