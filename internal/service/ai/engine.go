package ai

import (
	"fmt"

	"helmetweb/internal/config"
	"helmetweb/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

// Output is the raw model output for one frame.
type Output struct {
	Data      []float32 // [Channels][Anchors], batch dimension dropped
	Channels  int       // 4 box values + one score per class
	Anchors   int
	Letterbox yolo.Letterbox
}

// Engine runs the network on a BGR frame.
type Engine interface {
	Forward(frame gocv.Mat) (*Output, error)
	Size() int
	Close() error
}

// NewEngine builds the engine selected by cfg.DetectorBackend.
func NewEngine(cfg *config.Config, numClasses int) (Engine, error) {
	switch cfg.DetectorBackend {
	case config.BackendOpenCV:
		return NewOpenCVEngine(cfg.ModelPath, cfg.ImageSize)
	case config.BackendONNXRuntime:
		return NewONNXRuntimeEngine(cfg.ONNXRuntimeLib, cfg.ModelPath, cfg.ImageSize, numClasses)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

// anchorCount is the number of YOLOv8 predictions for a square input:
// one per cell of the stride 8, 16 and 32 grids.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := size / stride
		n += cells * cells
	}
	return n
}
