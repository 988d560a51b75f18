package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"helmetweb/internal/dto"
	"helmetweb/internal/logger"
	"helmetweb/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

const (
	// VideoCodec and VideoExtension match what ultralytics writes on Linux;
	// the result is not playable in browsers and gets transcoded later.
	VideoCodec     = "MJPG"
	VideoExtension = ".avi"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".m4v": true, ".wmv": true,
}

// palette colours boxes by class id.
var palette = []color.RGBA{
	{R: 0, G: 200, B: 0, A: 0},
	{R: 255, G: 0, B: 0, A: 0},
	{R: 0, G: 128, B: 255, A: 0},
	{R: 255, G: 200, B: 0, A: 0},
}

// DetectorService runs the YOLO model over images and videos and writes an
// annotated copy of the input into the requested save directory.
type DetectorService struct {
	engine Engine
	vocab  yolo.Vocabulary
	logger *logger.Logger

	// a network or session must not be used from two goroutines at once
	mu sync.Mutex
}

// NewDetectorService wraps an inference engine with media handling.
func NewDetectorService(engine Engine, vocab yolo.Vocabulary, logger *logger.Logger) *DetectorService {
	return &DetectorService{
		engine: engine,
		vocab:  vocab,
		logger: logger,
	}
}

// IsSupported reports whether the file extension can be analysed.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return imageExtensions[ext] || videoExtensions[ext]
}

// Predict blocks until the whole file has been analysed or ctx is done.
func (s *DetectorService) Predict(ctx context.Context, req dto.PredictRequest) (*dto.Prediction, error) {
	if req.ImageSize != 0 && req.ImageSize != s.engine.Size() {
		return nil, fmt.Errorf("inference size %d does not match loaded model size %d", req.ImageSize, s.engine.Size())
	}
	if req.Save {
		if err := os.MkdirAll(req.SaveDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create save directory: %w", err)
		}
	}

	start := time.Now()
	ext := strings.ToLower(filepath.Ext(req.Source))

	var (
		prediction *dto.Prediction
		err        error
	)
	switch {
	case imageExtensions[ext]:
		prediction, err = s.predictImage(req)
	case videoExtensions[ext]:
		prediction, err = s.predictVideo(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported media type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	prediction.SaveDir = req.SaveDir
	prediction.Elapsed = time.Since(start)
	s.logger.Info("Analysed %s: %d frame(s), %d detection(s) in first frame, %v",
		filepath.Base(req.Source), prediction.Frames, len(prediction.Detections), prediction.Elapsed)

	return prediction, nil
}

func (s *DetectorService) predictImage(req dto.PredictRequest) (*dto.Prediction, error) {
	mat := gocv.IMRead(req.Source, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", filepath.Base(req.Source))
	}

	detections, err := s.detect(mat, req)
	if err != nil {
		return nil, err
	}

	if req.Save {
		if err := DrawDetections(&mat, detections); err != nil {
			return nil, err
		}
		target := filepath.Join(req.SaveDir, filepath.Base(req.Source))
		if ok := gocv.IMWrite(target, mat); !ok {
			return nil, fmt.Errorf("failed to write annotated image %s", target)
		}
	}

	return &dto.Prediction{Detections: detections, Frames: 1}, nil
}

func (s *DetectorService) predictVideo(ctx context.Context, req dto.PredictRequest) (*dto.Prediction, error) {
	capture, err := gocv.VideoCaptureFile(req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || math.IsNaN(fps) {
		fps = 30
	}
	stride := max(1, req.VidStride)

	base := filepath.Base(req.Source)
	target := filepath.Join(req.SaveDir, strings.TrimSuffix(base, filepath.Ext(base))+VideoExtension)

	frame := gocv.NewMat()
	defer frame.Close()

	var writer *gocv.VideoWriter
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	prediction := &dto.Prediction{}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("video analysis interrupted after %d frame(s): %w", prediction.Frames, err)
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		if index%stride != 0 {
			continue
		}

		detections, err := s.detect(frame, req)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", index, err)
		}
		if prediction.Frames == 0 {
			prediction.Detections = detections
		}
		prediction.Frames++

		if !req.Save {
			continue
		}
		if err := DrawDetections(&frame, detections); err != nil {
			return nil, err
		}
		if writer == nil {
			writer, err = gocv.VideoWriterFile(target, VideoCodec, math.Max(1, fps/float64(stride)), frame.Cols(), frame.Rows(), true)
			if err != nil {
				return nil, fmt.Errorf("failed to open video writer: %w", err)
			}
		}
		if err := writer.Write(frame); err != nil {
			return nil, fmt.Errorf("failed to write frame %d: %w", index, err)
		}
	}

	if prediction.Frames == 0 {
		return nil, fmt.Errorf("no frames decoded from %s", base)
	}
	return prediction, nil
}

// detect runs one forward pass and converts the surviving boxes to source pixels.
func (s *DetectorService) detect(mat gocv.Mat, req dto.PredictRequest) ([]dto.Detection, error) {
	s.mu.Lock()
	output, err := s.engine.Forward(mat)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	candidates := yolo.Decode(output.Data, output.Channels-4, output.Anchors, float32(req.Confidence))
	kept := yolo.NMS(candidates, float32(req.IoU))

	detections := make([]dto.Detection, 0, len(kept))
	for _, c := range kept {
		rect := output.Letterbox.Unscale(c.Box)
		if rect.Empty() {
			continue
		}
		detections = append(detections, dto.Detection{
			ClassID:    c.ClassID,
			Label:      s.vocab.Label(c.ClassID),
			Confidence: float64(c.Score),
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			Width:      rect.Dx(),
			Height:     rect.Dy(),
		})
	}

	return detections, nil
}

// Close releases the inference engine.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}

// DrawDetections draws boxes and "label confidence" captions onto mat in place.
func DrawDetections(mat *gocv.Mat, detections []dto.Detection) error {
	for _, detection := range detections {
		col := palette[0]
		if detection.ClassID > 0 {
			col = palette[detection.ClassID%len(palette)]
		}

		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(mat, rect, col, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, max(detection.Y-5, 12))
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, col, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}
