package dto

import "time"

// PredictRequest carries the fixed inference settings for one detection run.
type PredictRequest struct {
	Source     string  // media file to analyse
	SaveDir    string  // annotated output is written here
	ImageSize  int     // network input size
	Confidence float64 // minimum class score
	IoU        float64 // NMS overlap threshold
	VidStride  int     // analyse every Nth video frame
	Save       bool    // write the annotated copy to SaveDir
}

// Prediction is the result of a detection run.
type Prediction struct {
	// Detections of the first analysed frame (the whole image for stills).
	Detections []Detection
	SaveDir    string
	Frames     int
	Elapsed    time.Duration
}
