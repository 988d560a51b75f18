package service

import (
	"context"

	"helmetweb/internal/dto"
)

// Detector runs the object-detection model over a media file and leaves an
// annotated copy in req.SaveDir.
type Detector interface {
	Predict(ctx context.Context, req dto.PredictRequest) (*dto.Prediction, error)
}

// Transcoder converts artifacts a browser cannot play.
type Transcoder interface {
	NeedsConversion(path string) bool
	// Convert returns the path of the converted file; path itself is removed.
	Convert(ctx context.Context, path string) (string, error)
}

// Notifier receives pipeline progress events. Publish must not block.
type Notifier interface {
	Publish(event dto.ProgressEvent)
}
