package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"helmetweb/internal/config"
	"helmetweb/internal/dto"
	"helmetweb/internal/logger"
	"helmetweb/internal/service/storage"
)

var (
	ErrUpload           = errors.New("failed to save upload")
	ErrDetection        = errors.New("detection failed")
	ErrArtifactNotFound = storage.ErrArtifactNotFound
	ErrPublish          = errors.New("failed to publish artifact")
	ErrTranscode        = errors.New("transcoding failed")
)

// Pipeline turns one uploaded file into a published, browser-playable
// artifact plus helmet / no-helmet counts.
type Pipeline struct {
	config     *config.Config
	store      *storage.FileStore
	detector   Detector
	transcoder Transcoder
	notifier   Notifier
	logger     *logger.Logger
}

func NewPipeline(cfg *config.Config, store *storage.FileStore, detector Detector,
	transcoder Transcoder, notifier Notifier, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		config:     cfg,
		store:      store,
		detector:   detector,
		transcoder: transcoder,
		notifier:   notifier,
		logger:     logger,
	}
}

// Process stores the upload, runs detection into a private scratch
// directory, publishes the annotated file and tallies the detections.
// The scratch directory is removed whatever the outcome.
func (p *Pipeline) Process(ctx context.Context, filename string, r io.Reader) (*dto.Outcome, error) {
	upload, err := p.store.SaveUpload(filename, r)
	if err != nil {
		p.logger.Error("Error saving upload %s: %v", filename, err)
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	p.logger.Info("Saved upload %s", filepath.Base(upload.Path))
	p.notify(ctx, upload.ID, dto.StageUploaded, filename, nil)

	defer func() {
		if err := p.store.RemoveScratch(upload.ID); err != nil {
			p.logger.Warning("Error removing scratch directory for %s: %v", upload.ID, err)
		}
	}()

	outcome, err := p.run(ctx, upload.ID, upload.Path)
	if err != nil {
		p.logger.Error("Processing %s failed: %v", filepath.Base(upload.Path), err)
		p.notify(ctx, upload.ID, dto.StageFailed, filename, err)
		return nil, err
	}

	outcome.Upload = upload
	p.notify(ctx, upload.ID, dto.StageDone, outcome.Artifact.Filename, nil)
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, id, source string) (*dto.Outcome, error) {
	p.notify(ctx, id, dto.StageDetecting, "", nil)

	detectCtx, cancel := context.WithTimeout(ctx, p.config.DetectTimeout)
	defer cancel()

	start := time.Now()
	prediction, err := p.detector.Predict(detectCtx, dto.PredictRequest{
		Source:     source,
		SaveDir:    p.store.ScratchDir(id),
		ImageSize:  p.config.ImageSize,
		Confidence: p.config.Confidence,
		IoU:        p.config.IoU,
		VidStride:  p.config.VidStride,
		Save:       true,
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	saveDir := prediction.SaveDir
	if saveDir == "" {
		saveDir = p.store.ScratchDir(id)
	}
	found, err := storage.FindArtifact(saveDir)
	if err != nil {
		return nil, err
	}

	artifact, err := p.store.Publish(found)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	if p.transcoder.NeedsConversion(artifact.Filename) {
		p.notify(ctx, id, dto.StageTranscoding, artifact.Filename, nil)

		published, err := p.store.OutputPath(artifact.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPublish, err)
		}

		transcodeCtx, cancel := context.WithTimeout(ctx, p.config.TranscodeTimeout)
		defer cancel()

		converted, err := p.transcoder.Convert(transcodeCtx, published)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranscode, err)
		}
		artifact = storage.NewArtifact(filepath.Base(converted))
	}

	helmets, noHelmets := Tally(prediction.Detections, p.config.HelmetLabel, p.config.NoHelmetLabel)

	return &dto.Outcome{
		Artifact:      artifact,
		DetectionTime: RoundSeconds(elapsed),
		HelmetCount:   helmets,
		NoHelmetCount: noHelmets,
	}, nil
}

func (p *Pipeline) notify(ctx context.Context, id, stage, filename string, err error) {
	if p.notifier == nil {
		return
	}
	event := dto.ProgressEvent{Token: ProgressToken(ctx), ID: id, Stage: stage, Filename: filename}
	if err != nil {
		event.Error = err.Error()
	}
	p.notifier.Publish(event)
}

type progressTokenKey struct{}

// WithProgressToken tags ctx with the token of the page waiting for progress
// events of this upload.
func WithProgressToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, progressTokenKey{}, token)
}

// ProgressToken returns the token set by WithProgressToken, or "".
func ProgressToken(ctx context.Context) string {
	token, _ := ctx.Value(progressTokenKey{}).(string)
	return token
}

// Tally counts detections labelled helmetLabel and noHelmetLabel. Any other
// label is ignored.
func Tally(detections []dto.Detection, helmetLabel, noHelmetLabel string) (helmets, noHelmets int) {
	for _, d := range detections {
		switch d.Label {
		case helmetLabel:
			helmets++
		case noHelmetLabel:
			noHelmets++
		}
	}
	return helmets, noHelmets
}

// RoundSeconds converts d to seconds rounded to two decimals.
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
