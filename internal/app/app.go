package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"helmetweb/internal/config"
	"helmetweb/internal/logger"
	"helmetweb/internal/model"
	"helmetweb/internal/route"
	"helmetweb/internal/service"
	"helmetweb/internal/service/ai"
	"helmetweb/internal/service/ai/yolo"
	"helmetweb/internal/service/metrics"
	"helmetweb/internal/service/storage"
	"helmetweb/internal/service/transcode"
	"helmetweb/internal/service/websocket"
	"helmetweb/internal/web"
)

// shutdownTimeout bounds how long in-flight requests may finish on exit.
const shutdownTimeout = 15 * time.Second

type App struct {
	config          *config.Config
	logger          *logger.Logger
	store           *storage.FileStore
	detectorService *ai.DetectorService
	transcoder      *transcode.FFmpeg
	hubService      *websocket.HubService
	pipeline        *service.Pipeline
	views           *web.Views
	metrics         model.MetricsSnapshot
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	store := storage.NewFileStore(cfg, log)
	if err := store.EnsureDirectories(); err != nil {
		return nil, err
	}

	snapshot, err := metrics.Load(cfg.MetricsPath)
	if err != nil {
		log.Warning("Error loading model metrics from %s, showing zeros: %v", cfg.MetricsPath, err)
		snapshot = model.MetricsSnapshot{}
	}

	vocab, err := yolo.LoadVocabulary(cfg.NamesPath)
	if err != nil {
		log.Warning("Using default class names %v: %v", yolo.DefaultVocabulary, err)
		vocab = yolo.DefaultVocabulary
	}

	engine, err := ai.NewEngine(cfg, len(vocab))
	if err != nil {
		return nil, fmt.Errorf("error loading detection model: %w", err)
	}
	detector := ai.NewDetectorService(engine, vocab, log)

	transcoder := transcode.NewFFmpeg(cfg, log)
	if err := transcoder.Check(); err != nil {
		log.Warning("Video results will fail to convert: %v", err)
	}

	views, err := web.NewViews()
	if err != nil {
		detector.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)
	pipeline := service.NewPipeline(cfg, store, detector, transcoder, hub, log)

	return &App{
		config:          cfg,
		logger:          log,
		store:           store,
		detectorService: detector,
		transcoder:      transcoder,
		hubService:      hub,
		pipeline:        pipeline,
		views:           views,
		metrics:         snapshot,
	}, nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.detectorService.Close()

	// Start background services
	go a.hubService.Run(ctx)

	// Setup routes
	router := route.SetupRoutes(a.config, a.logger, route.Dependencies{
		Processor: a.pipeline,
		Store:     a.store,
		Viewers:   a.hubService,
		Views:     a.views,
		Metrics:   a.metrics,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: a.config.DetectTimeout + a.config.TranscodeTimeout + 30*time.Second,
	}

	fmt.Printf("⛑️  Helmet Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🤖 AI Model: %s (%s)\n", a.config.ModelPath, a.config.DetectorBackend)
	fmt.Printf("📊 Metrics: precision %.2f%%, recall %.2f%%, mAP50 %.2f%%\n",
		a.metrics.Precision, a.metrics.Recall, a.metrics.MAP50)
	fmt.Printf("📁 Output: %s\n", a.store.OutputDirectory())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
