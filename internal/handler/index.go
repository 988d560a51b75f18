package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"helmetweb/internal/config"
	"helmetweb/internal/dto"
	"helmetweb/internal/logger"
	"helmetweb/internal/model"
	"helmetweb/internal/service"
	"helmetweb/internal/web"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest is spooled to temporary files.
const multipartMemory = 32 << 20

// progressField carries the token the page subscribed to /ws/progress with.
const progressField = "progress"

// UploadProcessor runs one uploaded file through detection.
type UploadProcessor interface {
	Process(ctx context.Context, filename string, r io.Reader) (*dto.Outcome, error)
}

// IndexHandler serves the landing page on GET and runs an upload through the
// detection pipeline on POST.
func IndexHandler(cfg *config.Config, processor UploadProcessor, views *web.Views,
	metrics model.MetricsSnapshot, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			renderIndex(w, views, metrics, logger)
		case http.MethodPost:
			handleUpload(w, r, cfg, processor, views, metrics, logger)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func renderIndex(w http.ResponseWriter, views *web.Views, metrics model.MetricsSnapshot, logger *logger.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderIndex(w, dto.IndexPage{Metrics: metrics}); err != nil {
		logger.Error("Error rendering index page: %v", err)
	}
}

func handleUpload(w http.ResponseWriter, r *http.Request, cfg *config.Config, processor UploadProcessor,
	views *web.Views, metrics model.MetricsSnapshot, logger *logger.Logger) {
	if cfg.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadMB<<20)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		logger.Warning("Error parsing upload form: %v", err)
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// a browser submitting the form with no file chosen sends the field
		// with an empty filename, which is parsed as a plain value
		if _, present := r.MultipartForm.Value["file"]; present {
			http.Error(w, "No selected file", http.StatusBadRequest)
			return
		}
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "No selected file", http.StatusBadRequest)
		return
	}
	if header.Size == 0 {
		http.Error(w, "Empty file", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if token := r.FormValue(progressField); token != "" {
		ctx = service.WithProgressToken(ctx, token)
	}

	outcome, err := processor.Process(ctx, header.Filename, file)
	if err != nil {
		status, message := classifyError(err)
		logger.Error("Upload %s failed: %v", header.Filename, err)
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = views.RenderResult(w, dto.ResultPage{
		Filename:      outcome.Artifact.Filename,
		IsVideo:       outcome.Artifact.IsVideo(),
		DetectionTime: outcome.DetectionTime,
		HelmetCount:   outcome.HelmetCount,
		NoHelmetCount: outcome.NoHelmetCount,
		Metrics:       metrics,
	})
	if err != nil {
		logger.Error("Error rendering result page: %v", err)
	}
}

// classifyError maps pipeline failures to the status and plain-text body
// returned to the browser.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUpload):
		return http.StatusInternalServerError, "Failed to save upload"
	case errors.Is(err, service.ErrArtifactNotFound):
		return http.StatusInternalServerError, "Prediction file not found"
	case errors.Is(err, service.ErrTranscode):
		return http.StatusInternalServerError, "Transcoding failed"
	case errors.Is(err, service.ErrDetection):
		return http.StatusInternalServerError, "Detection failed"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
