package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendOpenCV      = "opencv"
	BackendONNXRuntime = "onnxruntime"
)

type Config struct {
	Port             int
	ModelPath        string
	NamesPath        string // ultralytics data.yaml holding the class vocabulary
	MetricsPath      string
	DetectorBackend  string
	ONNXRuntimeLib   string
	FFmpegPath       string
	UploadDirectory  string
	OutputDirectory  string
	ScratchDirectory string // per-request detection save dirs live below this
	LogDirectory     string
	ImageSize        int
	Confidence       float64
	IoU              float64
	VidStride        int // run inference on every Nth video frame
	HelmetLabel      string
	NoHelmetLabel    string
	MaxUploadMB      int64
	DetectTimeout    time.Duration
	TranscodeTimeout time.Duration
}

// Load reads an optional .env file and then builds the Config from the environment.
func Load() *Config {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvAsInt("PORT", 5000),
		ModelPath:        getEnv("MODEL_PATH", filepath.Join("helmet_model", "weights", "best.onnx")),
		NamesPath:        getEnv("NAMES_PATH", filepath.Join("helmet_model", "data.yaml")),
		MetricsPath:      getEnv("METRICS_PATH", filepath.Join("helmet_model", "results.csv")),
		DetectorBackend:  getEnv("DETECTOR_BACKEND", BackendOpenCV),
		ONNXRuntimeLib:   getEnv("ONNXRUNTIME_LIB", filepath.Join(".", "third_party", "onnxruntime.so")),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		UploadDirectory:  getEnv("UPLOAD_DIR", filepath.Join("static", "uploads")),
		OutputDirectory:  getEnv("OUTPUT_DIR", filepath.Join("static", "output")),
		ScratchDirectory: getEnv("SCRATCH_DIR", filepath.Join("runs", "detect")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ImageSize:        getEnvAsInt("IMAGE_SIZE", 640),
		Confidence:       getEnvAsFloat("CONFIDENCE", 0.25),
		IoU:              getEnvAsFloat("IOU", 0.7),
		VidStride:        getEnvAsInt("VID_STRIDE", 3),
		HelmetLabel:      getEnv("HELMET_LABEL", "h"),
		NoHelmetLabel:    getEnv("NO_HELMET_LABEL", "nh"),
		MaxUploadMB:      getEnvAsInt64("MAX_UPLOAD_MB", 512),
		DetectTimeout:    getEnvAsDuration("DETECT_TIMEOUT", 10*time.Minute),
		TranscodeTimeout: getEnvAsDuration("TRANSCODE_TIMEOUT", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
