package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, filepath.Join("helmet_model", "weights", "best.onnx"), cfg.ModelPath)
	assert.Equal(t, filepath.Join("helmet_model", "results.csv"), cfg.MetricsPath)
	assert.Equal(t, BackendOpenCV, cfg.DetectorBackend)
	assert.Equal(t, 640, cfg.ImageSize)
	assert.InDelta(t, 0.25, cfg.Confidence, 1e-9)
	assert.Equal(t, 3, cfg.VidStride)
	assert.Equal(t, "h", cfg.HelmetLabel)
	assert.Equal(t, "nh", cfg.NoHelmetLabel)
	assert.Equal(t, 10*time.Minute, cfg.DetectTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("CONFIDENCE", "0.5")
	t.Setenv("VID_STRIDE", "5")
	t.Setenv("TRANSCODE_TIMEOUT", "90s")
	t.Setenv("OUTPUT_DIR", "/srv/out")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.InDelta(t, 0.5, cfg.Confidence, 1e-9)
	assert.Equal(t, 5, cfg.VidStride)
	assert.Equal(t, 90*time.Second, cfg.TranscodeTimeout)
	assert.Equal(t, "/srv/out", cfg.OutputDirectory)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "abc")
	t.Setenv("IOU", "high")
	t.Setenv("DETECT_TIMEOUT", "-5s")

	cfg := Load()

	assert.Equal(t, 5000, cfg.Port)
	assert.InDelta(t, 0.7, cfg.IoU, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.DetectTimeout)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides variables already present in the environment.
	// t.Setenv restores the previous state once the test finishes.
	for _, key := range []string{"HELMET_LABEL", "FFMPEG_PATH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	content := "HELMET_LABEL=helmet\nFFMPEG_PATH=/opt/ffmpeg/bin/ffmpeg\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	cfg := Load()

	assert.Equal(t, "helmet", cfg.HelmetLabel)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
