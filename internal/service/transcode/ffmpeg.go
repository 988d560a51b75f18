// Package transcode converts detector output that browsers cannot play into
// H.264 MP4 with an external ffmpeg binary.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"helmetweb/internal/config"
	"helmetweb/internal/logger"
)

// ErrFailed wraps every conversion failure.
var ErrFailed = errors.New("transcoding failed")

// TargetExtension is the browser-playable format produced by Convert.
const TargetExtension = ".mp4"

var convertible = map[string]bool{
	".avi": true,
}

// FFmpeg runs the configured ffmpeg binary.
type FFmpeg struct {
	path   string
	logger *logger.Logger
}

// NewFFmpeg creates a transcoder for config.FFmpegPath.
func NewFFmpeg(config *config.Config, logger *logger.Logger) *FFmpeg {
	return &FFmpeg{path: config.FFmpegPath, logger: logger}
}

// Check verifies the binary can be found.
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("ffmpeg binary not found: %w", err)
	}
	return nil
}

// NeedsConversion reports whether the file must be converted before a
// browser can play it.
func (f *FFmpeg) NeedsConversion(path string) bool {
	return convertible[strings.ToLower(filepath.Ext(path))]
}

// Convert re-encodes src next to itself with the .mp4 extension and removes
// src. On failure both src and any partial output are removed.
func (f *FFmpeg) Convert(ctx context.Context, src string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + TargetExtension

	cmd := exec.CommandContext(ctx, f.path,
		"-y",
		"-loglevel", "error",
		"-i", src,
		"-vcodec", "libx264",
		"-crf", "18",
		dst,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(dst)
		os.Remove(src)
		return "", fmt.Errorf("%w: %v: %s", ErrFailed, err, strings.TrimSpace(string(output)))
	}

	if err := os.Remove(src); err != nil {
		f.logger.Warning("Could not remove %s after conversion: %v", filepath.Base(src), err)
	}

	f.logger.Info("Converted %s to %s", filepath.Base(src), filepath.Base(dst))
	return dst, nil
}
