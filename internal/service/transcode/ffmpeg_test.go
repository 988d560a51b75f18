package transcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"helmetweb/internal/config"
	"helmetweb/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScript behaves like a successful ffmpeg: it copies the -i argument to
// the last argument.
const copyScript = `#!/bin/sh
in=""
while [ $# -gt 1 ]; do
	if [ "$1" = "-i" ]; then in="$2"; fi
	shift
done
cp "$in" "$1"
`

const failScript = `#!/bin/sh
for last; do :; done
echo "partial" > "$last"
echo "Unknown encoder 'libx264'" >&2
exit 1
`

const sleepScript = `#!/bin/sh
exec sleep 5
`

func newTestFFmpeg(t *testing.T, script string) (*FFmpeg, string) {
	t.Helper()

	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))

	cfg := &config.Config{FFmpegPath: bin, LogDirectory: filepath.Join(dir, "logs")}
	return NewFFmpeg(cfg, logger.NewLogger(cfg)), dir
}

func TestNeedsConversion(t *testing.T) {
	f, _ := newTestFFmpeg(t, copyScript)

	assert.True(t, f.NeedsConversion("out/abc_clip.avi"))
	assert.True(t, f.NeedsConversion("out/abc_clip.AVI"))
	assert.False(t, f.NeedsConversion("out/abc_clip.mp4"))
	assert.False(t, f.NeedsConversion("out/abc_photo.jpg"))
}

func TestConvert_ReplacesSource(t *testing.T) {
	f, dir := newTestFFmpeg(t, copyScript)
	src := filepath.Join(dir, "abc_clip.avi")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0644))

	dst, err := f.Convert(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "abc_clip.mp4"), dst)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source .avi should be removed")
}

func TestConvert_FailureRemovesBothFiles(t *testing.T) {
	f, dir := newTestFFmpeg(t, failScript)
	src := filepath.Join(dir, "abc_clip.avi")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0644))

	_, err := f.Convert(context.Background(), src)
	require.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, err.Error(), "Unknown encoder")

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "abc_clip.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestConvert_Timeout(t *testing.T) {
	f, dir := newTestFFmpeg(t, sleepScript)
	src := filepath.Join(dir, "abc_clip.avi")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Convert(ctx, src)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCheck(t *testing.T) {
	f, _ := newTestFFmpeg(t, copyScript)
	assert.NoError(t, f.Check())

	missing := &FFmpeg{path: filepath.Join(t.TempDir(), "nope")}
	assert.Error(t, missing.Check())
}
