package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/errors"
)

func writeTestImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNewSourceSelectsFileSource(t *testing.T) {
	settings := &conf.Settings{
		Camera: conf.CameraSettings{Source: "file", TestImage: "/tmp/frame.png"},
	}

	src, err := NewSource(settings, nil)
	require.NoError(t, err)

	fs, ok := src.(*FileSource)
	require.True(t, ok)
	assert.Equal(t, "/tmp/frame.png", fs.Path)
}

func TestNewSourceRejectsUnknownSource(t *testing.T) {
	settings := &conf.Settings{
		Camera: conf.CameraSettings{Source: "rtsp"},
	}

	_, err := NewSource(settings, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfiguration))
}

func TestFileSourceCapture(t *testing.T) {
	path := writeTestImage(t, []byte("frame-bytes"))
	src := &FileSource{Path: path}

	data, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("frame-bytes"), data)
}

func TestFileSourceMissingFile(t *testing.T) {
	src := &FileSource{Path: filepath.Join(t.TempDir(), "absent.png")}

	_, err := src.Capture(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileIO))
}

func TestFileSourceEmptyFile(t *testing.T) {
	src := &FileSource{Path: writeTestImage(t, nil)}

	_, err := src.Capture(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryImageDecode))
}

func TestFileSourceHonorsCancellation(t *testing.T) {
	src := &FileSource{Path: writeTestImage(t, []byte("frame"))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Capture(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCancellation))
}
