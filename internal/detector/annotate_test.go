//go:build !gocv
// +build !gocv

package detector

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestFrame returns a PNG of a uniform black frame.
func encodeTestFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestAnnotateDrawsBoxOutline(t *testing.T) {
	raw := encodeTestFrame(t, 40, 40)
	result := &Result{
		Labels: map[int]string{1: "bridge"},
		Objects: []Object{
			{Class: 1, Confidence: 0.9, Box: image.Rect(10, 10, 30, 30)},
		},
	}

	annotated, err := Annotate(raw, result)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(annotated))
	require.NoError(t, err)

	assert.Equal(t, boxColor, colorAt(img, 10, 10), "box corner is painted")
	assert.Equal(t, boxColor, colorAt(img, 20, 10), "top edge is painted")
	assert.Equal(t, color.RGBA{A: 255}, colorAt(img, 20, 20), "box interior is untouched")
	assert.Equal(t, color.RGBA{A: 255}, colorAt(img, 2, 2), "outside the box is untouched")
}

func TestAnnotateSkipsCleanDetections(t *testing.T) {
	raw := encodeTestFrame(t, 40, 40)
	result := &Result{
		Labels: map[int]string{0: "ok"},
		Objects: []Object{
			{Class: 0, Confidence: 0.9, Box: image.Rect(10, 10, 30, 30)},
		},
	}

	annotated, err := Annotate(raw, result)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(annotated))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, colorAt(img, 10, 10), "clean detections draw nothing")
}

func TestAnnotateClampsBoxToFrame(t *testing.T) {
	raw := encodeTestFrame(t, 20, 20)
	result := &Result{
		Labels: map[int]string{1: "miss"},
		Objects: []Object{
			{Class: 1, Confidence: 0.9, Box: image.Rect(-10, -10, 50, 50)},
		},
	}

	_, err := Annotate(raw, result)
	require.NoError(t, err)
}

func TestAnnotateRejectsBadFrame(t *testing.T) {
	_, err := Annotate([]byte("not an image"), &Result{})
	assert.Error(t, err)
}

func colorAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
