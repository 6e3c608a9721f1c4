//go:build !gocv
// +build !gocv

package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/visionqc/visionqc-go/internal/errors"
)

const boxThickness = 2

var boxColor = color.RGBA{R: 255, G: 255, A: 255}

// Annotate burns bounding boxes for the detected defects into the frame and
// returns it PNG encoded. Builds without the gocv tag draw boxes only, label
// text rendering needs OpenCV.
func Annotate(raw []byte, result *Result) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(fmt.Errorf("decoding frame for annotation: %w", err)).
			Component("detector").
			Category(errors.CategoryImageDecode).
			Build()
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, obj := range result.Objects {
		if result.ClassName(obj) == okClass {
			continue
		}
		drawBox(canvas, obj.Box.Intersect(bounds))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, errors.New(fmt.Errorf("encoding annotated frame: %w", err)).
			Component("detector").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return buf.Bytes(), nil
}

// drawBox draws a rectangle outline of boxThickness pixels.
func drawBox(canvas *image.RGBA, box image.Rectangle) {
	if box.Empty() {
		return
	}
	for t := 0; t < boxThickness; t++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			setPixel(canvas, x, box.Min.Y+t)
			setPixel(canvas, x, box.Max.Y-1-t)
		}
		for y := box.Min.Y; y < box.Max.Y; y++ {
			setPixel(canvas, box.Min.X+t, y)
			setPixel(canvas, box.Max.X-1-t, y)
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, boxColor)
	}
}
