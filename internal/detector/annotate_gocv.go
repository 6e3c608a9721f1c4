//go:build gocv
// +build gocv

package detector

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/visionqc/visionqc-go/internal/errors"
)

var (
	annotateBoxColor  = color.RGBA{G: 255, B: 255, A: 255}
	annotateTextColor = color.RGBA{R: 255, A: 255}
)

// Annotate burns bounding boxes and class labels for the detected defects
// into the frame and returns it PNG encoded.
func Annotate(raw []byte, result *Result) ([]byte, error) {
	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if !mat.Empty() {
			mat.Close()
		}
		return nil, errors.New(fmt.Errorf("decoding frame for annotation: %w", err)).
			Component("detector").
			Category(errors.CategoryImageDecode).
			Build()
	}
	defer mat.Close()

	for _, obj := range result.Objects {
		label := result.ClassName(obj)
		if label == okClass {
			continue
		}
		gocv.Rectangle(&mat, obj.Box, annotateBoxColor, 2)
		gocv.PutText(&mat, label,
			image.Pt(obj.Box.Min.X, obj.Box.Min.Y-8),
			gocv.FontHersheySimplex, 0.6, annotateTextColor, 2)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, errors.New(fmt.Errorf("encoding annotated frame: %w", err)).
			Component("detector").
			Category(errors.CategoryImageDecode).
			Build()
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
