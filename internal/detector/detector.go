// detector.go model loading and inference over captured frames
package detector

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"
	"time"

	_ "image/jpeg" // register decoder for camera JPEG frames
	_ "image/png"  // register decoder for camera PNG frames

	tflite "github.com/tphakala/go-tflite"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/errors"
)

// valuesPerDetection is the layout of one row in the model output tensor:
// x1, y1, x2, y2, confidence, class index. Coordinates are normalized to the
// model input square.
const valuesPerDetection = 6

// Detector wraps the TensorFlow Lite interpreter for the fixed pretrained
// defect model. Weights and thresholds are set at deployment time, there is no
// retraining or tuning logic here.
type Detector struct {
	Interpreter *tflite.Interpreter
	Labels      map[int]string
	Settings    *conf.Settings
	mu          sync.Mutex
}

// New loads the model and label file configured in settings and allocates the
// interpreter.
func New(settings *conf.Settings) (*Detector, error) {
	d := &Detector{Settings: settings}

	if err := d.initializeModel(); err != nil {
		return nil, err
	}
	if err := d.loadLabels(); err != nil {
		return nil, err
	}

	return d, nil
}

// initializeModel loads and initializes the defect detection model.
func (d *Detector) initializeModel() error {
	start := time.Now()

	modelData, err := os.ReadFile(d.Settings.Detector.ModelPath)
	if err != nil {
		return errors.New(err).
			Component("detector").
			Category(errors.CategoryModelInit).
			Context("model_path", d.Settings.Detector.ModelPath).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return errors.Newf("cannot load TensorFlow Lite model").
			Component("detector").
			Category(errors.CategoryModelInit).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(max(1, runtime.NumCPU()-1))

	d.Interpreter = tflite.NewInterpreter(model, options)
	if d.Interpreter == nil {
		return errors.Newf("cannot create interpreter").
			Component("detector").
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := d.Interpreter.AllocateTensors(); status != tflite.OK {
		return errors.Newf("tensor allocation failed").
			Component("detector").
			Category(errors.CategoryModelInit).
			Build()
	}

	return nil
}

// loadLabels reads the class label file, one label per line, line number is
// the class index.
func (d *Detector) loadLabels() error {
	f, err := os.Open(d.Settings.Detector.LabelPath)
	if err != nil {
		return errors.New(err).
			Component("detector").
			Category(errors.CategoryLabelLoad).
			Context("label_path", d.Settings.Detector.LabelPath).
			Build()
	}
	defer f.Close()

	labels := make(map[int]string)
	scanner := bufio.NewScanner(f)
	index := 0
	for scanner.Scan() {
		labels[index] = scanner.Text()
		index++
	}
	if err := scanner.Err(); err != nil {
		return errors.New(err).
			Component("detector").
			Category(errors.CategoryLabelLoad).
			Build()
	}
	if len(labels) == 0 {
		return errors.Newf("label file %s is empty", d.Settings.Detector.LabelPath).
			Component("detector").
			Category(errors.CategoryLabelLoad).
			Build()
	}

	d.Labels = labels
	return nil
}

// Detect decodes the stored raw frame and runs the model over it. Returned
// boxes are mapped back to source image pixels.
func (d *Detector) Detect(raw []byte) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(fmt.Errorf("decoding frame: %w", err)).
			Component("detector").
			Category(errors.CategoryImageDecode).
			Build()
	}

	// Interpreter tensors are not safe for concurrent use.
	d.mu.Lock()
	defer d.mu.Unlock()

	inputTensor := d.Interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("detector").
			Category(errors.CategoryInference).
			Build()
	}

	inputSize := d.Settings.Detector.InputSize
	fillInputTensor(inputTensor.Float32s(), img, inputSize)

	if status := d.Interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component("detector").
			Category(errors.CategoryInference).
			Build()
	}

	outputTensor := d.Interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("detector").
			Category(errors.CategoryInference).
			Build()
	}

	bounds := img.Bounds()
	objects := parseDetections(outputTensor.Float32s(),
		float32(d.Settings.Detector.Threshold), bounds.Dx(), bounds.Dy())

	return &Result{Labels: d.Labels, Objects: objects}, nil
}

// fillInputTensor resizes the image to the model input square with nearest
// neighbor sampling and writes normalized RGB values in NHWC order.
func fillInputTensor(dst []float32, img image.Image, inputSize int) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	i := 0
	for y := 0; y < inputSize; y++ {
		srcY := bounds.Min.Y + y*srcH/inputSize
		for x := 0; x < inputSize; x++ {
			srcX := bounds.Min.X + x*srcW/inputSize
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			if i+2 >= len(dst) {
				return
			}
			dst[i] = float32(r>>8) / 255.0
			dst[i+1] = float32(g>>8) / 255.0
			dst[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}
}

// parseDetections converts the flat output tensor into objects, dropping rows
// below the confidence threshold and scaling boxes to source pixels.
func parseDetections(values []float32, threshold float32, srcW, srcH int) []Object {
	var objects []Object
	for i := 0; i+valuesPerDetection <= len(values); i += valuesPerDetection {
		confidence := values[i+4]
		if confidence < threshold {
			continue
		}
		box := image.Rect(
			int(values[i]*float32(srcW)),
			int(values[i+1]*float32(srcH)),
			int(values[i+2]*float32(srcW)),
			int(values[i+3]*float32(srcH)),
		)
		objects = append(objects, Object{
			Class:      int(values[i+5]),
			Confidence: confidence,
			Box:        box.Canon(),
		})
	}
	return objects
}
