// Package detector runs the pretrained defect detection model over captured
// frames and derives the stored defect summary.
package detector

import (
	"image"
	"sort"
	"strings"

	"github.com/visionqc/visionqc-go/internal/datastore"
)

// okClass is the class name of a clean surface. Detections of this class are
// excluded from the defect summary.
const okClass = "ok"

// Object is a single detected object.
type Object struct {
	Class      int             // class index into Result.Labels
	Confidence float32         // confidence score in [0,1]
	Box        image.Rectangle // bounding box in source image pixels
}

// Result is the outcome of one inference call.
type Result struct {
	Labels  map[int]string // class index to class name
	Objects []Object
}

// ClassName returns the label for an object, or an empty string for an
// unknown class index.
func (r *Result) ClassName(obj Object) string {
	return r.Labels[obj.Class]
}

// Summarize derives the defect summary stored on a record: the deduplicated,
// lexicographically sorted, comma-joined list of detected non-"ok" class
// names, or "No defects" when only clean detections remain.
func Summarize(result *Result) string {
	seen := make(map[string]struct{})
	var names []string

	for _, obj := range result.Objects {
		name := result.ClassName(obj)
		if name == "" || strings.EqualFold(name, okClass) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if len(names) == 0 {
		return datastore.NoDefects
	}

	sort.Strings(names)
	return strings.Join(names, ", ")
}
