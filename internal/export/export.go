// Package export writes detection records to files for offline review.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/errors"
)

// Exporter writes per-record export files: the raw image, the annotated image
// when present, and a plain-text sidecar with the record fields.
type Exporter struct {
	Dir     string // destination directory, created on first export
	Station string // station name written into the sidecar
}

// Files groups the paths written for one exported record.
type Files struct {
	RawImage       string
	AnnotatedImage string // empty when the record has no annotated image yet
	Sidecar        string
}

// Export writes one record to the export directory. File names carry the
// serial number, the record id and the sanitized timestamp so exports from
// different stations can be merged without collisions.
func (e *Exporter) Export(rec *datastore.Record, serial int) (*Files, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("dir", e.Dir).
			Build()
	}

	prefix := fmt.Sprintf("%03d_%d_%s", serial, rec.ID, sanitizeTimestamp(rec.Time))

	files := &Files{
		RawImage: filepath.Join(e.Dir, prefix+"_raw.png"),
		Sidecar:  filepath.Join(e.Dir, prefix+"_info.txt"),
	}

	if err := os.WriteFile(files.RawImage, rec.ImgRaw, 0o644); err != nil {
		return nil, writeError(err, files.RawImage)
	}

	if len(rec.ImgDetect) > 0 {
		files.AnnotatedImage = filepath.Join(e.Dir, prefix+"_detected.png")
		if err := os.WriteFile(files.AnnotatedImage, rec.ImgDetect, 0o644); err != nil {
			return nil, writeError(err, files.AnnotatedImage)
		}
	}

	sidecar := e.sidecarText(rec)
	if err := os.WriteFile(files.Sidecar, []byte(sidecar), 0o644); err != nil {
		return nil, writeError(err, files.Sidecar)
	}

	return files, nil
}

// sidecarText renders the plain-text sidecar for a record.
func (e *Exporter) sidecarText(rec *datastore.Record) string {
	defect := rec.DefectSummary()
	if defect == "" {
		defect = "pending"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Station: %s\n", e.Station)
	fmt.Fprintf(&b, "Record ID: %d\n", rec.ID)
	fmt.Fprintf(&b, "Timestamp: %s\n", rec.Time)
	fmt.Fprintf(&b, "Defects: %s\n", defect)
	fmt.Fprintf(&b, "Barcode: %s\n", rec.BarcodeValue())
	return b.String()
}

// sanitizeTimestamp makes a stored timestamp safe for file names.
func sanitizeTimestamp(ts string) string {
	ts = strings.ReplaceAll(ts, " ", "_")
	ts = strings.ReplaceAll(ts, ":", "-")
	return ts
}

func writeError(err error, path string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
