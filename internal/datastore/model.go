// model.go this code defines the data model for the application
package datastore

// Record statuses. A record is created pending, then completed or failed
// exactly once when inference finishes.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// TimeFormat is the timestamp layout stored in the time column. Zero-padded so
// lexicographic ordering matches chronological ordering.
const TimeFormat = "2006-01-02 15:04:05"

// NoDefects is the defect summary stored when inference found no defect classes.
const NoDefects = "No defects"

// Record represents a single capture-and-inspect cycle.
type Record struct {
	ID        uint    `gorm:"primaryKey"`
	Time      string  `gorm:"index:idx_detections_time"` // "YYYY-MM-DD HH:MM:SS", set once at creation
	ImgRaw    []byte  `gorm:"type:blob"`                 // encoded raw image, set once at creation
	ImgDetect []byte  `gorm:"type:blob"`                 // encoded annotated image, nil until inference completes
	Defect    *string // comma-joined sorted unique defect labels or NoDefects, nil until inference completes
	Barcode   *string // scanned barcode, may remain nil
	Status    string  `gorm:"index:idx_detections_status"`
}

// TableName keeps the historical table name used by earlier station deployments.
func (Record) TableName() string {
	return "detections"
}

// DefectSummary returns the defect column value or an empty string when inference
// has not completed yet.
func (r *Record) DefectSummary() string {
	if r.Defect == nil {
		return ""
	}
	return *r.Defect
}

// BarcodeValue returns the barcode or "N/A" when none was scanned.
func (r *Record) BarcodeValue() string {
	if r.Barcode == nil || *r.Barcode == "" {
		return "N/A"
	}
	return *r.Barcode
}
