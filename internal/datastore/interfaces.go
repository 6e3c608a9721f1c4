// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/visionqc/visionqc-go/internal/barcode"
	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ImageField selects which image column is read by ImageData. Using a closed
// type instead of a raw column name keeps field selection out of the SQL text.
type ImageField string

const (
	FieldRawImage       ImageField = "img_raw"
	FieldAnnotatedImage ImageField = "img_detect"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the detection record store.
type Interface interface {
	Open() error
	Close() error
	Save(rec *Record) (uint, error)
	Complete(id uint, imgDetect []byte, defect string) error
	Fail(id uint) error
	Get(id uint) (Record, error)
	ImageData(id uint, field ImageField) ([]byte, error)
	SearchRecords(filter *SearchFilter) ([]Record, int64, error)
	DistinctDefects() ([]string, error)
	Delete(id uint) error
	RecordForExport(id uint) (*Record, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB         // GORM database instance
	Mailbox *barcode.Mailbox // single-slot holder for the last scanned barcode, may be nil
}

// New creates a new datastore instance based on the provided settings. The
// mailbox is consulted on Save and Complete to attach a pending barcode scan.
func New(settings *conf.Settings, mailbox *barcode.Mailbox) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{Mailbox: mailbox},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// Save inserts a new record, stamping it with the current time and the pending
// status. If the record carries no barcode the mailbox is consumed, which
// clears it, so a scan is attached to at most one record.
func (ds *DataStore) Save(rec *Record) (uint, error) {
	if ds.DB == nil {
		return 0, errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	if rec.Time == "" {
		rec.Time = time.Now().Format(TimeFormat)
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.Barcode == nil {
		if scanned, ok := ds.takeBarcode(); ok {
			rec.Barcode = &scanned
		}
	}

	if err := ds.DB.Create(rec).Error; err != nil {
		return 0, errors.New(fmt.Errorf("saving record: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	return rec.ID, nil
}

// Complete attaches the annotated image and defect summary to an existing
// record and marks it complete. A barcode scanned between creation and
// completion is merged in if the record has none yet. Completing a record that
// does not exist is a no-op, callers must not rely on an error signal here.
func (ds *DataStore) Complete(id uint, imgDetect []byte, defect string) error {
	var rec Record
	if err := ds.DB.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errors.New(fmt.Errorf("loading record %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	updates := map[string]any{
		"img_detect": imgDetect,
		"defect":     defect,
		"status":     StatusComplete,
	}
	if rec.Barcode == nil {
		if scanned, ok := ds.takeBarcode(); ok {
			updates["barcode"] = scanned
		}
	}

	if err := ds.DB.Model(&Record{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return errors.New(fmt.Errorf("completing record %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	return nil
}

// Fail marks a pending record as failed. Like Complete it is a no-op for an
// unknown id.
func (ds *DataStore) Fail(id uint) error {
	err := ds.DB.Model(&Record{}).Where("id = ?", id).Update("status", StatusFailed).Error
	if err != nil {
		return errors.New(fmt.Errorf("marking record %d failed: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Get retrieves a record by its ID.
func (ds *DataStore) Get(id uint) (Record, error) {
	var rec Record
	if err := ds.DB.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, errors.Newf("record %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return Record{}, errors.New(fmt.Errorf("getting record %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return rec, nil
}

// ImageData returns the raw or annotated image bytes for a record. A missing
// record and a record whose annotated image is not yet set are both reported
// as not-found.
func (ds *DataStore) ImageData(id uint, field ImageField) ([]byte, error) {
	rec, err := ds.Get(id)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch field {
	case FieldRawImage:
		data = rec.ImgRaw
	case FieldAnnotatedImage:
		data = rec.ImgDetect
	default:
		return nil, errors.Newf("unknown image field %q", field).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	if len(data) == 0 {
		return nil, errors.Newf("record %d has no %s data", id, field).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return data, nil
}

// SearchFilter restricts and pages a record search. Both date bounds are
// inclusive calendar dates; an empty bound is unbounded. Defect follows the
// filter semantics of the history view: empty or "All" matches everything,
// NoDefects matches exactly, any other value is a substring match against the
// comma-joined defect summary.
type SearchFilter struct {
	DateFrom string // "YYYY-MM-DD", inclusive
	DateTo   string // "YYYY-MM-DD", inclusive
	Defect   string
	Page     int // 1-based
	PageSize int
}

// SearchRecords returns the filtered page ordered by time descending together
// with the total count under the same filter. Count and page run in one
// transaction so they cannot disagree about a concurrent delete.
func (ds *DataStore) SearchRecords(filter *SearchFilter) ([]Record, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	var records []Record
	var total int64

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		query := applySearchFilter(tx.Model(&Record{}), filter)
		if err := query.Count(&total).Error; err != nil {
			return err
		}

		query = applySearchFilter(tx.Model(&Record{}), filter)
		return query.
			Order("time DESC").
			Limit(pageSize).
			Offset((page - 1) * pageSize).
			Find(&records).Error
	})
	if err != nil {
		return nil, 0, errors.New(fmt.Errorf("searching records: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	return records, total, nil
}

// applySearchFilter translates a SearchFilter into WHERE clauses.
func applySearchFilter(query *gorm.DB, filter *SearchFilter) *gorm.DB {
	if filter.DateFrom != "" {
		query = query.Where("time >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		// Inclusive end date: everything strictly before the next day.
		query = query.Where("time < ?", nextDay(filter.DateTo))
	}

	switch filter.Defect {
	case "", "All":
	case NoDefects:
		query = query.Where("defect = ?", NoDefects)
	default:
		query = query.Where("defect LIKE ?", "%"+filter.Defect+"%")
	}

	return query
}

// nextDay returns the day after an ISO date string. If the input does not
// parse the original value is returned, which makes the bound a plain
// lexicographic cutoff.
func nextDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}

// DistinctDefects returns the raw, un-split defect column values. Multi-label
// summaries come back comma-joined, callers split and dedupe to build a
// per-label filter list.
func (ds *DataStore) DistinctDefects() ([]string, error) {
	var values []string
	err := ds.DB.Model(&Record{}).
		Distinct("defect").
		Where("defect IS NOT NULL").
		Pluck("defect", &values).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("getting distinct defects: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return values, nil
}

// Delete removes a record by id. Deleting a record that does not exist is not
// an error.
func (ds *DataStore) Delete(id uint) error {
	if err := ds.DB.Delete(&Record{}, id).Error; err != nil {
		return errors.New(fmt.Errorf("deleting record %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// RecordForExport returns the full row for file export.
func (ds *DataStore) RecordForExport(id uint) (*Record, error) {
	rec, err := ds.Get(id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// takeBarcode consumes the pending scan from the mailbox, clearing it.
func (ds *DataStore) takeBarcode() (string, bool) {
	if ds.Mailbox == nil {
		return "", false
	}
	return ds.Mailbox.Take()
}

// SplitDefectLabels splits raw defect column values into deduplicated single
// labels, in order of first appearance, for building filter lists. The
// NoDefects sentinel is kept as-is.
func SplitDefectLabels(values []string) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, value := range values {
		if value == NoDefects {
			if _, ok := seen[value]; !ok {
				seen[value] = struct{}{}
				labels = append(labels, value)
			}
			continue
		}
		for _, label := range strings.Split(value, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, ok := seen[label]; !ok {
				seen[label] = struct{}{}
				labels = append(labels, label)
			}
		}
	}
	return labels
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
