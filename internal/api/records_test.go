package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/visionqc/visionqc-go/internal/barcode"
	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/detector"
	"github.com/visionqc/visionqc-go/internal/export"
	"github.com/visionqc/visionqc-go/internal/inspection"
)

// memoryStore wraps DataStore with no-op lifecycle methods for tests.
type memoryStore struct {
	datastore.DataStore
}

func (s *memoryStore) Open() error  { return nil }
func (s *memoryStore) Close() error { return nil }

// fakeSource returns a fixed frame for triggered captures.
type fakeSource struct {
	frame []byte
}

func (s *fakeSource) Capture(ctx context.Context) ([]byte, error) {
	return s.frame, nil
}

// fakeInferencer returns a fixed result for triggered captures.
type fakeInferencer struct {
	result *detector.Result
}

func (f *fakeInferencer) Detect(raw []byte) (*detector.Result, error) {
	return f.result, nil
}

// setupTestController builds a controller over an in-memory store and a fake
// inspection pipeline.
func setupTestController(t *testing.T) (*Controller, *memoryStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&datastore.Record{}))

	store := &memoryStore{
		DataStore: datastore.DataStore{DB: db, Mailbox: barcode.NewMailbox()},
	}

	settings := &conf.Settings{
		Camera: conf.CameraSettings{Source: "file", TimeoutMs: 1000},
	}

	inferencer := &fakeInferencer{
		result: &detector.Result{
			Labels:  map[int]string{1: "bridge"},
			Objects: []detector.Object{{Class: 1, Confidence: 0.9}},
		},
	}
	annotate := func(raw []byte, result *detector.Result) ([]byte, error) {
		return append([]byte("annotated:"), raw...), nil
	}
	processor := inspection.New(settings, store, &fakeSource{frame: []byte("frame")},
		inferencer, annotate, nil, nil)
	processor.Start()
	t.Cleanup(processor.Stop)

	exporter := &export.Exporter{Dir: t.TempDir(), Station: "test-station"}

	e := echo.New()
	c := New(e, store, settings, processor, exporter, nil, nil)
	return c, store
}

// seedRecord inserts one completed record straight through the store.
func seedRecord(t *testing.T, store *memoryStore, timestamp, defect string) uint {
	t.Helper()

	id, err := store.Save(&datastore.Record{Time: timestamp, ImgRaw: []byte("raw")})
	require.NoError(t, err)
	require.NoError(t, store.Complete(id, []byte("annotated"), defect))
	return id
}

// doRequest runs a request through the echo router and returns the recorder.
func doRequest(c *Controller, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func TestGetRecordsPagination(t *testing.T) {
	c, store := setupTestController(t)

	for i := 0; i < 15; i++ {
		seedRecord(t, store, fmt.Sprintf("2025-07-01 %02d:00:00", i), "bridge")
	}

	rec := doRequest(c, http.MethodGet, "/api/v1/records?page=2&page_size=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(15), resp.Total)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 10, resp.PageSize)
	assert.Equal(t, 2, resp.TotalPages)

	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 5)
}

func TestGetRecordsClampsPageSize(t *testing.T) {
	c, _ := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/api/v1/records?page_size=5000")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.PageSize)
}

func TestGetRecordsFilters(t *testing.T) {
	c, store := setupTestController(t)

	seedRecord(t, store, "2025-07-01 08:00:00", "bridge")
	seedRecord(t, store, "2025-07-02 08:00:00", "miss")
	seedRecord(t, store, "2025-07-03 08:00:00", "bridge")

	rec := doRequest(c, http.MethodGet,
		"/api/v1/records?date_from=2025-07-01&date_to=2025-07-02&defect=bridge")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
}

func TestGetRecord(t *testing.T) {
	c, store := setupTestController(t)
	id := seedRecord(t, store, "2025-07-01 08:00:00", "bridge")

	rec := doRequest(c, http.MethodGet, fmt.Sprintf("/api/v1/records/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "bridge", resp.Defect)
	assert.Equal(t, "N/A", resp.Barcode)
	assert.Equal(t, datastore.StatusComplete, resp.Status)
	assert.True(t, resp.HasAnnotated)
}

func TestGetRecordNotFound(t *testing.T) {
	c, _ := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/api/v1/records/9999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not-found", resp.Category)
}

func TestGetRecordBadID(t *testing.T) {
	c, _ := setupTestController(t)

	rec := doRequest(c, http.MethodGet, "/api/v1/records/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecordImage(t *testing.T) {
	c, store := setupTestController(t)
	id := seedRecord(t, store, "2025-07-01 08:00:00", "bridge")

	rec := doRequest(c, http.MethodGet, fmt.Sprintf("/api/v1/records/%d/image/raw", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "raw", rec.Body.String())

	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/api/v1/records/%d/image/annotated", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "annotated", rec.Body.String())

	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/api/v1/records/%d/image/thumbnail", id))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRecord(t *testing.T) {
	c, store := setupTestController(t)
	id := seedRecord(t, store, "2025-07-01 08:00:00", "bridge")

	rec := doRequest(c, http.MethodDelete, fmt.Sprintf("/api/v1/records/%d", id))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(c, http.MethodGet, fmt.Sprintf("/api/v1/records/%d", id))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting again stays idempotent.
	rec = doRequest(c, http.MethodDelete, fmt.Sprintf("/api/v1/records/%d", id))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetDefectLabels(t *testing.T) {
	c, store := setupTestController(t)

	seedRecord(t, store, "2025-07-01 08:00:00", "bridge, miss")
	seedRecord(t, store, "2025-07-01 09:00:00", datastore.NoDefects)

	rec := doRequest(c, http.MethodGet, "/api/v1/defects")
	require.Equal(t, http.StatusOK, rec.Code)

	var labels []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &labels))
	assert.ElementsMatch(t, []string{"bridge", "miss", datastore.NoDefects}, labels)
}

func TestGetDefectLabelsCacheInvalidatedByDelete(t *testing.T) {
	c, store := setupTestController(t)
	id := seedRecord(t, store, "2025-07-01 08:00:00", "lifted")

	rec := doRequest(c, http.MethodGet, "/api/v1/defects")
	require.Equal(t, http.StatusOK, rec.Code)

	doRequest(c, http.MethodDelete, fmt.Sprintf("/api/v1/records/%d", id))

	rec = doRequest(c, http.MethodGet, "/api/v1/defects")
	require.Equal(t, http.StatusOK, rec.Code)

	var labels []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &labels))
	assert.NotContains(t, labels, "lifted")
}

func TestTriggerCapture(t *testing.T) {
	c, store := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/api/v1/capture")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bridge", resp.Defect)
	assert.Equal(t, 1, resp.Objects)

	saved, err := store.Get(resp.RecordID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusComplete, saved.Status)
}

func TestExportRecord(t *testing.T) {
	c, store := setupTestController(t)
	id := seedRecord(t, store, "2025-07-01 08:00:00", "bridge")

	rec := doRequest(c, http.MethodPost, fmt.Sprintf("/api/v1/records/%d/export", id))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.FileExists(t, resp.RawImage)
	assert.FileExists(t, resp.AnnotatedImage)
	assert.FileExists(t, resp.Sidecar)
}

func TestExportRecordNotFound(t *testing.T) {
	c, _ := setupTestController(t)

	rec := doRequest(c, http.MethodPost, "/api/v1/records/9999/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
