package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionqc/visionqc-go/internal/datastore"
)

func strPtr(s string) *string { return &s }

func TestExportWritesAllFiles(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{Dir: dir, Station: "line-3"}

	rec := &datastore.Record{
		ID:        42,
		Time:      "2025-06-01 12:30:45",
		ImgRaw:    []byte("raw-bytes"),
		ImgDetect: []byte("annotated-bytes"),
		Defect:    strPtr("bridge, miss"),
		Barcode:   strPtr("PCB-7"),
		Status:    datastore.StatusComplete,
	}

	files, err := e.Export(rec, 5)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "005_42_2025-06-01_12-30-45_raw.png"), files.RawImage)
	assert.Equal(t, filepath.Join(dir, "005_42_2025-06-01_12-30-45_detected.png"), files.AnnotatedImage)
	assert.Equal(t, filepath.Join(dir, "005_42_2025-06-01_12-30-45_info.txt"), files.Sidecar)

	// Image exports are byte-identical to the stored blobs.
	raw, err := os.ReadFile(files.RawImage)
	require.NoError(t, err)
	assert.Equal(t, rec.ImgRaw, raw)

	annotated, err := os.ReadFile(files.AnnotatedImage)
	require.NoError(t, err)
	assert.Equal(t, rec.ImgDetect, annotated)

	sidecar, err := os.ReadFile(files.Sidecar)
	require.NoError(t, err)
	assert.Equal(t,
		"Station: line-3\nRecord ID: 42\nTimestamp: 2025-06-01 12:30:45\nDefects: bridge, miss\nBarcode: PCB-7\n",
		string(sidecar))
}

func TestExportPendingRecord(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{Dir: dir, Station: "line-3"}

	rec := &datastore.Record{
		ID:     7,
		Time:   "2025-06-02 08:00:00",
		ImgRaw: []byte("raw-bytes"),
		Status: datastore.StatusPending,
	}

	files, err := e.Export(rec, 1)
	require.NoError(t, err)

	assert.Empty(t, files.AnnotatedImage, "no annotated image before inference completes")

	sidecar, err := os.ReadFile(files.Sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "Defects: pending\n")
	assert.Contains(t, string(sidecar), "Barcode: N/A\n")
}

func TestExportCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	e := &Exporter{Dir: dir, Station: "line-3"}

	_, err := e.Export(&datastore.Record{ID: 1, Time: "2025-06-03 09:00:00", ImgRaw: []byte("x")}, 1)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
