// internal/api/records.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/errors"
)

// initRecordRoutes registers all record-related API endpoints
func (c *Controller) initRecordRoutes() {
	c.Group.GET("/records", c.GetRecords)
	c.Group.GET("/records/:id", c.GetRecord)
	c.Group.GET("/records/:id/image/:kind", c.GetRecordImage)
	c.Group.DELETE("/records/:id", c.DeleteRecord)
	c.Group.POST("/records/:id/export", c.ExportRecord)
	c.Group.GET("/defects", c.GetDefectLabels)
	c.Group.POST("/capture", c.TriggerCapture)
}

// RecordResponse represents a detection record in the API response. Image
// blobs are fetched through the image endpoint, not inlined.
type RecordResponse struct {
	ID           uint   `json:"id"`
	Time         string `json:"time"`
	Defect       string `json:"defect,omitempty"`
	Barcode      string `json:"barcode"`
	Status       string `json:"status"`
	HasAnnotated bool   `json:"hasAnnotated"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data        any   `json:"data"`
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
}

// CaptureResponse is the outcome of a triggered inspection cycle.
type CaptureResponse struct {
	RecordID uint   `json:"record_id"`
	Defect   string `json:"defect"`
	Objects  int    `json:"objects"`
}

// ExportResponse lists the files written for an exported record.
type ExportResponse struct {
	RawImage       string `json:"raw_image"`
	AnnotatedImage string `json:"annotated_image,omitempty"`
	Sidecar        string `json:"sidecar"`
}

// GetRecords handles GET requests for the paginated history view. Both date
// bounds are inclusive calendar dates.
func (c *Controller) GetRecords(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(ctx.QueryParam("page_size"))
	if pageSize <= 0 {
		pageSize = 10
	} else if pageSize > 100 {
		// Enforce a maximum to prevent excessive loads
		pageSize = 100
	}

	filter := &datastore.SearchFilter{
		DateFrom: ctx.QueryParam("date_from"),
		DateTo:   ctx.QueryParam("date_to"),
		Defect:   ctx.QueryParam("defect"),
		Page:     page,
		PageSize: pageSize,
	}

	records, total, err := c.DS.SearchRecords(filter)
	if err != nil {
		return c.handleError(ctx, err)
	}

	data := make([]RecordResponse, 0, len(records))
	for i := range records {
		data = append(data, toRecordResponse(&records[i]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return ctx.JSON(http.StatusOK, &PaginatedResponse{
		Data:        data,
		Total:       total,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	})
}

// GetRecord handles GET requests for a single record.
func (c *Controller) GetRecord(ctx echo.Context) error {
	id, err := recordID(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	rec, err := c.DS.Get(id)
	if err != nil {
		return c.handleError(ctx, err)
	}

	resp := toRecordResponse(&rec)
	return ctx.JSON(http.StatusOK, &resp)
}

// GetRecordImage serves the raw or annotated image of a record.
func (c *Controller) GetRecordImage(ctx echo.Context) error {
	id, err := recordID(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	var field datastore.ImageField
	switch ctx.Param("kind") {
	case "raw":
		field = datastore.FieldRawImage
	case "annotated":
		field = datastore.FieldAnnotatedImage
	default:
		return c.handleError(ctx, errors.Newf("image kind must be raw or annotated").
			Component("api").
			Category(errors.CategoryValidation).
			Build())
	}

	data, err := c.DS.ImageData(id, field)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Blob(http.StatusOK, "image/png", data)
}

// DeleteRecord handles DELETE requests. Deletion is unconditional and
// immediate, there is no recovery path.
func (c *Controller) DeleteRecord(ctx echo.Context) error {
	id, err := recordID(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	if err := c.DS.Delete(id); err != nil {
		return c.handleError(ctx, err)
	}

	// The defect label list may have changed.
	c.defectCache.Delete(defectCacheKey)

	return ctx.NoContent(http.StatusNoContent)
}

// ExportRecord writes a record's images and sidecar to the export directory.
func (c *Controller) ExportRecord(ctx echo.Context) error {
	id, err := recordID(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	rec, err := c.DS.RecordForExport(id)
	if err != nil {
		if c.Metrics != nil {
			c.Metrics.RecordExport("error")
		}
		return c.handleError(ctx, err)
	}

	serial := int(c.exportSerial.Add(1))
	files, err := c.Exporter.Export(rec, serial)
	if err != nil {
		if c.Metrics != nil {
			c.Metrics.RecordExport("error")
		}
		return c.handleError(ctx, err)
	}

	if c.Metrics != nil {
		c.Metrics.RecordExport("ok")
	}

	return ctx.JSON(http.StatusOK, &ExportResponse{
		RawImage:       files.RawImage,
		AnnotatedImage: files.AnnotatedImage,
		Sidecar:        files.Sidecar,
	})
}

// GetDefectLabels returns the deduplicated single defect labels for filter
// lists. The list is cached briefly since it only changes when records are
// added or deleted.
func (c *Controller) GetDefectLabels(ctx echo.Context) error {
	if cached, found := c.defectCache.Get(defectCacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	values, err := c.DS.DistinctDefects()
	if err != nil {
		return c.handleError(ctx, err)
	}

	labels := datastore.SplitDefectLabels(values)
	c.defectCache.SetDefault(defectCacheKey, labels)

	return ctx.JSON(http.StatusOK, labels)
}

// TriggerCapture runs one capture-and-inspect cycle.
func (c *Controller) TriggerCapture(ctx echo.Context) error {
	result, err := c.Processor.RunCycle(ctx.Request().Context())
	if err != nil {
		return c.handleError(ctx, err)
	}

	// A new defect may have appeared.
	c.defectCache.Delete(defectCacheKey)

	return ctx.JSON(http.StatusOK, &CaptureResponse{
		RecordID: result.RecordID,
		Defect:   result.Defect,
		Objects:  result.Objects,
	})
}

// recordID parses the :id path parameter.
func recordID(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, errors.Newf("invalid record id %q", ctx.Param("id")).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return uint(id), nil
}

func toRecordResponse(rec *datastore.Record) RecordResponse {
	return RecordResponse{
		ID:           rec.ID,
		Time:         rec.Time,
		Defect:       rec.DefectSummary(),
		Barcode:      rec.BarcodeValue(),
		Status:       rec.Status,
		HasAnnotated: len(rec.ImgDetect) > 0,
	}
}
