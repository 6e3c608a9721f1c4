// Package inspection orchestrates the capture, inference and persistence
// pipeline of one inspection cycle.
package inspection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visionqc/visionqc-go/internal/camera"
	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/detector"
	"github.com/visionqc/visionqc-go/internal/errors"
	"github.com/visionqc/visionqc-go/internal/observability"
)

// Inferencer runs the detection model over a stored raw frame. Satisfied by
// detector.Detector, replaced by fakes in tests.
type Inferencer interface {
	Detect(raw []byte) (*detector.Result, error)
}

// AnnotateFunc renders detection boxes into a frame for storage.
type AnnotateFunc func(raw []byte, result *detector.Result) ([]byte, error)

// CycleResult is the outcome of one completed inspection cycle.
type CycleResult struct {
	RecordID uint
	Defect   string
	Objects  int
}

// Processor runs inspection cycles. The raw frame is persisted before
// inference starts so a capture survives an inference failure, and all store
// writes are serialized through one writer goroutine.
type Processor struct {
	Settings *conf.Settings
	Store    datastore.Interface
	Source   camera.Source
	Detector Inferencer
	Annotate AnnotateFunc
	Metrics  *observability.Metrics

	logger *slog.Logger

	writes    chan func()
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a processor. Metrics may be nil.
func New(settings *conf.Settings, store datastore.Interface, source camera.Source,
	inferencer Inferencer, annotate AnnotateFunc, metrics *observability.Metrics,
	logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Settings: settings,
		Store:    store,
		Source:   source,
		Detector: inferencer,
		Annotate: annotate,
		Metrics:  metrics,
		logger:   logger,
		writes:   make(chan func(), 16),
		done:     make(chan struct{}),
	}
}

// Start launches the writer goroutine. Must be called before RunCycle.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		go func() {
			defer close(p.done)
			for fn := range p.writes {
				fn()
			}
		}()
	})
}

// Stop drains pending writes and stops the writer goroutine.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.writes)
		<-p.done
	})
}

// RunCycle performs one capture-and-inspect cycle: capture a frame, persist it
// as a pending record, run inference, annotate, and complete the record. On an
// inference or annotation failure the record is marked failed and kept, the
// operator retries by triggering a new capture. Nothing is retried
// automatically.
func (p *Processor) RunCycle(ctx context.Context) (*CycleResult, error) {
	cycleID := uuid.New().String()
	log := p.logger.With("cycle_id", cycleID)

	captureCtx, cancel := context.WithTimeout(ctx,
		time.Duration(p.Settings.Camera.TimeoutMs)*time.Millisecond)
	defer cancel()

	raw, err := p.Source.Capture(captureCtx)
	if err != nil {
		p.recordCapture("capture_failed")
		log.Error("capture failed", "error", err)
		return nil, err
	}
	log.Debug("frame captured", "bytes", len(raw))

	// Persist the raw frame before the potentially slow inference step so the
	// capture is never lost.
	rec := &datastore.Record{ImgRaw: raw}
	id, err := p.submitSave(rec)
	if err != nil {
		p.recordCapture("save_failed")
		return nil, err
	}

	result, err := p.infer(raw)
	if err != nil {
		p.failRecord(id)
		p.recordCapture("inference_failed")
		log.Error("inference failed", "record_id", id, "error", err)
		return nil, errors.New(err).
			Component("inspection").
			Category(errors.CategoryInference).
			Context("record_id", id).
			Build()
	}

	annotated, err := p.Annotate(raw, result)
	if err != nil {
		p.failRecord(id)
		p.recordCapture("annotation_failed")
		log.Error("annotation failed", "record_id", id, "error", err)
		return nil, err
	}

	defect := detector.Summarize(result)
	if err := p.submitComplete(id, annotated, defect); err != nil {
		p.recordCapture("complete_failed")
		return nil, err
	}

	p.recordCapture("ok")
	log.Info("inspection cycle complete",
		"record_id", id, "defect", defect, "objects", len(result.Objects))

	return &CycleResult{RecordID: id, Defect: defect, Objects: len(result.Objects)}, nil
}

// infer runs the model and records its duration.
func (p *Processor) infer(raw []byte) (*detector.Result, error) {
	start := time.Now()
	result, err := p.Detector.Detect(raw)
	if p.Metrics != nil {
		p.Metrics.ObserveInference(time.Since(start).Seconds())
	}
	return result, err
}

// submitSave runs the pending-record insert on the writer goroutine.
func (p *Processor) submitSave(rec *datastore.Record) (uint, error) {
	var id uint
	var err error
	p.submit(func() {
		id, err = p.Store.Save(rec)
	})
	if p.Metrics != nil {
		p.Metrics.RecordStoreOp("save", opStatus(err))
	}
	return id, err
}

// submitComplete runs the completion update on the writer goroutine.
func (p *Processor) submitComplete(id uint, annotated []byte, defect string) error {
	var err error
	p.submit(func() {
		err = p.Store.Complete(id, annotated, defect)
	})
	if p.Metrics != nil {
		p.Metrics.RecordStoreOp("complete", opStatus(err))
	}
	return err
}

// failRecord marks a record failed, logging but not propagating the error
// since the caller is already on a failure path.
func (p *Processor) failRecord(id uint) {
	p.submit(func() {
		if err := p.Store.Fail(id); err != nil {
			p.logger.Error("marking record failed", "record_id", id, "error", err)
		}
	})
}

// submit runs fn on the writer goroutine and waits for it.
func (p *Processor) submit(fn func()) {
	doneCh := make(chan struct{})
	p.writes <- func() {
		defer close(doneCh)
		fn()
	}
	<-doneCh
}

func (p *Processor) recordCapture(status string) {
	if p.Metrics != nil {
		p.Metrics.RecordCapture(status)
	}
}

func opStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
