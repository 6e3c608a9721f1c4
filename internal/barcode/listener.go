package barcode

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/visionqc/visionqc-go/internal/errors"
)

// Listener reads newline-terminated scans from a scanner device stream and
// publishes each one to the mailbox. Scanners configured as keyboard wedges or
// serial devices both terminate a scan with a carriage return or newline.
type Listener struct {
	mailbox *Mailbox
	reader  io.Reader
	closer  io.Closer
	logger  *slog.Logger
	done    chan struct{}
}

// NewListener creates a listener over an arbitrary reader. The mailbox must
// not be nil.
func NewListener(mailbox *Mailbox, reader io.Reader, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		mailbox: mailbox,
		reader:  reader,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// OpenDevice opens the scanner device stream and returns a listener over it.
func OpenDevice(mailbox *Mailbox, devicePath string, logger *slog.Logger) (*Listener, error) {
	f, err := os.Open(devicePath)
	if err != nil {
		return nil, errors.New(err).
			Component("barcode").
			Category(errors.CategoryDeviceUnavailable).
			Context("device_path", devicePath).
			Build()
	}
	l := NewListener(mailbox, f, logger)
	l.closer = f
	return l, nil
}

// Start runs the listener until the context is cancelled or the device stream
// ends. It returns immediately, the read loop runs on its own goroutine.
func (l *Listener) Start(ctx context.Context) {
	go func() {
		defer close(l.done)

		scanner := bufio.NewScanner(l.reader)
		lines := make(chan string)

		go func() {
			defer close(lines)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				l.logger.Error("scanner stream read failed", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				// The blocked read goroutine exits when the device stream is
				// closed, or leaks until process exit. Accepted at shutdown.
				if l.closer != nil {
					_ = l.closer.Close()
				}
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				scan := strings.TrimSpace(line)
				if scan == "" {
					continue
				}
				l.mailbox.Set(scan)
				l.logger.Info("barcode scanned", "barcode", scan)
			}
		}
	}()
}

// Wait blocks until the listener has stopped or the timeout elapses. It
// reports whether the listener stopped in time; a timed-out listener is left
// to leak and is reaped at process exit.
func (l *Listener) Wait(timeout time.Duration) bool {
	select {
	case <-l.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
