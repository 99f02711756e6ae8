// Package export publishes serialized snapshots of the whole index: to
// timestamped files on disk, to Redis for the search runtime, and as a Kafka
// notification once a snapshot is out.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
)

// Result describes one finished export.
type Result struct {
	Bytes      int       `json:"bytes"`
	Path       string    `json:"path,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// SnapshotFunc produces the serialized index to export.
type SnapshotFunc func() ([]byte, error)

// Exporter fans a snapshot out to the file writer and every sink.
type Exporter struct {
	files    *FileWriter
	sinks    []Sink
	notifier *Notifier
	metrics  *metrics.Metrics
	group    singleflight.Group
	logger   *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

func WithFileWriter(w *FileWriter) Option { return func(e *Exporter) { e.files = w } }

func WithSink(s Sink) Option { return func(e *Exporter) { e.sinks = append(e.sinks, s) } }

func WithNotifier(n *Notifier) Option { return func(e *Exporter) { e.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Exporter) { e.metrics = m } }

func New(opts ...Option) *Exporter {
	e := &Exporter{
		logger: slog.Default().With("component", "exporter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export serializes the index and publishes it. Concurrent calls share one
// export. Sink failures are logged and returned joined under
// ErrExportFailed; the file write and the other sinks still run.
func (e *Exporter) Export(ctx context.Context, snapshot SnapshotFunc) (Result, error) {
	val, err, shared := e.group.Do("index", func() (interface{}, error) {
		return e.export(ctx, snapshot)
	})
	if shared {
		e.logger.Debug("export coalesced")
	}
	res, _ := val.(Result)
	return res, err
}

func (e *Exporter) export(ctx context.Context, snapshot SnapshotFunc) (Result, error) {
	start := time.Now()
	data, err := snapshot()
	if err != nil {
		e.count("snapshot", err)
		return Result{}, fmt.Errorf("%w: snapshot: %v", apperrors.ErrExportFailed, err)
	}
	res := Result{
		Bytes:      len(data),
		ExportedAt: time.Now().UTC(),
	}
	if e.metrics != nil {
		e.metrics.IndexExportBytes.Set(float64(len(data)))
	}

	var errs []error
	if e.files != nil {
		path, err := e.files.Write(data)
		res.Path = path
		e.count("file", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("file: %w", err))
		}
	}
	for _, sink := range e.sinks {
		err := sink.Publish(ctx, data)
		e.count(sink.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if e.notifier != nil {
		err := e.notifier.Notify(ctx, res)
		e.count("kafka", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		e.logger.Error("index export incomplete",
			"bytes", len(data),
			"error", joined,
		)
		return res, fmt.Errorf("%w: %w", apperrors.ErrExportFailed, joined)
	}
	e.logger.Info("index exported",
		"bytes", len(data),
		"path", res.Path,
		"sinks", len(e.sinks),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Exporter) count(sink string, err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.IndexExportsTotal.WithLabelValues(sink, status).Inc()
}
