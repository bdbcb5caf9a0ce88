package async

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/ingest"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
)

// Job is one file discovered on disk.
type Job struct {
	Path        string
	Name        string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Processor is the batch runner; *pipeline.Orchestrator implements it.
type Processor interface {
	Process(ctx context.Context, docs []pipeline.Document) []pipeline.Item
}

var ErrQueueClosed = errors.New("queue is shutting down")

// ProcessorQueue feeds jobs to the orchestrator one at a time, so the
// sink sees rows in discovery order.
type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	timeout time.Duration
	onItem  func(pipeline.Item)
	dedupe  bool
	seen    map[string]struct{} // fingerprints; worker goroutine only

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithItemHandler is called with every processed item, from the worker goroutine.
func WithItemHandler(fn func(pipeline.Item)) Option {
	return func(q *ProcessorQueue) { q.onItem = fn }
}

// WithDedupe skips files whose content was already processed without failing.
// Watchers report the same file again on every rewrite.
func WithDedupe() Option {
	return func(q *ProcessorQueue) { q.dedupe = true }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		seen:    map[string]struct{}{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("queue.worker.started")
			for job := range q.ch {
				fp := q.fingerprint(job.Path)
				if _, dup := q.seen[fp]; fp != "" && dup {
					q.logger.Info("queue.job.duplicate", "path", job.Path, "fingerprint", fp)
					continue
				}

				ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
				items := q.proc.Process(ctx, []pipeline.Document{pipeline.FileDocument(job.Name, job.Path)})
				cancel()

				for _, it := range items {
					q.logger.Info("queue.job.done",
						"path", job.Path,
						"status", it.Status,
						"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
					)
					if fp != "" && it.Status != constants.DocStatusFailed {
						q.seen[fp] = struct{}{}
					}
					if q.onItem != nil {
						q.onItem(it)
					}
				}
			}
			q.logger.Info("queue.worker.stopped")
		}()
	})
}

// fingerprint returns "" when dedupe is off or the file cannot be read; the
// orchestrator reports unreadable files itself.
func (q *ProcessorQueue) fingerprint(path string) string {
	if !q.dedupe {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	fp, err := ingest.Fingerprint(f)
	if err != nil {
		q.logger.Warn("queue.fingerprint.failed", "path", path, "error", err)
		return ""
	}
	return fp
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue.full.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish, or for ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
