package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

// Job is one parse request: the document plus the vendor it belongs to.
type Job struct {
	VendorID    uuid.UUID
	Document    entity.Document
	SubmittedAt time.Time
	TraceID     string
}

// Parser is the downstream the queue feeds; satisfied by the pipeline
// runner.
type Parser interface {
	Run(ctx context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error)
}

// ParseQueue fans jobs out to a fixed worker pool. Enqueue blocks when
// the buffer is full, which is the backpressure story: intake slows to
// what the workers can absorb.
type ParseQueue struct {
	parser  Parser
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu        sync.Mutex
	closed    bool
	producers sync.WaitGroup
}

type Option func(*ParseQueue)

func WithWorkers(n int) Option {
	return func(q *ParseQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ParseQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ParseQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewParseQueue(parser Parser, logger *slog.Logger, opts ...Option) *ParseQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ParseQueue{
		parser:  parser,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ParseQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					if job.TraceID != "" {
						ctx = common.WithRequestID(ctx, job.TraceID)
					}
					inv, err := q.parser.Run(ctx, job.Document, job.VendorID)
					cancel()

					if err != nil {
						q.logger.Error("parse failed",
							"worker_id", workerID, "invoice_id", job.Document.ID, "error", err)
					} else {
						q.logger.Info("parse complete",
							"worker_id", workerID, "invoice_id", inv.ID, "status", inv.Status)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks when the buffer is full. The mutex covers only the
// closed check; a blocked producer must not serialize the others.
func (q *ParseQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "invoice_id", job.Document.ID)
		return nil
	}
	q.producers.Add(1)
	q.mu.Unlock()
	defer q.producers.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queued document for parsing", "invoice_id", job.Document.ID)
	default:
		q.logger.Warn("queue full, applying backpressure", "invoice_id", job.Document.ID)
		q.ch <- job
	}
	return nil
}

func (q *ParseQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	// in-flight producers finish their sends before the channel closes;
	// the workers are still draining, so those sends cannot stall
	q.producers.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
