package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"doc-qa/internal/usecase"
)

const jobTimeout = 5 * time.Minute

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("ingest pool stopped")

type ingestJob struct {
	ctx    context.Context
	input  usecase.IngestDocumentInput
	result chan ingestResult
}

type ingestResult struct {
	out *usecase.IngestDocumentOutput
	err error
}

// IngestPool runs document ingestion on a fixed number of goroutines fed by a
// bounded queue. Callers block in Submit until their job finishes.
type IngestPool struct {
	ingest      usecase.IngestDocumentUsecase
	concurrency int
	jobs        chan ingestJob
	logger      *slog.Logger

	stopChan  chan struct{}
	stopOnce  sync.Once
	drained   chan struct{}
	drainOnce sync.Once
	wg        sync.WaitGroup
}

func NewIngestPool(
	ingest usecase.IngestDocumentUsecase,
	concurrency, queueSize int,
	logger *slog.Logger,
) *IngestPool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &IngestPool{
		ingest:      ingest,
		concurrency: concurrency,
		jobs:        make(chan ingestJob, queueSize),
		logger:      logger,
		stopChan:    make(chan struct{}),
		drained:     make(chan struct{}),
	}
}

func (p *IngestPool) Start() {
	p.logger.Info("ingest_pool_started", slog.Int("workers", p.concurrency), slog.Int("queue_size", cap(p.jobs)))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish. Queued jobs
// that never started are answered with ErrPoolStopped.
func (p *IngestPool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("ingest_pool_stopping")
		close(p.stopChan)
	})
	p.wg.Wait()
	p.drain()
	p.drainOnce.Do(func() { close(p.drained) })
}

// Submit queues a PDF for ingestion and waits for the outcome. It gives up when
// ctx ends before a worker picks the job up or finishes it.
func (p *IngestPool) Submit(ctx context.Context, input usecase.IngestDocumentInput) (*usecase.IngestDocumentOutput, error) {
	job := ingestJob{ctx: ctx, input: input, result: make(chan ingestResult, 1)}

	select {
	case <-p.stopChan:
		return nil, ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopChan:
		return nil, ErrPoolStopped
	}

	return p.await(ctx, job)
}

// await waits for a queued job's result. A job enqueued after Stop drained the
// queue is never picked up and fails with ErrPoolStopped.
func (p *IngestPool) await(ctx context.Context, job ingestJob) (*usecase.IngestDocumentOutput, error) {
	select {
	case res := <-job.result:
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.drained:
		select {
		case res := <-job.result:
			return res.out, res.err
		default:
			return nil, ErrPoolStopped
		}
	}
}

func (p *IngestPool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case job := <-p.jobs:
			p.process(id, job)
		}
	}
}

func (p *IngestPool) process(id int, job ingestJob) {
	if err := job.ctx.Err(); err != nil {
		job.result <- ingestResult{err: err}
		return
	}

	ctx, cancel := context.WithTimeout(job.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	out, err := p.ingest.Execute(ctx, job.input)
	if err != nil {
		p.logger.Warn("ingest_job_failed", slog.Int("worker", id), slog.String("error", err.Error()))
	} else {
		p.logger.Debug("ingest_job_completed",
			slog.Int("worker", id),
			slog.String("doc_id", out.DocumentID),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
	job.result <- ingestResult{out: out, err: err}
}

func (p *IngestPool) drain() {
	for {
		select {
		case job := <-p.jobs:
			job.result <- ingestResult{err: ErrPoolStopped}
		default:
			return
		}
	}
}
