package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dontdude/ymlint/internal/domain"
)

// Pool lints queued jobs on a fixed number of goroutines, which bounds how many
// submissions are in flight against the endpoint at once.
type Pool struct {
	workerCount int
	tasksCh     chan domain.Job
	wg          sync.WaitGroup

	linter domain.Linter
	queue  domain.LintQueue
	// jobTimeout caps a single job, retries included. Zero means no cap.
	jobTimeout time.Duration
}

// NewPool returns a pool of concurrency workers. Values below one mean one.
func NewPool(concurrency int, linter domain.Linter, queue domain.LintQueue, jobTimeout time.Duration) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		workerCount: concurrency,
		tasksCh:     make(chan domain.Job, concurrency),
		linter:      linter,
		queue:       queue,
		jobTimeout:  jobTimeout,
	}
}

// Start launches the workers and returns.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("Starting lint workers", "concurrency", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop closes the pool and waits for the workers to exit. Jobs already handed
// to the pool still run; those that end after the Start context is cancelled
// are left unacknowledged. Submit must not be called afterwards.
func (p *Pool) Stop() {
	slog.Info("Draining lint workers")
	close(p.tasksCh)
	p.wg.Wait()
	slog.Info("Lint workers drained")
}

// Submit hands job to the next free worker, blocking while all are busy.
func (p *Pool) Submit(job domain.Job) {
	p.tasksCh <- job
}

// Consume feeds every job from jobs into the pool until the channel closes.
func (p *Pool) Consume(jobs <-chan domain.Job) {
	for job := range jobs {
		slog.Info("Received lint job", "jobID", job.ID, "filename", job.Filename)
		p.Submit(job)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	slog.Info("Worker started", "workerID", id)

	for job := range p.tasksCh {
		slog.Debug("Processing job", "workerID", id, "jobID", job.ID)
		p.process(ctx, job)
	}

	slog.Info("Lint worker exiting", "workerID", id)
}

func (p *Pool) process(ctx context.Context, job domain.Job) {
	jobCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	outcome := p.linter.Lint(jobCtx, job.Submission())
	if ctx.Err() != nil {
		// Left pending; the recovery routine requeues it.
		slog.Warn("Lint job interrupted by shutdown", "jobID", job.ID)
		return
	}
	result := outcome.Result(job.ID)
	slog.Info("Lint job finished", "jobID", job.ID, "outcome", outcome.String())

	// Results and acks use the parent context so a timed-out job still reports.
	if err := p.queue.Broadcast(ctx, result); err != nil {
		slog.Error("Failed to broadcast result", "jobID", job.ID, "error", err)
	}
	if job.RawID != "" {
		if err := p.queue.Acknowledge(ctx, job.RawID); err != nil {
			slog.Error("Failed to acknowledge job", "jobID", job.ID, "error", err)
		}
	}
}
