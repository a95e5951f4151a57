// Package worker runs the bounded pool of goroutines that pull queued jobs
// off the job store and drive them through the job pipeline (§5).
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/genshorts/genshorts/internal/core/model"
	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/core/workflow"
)

// pollInterval is how often the dispatcher checks the job store for newly
// queued jobs.
const pollInterval = 250 * time.Millisecond

// Pool is a fixed-size pool of workers draining jobs from the store. At most
// maxConcurrent jobs are ever in flight at once, matching §5's
// MAX_CONCURRENT_JOBS bound. Scene-level parallelism is a separate,
// unrelated fan-out that happens inside JobPipeline.Run itself.
type Pool struct {
	store    *services.JobStore
	pipeline *workflow.JobPipeline
	size     int

	jobs chan *model.Job
}

// New returns a Pool that has not yet been started.
func New(store *services.JobStore, pipeline *workflow.JobPipeline, maxConcurrentJobs int) *Pool {
	if maxConcurrentJobs < 1 {
		maxConcurrentJobs = 1
	}
	return &Pool{
		store:    store,
		pipeline: pipeline,
		size:     maxConcurrentJobs,
		jobs:     make(chan *model.Job, maxConcurrentJobs),
	}
}

// Start launches the dispatcher and the worker goroutines. It returns
// immediately; both run until ctx is canceled.
func (p *Pool) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.worker(ctx, i, &wg)
	}
	go p.dispatch(ctx)
}

// dispatch polls the job store's FIFO and forwards whatever it finds onto
// the jobs channel, blocking (rather than dropping) once the channel's
// buffer of size p.size is full, which is exactly the backpressure that
// keeps at most p.size jobs in flight.
func (p *Pool) dispatch(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(p.jobs)
			return
		case <-ticker.C:
			for {
				job := p.store.Pop()
				if job == nil {
					break
				}
				select {
				case p.jobs <- job:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// worker pulls jobs off the shared channel and runs them one at a time to
// completion, mirroring the fixed-size goroutine pool pattern used
// elsewhere in the pipeline for scene-level fan-out, generalized here to
// job-level fan-out.
func (p *Pool) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range p.jobs {
		slog.Info("worker picked up job", "worker_id", id, "job_id", job.ID, "topic", job.Topic)
		p.pipeline.Run(ctx, p.store, job)
		slog.Info("worker finished job", "worker_id", id, "job_id", job.ID)
	}
}
