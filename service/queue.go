package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vote-admin/models"
)

var (
	ErrQueueFull    = errors.New("bootstrap queue is full")
	ErrQueueStopped = errors.New("bootstrap queue is stopped")
)

// BootstrapQueue runs bootstraps on a fixed pool of workers. Each job gets
// its own store and progress sink, so jobs never share state.
type BootstrapQueue struct {
	bootstrapper *Bootstrapper
	jobCh        chan *BootstrapRequest
	processingWg sync.WaitGroup
	shutdownCh   chan struct{}
	workers      int
}

// BootstrapRequest represents a queued election bootstrap
type BootstrapRequest struct {
	Ctx      context.Context
	Template models.ElectionTemplate
	Progress ProgressSink
	ResultCh chan<- *BootstrapResult
}

// BootstrapResult contains the outcome of a queued bootstrap
type BootstrapResult struct {
	Data *models.ElectionData
	Err  error
}

// NewBootstrapQueue creates a queue with the given worker count and capacity
func NewBootstrapQueue(bootstrapper *Bootstrapper, workers, queueSize int) *BootstrapQueue {
	if workers < 1 {
		workers = 1
	}
	return &BootstrapQueue{
		bootstrapper: bootstrapper,
		jobCh:        make(chan *BootstrapRequest, queueSize),
		shutdownCh:   make(chan struct{}),
		workers:      workers,
	}
}

// Start begins processing queued bootstraps
func (q *BootstrapQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.processingWg.Add(1)
		go q.worker(i)
	}
}

// Stop waits for running bootstraps to finish. Jobs still queued are
// answered with ErrQueueStopped.
func (q *BootstrapQueue) Stop() {
	close(q.shutdownCh)
	q.processingWg.Wait()

	for {
		select {
		case req := <-q.jobCh:
			req.ResultCh <- &BootstrapResult{Err: ErrQueueStopped}
			close(req.ResultCh)
		default:
			return
		}
	}
}

// Submit queues a bootstrap. The returned channel yields exactly one result.
func (q *BootstrapQueue) Submit(ctx context.Context, tmpl models.ElectionTemplate, progress ProgressSink) <-chan *BootstrapResult {
	resultCh := make(chan *BootstrapResult, 1)

	select {
	case <-q.shutdownCh:
		resultCh <- &BootstrapResult{Err: ErrQueueStopped}
		close(resultCh)
		return resultCh
	default:
	}

	select {
	case q.jobCh <- &BootstrapRequest{
		Ctx:      ctx,
		Template: tmpl,
		Progress: progress,
		ResultCh: resultCh,
	}:
		return resultCh
	default:
		// Queue is full, return immediate error
		log.WithField("election", models.ElectionID(tmpl.Name)).Warn("Bootstrap queue is full, request rejected")
		resultCh <- &BootstrapResult{Err: ErrQueueFull}
		close(resultCh)
		return resultCh
	}
}

func (q *BootstrapQueue) worker(id int) {
	defer q.processingWg.Done()

	for {
		select {
		case <-q.shutdownCh:
			return
		case req := <-q.jobCh:
			log.WithFields(log.Fields{
				"worker":   id,
				"election": models.ElectionID(req.Template.Name),
			}).Debug("Worker picked up bootstrap")

			data, err := q.bootstrapper.Create(req.Ctx, req.Template, req.Progress)
			req.ResultCh <- &BootstrapResult{Data: data, Err: err}
			close(req.ResultCh)
		}
	}
}
