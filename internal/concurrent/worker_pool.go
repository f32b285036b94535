// Package concurrent runs bounded batches of media uploads.
package concurrent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

var (
	ErrPoolStopped = errors.New("worker pool is not running")
	ErrQueueFull   = errors.New("worker pool queue is full")
)

// Job is one unit of work. Its ctx is the submitting request's context.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	name string
	job  Job
	done chan error
}

// WorkerPool executes jobs on a fixed set of workers. Submission never blocks:
// a full queue rejects the job.
type WorkerPool struct {
	numWorkers     int
	jobQueue       chan *task
	wg             sync.WaitGroup
	logger         logger.Logger
	started        bool
	mutex          sync.Mutex
	statsCollector *StatsCollector
}

func NewWorkerPool(numWorkers int, queueSize int, logger logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &WorkerPool{
		numWorkers:     numWorkers,
		jobQueue:       make(chan *task, queueSize),
		logger:         logger,
		statsCollector: NewStatsCollector(),
	}
}

func (wp *WorkerPool) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if wp.started {
		return
	}

	wp.logger.Info("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"queue_size":  cap(wp.jobQueue),
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		workerID := i
		go func() {
			defer wp.wg.Done()
			wp.worker(workerID)
		}()
	}

	wp.started = true
}

// Stop drains queued jobs and waits for the workers to exit.
func (wp *WorkerPool) Stop() {
	wp.mutex.Lock()
	if !wp.started {
		wp.mutex.Unlock()
		return
	}
	wp.started = false
	close(wp.jobQueue)
	wp.mutex.Unlock()

	wp.logger.Info("Stopping worker pool", map[string]interface{}{})
	wp.wg.Wait()
}

// Submit queues job and returns a channel that receives its result.
func (wp *WorkerPool) Submit(ctx context.Context, name string, job Job) (<-chan error, error) {
	t := &task{ctx: ctx, name: name, job: job, done: make(chan error, 1)}

	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if !wp.started {
		return nil, ErrPoolStopped
	}

	select {
	case wp.jobQueue <- t:
		wp.statsCollector.IncrementSubmitted()
		return t.done, nil
	default:
		wp.statsCollector.IncrementRejected()
		wp.logger.Warn("Worker pool queue full, job rejected", map[string]interface{}{"job": name})
		return nil, ErrQueueFull
	}
}

// RunAll submits every job and waits for all of them. Results are returned in
// job order. If a job cannot be queued the jobs already queued are cancelled
// and waited for; their results come back together with the submission error.
func (wp *WorkerPool) RunAll(ctx context.Context, name string, jobs []Job) ([]error, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	waits := make([]<-chan error, 0, len(jobs))
	var submitErr error
	for _, job := range jobs {
		done, err := wp.Submit(ctx, name, job)
		if err != nil {
			submitErr = err
			cancel()
			break
		}
		waits = append(waits, done)
	}

	results := make([]error, len(waits))
	for i, done := range waits {
		results[i] = <-done
	}
	return results, submitErr
}

func (wp *WorkerPool) worker(id int) {
	for t := range wp.jobQueue {
		if err := t.ctx.Err(); err != nil {
			wp.statsCollector.IncrementFailed()
			t.done <- err
			continue
		}

		startTime := time.Now()
		err := t.job(t.ctx)
		processingTime := time.Since(startTime)

		if err != nil {
			wp.statsCollector.IncrementFailed()
			wp.logger.Warn("Job failed", map[string]interface{}{
				"worker_id":       id,
				"job":             t.name,
				"error":           err.Error(),
				"processing_time": processingTime.String(),
			})
		} else {
			wp.statsCollector.IncrementCompleted()
			wp.statsCollector.RecordProcessingTime(processingTime)
		}
		t.done <- err
	}
}

func (wp *WorkerPool) GetStats() Stats {
	return wp.statsCollector.GetStats()
}

func (wp *WorkerPool) QueueLength() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool) QueueCapacity() int {
	return cap(wp.jobQueue)
}
