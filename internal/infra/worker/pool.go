// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"idea-to-market/internal/infra/metrics"
)

// Task is a unit of background work. Returned errors are logged, never retried.
type Task func(ctx context.Context) error

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
	errNilTask   = errors.New("nil task")
)

// Pool runs fire-and-forget tasks such as analytics writes off the request
// path. Submit never blocks; a saturated queue rejects the task.
type Pool struct {
	name    string
	workers int
	tasks   chan Task
	log     *zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(name string, workers, queue int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 4
	}
	if log == nil {
		l := zerolog.Nop()
		log = &l
	}
	l := log.With().Str("pool", name).Logger()
	return &Pool{name: name, workers: workers, tasks: make(chan Task, queue), log: &l}
}

// Start launches the workers. Cancelling ctx abandons queued tasks.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.loop(ctx, i)
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			metrics.SetWorkerQueueDepth(p.name, len(p.tasks))
			p.run(ctx, id, task)
		}
	}
}

// Stop refuses new tasks, lets the workers finish the queue and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		metrics.SetWorkerQueueDepth(p.name, len(p.tasks))
		return nil
	default:
		metrics.IncWorkerTask(p.name, "rejected")
		return ErrQueueFull
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerTask(p.name, "panic")
			p.log.Error().Int("worker", id).Str("panic", fmt.Sprint(r)).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerTask(p.name, "error")
		p.log.Warn().Err(err).Int("worker", id).Msg("task failed")
		return
	}
	metrics.IncWorkerTask(p.name, "ok")
}
