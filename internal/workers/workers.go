package workers

import (
	"context"
	"sync"
)

// Workers runs a set of background loops as a unit.
type Workers struct {
	workers []Worker
	wg      sync.WaitGroup
}

// New builds an aggregate over the given workers.
func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Add registers one more worker. Not safe to call after Run.
func (w *Workers) Add(worker Worker) {
	w.workers = append(w.workers, worker)
}

// Run launches every worker in its own goroutine and returns.
func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			worker.Run(ctx)
		}()
	}
}

// Wait blocks until every worker loop has returned.
func (w *Workers) Wait() {
	w.wg.Wait()
}
