// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface and a Workers aggregate that runs
// multiple long-lived loops as a unit.
package workers

import "context"

// Worker is the interface that must be implemented by any background worker.
// Run blocks until ctx is cancelled; the aggregate gives every worker its
// own goroutine.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    <-ctx.Done()
//	}
type Worker interface {
	Run(ctx context.Context)
}

// Fn adapts a plain function to the Worker interface.
type Fn func(ctx context.Context)

// Run calls f.
func (f Fn) Run(ctx context.Context) { f(ctx) }
