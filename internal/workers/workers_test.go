// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// blockingWorker is a test implementation of the Worker interface that
// counts its starts and blocks until the context is cancelled.
type blockingWorker struct {
	runs atomic.Int32
}

func (w *blockingWorker) Run(ctx context.Context) {
	w.runs.Add(1)
	<-ctx.Done()
}

func TestWorkers_Run_AllWorkersAreCalled(t *testing.T) {
	w1 := &blockingWorker{}
	w2 := &blockingWorker{}
	w3 := &blockingWorker{}

	ctx, cancel := context.WithCancel(context.Background())
	ws := New(w1, w2, w3)
	ws.Run(ctx)

	cancel()
	waitStopped(t, ws)

	for i, w := range []*blockingWorker{w1, w2, w3} {
		if got := w.runs.Load(); got != 1 {
			t.Errorf("worker[%d]: expected runs=1, got %d", i, got)
		}
	}
}

func TestWorkers_Run_Empty(t *testing.T) {
	ws := New()

	// Should not panic on an empty workers list
	ws.Run(context.Background())
	ws.Wait()
}

func TestWorkers_Add(t *testing.T) {
	w := &blockingWorker{}
	ws := New()
	ws.Add(w)

	ctx, cancel := context.WithCancel(context.Background())
	ws.Run(ctx)

	cancel()
	waitStopped(t, ws)

	if got := w.runs.Load(); got != 1 {
		t.Errorf("expected runs=1 for an added worker, got %d", got)
	}
}

func TestWorkers_Fn(t *testing.T) {
	called := make(chan struct{})
	ws := New(Fn(func(context.Context) { close(called) }))

	ws.Run(context.Background())

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected the adapted function to run")
	}
	ws.Wait()
}

func TestWorkers_Wait_BlocksUntilLoopsReturn(t *testing.T) {
	release := make(chan struct{})
	ws := New(Fn(func(context.Context) { <-release }))

	ws.Run(context.Background())

	done := make(chan struct{})
	go func() {
		ws.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while a worker was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the worker finished")
	}
}

// waitStopped waits for ws.Wait with a deadline so a hung worker fails the
// test instead of blocking it forever.
func waitStopped(t *testing.T, ws *Workers) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		ws.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not stop after context cancellation")
	}
}
