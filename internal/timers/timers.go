// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package timers provides a cancellable group of scheduled tasks.
//
// A Set owns every timer and ticker a component schedules, so the component
// can tear all of them down with one StopAll call on shutdown or logout.
// Individual tasks can also be stopped through their handle.
package timers

import (
	"sync"
	"time"
)

// Set owns a group of scheduled tasks. The zero value is not usable;
// construct with NewSet. A Set remains usable after StopAll.
type Set struct {
	mu     sync.Mutex
	nextID uint64
	tasks  map[uint64]*Task
}

// Task is the handle of one scheduled callback.
type Task struct {
	set  *Set
	id   uint64
	once sync.Once
	halt func()
}

// NewSet returns an empty task set.
func NewSet() *Set {
	return &Set{tasks: make(map[uint64]*Task)}
}

// AfterFunc schedules fn to run once after d on its own goroutine.
// A fired task removes itself from the set.
func (s *Set) AfterFunc(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{set: s, id: s.nextID}
	s.nextID++

	// The callback goroutine blocks on s.mu if calendar time beats
	// registration, so the task is always fully wired before removal.
	timer := time.AfterFunc(d, func() {
		s.remove(task.id)
		fn()
	})
	task.halt = func() { timer.Stop() }
	s.tasks[task.id] = task

	return task
}

// Every schedules fn to run repeatedly with period d until the task or the
// whole set is stopped. The first run happens after d, not immediately.
func (s *Set) Every(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{set: s, id: s.nextID}
	s.nextID++

	done := make(chan struct{})
	task.halt = func() { close(done) }
	s.tasks[task.id] = task

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return task
}

// StopAll cancels every scheduled task as a unit.
func (s *Set) StopAll() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.tasks = make(map[uint64]*Task)
	s.mu.Unlock()

	for _, task := range tasks {
		task.once.Do(task.halt)
	}
}

// Len returns the number of live tasks.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}

func (s *Set) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
}

// Stop cancels the task. It is idempotent and safe to call after the task
// has already fired or after StopAll.
func (t *Task) Stop() {
	if t == nil {
		return
	}

	t.set.remove(t.id)
	t.once.Do(t.halt)
}
