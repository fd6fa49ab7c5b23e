// Package services implements the console's orchestration core: session
// lifecycle, catalog and cart, pentest order and asset tracking, the AI chat
// orchestrator, the view transition controller, and the synthetic threat
// feed. Services hold their state behind mutexes and expose typed methods;
// the Console type composes them and owns the cross-cutting flows.
package services

import "time"

// Task is a scheduled callback that can be cancelled before it fires.
// Stop reports whether the cancellation prevented the callback from running.
type Task interface {
	Stop() bool
}

// Scheduler schedules one-shot callbacks. The view transition lock and the
// threat feed ticker run through this interface so tests can drive virtual
// time deterministically instead of sleeping.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// realScheduler is the production Scheduler backed by the runtime timer heap.
// *time.Timer satisfies Task directly.
type realScheduler struct{}

// NewScheduler returns the production wall-clock scheduler.
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) Schedule(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}
