package lexical

import "time"

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop cancels the task, reporting whether it had not yet run.
	Stop() bool
}

// Scheduler runs delayed callbacks. *time.Timer satisfies Task, so the
// default scheduler is a thin wrapper over time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// TimerScheduler returns the wall-clock scheduler.
func TimerScheduler() Scheduler { return timerScheduler{} }
