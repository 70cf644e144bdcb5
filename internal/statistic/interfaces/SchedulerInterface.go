package interfaces

type SchedulerInterface interface {
	Init()
	Stop()
	// RunOnce executes every periodic job immediately, in the caller's goroutine.
	RunOnce()
}
