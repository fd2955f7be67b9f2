package game

// Executor runs blocking work off the event loop. The task returns a
// continuation that must run back on the loop; nil means nothing to do.
type Executor interface {
	Run(task func() func())
}

// SyncExecutor runs the task and its continuation inline.
type SyncExecutor struct{}

func (SyncExecutor) Run(task func() func()) {
	if next := task(); next != nil {
		next()
	}
}

// AsyncExecutor runs tasks on their own goroutine and hands continuations
// to Post, usually tview's QueueUpdateDraw.
type AsyncExecutor struct {
	Post func(func())
}

func (a AsyncExecutor) Run(task func() func()) {
	go func() {
		next := task()
		if next == nil {
			return
		}
		if a.Post == nil {
			next()
			return
		}
		a.Post(next)
	}()
}
