// Package worker provides the event loop every state transition runs on.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// Instead of protecting session state with locks, we confine it to a single
// goroutine and send it work through a channel:
// 1. Create a buffered channel as an event queue
// 2. Run ONE goroutine that reads from the channel and runs each event
// 3. Send events from HTTP handlers (Do / Submit) and from timers (Schedule)
//
// Because only the loop goroutine ever touches session state, handlers never
// overlap and no mutex is needed around the viewer, chat or orchestrator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrStopped is returned when work is sent to a loop that has shut down.
var ErrStopped = errors.New("event loop stopped")

// ErrQueueFull is returned by Submit when the event queue has no room.
var ErrQueueFull = errors.New("event queue is full; try again later")

// Loop runs events one at a time on a single goroutine.
type Loop struct {
	// Go Pattern: This buffered channel acts as our event queue.
	// Buffered means it can hold `queueSize` events before senders block.
	events chan func()
	clock  Clock

	mu      sync.Mutex
	tasks   map[*Task]struct{} // scheduled, not yet run or cancelled
	stopped bool

	// Go Pattern: context.Context with cancel for graceful shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates an event loop. A nil clock means the wall clock.
func NewLoop(queueSize int, clock Clock) *Loop {
	if queueSize <= 0 {
		queueSize = 64
	}
	if clock == nil {
		clock = RealClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		events: make(chan func(), queueSize),
		clock:  clock,
		tasks:  make(map[*Task]struct{}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	log.Printf("🔁 Starting event loop (queue=%d)", cap(l.events))
	go l.run()
}

// Stop cancels every pending task, runs what is already queued and waits
// for the loop goroutine to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	pending := make([]*Task, 0, len(l.tasks))
	for t := range l.tasks {
		pending = append(pending, t)
	}
	l.mu.Unlock()

	log.Printf("⏹️  Stopping event loop (%d pending tasks cancelled)", len(pending))
	for _, t := range pending {
		t.Cancel()
	}
	l.cancel()
	<-l.done
	log.Println("✅ Event loop stopped")
}

// Submit queues fn without waiting for it to run.
// Go Pattern: `select` with `default` makes the send non-blocking, so a
// flooded queue turns into an error instead of a stuck caller.
func (l *Loop) Submit(fn func()) error {
	if l.isStopped() {
		return ErrStopped
	}
	select {
	case l.events <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs fn on the loop and waits for it to finish.
// If ctx ends first Do returns ctx.Err(); fn may still run later.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.isStopped() {
		return ErrStopped
	}
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.events <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Schedule runs fn on the loop once delay has elapsed, unless the returned
// task is cancelled first. A cancelled task never runs, even when its timer
// already fired and the event is sitting in the queue.
func (l *Loop) Schedule(name string, delay time.Duration, fn func()) (*Task, error) {
	t := &Task{name: name, loop: l, fn: fn}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil, ErrStopped
	}
	l.tasks[t] = struct{}{}
	l.mu.Unlock()

	t.mu.Lock()
	t.timer = l.clock.AfterFunc(delay, t.fire)
	t.mu.Unlock()
	return t, nil
}

// QueueDepth returns the number of events waiting to run.
func (l *Loop) QueueDepth() int {
	return len(l.events)
}

// PendingTasks returns the number of scheduled tasks that may still run.
func (l *Loop) PendingTasks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Running reports whether the loop still accepts work.
func (l *Loop) Running() bool {
	return !l.isStopped()
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) forget(t *Task) {
	l.mu.Lock()
	delete(l.tasks, t)
	l.mu.Unlock()
}

// post is used by timers: unlike Submit it waits for queue room, because a
// dropped timer event would leave a task neither fired nor cancelled.
func (l *Loop) post(fn func()) {
	select {
	case l.events <- fn:
	case <-l.ctx.Done():
	}
}

// run is the loop goroutine.
func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.events:
			l.safeRun(fn)
		case <-l.ctx.Done():
			// Drain what was queued before shutdown so Do callers are released.
			for {
				select {
				case fn := <-l.events:
					l.safeRun(fn)
				default:
					return
				}
			}
		}
	}
}

// safeRun keeps one bad event from killing the loop.
func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Event loop: recovered from panic: %v", r)
		}
	}()
	fn()
}

// Task is a single-shot, cancellable scheduled event.
type Task struct {
	name string
	loop *Loop
	fn   func()

	mu        sync.Mutex
	timer     Timer
	cancelled bool
	ran       bool
}

// Cancel prevents the task from running. It returns false if the task
// already ran or was already cancelled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	if t.cancelled || t.ran {
		t.mu.Unlock()
		return false
	}
	t.cancelled = true
	timer := t.timer
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	t.loop.forget(t)
	return true
}

// Cancelled reports whether Cancel won.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Ran reports whether the task's function ran.
func (t *Task) Ran() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ran
}

func (t *Task) String() string {
	return fmt.Sprintf("task(%s)", t.name)
}

// fire runs on the timer goroutine and hands the work to the loop.
func (t *Task) fire() {
	t.loop.post(t.run)
}

// run executes on the loop goroutine. The cancelled check happens here, on
// the loop, so a Cancel issued by an earlier event always wins.
func (t *Task) run() {
	t.mu.Lock()
	if t.cancelled || t.ran {
		t.mu.Unlock()
		return
	}
	t.ran = true
	t.mu.Unlock()

	t.loop.forget(t)
	t.fn()
}
