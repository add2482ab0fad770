// worker_test.go — Tests for the event loop and cancellable tasks.
//
// Go Pattern: This file uses the external test package (worker_test) so it
// can import workertest, which itself imports worker.
package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker/workertest"
)

func newLoop(t *testing.T) (*worker.Loop, *workertest.ManualClock) {
	t.Helper()
	clock := workertest.NewManualClock()
	l := worker.NewLoop(16, clock)
	l.Start()
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLoopRunsEventsInOrder(t *testing.T) {
	l, _ := newLoop(t)
	ctx := context.Background()

	var got []int
	for i := 1; i <= 5; i++ {
		i := i
		if err := l.Submit(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Submit(%d) error: %v", i, err)
		}
	}
	if err := workertest.Settle(ctx, l); err != nil {
		t.Fatalf("Settle error: %v", err)
	}

	var order []int
	if err := l.Do(ctx, func() { order = append(order, got...) }); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	want := []int{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("ran %d events, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	l, clock := newLoop(t)
	ctx := context.Background()

	fired := false
	task, err := l.Schedule("reply", 2*time.Second, func() { fired = true })
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	clock.Advance(1999 * time.Millisecond)
	workertest.Settle(ctx, l)
	if task.Ran() {
		t.Fatal("task ran before its delay elapsed")
	}

	clock.Advance(time.Millisecond)
	workertest.Settle(ctx, l)

	var sawFired bool
	l.Do(ctx, func() { sawFired = fired })
	if !sawFired || !task.Ran() {
		t.Error("task did not run once its delay elapsed")
	}
	if l.PendingTasks() != 0 {
		t.Errorf("PendingTasks() = %d, want 0", l.PendingTasks())
	}
}

func TestCancelledTaskNeverRuns(t *testing.T) {
	tests := []struct {
		name string
		// cancel is called at a different point relative to the timer firing
		cancelBeforeFire bool
	}{
		{name: "cancel before timer fires", cancelBeforeFire: true},
		{name: "cancel after timer fired but before the loop ran it", cancelBeforeFire: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, clock := newLoop(t)
			ctx := context.Background()

			ran := false
			task, err := l.Schedule("reply", time.Second, func() { ran = true })
			if err != nil {
				t.Fatalf("Schedule error: %v", err)
			}

			if tt.cancelBeforeFire {
				if !task.Cancel() {
					t.Fatal("Cancel() = false, want true")
				}
				clock.Advance(time.Second)
			} else {
				// Block the loop so the fired event stays queued behind us.
				release := make(chan struct{})
				started := make(chan struct{})
				l.Submit(func() {
					close(started)
					<-release
				})
				<-started
				clock.Advance(time.Second)
				if !task.Cancel() {
					t.Fatal("Cancel() = false, want true")
				}
				close(release)
			}

			workertest.Settle(ctx, l)
			var sawRan bool
			l.Do(ctx, func() { sawRan = ran })
			if sawRan || task.Ran() {
				t.Error("cancelled task ran")
			}
			if !task.Cancelled() {
				t.Error("Cancelled() = false after Cancel")
			}
			if task.Cancel() {
				t.Error("second Cancel() = true, want false")
			}
		})
	}
}

func TestCancelAfterRunReturnsFalse(t *testing.T) {
	l, clock := newLoop(t)
	task, _ := l.Schedule("analysis", time.Second, func() {})
	clock.Advance(time.Second)
	workertest.Settle(context.Background(), l)

	if task.Cancel() {
		t.Error("Cancel() after run = true, want false")
	}
}

func TestStopCancelsPendingTasks(t *testing.T) {
	clock := workertest.NewManualClock()
	l := worker.NewLoop(4, clock)
	l.Start()

	task, _ := l.Schedule("reply", time.Second, func() {})
	l.Stop()

	if !task.Cancelled() {
		t.Error("pending task not cancelled by Stop")
	}
	if clock.Pending() != 0 {
		t.Errorf("clock still holds %d timers", clock.Pending())
	}
	if err := l.Submit(func() {}); !errors.Is(err, worker.ErrStopped) {
		t.Errorf("Submit after Stop error = %v, want ErrStopped", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, worker.ErrStopped) {
		t.Errorf("Do after Stop error = %v, want ErrStopped", err)
	}
	if _, err := l.Schedule("late", time.Second, func() {}); !errors.Is(err, worker.ErrStopped) {
		t.Errorf("Schedule after Stop error = %v, want ErrStopped", err)
	}
	// Stop is idempotent.
	l.Stop()
}

func TestLoopSurvivesPanickingEvent(t *testing.T) {
	l, _ := newLoop(t)
	ctx := context.Background()

	l.Submit(func() { panic("boom") })
	ok := false
	if err := l.Do(ctx, func() { ok = true }); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if !ok {
		t.Error("loop did not run events after a panic")
	}
}

func TestDoHonorsContext(t *testing.T) {
	l, _ := newLoop(t)

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	l.Submit(func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do error = %v, want DeadlineExceeded", err)
	}
}
