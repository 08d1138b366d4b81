package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner simulates transfers. Each job blocks until released (or its
// ctx is cancelled), tracking the concurrency high-water mark.
type fakeRunner struct {
	mu       sync.Mutex
	active   int
	maxSeen  int
	release  chan struct{}
	errs     map[string]error // locator → result
	started  chan string
	blocking bool
}

func newFakeRunner(blocking bool) *fakeRunner {
	return &fakeRunner{
		release:  make(chan struct{}),
		errs:     map[string]error{},
		started:  make(chan string, 64),
		blocking: blocking,
	}
}

func (f *fakeRunner) Run(ctx context.Context, j *Job) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()
	f.started <- j.Locator

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.blocking {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.release:
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[j.Locator]
}

func jobsFor(locators ...string) map[string]*Job {
	m := make(map[string]*Job, len(locators))
	for _, l := range locators {
		m[l] = New(KindDownload, l)
	}
	return m
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManagerBoundsConcurrency(t *testing.T) {
	fr := newFakeRunner(true)
	m := NewManager(3, fr, nil, Callbacks{})

	m.AddTasks(jobsFor("a", "b", "c", "d", "e", "f", "g"))

	waitFor(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return fr.active == 3
	}, "three workers should be running")

	// no fourth worker may start while all slots are busy
	time.Sleep(50 * time.Millisecond)
	fr.mu.Lock()
	assert.Equal(t, 3, fr.active)
	fr.mu.Unlock()

	close(fr.release)
	waitFor(t, func() bool {
		for _, j := range m.Queue().Jobs() {
			if j.Status() != StatusDone {
				return false
			}
		}
		return true
	}, "all jobs should finish")
	m.Wait()

	fr.mu.Lock()
	assert.Equal(t, 3, fr.maxSeen)
	fr.mu.Unlock()
}

func TestManagerAllDoneFiresOnceWithFailureCount(t *testing.T) {
	fr := newFakeRunner(false)
	fr.errs["bad1"] = errors.New("boom")
	fr.errs["bad2"] = errors.New("boom")

	var calls atomic.Int32
	done := make(chan int, 4)
	m := NewManager(2, fr, nil, Callbacks{
		OnAllDone: func(failed int) {
			calls.Add(1)
			done <- failed
		},
	})

	m.AddTasks(jobsFor("ok1", "bad1", "ok2", "bad2"))

	select {
	case failed := <-done:
		assert.Equal(t, 2, failed)
	case <-time.After(5 * time.Second):
		t.Fatal("completion event never fired")
	}
	m.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestManagerPauseAndResume(t *testing.T) {
	fr := newFakeRunner(true)
	done := make(chan int, 4)
	m := NewManager(1, fr, nil, Callbacks{
		OnAllDone: func(failed int) { done <- failed },
	})

	m.AddTasks(jobsFor("slow"))
	<-fr.started
	j := m.Queue().Get("slow")
	require.NotNil(t, j)

	// cooperative cancel: the worker observes ctx and exits as paused
	m.StopTask(j)
	waitFor(t, func() bool { return j.Status() == StatusPaused }, "job should pause")
	m.Wait()
	// pausing the only job drains the queue, which counts as completion
	assert.Equal(t, 0, <-done)

	// a paused job never restarts on its own
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusPaused, j.Status())

	m.StartTask(j)
	<-fr.started
	assert.Equal(t, StatusRunning, j.Status())

	close(fr.release)
	select {
	case failed := <-done:
		assert.Equal(t, 0, failed)
	case <-time.After(5 * time.Second):
		t.Fatal("completion event never fired")
	}
	assert.Equal(t, StatusDone, j.Status())
}

func TestManagerStopQueuedJob(t *testing.T) {
	fr := newFakeRunner(true)
	m := NewManager(1, fr, nil, Callbacks{})

	m.AddTasks(jobsFor("running", "waiting"))
	<-fr.started

	// with one slot, the second job is still queued; stopping it must not
	// touch the running one
	var queued *Job
	waitFor(t, func() bool {
		for _, j := range m.Queue().Jobs() {
			if j.Status() == StatusQueued {
				queued = j
				return true
			}
		}
		return false
	}, "one job should be queued")

	m.StopTask(queued)
	assert.Equal(t, StatusPaused, queued.Status())

	close(fr.release)
	m.Wait()
	assert.Equal(t, StatusPaused, queued.Status())
}

func TestManagerRetryFailedJob(t *testing.T) {
	fr := newFakeRunner(false)
	fr.errs["flaky"] = errors.New("transient")

	done := make(chan int, 4)
	m := NewManager(1, fr, nil, Callbacks{OnAllDone: func(f int) { done <- f }})

	m.AddTasks(jobsFor("flaky"))
	assert.Equal(t, 1, <-done)

	j := m.Queue().Get("flaky")
	require.Error(t, j.Err())

	// second attempt succeeds
	fr.mu.Lock()
	delete(fr.errs, "flaky")
	fr.mu.Unlock()

	m.RetryTask(j)
	assert.Equal(t, 0, <-done)
	m.Wait()
	assert.Equal(t, StatusDone, j.Status())
	assert.NoError(t, j.Err())
}

func TestManagerIdempotentEnqueue(t *testing.T) {
	fr := newFakeRunner(true)
	m := NewManager(2, fr, nil, Callbacks{})

	m.AddTasks(jobsFor("same"))
	<-fr.started

	// re-adding the same locator must not spawn a second worker
	update := New(KindDownload, "same")
	update.Password = "pw"
	m.AddTasks(map[string]*Job{"same": update})

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, m.Queue().Jobs(), 1)
	fr.mu.Lock()
	assert.Equal(t, 1, fr.maxSeen)
	fr.mu.Unlock()

	// the running worker's request must not shift under it
	assert.Equal(t, "", m.Queue().Get("same").Password)

	close(fr.release)
	m.Wait()

	// once the job is settled, a re-enqueue refreshes the request fields
	update2 := New(KindDownload, "same")
	update2.Password = "pw2"
	m.AddTasks(map[string]*Job{"same": update2})
	assert.Equal(t, "pw2", m.Queue().Get("same").Password)
}

func TestManagerDelTask(t *testing.T) {
	fr := newFakeRunner(true)
	m := NewManager(1, fr, nil, Callbacks{})

	m.AddTasks(jobsFor("goner"))
	<-fr.started
	j := m.Queue().Get("goner")

	m.DelTask(j)
	m.Wait()
	assert.Nil(t, m.Queue().Get("goner"))
	assert.Empty(t, m.Queue().Jobs())
}

func TestManagerCompletionRearmsForNewWork(t *testing.T) {
	fr := newFakeRunner(false)
	done := make(chan int, 4)
	m := NewManager(2, fr, nil, Callbacks{OnAllDone: func(f int) { done <- f }})

	m.AddTasks(jobsFor("first"))
	assert.Equal(t, 0, <-done)

	m.AddTasks(jobsFor("second"))
	select {
	case f := <-done:
		assert.Equal(t, 0, f)
	case <-time.After(5 * time.Second):
		t.Fatal("completion event did not re-arm")
	}
	m.Wait()
}

func TestQueueNextEligibleIsLIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 3; i++ {
		q.Add(New(KindDownload, fmt.Sprintf("j%d", i)))
	}
	j := q.nextEligible()
	require.NotNil(t, j)
	assert.Equal(t, "j2", j.Locator)
}

func TestJobSnapshotRate(t *testing.T) {
	j := New(KindUpload, "x")
	j.SetProgress(512, 2048)
	v := j.Snapshot()
	assert.Equal(t, 250, v.Rate)

	// transferred beyond total (trailer bytes) is clamped
	j.SetProgress(3000, 2048)
	assert.Equal(t, 1000, j.Snapshot().Rate)
}
