package task

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"lanpan/internal/logging"
)

// Runner executes one job to completion. Implementations must honor ctx:
// cancellation is how pause works, and workers are expected to flush and
// close whatever they hold before returning.
type Runner interface {
	Run(ctx context.Context, job *Job) error
}

// Callbacks is the manager's outbound interface to the UI collaborator.
// Both fields are optional.
type Callbacks struct {
	// OnProgress delivers a coalesced progress line plus the snapshot of
	// the job that triggered it.
	OnProgress func(line string, view View)
	// OnAllDone fires once per drained queue with the number of failed jobs.
	OnAllDone func(failed int)
}

// Manager schedules queued jobs onto worker goroutines, at most `limit`
// running at once (default 3). State machine per job:
//
//	Queued → Running → {Done | Failed | Paused}
//	Paused → Queued (resume), Failed → Queued (retry)
//
// and any non-running job leaves the list on explicit delete.
type Manager struct {
	log    logging.Logger
	queue  *Queue
	runner Runner
	sem    *semaphore.Weighted
	cb     Callbacks

	// dispatching guards the scheduling pass: concurrent requests to start
	// more work while a pass is in flight are ignored, not queued.
	dispatching atomic.Bool
	running     atomic.Int32
	doneEmitted atomic.Bool

	cancels sync.Map // job ID → context.CancelFunc
	wg      sync.WaitGroup

	// progress sampling interval bounds; jittered so concurrent workers
	// don't emit in lockstep.
	sampleMin, sampleMax time.Duration
}

func NewManager(limit int, runner Runner, log logging.Logger, cb Callbacks) *Manager {
	if limit <= 0 {
		limit = 3
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		log:       log,
		queue:     NewQueue(),
		runner:    runner,
		sem:       semaphore.NewWeighted(int64(limit)),
		cb:        cb,
		sampleMin: 400 * time.Millisecond,
		sampleMax: 700 * time.Millisecond,
	}
}

// Queue exposes the job list for display.
func (m *Manager) Queue() *Queue { return m.queue }

// AddTasks enqueues jobs keyed by locator (idempotent per locator) and
// kicks the scheduler.
func (m *Manager) AddTasks(jobs map[string]*Job) {
	for loc, j := range jobs {
		j.Locator = loc
		m.queue.Add(j)
	}
	m.doneEmitted.Store(false)
	m.dispatch()
}

// StartTask resumes a paused or failed job through the normal scheduling
// path. Running and queued jobs are left alone.
func (m *Manager) StartTask(j *Job) {
	switch j.Status() {
	case StatusPaused, StatusFailed:
		j.setStatus(StatusQueued)
		m.doneEmitted.Store(false)
		m.dispatch()
	}
}

// RetryTask clears a failed job's error and re-queues it.
func (m *Manager) RetryTask(j *Job) {
	if j.Status() != StatusFailed {
		return
	}
	j.setErr(nil)
	j.setStatus(StatusQueued)
	m.doneEmitted.Store(false)
	m.dispatch()
}

// StopTask pauses a job. A running worker is cancelled cooperatively; its
// partial output stays on disk so a resumed download picks up with a Range
// request. The job stays visible until resumed or deleted.
func (m *Manager) StopTask(j *Job) {
	if c, ok := m.cancels.Load(j.ID); ok {
		c.(context.CancelFunc)()
		return // worker marks the job paused on its way out
	}
	if j.Status() == StatusQueued {
		j.setStatus(StatusPaused)
	}
}

// DelTask removes a job from the list, cancelling it first if running.
func (m *Manager) DelTask(j *Job) {
	if c, ok := m.cancels.Load(j.ID); ok {
		c.(context.CancelFunc)()
	}
	m.queue.Remove(j.Locator)
}

// Wait blocks until every started worker has exited. Test helper.
func (m *Manager) Wait() { m.wg.Wait() }

// dispatch runs one scheduling pass in its own goroutine: pop an eligible
// job, block until a worker slot frees up, start it, repeat until nothing
// is eligible. The guard flag makes overlapping passes no-ops.
func (m *Manager) dispatch() {
	if !m.dispatching.CompareAndSwap(false, true) {
		return
	}
	go func() {
		for {
			for {
				j := m.queue.nextEligible()
				if j == nil {
					break
				}
				if err := m.sem.Acquire(context.Background(), 1); err != nil {
					m.dispatching.Store(false)
					return
				}
				if j.Status() != StatusQueued {
					// paused or deleted while we waited for a slot
					m.sem.Release(1)
					continue
				}
				m.start(j)
			}
			m.dispatching.Store(false)
			// A job enqueued between the empty check and the flag clearing
			// would otherwise be stranded until the next enqueue.
			if m.queue.nextEligible() == nil || !m.dispatching.CompareAndSwap(false, true) {
				return
			}
		}
	}()
}

func (m *Manager) start(j *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels.Store(j.ID, cancel)
	j.setStatus(StatusRunning)
	m.running.Add(1)
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()

		stop := make(chan struct{})
		go m.sampleProgress(ctx, j, stop)

		err := m.runner.Run(ctx, j)
		close(stop)

		switch {
		case err == nil:
			j.setErr(nil)
			j.setStatus(StatusDone)
			m.log.Info(ctx, "job done", "id", j.ID, "locator", j.Locator)
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			j.setStatus(StatusPaused)
			m.log.Info(ctx, "job paused", "id", j.ID)
		default:
			j.setErr(err)
			j.setStatus(StatusFailed)
			m.log.Error(ctx, "job failed", "id", j.ID, "err", err)
		}

		m.cancels.Delete(j.ID)
		m.running.Add(-1)
		m.sem.Release(1)

		m.maybeFinish()
		m.dispatch()
	}()
}

// maybeFinish emits the aggregate completion event when no job is queued
// or running. Emitted once per drained queue; adding or resuming work
// re-arms it.
func (m *Manager) maybeFinish() {
	queued, running, _, failed, _ := m.queue.counts()
	if queued != 0 || running != 0 {
		return
	}
	if m.cb.OnAllDone != nil && m.doneEmitted.CompareAndSwap(false, true) {
		m.cb.OnAllDone(failed)
	}
}

// sampleProgress periodically recomputes the job's transfer rate from the
// byte delta since the last sample and emits a progress line. The interval
// is short and jittered rather than per-byte, so the UI is not flooded.
func (m *Manager) sampleProgress(ctx context.Context, j *Job, stop <-chan struct{}) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	last := int64(0)
	lastAt := time.Now()

	for {
		interval := m.sampleMin + time.Duration(r.Int63n(int64(m.sampleMax-m.sampleMin)+1))
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(interval):
		}

		v := j.Snapshot()
		now := time.Now()
		if dt := now.Sub(lastAt).Seconds(); dt > 0 {
			j.setSpeed(float64(v.Transferred-last) / dt)
		}
		last = v.Transferred
		lastAt = now

		m.emitProgress(j)
	}
}

// emitProgress coalesces per-job progress: a single active job passes its
// line straight through; with several active, the UI gets a count summary
// instead of interleaved lines.
func (m *Manager) emitProgress(j *Job) {
	if m.cb.OnProgress == nil {
		return
	}
	v := j.Snapshot()
	if m.running.Load() <= 1 {
		m.cb.OnProgress(FormatJobLine(v), v)
		return
	}
	_, running, _, _, done := m.queue.counts()
	m.cb.OnProgress(FormatSummaryLine(running, done), v)
}
