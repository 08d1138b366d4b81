package task

import "sync"

// Queue is the visible job list: FIFO in presentation order, keyed by
// locator. Enqueue is idempotent per locator: re-adding a target updates
// the existing job instead of duplicating it. Paused jobs stay in the list
// but are skipped by the scheduler.
type Queue struct {
	mu    sync.Mutex
	order []string
	jobs  map[string]*Job
}

func NewQueue() *Queue {
	return &Queue{jobs: map[string]*Job{}}
}

// Add enqueues j, or updates the existing job with the same locator.
// Returns the job actually in the queue.
func (q *Queue) Add(j *Job) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if existing, ok := q.jobs[j.Locator]; ok {
		existing.update(j)
		return existing
	}
	q.jobs[j.Locator] = j
	q.order = append(q.order, j.Locator)
	return j
}

func (q *Queue) Get(locator string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs[locator]
}

// Remove deletes the job from the list. Explicit removal is the only way a
// job leaves the list, even after completion.
func (q *Queue) Remove(locator string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[locator]; !ok {
		return
	}
	delete(q.jobs, locator)
	for i, loc := range q.order {
		if loc == locator {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Jobs returns the jobs in presentation order.
func (q *Queue) Jobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, 0, len(q.order))
	for _, loc := range q.order {
		out = append(out, q.jobs[loc])
	}
	return out
}

// nextEligible pops the next job to run. Start order is deliberately not
// enqueue order: the most recently added eligible job wins, which is how
// the ready list has always behaved and callers must not rely on FIFO
// starts.
func (q *Queue) nextEligible() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.order) - 1; i >= 0; i-- {
		j := q.jobs[q.order[i]]
		if j.Status() == StatusQueued {
			return j
		}
	}
	return nil
}

// counts tallies jobs by state.
func (q *Queue) counts() (queued, running, paused, failed, done int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		switch j.Status() {
		case StatusQueued:
			queued++
		case StatusRunning:
			running++
		case StatusPaused:
			paused++
		case StatusFailed:
			failed++
		case StatusDone:
			done++
		}
	}
	return
}
