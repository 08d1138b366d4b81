// Package task holds the transfer job model and the bounded-concurrency
// manager that schedules jobs onto worker goroutines.
package task

import (
	"sync"

	"github.com/google/uuid"
)

type Kind int

const (
	KindDownload Kind = iota
	KindUpload
)

func (k Kind) String() string {
	if k == KindUpload {
		return "upload"
	}
	return "download"
}

type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusPaused
	StatusFailed
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusFailed:
		return "failed"
	default:
		return "done"
	}
}

// Job is a mutable transfer record. Counters are mutated only by the job's
// owning worker; the manager and UI read snapshots for display. A job stays
// in the list after completion until the user removes it explicitly.
type Job struct {
	ID       string
	Kind     Kind
	Locator  string // share URL (download) or local source path (upload)
	Password string
	// LocalPath is the destination dir (download) or source path (upload).
	LocalPath string
	// FolderID is the upload target folder.
	FolderID int64
	// IsFolder marks a download of a chunked folder share.
	IsFolder bool

	mu          sync.Mutex
	status      Status
	err         error
	transferred int64
	total       int64
	totalItems  int
	doneItems   int
	speed       float64 // bytes/sec, updated by the progress sampler
}

func New(kind Kind, locator string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Locator:    locator,
		status:     StatusQueued,
		totalItems: 1,
	}
}

// View is an immutable snapshot for display.
type View struct {
	ID          string
	Kind        Kind
	Locator     string
	Status      Status
	Err         error
	Transferred int64
	Total       int64
	TotalItems  int
	DoneItems   int
	Rate        int // 0–1000 permille
	Speed       float64
}

func (j *Job) Snapshot() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := View{
		ID:          j.ID,
		Kind:        j.Kind,
		Locator:     j.Locator,
		Status:      j.status,
		Err:         j.err,
		Transferred: j.transferred,
		Total:       j.total,
		TotalItems:  j.totalItems,
		DoneItems:   j.doneItems,
		Speed:       j.speed,
	}
	if j.total > 0 {
		v.Rate = int(j.transferred * 1000 / j.total)
		if v.Rate > 1000 {
			v.Rate = 1000
		}
	}
	return v
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) setErr(err error) {
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()
}

// SetProgress records byte counters; called by the owning worker.
func (j *Job) SetProgress(transferred, total int64) {
	j.mu.Lock()
	j.transferred = transferred
	if total > 0 {
		j.total = total
	}
	j.mu.Unlock()
}

// SetItems records item counters (chunk m of n); called by the owning worker.
func (j *Job) SetItems(done, total int) {
	j.mu.Lock()
	j.doneItems = done
	if total > 0 {
		j.totalItems = total
	}
	j.mu.Unlock()
}

func (j *Job) setSpeed(bps float64) {
	j.mu.Lock()
	j.speed = bps
	j.mu.Unlock()
}

// update refreshes caller-settable request fields on re-enqueue. A running
// job keeps its current request: the worker reads these fields unlocked, so
// they must not change mid-run.
func (j *Job) update(from *Job) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusRunning {
		return
	}
	j.Password = from.Password
	j.LocalPath = from.LocalPath
	j.FolderID = from.FolderID
	j.IsFolder = from.IsFolder
}
