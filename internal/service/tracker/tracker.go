package tracker

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrInProgress is returned when an interaction already has a running analysis.
var ErrInProgress = errors.New("analysis already in progress for interaction")

// DefaultRetention is how long finished jobs stay visible.
const DefaultRetention = time.Hour

// Tracker indexes jobs by interaction id. Finished jobs are forgotten once
// they are older than the retention period.
type Tracker struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
	now       func() time.Time
}

// New creates a Tracker. A non-positive retention uses DefaultRetention.
func New(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		jobs:      make(map[string]*Job),
		retention: retention,
		now:       time.Now,
	}
}

// Start registers a running job for interactionID. A finished job with the
// same id is replaced; a running one yields ErrInProgress.
func (t *Tracker) Start(interactionID string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	if j, ok := t.jobs[interactionID]; ok && !j.State().IsTerminal() {
		return nil, ErrInProgress
	}
	j := newJob(interactionID, t.now)
	t.jobs[interactionID] = j
	return j, nil
}

// Get returns the status of the job for interactionID.
func (t *Tracker) Get(interactionID string) (Status, bool) {
	t.mu.Lock()
	j, ok := t.jobs[interactionID]
	t.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return j.Status(), true
}

// List returns every known job, most recently started first.
func (t *Tracker) List() []Status {
	t.mu.Lock()
	t.pruneLocked()
	out := make([]Status, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.Status())
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].InteractionID < out[k].InteractionID
		}
		return out[i].StartedAt.After(out[k].StartedAt)
	})
	return out
}

// Running returns how many jobs have not finished.
func (t *Tracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, j := range t.jobs {
		if !j.State().IsTerminal() {
			n++
		}
	}
	return n
}

func (t *Tracker) pruneLocked() {
	cutoff := t.now().Add(-t.retention)
	for id, j := range t.jobs {
		st := j.Status()
		if st.State.IsTerminal() && st.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}
