// Package tracker records the progress of analyses so callers can see which
// stage a long-running request is in and how it ended.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the lifecycle state of an analysis job.
type State int

const (
	// StateRunning - the pipeline is working through its stages.
	StateRunning State = iota
	// StateCompleted - a report was written.
	StateCompleted
	// StateFailed - a stage failed; no report exists.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalText encodes the state for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateRunning, StateCompleted, StateFailed} {
		if string(text) == st.String() {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job state %q", text)
}

// IsTerminal returns true if the state is terminal (COMPLETED or FAILED).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ErrJobFinished is returned when a finished job is asked to change.
var ErrJobFinished = errors.New("analysis job already finished")

// Status is a point-in-time copy of a job.
type Status struct {
	InteractionID string    `json:"interactionId"`
	State         State     `json:"state"`
	Stage         string    `json:"stage,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	ReportFile    string    `json:"reportFile,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Job is the state machine for one analysis. Safe for concurrent use.
//
// State transitions:
//
//	RUNNING ──Advance()──→ RUNNING (next stage)
//	   │
//	   ├── Complete() ──→ COMPLETED
//	   └── Fail()     ──→ FAILED
//
// COMPLETED and FAILED are terminal; every later transition is rejected.
type Job struct {
	mu     sync.RWMutex
	status Status
	now    func() time.Time
}

func newJob(interactionID string, now func() time.Time) *Job {
	t := now()
	return &Job{
		status: Status{
			InteractionID: interactionID,
			State:         StateRunning,
			StartedAt:     t,
			UpdatedAt:     t,
		},
		now: now,
	}
}

// Status returns a copy of the job's current status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.State
}

// Advance records that the job entered stage.
func (j *Job) Advance(stage string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State.IsTerminal() {
		return ErrJobFinished
	}
	j.status.Stage = stage
	j.status.UpdatedAt = j.now()
	return nil
}

// Complete moves the job to COMPLETED. Only allowed once, from RUNNING.
func (j *Job) Complete(reportFile string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State.IsTerminal() {
		return ErrJobFinished
	}
	j.status.State = StateCompleted
	j.status.ReportFile = reportFile
	j.status.UpdatedAt = j.now()
	return nil
}

// Fail moves the job to FAILED at stage.
// Returns false if the job had already finished.
func (j *Job) Fail(stage string, cause error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State.IsTerminal() {
		return false
	}
	j.status.State = StateFailed
	if stage != "" {
		j.status.Stage = stage
	}
	if cause != nil {
		j.status.Error = cause.Error()
	}
	j.status.UpdatedAt = j.now()
	return true
}
