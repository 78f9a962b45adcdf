package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// JobAccountState tracks one leased account within a job
type JobAccountState string

const (
	JobAccountRunning JobAccountState = "running"
	JobAccountDone    JobAccountState = "done"
	JobAccountError   JobAccountState = "error"
)

// JobTotals holds the running counters for a job. Success+Failure never
// exceeds Assigned and both are monotonically non-decreasing.
type JobTotals struct {
	Assigned int `json:"assigned"`
	Success  int `json:"success"`
	Failure  int `json:"failure"`
}

// JobAccount records per-account counters inside a job
type JobAccount struct {
	Email   string          `json:"email"`
	Success int             `json:"success"`
	Failure int             `json:"failure"`
	State   JobAccountState `json:"state"`
}

// JobError is one error encountered during a job run
type JobError struct {
	Email   string    `json:"email,omitempty"`
	Message string    `json:"error"`
	At      time.Time `json:"at"`
}

// Job is the scheduler-owned record of one worker process invocation.
// It is created when a batch is dispatched, mutated only from messages
// received from its worker, and immutable once terminal.
type Job struct {
	ID          string       `json:"job_id"`
	Status      JobStatus    `json:"status"`
	Auto        bool         `json:"auto"` // true for scheduler-initiated runs
	OwnerID     string       `json:"owner_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Totals      JobTotals    `json:"total"`
	Accounts    []JobAccount `json:"accounts"`
	Errors      []JobError   `json:"errors"`
}

// NewJob creates a pending job for a batch of assigned leads
func NewJob(ownerID string, assigned int, auto bool) *Job {
	return &Job{
		ID:        "job_" + uuid.New().String(),
		Status:    JobStatusPending,
		Auto:      auto,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		Totals:    JobTotals{Assigned: assigned},
		Accounts:  []JobAccount{},
		Errors:    []JobError{},
	}
}

// MarkRunning transitions the job to running
func (j *Job) MarkRunning() {
	if j.Status == JobStatusPending {
		j.Status = JobStatusRunning
	}
}

// IsTerminal returns true once the job reached a final state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// ApplyProgress copies worker counters into the job. Counters only ever move
// forward and are clamped so success+failure cannot exceed the assignment.
func (j *Job) ApplyProgress(success, failure int) {
	if j.IsTerminal() {
		return
	}
	if success < j.Totals.Success {
		success = j.Totals.Success
	}
	if failure < j.Totals.Failure {
		failure = j.Totals.Failure
	}
	if success+failure > j.Totals.Assigned {
		overflow := success + failure - j.Totals.Assigned
		if failure >= overflow {
			failure -= overflow
		} else {
			success -= overflow - failure
			failure = 0
		}
	}
	j.Totals.Success = success
	j.Totals.Failure = failure
	if n := len(j.Accounts); n > 0 {
		j.Accounts[n-1].Success = success
		j.Accounts[n-1].Failure = failure
	}
}

// AccountLeased records that the worker leased a new account for this job
func (j *Job) AccountLeased(email string) {
	if j.IsTerminal() {
		return
	}
	for i := range j.Accounts {
		if j.Accounts[i].State == JobAccountRunning {
			j.Accounts[i].State = JobAccountDone
		}
	}
	j.Accounts = append(j.Accounts, JobAccount{Email: email, State: JobAccountRunning})
}

// MarkDone applies final counters and sets the terminal status: completed
// when the run finished with zero failures, error otherwise.
func (j *Job) MarkDone(success, failure int) {
	if j.IsTerminal() {
		return
	}
	j.ApplyProgress(success, failure)
	for i := range j.Accounts {
		if j.Accounts[i].State == JobAccountRunning {
			j.Accounts[i].State = JobAccountDone
		}
	}
	if j.Totals.Failure > 0 {
		j.Status = JobStatusError
	} else {
		j.Status = JobStatusCompleted
	}
	now := time.Now()
	j.CompletedAt = &now
}

// MarkError records a terminal error reported by the worker
func (j *Job) MarkError(email, message string) {
	if j.IsTerminal() {
		return
	}
	j.Errors = append(j.Errors, JobError{Email: email, Message: message, At: time.Now()})
	for i := range j.Accounts {
		if j.Accounts[i].State == JobAccountRunning {
			j.Accounts[i].State = JobAccountError
		}
	}
	j.Status = JobStatusError
	now := time.Now()
	j.CompletedAt = &now
}

// ReconcileExit infers the outcome from the worker process exit code when no
// terminal message arrived before the process died.
func (j *Job) ReconcileExit(exitCode int) {
	if j.IsTerminal() {
		return
	}
	if exitCode == 0 {
		j.MarkDone(j.Totals.Success, j.Totals.Failure)
		return
	}
	j.MarkError("", "worker process exited without terminal message")
}

// Clone returns a deep copy safe to hand outside the registry lock
func (j *Job) Clone() *Job {
	clone := *j
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		clone.CompletedAt = &completed
	}
	clone.Accounts = make([]JobAccount, len(j.Accounts))
	copy(clone.Accounts, j.Accounts)
	clone.Errors = make([]JobError, len(j.Errors))
	copy(clone.Errors, j.Errors)
	return &clone
}
