package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewRunID generates a unique run ID for one worker invocation
func NewRunID() string {
	return "run_" + uuid.New().String()
}
