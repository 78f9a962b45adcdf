package scheduler

import (
	"sort"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// Registry is the in-memory record of jobs for this process lifetime. Jobs
// are mutated only through Update so every change happens under the lock;
// reads hand out clones.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*models.Job)}
}

func (r *Registry) Add(job *models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns a clone of the job, or nil when unknown.
func (r *Registry) Get(jobID string) *models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil
	}
	return job.Clone()
}

// Update applies a mutation under the lock and returns a clone of the result,
// or nil when the job is unknown.
func (r *Registry) Update(jobID string, mutate func(*models.Job)) *models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil
	}
	mutate(job)
	return job.Clone()
}

// List returns clones of all jobs, newest first.
func (r *Registry) List() []*models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// HasActive reports whether any job is still pending or running.
func (r *Registry) HasActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.jobs {
		if !job.IsTerminal() {
			return true
		}
	}
	return false
}
