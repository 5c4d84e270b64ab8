package cron

import "context"

// Job is a unit of scheduled work inside the cron worker. Name doubles as
// the metrics label, so two jobs must never share one.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker instance runs each tick.
type Registry struct {
	jobs  []Job
	names map[string]bool
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: make(map[string]bool)}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job, dropping nils and duplicate names.
func (r *Registry) Register(job Job) {
	if job == nil || r.names[job.Name()] {
		return
	}
	r.names[job.Name()] = true
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
