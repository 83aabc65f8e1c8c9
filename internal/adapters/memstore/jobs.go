// Package memstore is the in-process job table: a mutex-guarded map mutated
// by one background task per entry and read by any number of pollers.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"inquest/internal/domain"
)

type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.InvestigationJob
	now  func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*domain.InvestigationJob),
		now:  time.Now,
	}
}

func (s *JobStore) Create(incidentID string) domain.InvestigationJob {
	job := &domain.InvestigationJob{
		ID:         uuid.NewString(),
		IncidentID: incidentID,
		Status:     domain.JobPending,
		CreatedAt:  s.now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

// Get returns a copy so pollers never share memory with the mutating task.
func (s *JobStore) Get(jobID string) (domain.InvestigationJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.InvestigationJob{}, false
	}
	return *job, true
}

func (s *JobStore) SetRunning(jobID string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}
	job.Status = domain.JobRunning
	job.Progress = progress
}

func (s *JobStore) Complete(jobID string, result *domain.InvestigationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}
	done := s.now()
	job.Status = domain.JobCompleted
	job.Progress = 100
	job.Result = result
	job.Error = ""
	job.CompletedAt = &done
}

func (s *JobStore) Fail(jobID string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}
	done := s.now()
	job.Status = domain.JobFailed
	job.Result = nil
	job.Error = errMsg
	job.CompletedAt = &done
}

func (s *JobStore) Delete(jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}
